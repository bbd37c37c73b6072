package role

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"
)

// Capabilities is either the universal marker held by super-admins or a set
// of "module-action" slugs.
type Capabilities struct {
	universal bool
	slugs     map[string]struct{}
}

func Universal() Capabilities {
	return Capabilities{universal: true}
}

func NewCapabilities(slugs ...string) Capabilities {
	set := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return Capabilities{slugs: set}
}

func (c Capabilities) IsUniversal() bool { return c.universal }

func (c Capabilities) Has(slug string) bool {
	if c.universal {
		return true
	}
	_, ok := c.slugs[slug]
	return ok
}

// Slugs returns the explicit set in sorted order, or ["*"] for the universal
// marker.
func (c Capabilities) Slugs() []string {
	if c.universal {
		return []string{"*"}
	}
	out := make([]string, 0, len(c.slugs))
	for s := range c.slugs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Modules lists the modules the holder can do anything in, in registry order.
func (c Capabilities) Modules() []string {
	if c.universal {
		return append([]string(nil), models.Modules...)
	}
	out := make([]string, 0)
	for _, m := range models.Modules {
		for _, a := range models.Actions {
			if _, ok := c.slugs[models.CapabilitySlug(m, a)]; ok {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// HasCapability reports whether caps allow action on module. Holding
// "<module>-manage" grants every action on that module.
func HasCapability(caps Capabilities, action, module string) bool {
	if caps.universal {
		return true
	}
	return caps.Has(models.CapabilitySlug(module, action)) ||
		caps.Has(models.CapabilitySlug(module, models.ActionManage))
}

// Resolver turns a user's role and custom permissions into Capabilities.
// Resolved role sets are cached per role id until Invalidate is called or
// the entry expires. A set is only cached when no Invalidate ran while it
// was being loaded, so a load that overlaps a write never outlives it.
type Resolver struct {
	db    *gorm.DB
	cache *expirable.LRU[uint, []string]

	mu         sync.Mutex
	generation uint64
}

func NewResolver(db *gorm.DB, ttl time.Duration) *Resolver {
	return &Resolver{
		db:    db,
		cache: expirable.NewLRU[uint, []string](256, nil, ttl),
	}
}

// Invalidate drops every cached role set. Role and permission writes call it
// before returning.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.generation++
	r.cache.Purge()
	r.mu.Unlock()
}

func (r *Resolver) currentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// store caches slugs for roleID unless an Invalidate happened since gen was
// read.
func (r *Resolver) store(roleID uint, gen uint64, slugs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen == r.generation {
		r.cache.Add(roleID, slugs)
	}
}

func (r *Resolver) EffectivePermissions(ctx context.Context, user *models.User) (Capabilities, error) {
	role := user.Role
	if role == nil || role.ID != user.RoleID {
		var loaded models.Role
		if err := r.db.WithContext(ctx).First(&loaded, user.RoleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewCapabilities(user.CustomPermissions...), nil
			}
			return Capabilities{}, apperr.Internal("Failed to load role", err)
		}
		role = &loaded
	}

	if role.IsSuperAdmin() {
		return Universal(), nil
	}

	slugs, err := r.RolePermissions(ctx, role)
	if err != nil {
		return Capabilities{}, err
	}

	all := make([]string, 0, len(slugs)+len(user.CustomPermissions))
	all = append(all, slugs...)
	all = append(all, user.CustomPermissions...)
	return NewCapabilities(all...), nil
}

// RolePermissions resolves the role's references to slugs. Id references
// count only while the permission is active; slug references are taken as
// written. An inactive role grants nothing. On a cache miss the role row is
// read again, so the references on the argument are never trusted.
func (r *Resolver) RolePermissions(ctx context.Context, role *models.Role) ([]string, error) {
	if !role.IsActive {
		return nil, nil
	}
	if cached, ok := r.cache.Get(role.ID); ok {
		return cached, nil
	}

	gen := r.currentGeneration()

	var current models.Role
	if err := r.db.WithContext(ctx).First(&current, role.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal("Failed to load role", err)
	}
	if !current.IsActive {
		r.store(current.ID, gen, nil)
		return nil, nil
	}

	ids := make([]uint, 0, len(current.Permissions))
	for _, ref := range current.Permissions {
		if ref.IsID() {
			ids = append(ids, ref.ID)
		}
	}

	byID := make(map[uint]string, len(ids))
	if len(ids) > 0 {
		var perms []models.Permission
		if err := r.db.WithContext(ctx).
			Where("id IN ? AND is_active = ?", ids, true).
			Find(&perms).Error; err != nil {
			return nil, apperr.Internal("Failed to resolve role permissions", err)
		}
		for _, p := range perms {
			byID[p.ID] = p.Slug
		}
	}

	slugs := make([]string, 0, len(current.Permissions))
	for _, ref := range current.Permissions {
		if ref.IsID() {
			if s, ok := byID[ref.ID]; ok {
				slugs = append(slugs, s)
			}
			continue
		}
		slugs = append(slugs, ref.Slug)
	}

	r.store(current.ID, gen, slugs)
	return slugs, nil
}
