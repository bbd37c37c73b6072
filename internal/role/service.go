package role

import (
	"context"
	"errors"
	"strings"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/utils"
	"github.com/Kyz7/backoffice/internal/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	resolver *Resolver
	log      logrus.FieldLogger
}

func NewService(db *gorm.DB, resolver *Resolver, log logrus.FieldLogger) *Service {
	return &Service{db: db, resolver: resolver, log: log}
}

type CreateInput struct {
	Name        string                 `json:"name" validate:"required,min=2,max=100"`
	Description string                 `json:"description" validate:"max=500"`
	Level       int                    `json:"level" validate:"required,min=1,max=5"`
	Permissions []models.PermissionRef `json:"permissions"`
	IsActive    *bool                  `json:"is_active"`
}

type UpdateInput struct {
	Name        *string                 `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string                 `json:"description" validate:"omitempty,max=500"`
	Level       *int                    `json:"level" validate:"omitempty,min=1,max=5"`
	Permissions *[]models.PermissionRef `json:"permissions"`
	IsActive    *bool                   `json:"is_active"`
}

func (s *Service) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("level ASC, name ASC").Find(&roles).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch roles", err)
	}
	return roles, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Role")
		}
		return nil, apperr.Internal("Failed to fetch role", err)
	}
	return &role, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Role, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	slug := utils.DeriveSlug(name)
	if slug == "" {
		return nil, apperr.Field("name", "must contain letters or digits")
	}
	if err := s.checkUnique(ctx, name, slug, 0); err != nil {
		return nil, err
	}

	refs, err := s.normalizeRefs(ctx, in.Permissions)
	if err != nil {
		return nil, err
	}

	role := models.Role{
		Name:         name,
		Slug:         slug,
		Description:  in.Description,
		Permissions:  refs,
		Level:        in.Level,
		IsSystemRole: false,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
		return nil, apperr.Internal("Failed to create role", err)
	}

	s.resolver.Invalidate()
	s.log.WithFields(logrus.Fields{"role_id": role.ID, "slug": role.Slug}).Info("role created")
	return &role, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Role, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystemRole {
		return nil, apperr.Forbidden("System roles cannot be modified")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		slug := utils.DeriveSlug(name)
		if slug == "" {
			return nil, apperr.Field("name", "must contain letters or digits")
		}
		if err := s.checkUnique(ctx, name, slug, role.ID); err != nil {
			return nil, err
		}
		role.Name = name
		role.Slug = slug
	}
	if in.Description != nil {
		role.Description = *in.Description
	}
	if in.Level != nil {
		role.Level = *in.Level
	}
	if in.Permissions != nil {
		refs, err := s.normalizeRefs(ctx, *in.Permissions)
		if err != nil {
			return nil, err
		}
		role.Permissions = refs
	}
	if in.IsActive != nil {
		role.IsActive = *in.IsActive
	}

	if err := s.db.WithContext(ctx).Save(role).Error; err != nil {
		return nil, apperr.Internal("Failed to update role", err)
	}

	s.resolver.Invalidate()
	return role, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	role, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return apperr.Forbidden("System roles cannot be deleted")
	}

	var userCount int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role_id = ?", id).Count(&userCount).Error; err != nil {
		return apperr.Internal("Failed to check role usage", err)
	}
	if userCount > 0 {
		return apperr.Conflict("Cannot delete role that is assigned to users")
	}

	if err := s.db.WithContext(ctx).Delete(&models.Role{}, id).Error; err != nil {
		return apperr.Internal("Failed to delete role", err)
	}

	s.resolver.Invalidate()
	s.log.WithField("role_id", id).Info("role deleted")
	return nil
}

// Duplicate copies a role's level and permissions under a new name. The copy
// is never a system role.
func (s *Service) Duplicate(ctx context.Context, id uint, newName string) (*models.Role, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	active := true
	return s.Create(ctx, CreateInput{
		Name:        newName,
		Description: strings.TrimSpace(original.Description + " (Copy)"),
		Level:       original.Level,
		Permissions: original.Permissions,
		IsActive:    &active,
	})
}

func (s *Service) checkUnique(ctx context.Context, name, slug string, excludeID uint) error {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.Role{}).
		Where("LOWER(name) = ? OR slug = ?", strings.ToLower(name), slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperr.Internal("Failed to check role uniqueness", err)
	}
	if count > 0 {
		return apperr.Conflict("Role with this name already exists")
	}
	return nil
}

// normalizeRefs stores every reference by id. Slug references are looked up
// and rewritten; anything that does not match a registered permission is
// rejected.
func (s *Service) normalizeRefs(ctx context.Context, refs []models.PermissionRef) ([]models.PermissionRef, error) {
	out := make([]models.PermissionRef, 0, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	var ids []uint
	var slugs []string
	for _, ref := range refs {
		if ref.IsID() {
			ids = append(ids, ref.ID)
		} else {
			slugs = append(slugs, ref.Slug)
		}
	}

	var perms []models.Permission
	q := s.db.WithContext(ctx).Model(&models.Permission{})
	switch {
	case len(ids) > 0 && len(slugs) > 0:
		q = q.Where("id IN ? OR slug IN ?", ids, slugs)
	case len(ids) > 0:
		q = q.Where("id IN ?", ids)
	default:
		q = q.Where("slug IN ?", slugs)
	}
	if err := q.Find(&perms).Error; err != nil {
		return nil, apperr.Internal("Failed to load permissions", err)
	}

	knownIDs := make(map[uint]bool, len(perms))
	idBySlug := make(map[string]uint, len(perms))
	for _, p := range perms {
		knownIDs[p.ID] = true
		idBySlug[p.Slug] = p.ID
	}

	seen := make(map[uint]bool, len(refs))
	var unknown []string
	for _, ref := range refs {
		id := ref.ID
		if !ref.IsID() {
			id = idBySlug[ref.Slug]
		}
		if id == 0 || !knownIDs[id] {
			unknown = append(unknown, ref.String())
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, models.RefByID(id))
	}

	if len(unknown) > 0 {
		return nil, apperr.Field("permissions", "unknown permissions: "+strings.Join(unknown, ", "))
	}
	return out, nil
}
