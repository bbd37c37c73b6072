package auth

import (
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/role"
	"github.com/gofiber/fiber/v2"
)

// SessionCookie carries the opaque session id.
const SessionCookie = "bo_session"

const principalKey = "principal"

// Principal is the authenticated caller as seen by guards and handlers. It is
// derived on every Authenticate and never stored.
type Principal struct {
	UserID       uint
	Name         string
	Email        string
	RoleID       uint
	RoleSlug     string
	RoleLevel    int
	Capabilities role.Capabilities
	SessionID    string
}

func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.RoleSlug == models.SuperAdminSlug
}

func (p *Principal) Can(action, module string) bool {
	return p != nil && role.HasCapability(p.Capabilities, action, module)
}

type PrincipalView struct {
	UserID       uint     `json:"user_id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	RoleID       uint     `json:"role_id"`
	Role         string   `json:"role"`
	Level        int      `json:"level"`
	IsSuperAdmin bool     `json:"is_super_admin"`
	Permissions  []string `json:"permissions"`
	Modules      []string `json:"modules"`
}

// View is the client-facing shape used for UI gating.
func (p *Principal) View() PrincipalView {
	return PrincipalView{
		UserID:       p.UserID,
		Name:         p.Name,
		Email:        p.Email,
		RoleID:       p.RoleID,
		Role:         p.RoleSlug,
		Level:        p.RoleLevel,
		IsSuperAdmin: p.IsSuperAdmin(),
		Permissions:  p.Capabilities.Slugs(),
		Modules:      p.Capabilities.Modules(),
	}
}

// WithPrincipal stores p on the request.
func WithPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(principalKey, p)
}

// PrincipalFrom returns the principal stored by the access middleware, or nil.
func PrincipalFrom(c *fiber.Ctx) *Principal {
	p, _ := c.Locals(principalKey).(*Principal)
	return p
}
