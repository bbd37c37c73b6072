package middleware

import (
	"strings"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/auth"
	"github.com/Kyz7/backoffice/internal/logger"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/gofiber/fiber/v2"
)

// Guard inspects an authenticated principal and returns nil to allow.
type Guard func(p *auth.Principal) error

// RequireRole passes when the principal holds one of slugs.
func RequireRole(slugs ...string) Guard {
	return func(p *auth.Principal) error {
		if p.IsSuperAdmin() {
			return nil
		}
		for _, s := range slugs {
			if p.RoleSlug == s {
				return nil
			}
		}
		return apperr.Forbidden("")
	}
}

// RequireCapability passes when the principal holds one of caps, each given
// as "module-action". A module's manage permission satisfies any action.
func RequireCapability(caps ...string) Guard {
	return func(p *auth.Principal) error {
		if p.IsSuperAdmin() {
			return nil
		}
		for _, want := range caps {
			module, action, ok := models.ParseCapability(want)
			if !ok {
				continue
			}
			if p.Can(action, module) {
				return nil
			}
		}
		return apperr.Forbidden("")
	}
}

// RequireSuperAdmin passes only for the super-admin role.
func RequireSuperAdmin() Guard {
	return RequireRole(models.SuperAdminSlug)
}

// Check runs guards in order and stops at the first failure. A nil principal
// is unauthenticated regardless of the guards.
func Check(p *auth.Principal, guards ...Guard) error {
	if p == nil {
		return apperr.Unauthenticated("")
	}
	for _, g := range guards {
		if err := g(p); err != nil {
			return err
		}
	}
	return nil
}

// Authenticated resolves the session cookie to a principal and stores it on
// the request. Invalid sessions clear the cookie.
func Authenticated(authority *auth.Authority, cookies auth.CookieConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(auth.SessionCookie)
		if sid == "" {
			sid = bearer(c.Get(fiber.HeaderAuthorization))
		}
		if sid == "" {
			return apperr.Unauthenticated("")
		}

		p, err := authority.Authenticate(c.UserContext(), sid)
		if err != nil {
			if apperr.KindOf(err) != apperr.KindInternal {
				cookies.Clear(c)
			}
			return err
		}

		auth.WithPrincipal(c, p)
		c.Locals(logger.UserIDKey, p.UserID)
		return c.Next()
	}
}

// Allow runs guards against the principal stored by Authenticated.
func Allow(guards ...Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := Check(auth.PrincipalFrom(c), guards...); err != nil {
			return err
		}
		return c.Next()
	}
}

// Capability is shorthand for Allow(RequireCapability(caps...)).
func Capability(caps ...string) fiber.Handler {
	return Allow(RequireCapability(caps...))
}

// CurrentPrincipal returns the authenticated principal of the request.
func CurrentPrincipal(c *fiber.Ctx) *auth.Principal {
	return auth.PrincipalFrom(c)
}

func bearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
