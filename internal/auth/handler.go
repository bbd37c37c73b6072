package auth

import (
	"time"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/Kyz7/backoffice/internal/validation"
	"github.com/gofiber/fiber/v2"
)

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Secure bool
	TTL    time.Duration
}

func (cc CookieConfig) Set(c *fiber.Ctx, sid string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(cc.TTL.Seconds()),
		Expires:  time.Now().Add(cc.TTL),
		HTTPOnly: true,
		Secure:   cc.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (cc CookieConfig) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   cc.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

type Handler struct {
	authority *Authority
	cookies   CookieConfig
}

func NewHandler(authority *Authority, cookies CookieConfig) *Handler {
	return &Handler{authority: authority, cookies: cookies}
}

func loginPayload(result *LoginResult) fiber.Map {
	return fiber.Map{
		"user":    result.User,
		"session": result.Principal.View(),
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) LoginHandler(c *fiber.Ctx) error {
	var body loginRequest
	if err := validation.Bind(c, &body); err != nil {
		return err
	}

	result, err := h.authority.Login(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return err
	}

	h.cookies.Set(c, result.SessionID)
	return response.Success(c, loginPayload(result), "Login successful")
}

// LogoutHandler destroys whatever session the cookie names. It succeeds even
// when the session is already gone.
func (h *Handler) LogoutHandler(c *fiber.Ctx) error {
	if err := h.authority.Logout(c.UserContext(), c.Cookies(SessionCookie)); err != nil {
		return err
	}
	h.cookies.Clear(c)
	return response.Success(c, nil, "Logout successful")
}

// StatusHandler is public and never fails on a missing or invalid session.
func (h *Handler) StatusHandler(c *fiber.Ctx) error {
	sid := c.Cookies(SessionCookie)
	if sid == "" {
		return response.Success(c, fiber.Map{"authenticated": false}, "")
	}

	p, err := h.authority.Authenticate(c.UserContext(), sid)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return err
		}
		h.cookies.Clear(c)
		return response.Success(c, fiber.Map{"authenticated": false}, "")
	}

	return response.Success(c, fiber.Map{
		"authenticated": true,
		"user_id":       p.UserID,
	}, "")
}

func (h *Handler) SessionCheckHandler(c *fiber.Ctx) error {
	p := PrincipalFrom(c)
	if p == nil {
		return apperr.Unauthenticated("")
	}
	return response.Success(c, p.View(), "Session is valid")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *Handler) ChangePasswordHandler(c *fiber.Ctx) error {
	p := PrincipalFrom(c)
	if p == nil {
		return apperr.Unauthenticated("")
	}

	var body changePasswordRequest
	if err := validation.Bind(c, &body); err != nil {
		return err
	}

	sid, err := h.authority.ChangePassword(c.UserContext(), p, body.CurrentPassword, body.NewPassword)
	if err != nil {
		return err
	}

	h.cookies.Set(c, sid)
	return response.Success(c, nil, "Password changed successfully")
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *Handler) ResetPasswordHandler(c *fiber.Ctx) error {
	var body resetPasswordRequest
	if err := validation.Bind(c, &body); err != nil {
		return err
	}

	if err := h.authority.ResetPassword(c.UserContext(), body.Token, body.NewPassword); err != nil {
		return err
	}
	return response.Success(c, nil, "Password reset successful")
}
