package user

import (
	"strconv"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/auth"
	"github.com/Kyz7/backoffice/internal/middleware"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/Kyz7/backoffice/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service      *Service
	authority    *auth.Authority
	cookies      auth.CookieConfig
	defaultLimit int
	maxLimit     int
}

func NewHandler(service *Service, authority *auth.Authority, cookies auth.CookieConfig, defaultLimit, maxLimit int) *Handler {
	return &Handler{
		service:      service,
		authority:    authority,
		cookies:      cookies,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (h *Handler) ListUsersHandler(c *fiber.Ctx) error {
	f := ListFilter{
		Search: c.Query("search"),
		Paging: response.ParsePaging(c, h.defaultLimit, h.maxLimit),
	}
	if raw := c.Query("role_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return apperr.BadRequest("role_id must be a number")
		}
		f.RoleID = uint(id)
	}
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.BadRequest("is_active must be true or false")
		}
		f.IsActive = &v
	}

	users, total, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return response.SuccessWithPagination(c, users,
		response.CalculatePagination(f.Paging.Page, f.Paging.Limit, total),
		"Users retrieved successfully")
}

func (h *Handler) GetUserHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "user")
	if err != nil {
		return err
	}

	u, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, u, "User retrieved successfully")
}

func (h *Handler) CreateUserHandler(c *fiber.Ctx) error {
	var body CreateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	u, err := h.service.Create(c.UserContext(), middleware.CurrentPrincipal(c), body)
	if err != nil {
		return err
	}
	return response.Created(c, u, "User created successfully")
}

func (h *Handler) UpdateUserHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "user")
	if err != nil {
		return err
	}

	var body UpdateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	actor := middleware.CurrentPrincipal(c)
	u, passwordChanged, err := h.service.Update(c.UserContext(), actor, id, body)
	if err != nil {
		return err
	}

	// Keep the caller signed in after changing their own password.
	if passwordChanged && u.ID == actor.UserID {
		sid, err := h.authority.Reissue(c.UserContext(), actor.SessionID, u)
		if err != nil {
			return err
		}
		h.cookies.Set(c, sid)
	}
	return response.Success(c, u, "User updated successfully")
}

func (h *Handler) DeleteUserHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "user")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), middleware.CurrentPrincipal(c), id); err != nil {
		return err
	}
	return response.NoContent(c)
}

func (h *Handler) SetStatusHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "user")
	if err != nil {
		return err
	}

	var body struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}
	if err := validation.Bind(c, &body); err != nil {
		return err
	}

	u, err := h.service.SetStatus(c.UserContext(), middleware.CurrentPrincipal(c), id, *body.IsActive)
	if err != nil {
		return err
	}
	return response.Success(c, u, "User status updated successfully")
}

func (h *Handler) IssueResetTokenHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "user")
	if err != nil {
		return err
	}

	token, expires, err := h.service.IssueResetToken(c.UserContext(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		return err
	}
	return response.Created(c, fiber.Map{
		"token":      token,
		"expires_at": expires,
	}, "Reset token issued")
}
