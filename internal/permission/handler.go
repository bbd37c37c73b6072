package permission

import (
	"strconv"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListPermissionsHandler(c *fiber.Ctx) error {
	f := Filter{
		Module: c.Query("module"),
		Action: c.Query("action"),
	}
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return apperr.BadRequest("is_active must be true or false")
		}
		f.IsActive = &v
	}

	perms, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return response.Success(c, perms, "Permissions retrieved successfully")
}

func (h *Handler) CatalogHandler(c *fiber.Ctx) error {
	return response.Success(c, fiber.Map{
		"modules": models.Modules,
		"actions": models.Actions,
	}, "")
}

func (h *Handler) GetPermissionHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "permission")
	if err != nil {
		return err
	}

	perm, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, perm, "Permission retrieved successfully")
}

func (h *Handler) CreatePermissionHandler(c *fiber.Ctx) error {
	var body CreateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	perm, err := h.service.Create(c.UserContext(), body)
	if err != nil {
		return err
	}
	return response.Created(c, perm, "Permission created successfully")
}

func (h *Handler) UpdatePermissionHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "permission")
	if err != nil {
		return err
	}

	var body struct {
		Patch
		Module *string `json:"module"`
		Action *string `json:"action"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	if body.Module != nil || body.Action != nil {
		current, err := h.service.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		if (body.Module != nil && *body.Module != current.Module) || (body.Action != nil && *body.Action != current.Action) {
			return apperr.Validation(apperr.FieldError{Field: "module", Message: "module and action cannot be changed"})
		}
	}

	perm, err := h.service.Update(c.UserContext(), id, body.Patch)
	if err != nil {
		return err
	}
	return response.Success(c, perm, "Permission updated successfully")
}

func (h *Handler) DeletePermissionHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "permission")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return response.NoContent(c)
}
