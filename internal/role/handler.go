package role

import (
	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/Kyz7/backoffice/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListRolesHandler(c *fiber.Ctx) error {
	roles, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, roles, "Roles retrieved successfully")
}

func (h *Handler) GetRoleHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "role")
	if err != nil {
		return err
	}

	role, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, role, "Role retrieved successfully")
}

func (h *Handler) CreateRoleHandler(c *fiber.Ctx) error {
	var body CreateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	role, err := h.service.Create(c.UserContext(), body)
	if err != nil {
		return err
	}
	return response.Created(c, role, "Role created successfully")
}

func (h *Handler) UpdateRoleHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "role")
	if err != nil {
		return err
	}

	var body UpdateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	role, err := h.service.Update(c.UserContext(), id, body)
	if err != nil {
		return err
	}
	return response.Success(c, role, "Role updated successfully")
}

func (h *Handler) DeleteRoleHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "role")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return response.NoContent(c)
}

func (h *Handler) DuplicateRoleHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "role")
	if err != nil {
		return err
	}

	var body struct {
		Name string `json:"name" validate:"required,min=2,max=100"`
	}
	if err := validation.Bind(c, &body); err != nil {
		return err
	}

	role, err := h.service.Duplicate(c.UserContext(), id, body.Name)
	if err != nil {
		return err
	}
	return response.Created(c, role, "Role duplicated successfully")
}
