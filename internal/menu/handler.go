package menu

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

func (h *Handler) ListMenusHandler(c *fiber.Ctx) error {
	menus, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, menus, "Menus retrieved successfully")
}

func (h *Handler) GetMenuHandler(c *fiber.Ctx) error {
	m, err := h.service.GetWithTree(c.UserContext(), c.Params("ref"))
	if err != nil {
		return err
	}
	return response.Success(c, m, "Menu retrieved successfully")
}

func (h *Handler) GetByLocationHandler(c *fiber.Ctx) error {
	m, err := h.service.EnsureForLocation(c.UserContext(), c.Params("location"))
	if err != nil {
		return err
	}
	return response.Success(c, m, "Menu retrieved successfully")
}

func (h *Handler) CreateMenuHandler(c *fiber.Ctx) error {
	var body CreateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	m, err := h.service.Create(c.UserContext(), body)
	if err != nil {
		return err
	}
	return response.Created(c, m, "Menu created successfully")
}

func (h *Handler) UpdateMenuHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "menu")
	if err != nil {
		return err
	}

	var body UpdateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	m, err := h.service.Update(c.UserContext(), id, body)
	if err != nil {
		return err
	}
	return response.Success(c, m, "Menu updated successfully")
}

func (h *Handler) DeleteMenuHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "menu")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return response.NoContent(c)
}

func (h *Handler) AddItemsHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "menu")
	if err != nil {
		return err
	}

	var body struct {
		Items []ItemInput `json:"items"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	added, skipped, err := h.service.AddItems(c.UserContext(), id, body.Items)
	if err != nil {
		return err
	}
	return response.Created(c, fiber.Map{
		"added":   added,
		"skipped": skipped,
	}, "Menu items added")
}

func (h *Handler) MoveItemHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "menu")
	if err != nil {
		return err
	}
	itemID, err := response.ParamID(c, "itemId", "menu item")
	if err != nil {
		return err
	}

	var body struct {
		Index    *int  `json:"index" validate:"required,min=0"`
		ParentID *uint `json:"parent_id"`
	}
	if err := validation.Bind(c, &body); err != nil {
		return err
	}

	if err := h.service.MoveItem(c.UserContext(), id, itemID, *body.Index, body.ParentID); err != nil {
		return err
	}

	m, err := h.service.GetWithTree(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return response.Success(c, m, "Menu item moved")
}

func (h *Handler) RemoveItemHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "menu")
	if err != nil {
		return err
	}
	itemID, err := response.ParamID(c, "itemId", "menu item")
	if err != nil {
		return err
	}

	removed, err := h.service.RemoveItem(c.UserContext(), id, itemID)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.Map{"removed": removed}, "Menu item removed")
}

func (h *Handler) ReplaceTreeHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "menu")
	if err != nil {
		return err
	}

	var body struct {
		Items []TreeInput `json:"items"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	tree, err := h.service.ReplaceTree(c.UserContext(), id, body.Items)
	if err != nil {
		return err
	}
	return response.Success(c, tree, "Menu tree saved")
}
