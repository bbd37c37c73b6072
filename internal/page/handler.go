package page

import (
	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service      *Service
	defaultLimit int
	maxLimit     int
}

func NewHandler(service *Service, defaultLimit, maxLimit int) *Handler {
	return &Handler{service: service, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

func (h *Handler) ListPagesHandler(c *fiber.Ctx) error {
	f := Filter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Paging: response.ParsePaging(c, h.defaultLimit, h.maxLimit),
	}
	if f.Status != "" && !models.IsStatus(f.Status) {
		return apperr.Field("status", "must be one of: active, inactive")
	}

	pages, total, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return response.SuccessWithPagination(c, pages,
		response.CalculatePagination(f.Paging.Page, f.Paging.Limit, total),
		"Pages retrieved successfully")
}

func (h *Handler) GetPageHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "page")
	if err != nil {
		return err
	}

	p, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, p, "Page retrieved successfully")
}

func (h *Handler) CreatePageHandler(c *fiber.Ctx) error {
	var body CreateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	p, err := h.service.Create(c.UserContext(), body)
	if err != nil {
		return err
	}
	return response.Created(c, p, "Page created successfully")
}

func (h *Handler) UpdatePageHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "page")
	if err != nil {
		return err
	}

	var body UpdateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	p, err := h.service.Update(c.UserContext(), id, body)
	if err != nil {
		return err
	}
	return response.Success(c, p, "Page updated successfully")
}

func (h *Handler) DeletePageHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "page")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return response.NoContent(c)
}

// PublicPageHandler serves GET /api/public/pages/:segment?; no segment means
// the home page.
func (h *Handler) PublicPageHandler(c *fiber.Ctx) error {
	view, found, err := h.service.PublicView(c.UserContext(), c.Params("segment"))
	if err != nil {
		return err
	}
	if !found {
		return response.NotFound(c, "Page")
	}
	return response.Success(c, view, "Page retrieved successfully")
}
