package content

import (
	"strconv"

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

func (h *Handler) ListContentHandler(c *fiber.Ctx) error {
	f := Filter{
		Status: c.Query("status"),
		Paging: response.ParsePaging(c, h.defaultLimit, h.maxLimit),
	}
	if f.Status != "" && !models.IsStatus(f.Status) {
		return apperr.Field("status", "must be one of: active, inactive")
	}
	if raw := c.Query("page_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return apperr.BadRequest("page_id must be a number")
		}
		f.PageID = uint(id)
	}

	// A single page's blocks come back whole in display order.
	if f.PageID != 0 && c.Query("page") == "" && c.Query("limit") == "" {
		blocks, err := h.service.ListForPage(c.UserContext(), f.PageID, f.Status)
		if err != nil {
			return err
		}
		return response.Success(c, blocks, "Content retrieved successfully")
	}

	blocks, total, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return response.SuccessWithPagination(c, blocks,
		response.CalculatePagination(f.Paging.Page, f.Paging.Limit, total),
		"Content retrieved successfully")
}

func (h *Handler) GetContentHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "content")
	if err != nil {
		return err
	}

	block, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, block, "Content retrieved successfully")
}

func (h *Handler) CreateContentHandler(c *fiber.Ctx) error {
	var body CreateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	block, err := h.service.Create(c.UserContext(), body)
	if err != nil {
		return err
	}
	return response.Created(c, block, "Content created successfully")
}

func (h *Handler) UpdateContentHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "content")
	if err != nil {
		return err
	}

	var body UpdateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	block, err := h.service.Update(c.UserContext(), id, body)
	if err != nil {
		return err
	}
	return response.Success(c, block, "Content updated successfully")
}

func (h *Handler) DeleteContentHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "content")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return response.NoContent(c)
}
