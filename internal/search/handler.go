package search

import (
	"strconv"
	"strings"

	"github.com/Kyz7/backoffice/internal/apperr"
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

func (h *Handler) params(c *fiber.Ctx) (Params, error) {
	p := Params{
		Query:    c.Query("q"),
		Status:   c.Query("status"),
		FromDate: c.Query("from"),
		ToDate:   c.Query("to"),
		SortBy:   c.Query("sort_by", "created_at"),
		OrderBy:  c.Query("order_by", "desc"),
		Paging:   response.ParsePaging(c, h.defaultLimit, h.maxLimit),
	}
	if raw := c.Query("page_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return p, apperr.BadRequest("page_id must be a number")
		}
		p.PageID = uint(id)
	}
	if fields := c.Query("fields"); fields != "" {
		p.Fields = strings.Split(fields, ",")
	}
	return p, nil
}

func (h *Handler) SearchContentHandler(c *fiber.Ctx) error {
	if len(c.Context().QueryArgs().String()) == 0 {
		return apperr.BadRequest("At least one search parameter is required")
	}

	p, err := h.params(c)
	if err != nil {
		return err
	}

	blocks, total, err := h.service.Content(c.UserContext(), p)
	if err != nil {
		return err
	}
	return response.SuccessWithPagination(c, blocks,
		response.CalculatePagination(p.Paging.Page, p.Paging.Limit, total),
		"Search completed successfully")
}

func (h *Handler) FacetsHandler(c *fiber.Ctx) error {
	p, err := h.params(c)
	if err != nil {
		return err
	}

	facets, err := h.service.Facets(c.UserContext(), p)
	if err != nil {
		return err
	}
	return response.Success(c, facets, "Facets retrieved successfully")
}
