package media

import (
	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/middleware"
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

func (h *Handler) UploadMediaHandler(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperr.BadRequest("File is required")
	}

	src, err := header.Open()
	if err != nil {
		return apperr.BadRequest("Failed to read uploaded file")
	}
	defer src.Close()

	file, err := h.service.Upload(c.UserContext(), UploadInput{
		FileName:   header.Filename,
		Size:       header.Size,
		Body:       src,
		Alt:        c.FormValue("alt"),
		Caption:    c.FormValue("caption"),
		UploadedBy: middleware.CurrentPrincipal(c).UserID,
	})
	if err != nil {
		return err
	}
	return response.Created(c, file, "Media uploaded successfully")
}

func (h *Handler) ListMediaHandler(c *fiber.Ctx) error {
	f := Filter{
		Type:   c.Query("type"),
		Search: c.Query("search"),
		Paging: response.ParsePaging(c, h.defaultLimit, h.maxLimit),
	}

	files, total, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return response.SuccessWithPagination(c, files,
		response.CalculatePagination(f.Paging.Page, f.Paging.Limit, total),
		"Media files retrieved successfully")
}

func (h *Handler) GetMediaHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "media")
	if err != nil {
		return err
	}

	file, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.Success(c, file, "Media retrieved successfully")
}

func (h *Handler) UpdateMediaHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "media")
	if err != nil {
		return err
	}

	var body UpdateInput
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	file, err := h.service.Update(c.UserContext(), id, body)
	if err != nil {
		return err
	}
	return response.Success(c, file, "Media updated successfully")
}

func (h *Handler) DeleteMediaHandler(c *fiber.Ctx) error {
	id, err := response.ParamID(c, "id", "media")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return response.NoContent(c)
}
