package settings

import (
	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/middleware"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetSettingsHandler(c *fiber.Ctx) error {
	v, err := h.service.Get(c.UserContext())
	if err != nil {
		return err
	}
	return response.Success(c, v, "Settings retrieved successfully")
}

func (h *Handler) UpdateSettingsHandler(c *fiber.Ctx) error {
	var body Values
	if err := c.BodyParser(&body); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	v, err := h.service.Update(c.UserContext(), middleware.CurrentPrincipal(c).UserID, body)
	if err != nil {
		return err
	}
	return response.Success(c, v, "Settings updated successfully")
}
