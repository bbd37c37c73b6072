package response

import (
	"errors"
	"strconv"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/gofiber/fiber/v2"
)

type StandardResponse struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Data       interface{}         `json:"data,omitempty"`
	Pagination *Pagination         `json:"pagination,omitempty"`
	Code       string              `json:"code,omitempty"`
	Errors     []apperr.FieldError `json:"errors,omitempty"`
	Detail     string              `json:"detail,omitempty"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

func Success(c *fiber.Ctx, data interface{}, message string) error {
	return c.JSON(StandardResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SuccessWithPagination(c *fiber.Ctx, data interface{}, pagination *Pagination, message string) error {
	return c.JSON(StandardResponse{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	})
}

func Created(c *fiber.Ctx, data interface{}, message string) error {
	return c.Status(fiber.StatusCreated).JSON(StandardResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func Error(c *fiber.Ctx, statusCode int, errorCode string, message string, fields []apperr.FieldError) error {
	return c.Status(statusCode).JSON(StandardResponse{
		Success: false,
		Message: message,
		Code:    errorCode,
		Errors:  fields,
	})
}

func NotFound(c *fiber.Ctx, resource string) error {
	return Error(c, fiber.StatusNotFound, "NOT_FOUND", resource+" not found", nil)
}

func CalculatePagination(page, limit int, total int64) *Pagination {
	pages := total / int64(limit)
	if total%int64(limit) > 0 {
		pages++
	}

	return &Pagination{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}
}

// Paging is the normalised page/limit pair read from the query string.
type Paging struct {
	Page  int
	Limit int
}

func (p Paging) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePaging reads ?page= and ?limit=, clamping limit to [1, max].
func ParsePaging(c *fiber.Ctx, defaultLimit, maxLimit int) Paging {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Paging{Page: page, Limit: limit}
}

// StatusFor maps an error kind to its HTTP status and wire code.
func StatusFor(kind apperr.Kind) (int, string) {
	switch kind {
	case apperr.KindInvalidCredentials:
		return fiber.StatusUnauthorized, "INVALID_CREDENTIALS"
	case apperr.KindAccountDisabled:
		return fiber.StatusUnauthorized, "ACCOUNT_DISABLED"
	case apperr.KindUnauthenticated, apperr.KindStaleSession, apperr.KindUserGone:
		return fiber.StatusUnauthorized, "UNAUTHENTICATED"
	case apperr.KindForbidden:
		return fiber.StatusForbidden, "FORBIDDEN"
	case apperr.KindNotFound:
		return fiber.StatusNotFound, "NOT_FOUND"
	case apperr.KindConflict:
		return fiber.StatusConflict, "CONFLICT"
	case apperr.KindValidation:
		return fiber.StatusUnprocessableEntity, "VALIDATION_ERROR"
	case apperr.KindBadRequest:
		return fiber.StatusBadRequest, "BAD_REQUEST"
	case apperr.KindPartialFailure:
		return fiber.StatusInternalServerError, "PARTIAL_FAILURE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// ErrorHandler renders every error returned from a handler as the standard
// envelope. With debug set the wrapped cause is included as detail.
func ErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			status, code := StatusFor(appErr.Kind)
			body := StandardResponse{
				Success: false,
				Message: appErr.Message,
				Code:    code,
				Errors:  appErr.Fields,
			}
			if debug && appErr.Err != nil {
				body.Detail = appErr.Err.Error()
			}
			return c.Status(status).JSON(body)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code := "INTERNAL_ERROR"
			switch {
			case fiberErr.Code == fiber.StatusNotFound:
				code = "NOT_FOUND"
			case fiberErr.Code == fiber.StatusTooManyRequests:
				code = "TOO_MANY_REQUESTS"
			case fiberErr.Code == fiber.StatusRequestEntityTooLarge:
				code = "PAYLOAD_TOO_LARGE"
			case fiberErr.Code < 500:
				code = "BAD_REQUEST"
			}
			return c.Status(fiberErr.Code).JSON(StandardResponse{
				Success: false,
				Message: fiberErr.Message,
				Code:    code,
			})
		}

		body := StandardResponse{
			Success: false,
			Message: "Internal server error",
			Code:    "INTERNAL_ERROR",
		}
		if debug {
			body.Detail = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	}
}

// ParamID reads a positive integer route parameter.
func ParamID(c *fiber.Ctx, name, resource string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("Invalid " + resource + " ID")
	}
	return uint(id), nil
}
