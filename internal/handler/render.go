package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voxsplit/api/internal/model"
	"github.com/voxsplit/api/internal/service"
	"github.com/voxsplit/api/pkg/response"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
	}
}

// Preview handles POST /api/render/preview
func (h *RenderHandler) Preview(c *fiber.Ctx) error {
	var req model.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Preview(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Export handles POST /api/render/export
func (h *RenderHandler) Export(c *fiber.Ctx) error {
	var req model.ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Export(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}
