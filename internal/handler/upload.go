package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxsplit/api/internal/service"
	"github.com/voxsplit/api/pkg/response"
)

type UploadHandler struct {
	service *service.UploadService
}

func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Upload handles POST /api/upload
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}
	if file.Filename == "" {
		return response.ValidationError(c, "Filename is required", nil)
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.ProcessUpload(c.Context(), file.Filename, f, file.Size)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, result)
}
