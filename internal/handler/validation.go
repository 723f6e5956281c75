package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voxsplit/api/internal/model"
	"github.com/voxsplit/api/pkg/response"
)

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

// serviceError maps domain sentinels onto the response envelope. Every
// handler funnels service failures through here so the HTTP surface
// stays consistent.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, model.ErrJobNotComplete), errors.Is(err, model.ErrInvalidState):
		return response.InvalidState(c, err.Error())
	case errors.Is(err, model.ErrInvalidRange):
		return response.InvalidRange(c, err.Error())
	case errors.Is(err, model.ErrUnsupportedFormat):
		return response.UnsupportedFormat(c, err.Error())
	case errors.Is(err, model.ErrInvalidUpload):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, model.ErrEncodeFailed):
		return response.EncodeFailed(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}
