package response

import "github.com/gofiber/fiber/v2"

// Error codes
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidRange      = "INVALID_RANGE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeEncodeFailed      = "ENCODE_FAILED"
	CodeServiceError      = "SERVICE_ERROR"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func Error(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, CodeValidationError, message, details)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, CodeNotFound, message, nil)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded", nil)
}

func InvalidState(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, CodeInvalidState, message, nil)
}

func InvalidRange(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, CodeInvalidRange, message, nil)
}

func UnsupportedFormat(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, CodeUnsupportedFormat, message, nil)
}

func EncodeFailed(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeEncodeFailed, message, nil)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServiceError, message, nil)
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(data)
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
