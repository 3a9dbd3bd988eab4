package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/lakshcode9/metaapi-server-deploy/pkg/errors"
)

// Failure is the uniform error envelope. Error carries the human-readable
// message, Code the machine-readable failure kind.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler converts errors returned by handlers into the gateway's
// failure envelope. AppError statuses and codes pass through; anything
// else collapses to a 500 without leaking internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.HTTPStatus).JSON(Failure{
			Success: false,
			Error:   appErr.Message,
			Code:    appErr.Code,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(Failure{
			Success: false,
			Error:   fiberErr.Message,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(Failure{
		Success: false,
		Error:   "An unexpected error occurred",
		Code:    apperrors.ErrInternal.Code,
	})
}
