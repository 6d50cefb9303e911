package serverutils

import (
	"errors"

	"finscope-be/internal/entity"
	"finscope-be/pkg/gateway"
	"finscope-be/pkg/workflow"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps domain errors onto HTTP statuses. Every
// branch leaves the caller with the previous consistent state; the
// status only tells the UI which recovery affordance to show.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}

		var validationErr *entity.ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(validationErr.Error()))
		}

		switch {
		case errors.Is(err, workflow.ErrNoActiveSession):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(err.Error()))
		case errors.Is(err, workflow.ErrSessionConflict):
			// 409 tells the UI to offer Resume Existing vs Replace.
			return ctx.Status(fiber.StatusConflict).JSON(ErrorResponse(err.Error()))
		case errors.Is(err, workflow.ErrOperationInFlight):
			return ctx.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse(err.Error()))
		}

		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return ctx.Status(fiber.StatusBadGateway).JSON(ErrorResponse(gwErr.Error()))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(err.Error()))
	}
}
