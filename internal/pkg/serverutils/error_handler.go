package serverutils

import (
	"errors"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/dto"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into {error, type?} responses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		status, body := MapError(err)
		return ctx.Status(status).JSON(body)
	}
}

func MapError(err error) (int, ErrorBody) {
	var limitErr *dto.LimitExceededError
	var validationErrs validator.ValidationErrors
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &limitErr):
		return fiber.StatusForbidden, TypedErrorResponse(constant.MessageUsageLimitReached, dto.ErrorTypeUsageLimit, limitErr)
	case errors.Is(err, dto.ErrUnauthenticated):
		return fiber.StatusUnauthorized, ErrorResponse(constant.MessageUnauthorized)
	case errors.Is(err, dto.ErrSessionNotFound):
		return fiber.StatusNotFound, ErrorResponse(constant.MessageSessionNotFound)
	case errors.As(err, &validationErrs):
		return fiber.StatusBadRequest, TypedErrorResponse(constant.MessageInvalidRequest, "validation", ValidationMessages(err))
	case errors.Is(err, dto.ErrMalformedRequest):
		return fiber.StatusBadRequest, TypedErrorResponse(constant.MessageInvalidRequest, "validation", err.Error())
	case errors.Is(err, dto.ErrInvalidStatusTransition):
		return fiber.StatusConflict, ErrorResponse(constant.MessageInvalidTransition)
	case errors.Is(err, dto.ErrProfileUnavailable):
		return fiber.StatusInternalServerError, ErrorResponse(constant.MessageProfileError)
	case errors.Is(err, dto.ErrPersistence):
		return fiber.StatusInternalServerError, ErrorResponse(constant.MessageSaveFailed)
	case errors.As(err, &fiberErr):
		return fiberErr.Code, ErrorResponse(fiberErr.Message)
	default:
		return fiber.StatusInternalServerError, ErrorResponse(constant.MessageInternalError)
	}
}
