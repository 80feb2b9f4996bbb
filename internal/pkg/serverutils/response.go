package serverutils

import (
	"agent-catalog-be/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	}
}

// ErrorBody is the single JSON object returned for every non-stream failure.
type ErrorBody struct {
	Error   string      `json:"error"`
	Type    string      `json:"type,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func ErrorResponse(message string) ErrorBody {
	return ErrorBody{Error: message}
}

func TypedErrorResponse(message, errType string, details interface{}) ErrorBody {
	return ErrorBody{Error: message, Type: errType, Details: details}
}

// CurrentUserID reads the id stored by the JWT middleware.
func CurrentUserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, ok := ctx.Locals("user_id").(string)
	if !ok || raw == "" {
		return uuid.Nil, dto.ErrUnauthenticated
	}
	userId, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dto.ErrUnauthenticated
	}
	return userId, nil
}
