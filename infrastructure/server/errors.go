package server

import (
	"chat-relay/errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// toHTTPError maps domain errors onto HTTP statuses. Unknown errors become
// a 500 without leaking their message.
func toHTTPError(log *slog.Logger, err error) *fiber.Error {
	switch {
	case errors.Is(err, errors.ErrInvalidRegistration),
		errors.Is(err, errors.ErrInvalidPassword),
		errors.Is(err, errors.ErrInvalidChatRequest),
		errors.Is(err, errors.ErrSelfChat),
		errors.Is(err, errors.ErrNotGroupChat),
		errors.Is(err, errors.ErrMalformedPayload):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, errors.ErrInvalidCredentials),
		errors.Is(err, errors.ErrInvalidToken):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, errors.ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, errors.ErrChatNotFound),
		errors.Is(err, errors.ErrUserNotFound),
		errors.Is(err, errors.ErrMessageNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, errors.ErrUserAlreadyExists),
		errors.Is(err, errors.ErrChatAlreadyExists),
		errors.Is(err, errors.ErrAlreadyMember),
		errors.Is(err, errors.ErrDuplicateMessage):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, errors.ErrStorageUnavailable):
		log.Error("Storage unavailable", "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		log.Error("Request failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// errorHandler renders every error as {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(ErrorResponse{Error: message})
}
