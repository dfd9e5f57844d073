package serverutils

import (
	"errors"

	"ai-docfill-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// HTTPError is an error with a status code and a message safe to show the
// client. The wrapped error is logged, never returned.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Message: message, Err: err}
}

// ErrorHandlerMiddleware turns errors returned by later handlers into JSON
// error bodies.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, log, err)
	}
}

// WriteError renders err. Also installed as fiber's ErrorHandler so panics
// recovered by fiber end up with the same body.
func WriteError(ctx *fiber.Ctx, log logger.ILogger, err error) error {
	var (
		httpErr  *HTTPError
		fiberErr *fiber.Error
		valErr   *ValidationError
	)

	switch {
	case errors.As(err, &valErr):
		body := ErrorResponse(fiber.StatusBadRequest, "Validation failed")
		body.Details = valErr.Fields
		return ctx.Status(fiber.StatusBadRequest).JSON(body)

	case errors.As(err, &httpErr):
		if httpErr.Status >= fiber.StatusInternalServerError {
			log.Error("HTTP", httpErr.Message, map[string]interface{}{
				"error":  err.Error(),
				"path":   ctx.Path(),
				"method": ctx.Method(),
			})
		}
		return ctx.Status(httpErr.Status).JSON(ErrorResponse(httpErr.Status, httpErr.Message))

	case errors.As(err, &fiberErr):
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	log.Error("HTTP", "Unhandled error", map[string]interface{}{
		"error":  err.Error(),
		"path":   ctx.Path(),
		"method": ctx.Method(),
	})
	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
}
