package controller

import (
	"errors"

	"ai-docfill-be/internal/pkg/serverutils"
	"ai-docfill-be/internal/service"
	"ai-docfill-be/pkg/render"

	"github.com/gofiber/fiber/v2"
)

// httpError maps service errors to the status and message the client sees.
func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrFileNotFound):
		return serverutils.NewHTTPError(fiber.StatusNotFound, "File not found", err)
	case errors.Is(err, service.ErrInvalidValues):
		return serverutils.NewHTTPError(fiber.StatusBadRequest, "values must be a JSON object", err)
	case errors.Is(err, service.ErrUnsupportedFile):
		return serverutils.NewHTTPError(fiber.StatusBadRequest, "Uploaded file is not a .docx document", err)
	case errors.Is(err, render.ErrTemplate):
		return serverutils.NewHTTPError(fiber.StatusUnprocessableEntity, "Document template could not be rendered", err)
	case errors.Is(err, service.ErrLLM):
		return serverutils.NewHTTPError(fiber.StatusBadGateway, "Language model request failed", err)
	default:
		return err
	}
}
