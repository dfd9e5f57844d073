package serverutils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-docfill-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validated struct {
	FileID string `validate:"required,uuid"`
}

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantDetails bool
	}{
		{
			name:        "http error",
			err:         NewHTTPError(http.StatusNotFound, "File not found", errors.New("stat: no such file")),
			wantStatus:  http.StatusNotFound,
			wantMessage: "File not found",
		},
		{
			name:        "wrapped http error keeps status",
			err:         errors.Join(errors.New("ctx"), NewHTTPError(http.StatusBadGateway, "Language model request failed", nil)),
			wantStatus:  http.StatusBadGateway,
			wantMessage: "Language model request failed",
		},
		{
			name:        "fiber error",
			err:         fiber.NewError(http.StatusRequestEntityTooLarge, "Request Entity Too Large"),
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantMessage: "Request Entity Too Large",
		},
		{
			name:        "validation error",
			err:         ValidateRequest(validated{FileID: "nope"}),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Validation failed",
			wantDetails: true,
		},
		{
			name:        "unknown error is hidden",
			err:         errors.New("disk on fire"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware(logger.NewNopLogger()))
			app.Get("/", func(ctx *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body ErrorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus, body.Code)
			assert.Equal(t, tt.wantMessage, body.Error)
			assert.Equal(t, tt.wantDetails, body.Details != nil)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(validated{FileID: "6f1c9a36-8f5b-4a7e-9d3c-1f0e2b4a5c6d"}))

	err := ValidateRequest(validated{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"FileID": "is required"}, verr.Fields)
}

func TestSuccessResponse(t *testing.T) {
	res := SuccessResponse("ok", []string{"nda"})
	assert.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, []string{"nda"}, res.Data)
}
