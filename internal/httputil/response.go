// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/token-rest/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string // empty echoes err.Error()
}

// First match wins; order matters when a domain error wraps several kinds.
var errorMappings = []errorMapping{
	{apperrors.ErrIntegrity, http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	{apperrors.ErrTokenSpaceExhausted, http.StatusServiceUnavailable, "token_space_exhausted",
		"No free token could be issued, retry later"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", ""},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication is required"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "You don't have permission to access this resource"},
}

// MapError returns the status code and body for a domain error. Unknown
// errors become an opaque 500.
func MapError(err error) (int, ErrorResponse) {
	for _, m := range errorMappings {
		if apperrors.Is(err, m.target) {
			resp := ErrorResponse{Error: m.code, Message: m.message}
			if m.message == "" {
				resp.Message = err.Error()
			}
			return m.status, resp
		}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "An internal error occurred"}
}

// HandleErrorGin maps domain errors to HTTP status codes and writes a JSON
// response. Operational faults are logged with alert=true and their detail is
// never sent to the client.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, errorResponse := MapError(err)

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
			slog.Bool("alert", apperrors.IsOperational(err)),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleAccessDeniedGin writes the single opaque 403 used when a caller must not
// learn whether a resource exists.
func HandleAccessDeniedGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("access denied", slog.Any("error", err))
	}

	c.JSON(http.StatusForbidden, ErrorResponse{
		Error:   "access_denied",
		Message: "Access denied",
	})
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters using Gin.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	})
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors using Gin.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}
