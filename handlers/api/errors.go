// Package api holds the structured error responses shared by the HTTP
// handlers.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"product-customizer/canvas"
	"product-customizer/core"
	"product-customizer/session"
	"product-customizer/templates"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Status)
	return nil
}

func newError(status int, code, message string, cause error) *APIError {
	err := &APIError{Status: status, Code: code, Message: message}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	return newError(http.StatusBadRequest, "BAD_REQUEST", message, cause)
}

// NewValidationError creates a 400 validation error
func NewValidationError(cause error) *APIError {
	return newError(http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", cause)
}

func NewUnauthorizedError(message string) *APIError {
	return newError(http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return newError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found: %s", resource, id), nil)
}

// NewRequestTooLargeError creates a 413 error for a body over limit bytes
func NewRequestTooLargeError(limit int64) *APIError {
	return newError(http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", fmt.Sprintf("request body exceeds %d bytes", limit), nil)
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(code, message string) *APIError {
	return newError(http.StatusConflict, code, message, nil)
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	return newError(http.StatusInternalServerError, "INTERNAL_ERROR", message, cause)
}

// FromError maps domain errors onto API errors.
func FromError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, session.ErrExportInProgress):
		return NewConflictError("EXPORT_IN_PROGRESS", "an export is already running for this session")
	case errors.Is(err, session.ErrStage):
		return newError(http.StatusConflict, "INVALID_STAGE", "operation not allowed in the current stage", err)
	case errors.Is(err, session.ErrExport):
		return newError(http.StatusBadGateway, "EXPORT_FAILED", "export failed, the design was kept and can be exported again", err)
	case errors.Is(err, session.ErrLookup):
		return newError(http.StatusNotFound, "ORDER_LOOKUP_FAILED", "order could not be found", err)
	case errors.Is(err, session.ErrImageTooLarge):
		return newError(http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "image exceeds the upload limit", err)
	case errors.Is(err, session.ErrSessionNotFound):
		return newError(http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", nil)
	case errors.Is(err, templates.ErrTemplateNotFound):
		return newError(http.StatusNotFound, "TEMPLATE_NOT_FOUND", "template not found", err)
	case errors.Is(err, canvas.ErrNotFound):
		return newError(http.StatusNotFound, "ITEM_NOT_FOUND", "item not found", err)
	case errors.Is(err, core.ErrPreviewNotFound):
		return newError(http.StatusNotFound, "PREVIEW_NOT_FOUND", "preview not found", nil)
	case errors.Is(err, canvas.ErrNotSelected):
		return newError(http.StatusConflict, "NOT_SELECTED", "the item must be selected first", err)
	case errors.Is(err, canvas.ErrKindMismatch),
		errors.Is(err, canvas.ErrInvalidColor),
		errors.Is(err, canvas.ErrUnknownFont),
		errors.Is(err, canvas.ErrInvalidPatch),
		errors.Is(err, canvas.ErrInvalidCommand),
		errors.Is(err, canvas.ErrUnsupportedImage):
		return NewValidationError(err)
	}
	return NewInternalError("An unexpected error occurred", err)
}

// RespondWithError renders err as a structured API error.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"error": err,
			"path":  r.URL.Path,
		}).Error("Request failed")
	}
	if rerr := render.Render(w, r, apiErr); rerr != nil {
		logrus.WithError(rerr).Error("Failed to render error")
	}
}
