// Package errors defines the structured API error responses shared by every
// HTTP handler. Each failure kind (malformed key, signature mismatch,
// expired license, corrupted catalog token) maps to its own app code so
// clients can branch on machine-readable values instead of matching message
// strings.
package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is a structured API error response implementing render.Renderer.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError carries per-field validation details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details.
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// App codes for license operations. The four verification outcomes are kept
// distinct: the UI offers renewal for expired licenses but not for wrong
// keys.
const (
	CodeInvalidFormat    = "INVALID_LICENSE_FORMAT"
	CodeWrongKey         = "WRONG_KEY_OR_EMAIL"
	CodeLicenseExpired   = "LICENSE_EXPIRED"
	CodeNotActivated     = "NOT_ACTIVATED"
	CodeCatalogCorrupted = "CATALOG_CORRUPTED"
)

// Predefined errors for common scenarios.
var (
	// 400 Bad Request
	ErrInvalidRequest = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrLicenseFormat  = New(http.StatusBadRequest, CodeInvalidFormat, "The license key is malformed")

	// 401 Unauthorized
	ErrUnauthorized = New(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	ErrWrongKey     = New(http.StatusUnauthorized, CodeWrongKey, "The license key does not match this email")

	// 402/403 license states, user-actionable and distinct from bad credentials
	ErrLicenseExpired = New(http.StatusForbidden, CodeLicenseExpired, "Your license has expired. Please renew to continue")
	ErrNotActivated   = New(http.StatusPreconditionRequired, CodeNotActivated, "No license has been activated on this profile")

	// 404 Not Found
	ErrNotFound = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")

	// 422 Unprocessable Entity: the public decode surface
	ErrCatalogCorrupted = New(http.StatusUnprocessableEntity, CodeCatalogCorrupted, "This catalog link is invalid or corrupted")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many attempts. Please try again later")

	// 500 Internal Server Error
	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// InvalidRequestWithError creates an invalid request error carrying the bind
// failure.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NotFoundError creates a not found error for a named resource.
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource), resource)
}
