// Package errors defines the HTTP error envelope every endpoint emits
// and the helpers handlers use to produce it. Job failures are domain
// state, not HTTP errors; this package covers request-level problems
// only.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Error codes returned in the envelope.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeConfigMissing    = "CONFIG_MISSING"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// HTTPErrorResponse is the JSON envelope for all error responses.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail carries the error payload.
type HTTPErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// HTTPError is an error carrying its HTTP mapping.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *HTTPError) Error() string {
	return e.Code + ": " + e.Message
}

// NotFound builds a 404 error.
func NotFound(message string) *HTTPError {
	return &HTTPError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

// Validation builds a 400 error.
func Validation(message string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Code: CodeValidation, Message: message}
}

// ConfigMissing builds a 409 error for operations blocked on workspace
// configuration.
func ConfigMissing(message string) *HTTPError {
	return &HTTPError{Status: http.StatusConflict, Code: CodeConfigMissing, Message: message}
}

// MethodNotAllowed builds a 405 error.
func MethodNotAllowed() *HTTPError {
	return &HTTPError{Status: http.StatusMethodNotAllowed, Code: CodeMethodNotAllowed, Message: "method not allowed"}
}

// RateLimited builds a 429 error.
func RateLimited() *HTTPError {
	return &HTTPError{Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: "too many requests"}
}

// Internal builds a 500 error.
func Internal(message string) *HTTPError {
	return &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message}
}

type requestIDKey struct{}

// WithRequestID stores the request correlation id on the context. The
// middleware package sets it; envelope writers read it back.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the request correlation id, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RespondWithError writes err as the standard envelope. Unrecognized
// errors are reported as INTERNAL_ERROR without leaking their text.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = Internal("internal server error")
	}

	requestID := ""
	if r != nil {
		requestID = GetRequestID(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.Status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      httpErr.Code,
			Message:   httpErr.Message,
			RequestID: requestID,
			Details:   httpErr.Details,
		},
	})
}
