package handlers

import (
	"net/http"

	apperrors "github.com/provisionworks/orchard/internal/errors"
)

// HTTPErrorResponder writes an error response for a failed request.
type HTTPErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var httpErrorResponder HTTPErrorResponder = defaultErrorResponder

func defaultErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// SetHTTPErrorResponder replaces the responder used by all handlers.
// Passing nil restores the default.
func SetHTTPErrorResponder(f HTTPErrorResponder) {
	if f == nil {
		httpErrorResponder = defaultErrorResponder
		return
	}
	httpErrorResponder = f
}

// ResetHTTPErrorResponder restores the default responder.
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultErrorResponder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
