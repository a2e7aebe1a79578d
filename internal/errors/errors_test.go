package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithHTTPError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/jobs/x", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, NotFound("job not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeNotFound, body.Error.Code)
	assert.Equal(t, "job not found", body.Error.Message)
}

func TestRespondWithWrappedHTTPError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/apply", nil)
	rec := httptest.NewRecorder()

	wrapped := fmt.Errorf("parse body: %w", Validation("yaml payload is empty"))
	RespondWithError(rec, req, wrapped)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeValidation, body.Error.Code)
}

func TestRespondWithUnknownErrorHidesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, fmt.Errorf("db password is hunter2"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "hunter2")
}

func TestRequestIDPropagates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, RateLimited())

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-42", body.Error.RequestID)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestStatusMappings(t *testing.T) {
	tests := []struct {
		err    *HTTPError
		status int
		code   string
	}{
		{NotFound("x"), http.StatusNotFound, CodeNotFound},
		{Validation("x"), http.StatusBadRequest, CodeValidation},
		{ConfigMissing("x"), http.StatusConflict, CodeConfigMissing},
		{MethodNotAllowed(), http.StatusMethodNotAllowed, CodeMethodNotAllowed},
		{RateLimited(), http.StatusTooManyRequests, CodeRateLimited},
		{Internal("x"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.Status)
		assert.Equal(t, tt.code, tt.err.Code)
	}
}
