package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/provisionworks/orchard/internal/errors"
	"github.com/provisionworks/orchard/pkg/jobstore"
)

const applyPayload = `apiVersion: v1
kind: Namespace
metadata:
  name: ns-rosa-hcp
---
kind: ROSACluster
metadata:
  name: dev-cluster
  namespace: ns-rosa-hcp
`

func TestApply(t *testing.T) {
	fx := newFixture(t)
	fx.cli.set("kubectl apply", cliResponse{stdout: "applied"})
	fx.cli.set("kubectl get", cliResponse{stdout: "apiVersion: v1\nkind: Secret\nmetadata:\n  name: rosa-creds-secret\n  namespace: ns-rosa-hcp\n"})

	req := httptest.NewRequest("POST", "/api/apply", strings.NewReader(applyPayload))
	rec := httptest.NewRecorder()
	fx.handlers.ApplyHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp struct {
		JobID     string `json:"job_id"`
		Documents int    `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Documents)

	job := waitTerminal(t, fx.store, resp.JobID)
	assert.Equal(t, jobstore.StatusCompleted, job.Status)
	assert.Equal(t, jobstore.KindMultiDocumentApply, job.Kind)
	assert.Equal(t, 100, job.Progress)
}

func TestApplyEmptyPayload(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest("POST", "/api/apply", strings.NewReader(""))
	rec := httptest.NewRecorder()
	fx.handlers.ApplyHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeValidation, body.Error.Code)
}

func TestApplyInvalidDocument(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest("POST", "/api/apply",
		strings.NewReader("kind: Namespace\nmetadata: {}\n"))
	rec := httptest.NewRecorder()
	fx.handlers.ApplyHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fx.store.Len())
}
