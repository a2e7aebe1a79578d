package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/provisionworks/orchard/internal/errors"
)

const fullVars = `OCP_HUB_API_URL: https://api.hub.example.com:6443
OCP_HUB_CLUSTER_USER: admin
OCP_HUB_CLUSTER_PASSWORD: hunter2
AWS_REGION: us-east-1
AWS_ACCESS_KEY_ID: AKIA123
AWS_SECRET_ACCESS_KEY: secret
OCM_CLIENT_ID: client
OCM_CLIENT_SECRET: clientsecret
`

func TestAuthStatus(t *testing.T) {
	fx := newFixture(t)
	fx.cli.set("rosa whoami", cliResponse{stdout: "AWS Account ID: 123456789\nOCM API: https://api.openshift.com\n"})

	rec := httptest.NewRecorder()
	fx.handlers.AuthStatusHandler(rec, httptest.NewRequest("GET", "/api/status/auth", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Authenticated bool              `json:"authenticated"`
		UserInfo      map[string]string `json:"user_info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Authenticated)
	assert.Equal(t, "123456789", body.UserInfo["aws_account_id"])
}

func TestAuthStatusCached(t *testing.T) {
	fx := newFixture(t)
	fx.cli.set("rosa whoami", cliResponse{stdout: "AWS Account ID: 123456789\n"})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		fx.handlers.AuthStatusHandler(rec, httptest.NewRequest("GET", "/api/status/auth", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, fx.cli.callCount("rosa whoami"))
}

func TestAuthStatusFailureReported(t *testing.T) {
	fx := newFixture(t)
	fx.cli.set("rosa whoami", cliResponse{
		stderr: "Not logged in",
		err:    assert.AnError,
	})

	rec := httptest.NewRecorder()
	fx.handlers.AuthStatusHandler(rec, httptest.NewRequest("GET", "/api/status/auth", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Authenticated bool   `json:"authenticated"`
		Error         string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Authenticated)
	assert.NotEmpty(t, body.Error)
}

func TestHubStatus(t *testing.T) {
	fx := newFixture(t)
	writeVars(t, fx.root, fullVars)
	fx.cli.set("oc login", cliResponse{stdout: "Login successful."})
	fx.cli.set("oc version", cliResponse{stdout: "4.20.0\n"})
	fx.cli.set("oc whoami", cliResponse{stdout: "admin\n"})

	rec := httptest.NewRecorder()
	fx.handlers.HubStatusHandler(rec, httptest.NewRequest("GET", "/api/status/hub", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Connected   bool              `json:"connected"`
		APIURL      string            `json:"api_url"`
		ClusterInfo map[string]string `json:"cluster_info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Connected)
	assert.Equal(t, "https://api.hub.example.com:6443", body.APIURL)
	assert.Equal(t, "4.20.0", body.ClusterInfo["version"])
}

func TestHubStatusWithoutCredentials(t *testing.T) {
	fx := newFixture(t)

	rec := httptest.NewRecorder()
	fx.handlers.HubStatusHandler(rec, httptest.NewRequest("GET", "/api/status/hub", nil))

	require.Equal(t, http.StatusConflict, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeConfigMissing, body.Error.Code)
}

func TestConfigStatusFullyConfigured(t *testing.T) {
	fx := newFixture(t)
	writeVars(t, fx.root, fullVars)

	rec := httptest.NewRecorder()
	fx.handlers.ConfigStatusHandler(rec, httptest.NewRequest("GET", "/api/status/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Configured bool   `json:"configured"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Configured)
	assert.Equal(t, "fully_configured", body.Status)
}

func TestConfigStatusMissingFile(t *testing.T) {
	fx := newFixture(t)

	rec := httptest.NewRecorder()
	fx.handlers.ConfigStatusHandler(rec, httptest.NewRequest("GET", "/api/status/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Configured bool   `json:"configured"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Configured)
	assert.Equal(t, "missing", body.Status)
}
