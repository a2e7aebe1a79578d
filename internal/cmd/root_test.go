package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provisionworks/orchard/pkg/jobstore"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2026-08-31",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
		{
			name:      "set empty values",
			version:   "",
			commit:    "",
			buildDate: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	origJSON := versionJSON
	defer func() { versionJSON = origJSON }()
	versionJSON = true

	var buf bytes.Buffer
	cmd := versionCmd
	cmd.SetOut(&buf)
	require.NoError(t, runVersion(cmd, nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
	assert.NotEmpty(t, body["go_version"])
}

func TestJobsListAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/jobs", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jobs": []jobstore.Job{
				{ID: "job-1", Kind: jobstore.KindPlaybook, Status: jobstore.StatusRunning, Progress: 30, Message: "Executing command"},
			},
			"total": 1,
		})
	}))
	defer srv.Close()

	origServer := jobsServer
	origJSON := jobsJSON
	defer func() {
		jobsServer = origServer
		jobsJSON = origJSON
	}()
	jobsServer = srv.URL
	jobsJSON = false

	var buf bytes.Buffer
	cmd := jobsListCmd
	cmd.SetOut(&buf)
	require.NoError(t, runJobsList(cmd, nil))

	out := buf.String()
	assert.Contains(t, out, "job-1")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "30%")
}

func TestJobsStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"job not found"}}`))
	}))
	defer srv.Close()

	origServer := jobsServer
	defer func() { jobsServer = origServer }()
	jobsServer = srv.URL

	err := runJobsStatus(jobsStatusCmd, []string{"ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
