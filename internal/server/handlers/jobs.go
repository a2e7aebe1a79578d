package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/provisionworks/orchard/internal/errors"
)

// ListJobsHandler returns every tracked job, newest first.
func (h *Handlers) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs := h.store.List()
	respondJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJobHandler returns one job snapshot.
func (h *Handlers) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := h.store.Get(id)
	if !ok {
		respondWithError(w, r, apperrors.NotFound("job not found: "+id))
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// GetJobLogsHandler returns the accumulated log lines of one job.
func (h *Handlers) GetJobLogsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := h.store.Get(id)
	if !ok {
		respondWithError(w, r, apperrors.NotFound("job not found: "+id))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
		"logs":   job.Logs,
	})
}

// ClearJobsHandler wipes the job registry and reports how many jobs
// were removed. Running jobs are not stopped.
func (h *Handlers) ClearJobsHandler(w http.ResponseWriter, r *http.Request) {
	n := h.store.Clear()
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Job history cleared",
		"cleared": n,
	})
}
