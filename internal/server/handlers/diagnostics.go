package handlers

import (
	"net/http"

	"github.com/provisionworks/orchard/pkg/preflight"
)

// DiagnosticsRequest optionally narrows which checks run.
type DiagnosticsRequest struct {
	Checks []string `json:"checks,omitempty"`
}

// RunDiagnosticsHandler executes the preflight checks and summarizes
// the outcomes.
func (h *Handlers) RunDiagnosticsHandler(w http.ResponseWriter, r *http.Request) {
	var req DiagnosticsRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
	}

	results := h.checker.Run(r.Context(), req.Checks)

	passed := 0
	failed := 0
	for _, res := range results {
		switch res.Outcome {
		case preflight.OutcomePass:
			passed++
		case preflight.OutcomeFail:
			failed++
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"passed":  passed,
		"failed":  failed,
		"total":   len(results),
	})
}
