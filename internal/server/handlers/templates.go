package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// ListTemplatesHandler returns the cluster template catalog together
// with the playbooks discovered in the workspace.
func (h *Handlers) ListTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	playbooks, err := h.catalog.Playbooks()
	if err != nil {
		// Discovery failures degrade the listing, not the endpoint.
		h.logger.Warn("playbook discovery failed", zap.Error(err))
		playbooks = nil
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"templates": h.catalog.Templates(),
		"playbooks": playbooks,
	})
}
