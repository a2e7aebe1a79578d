package handlers

import (
	"net/http"

	apperrors "github.com/provisionworks/orchard/internal/errors"
	"github.com/provisionworks/orchard/pkg/cluster"
)

// defaultResourceNamespace is where the provisioning automation
// places its CAPI resources.
const defaultResourceNamespace = "ns-rosa-hcp"

// ResourcesRequest selects which resource kinds to list and where.
type ResourcesRequest struct {
	Kinds     []string `json:"kinds,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
}

// ResourcesHandler lists cluster resources with readiness normalized
// to UI-facing status strings.
func (h *Handlers) ResourcesHandler(w http.ResponseWriter, r *http.Request) {
	var req ResourcesRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, r, err)
			return
		}
	}
	if len(req.Kinds) == 0 {
		req.Kinds = cluster.DefaultResourceKinds
	}
	if req.Namespace == "" {
		req.Namespace = defaultResourceNamespace
	}

	resources, err := h.cluster.Resources(r.Context(), req.Kinds, req.Namespace)
	if err != nil {
		if cluster.IsToolNotInstalled(err) {
			respondWithError(w, r, apperrors.ConfigMissing(err.Error()))
			return
		}
		respondWithError(w, r, apperrors.Internal(err.Error()))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"resources": resources,
		"total":     len(resources),
	})
}
