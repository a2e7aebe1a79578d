package handlers

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/provisionworks/orchard/internal/errors"
	"github.com/provisionworks/orchard/pkg/cluster"
	"github.com/provisionworks/orchard/pkg/preflight"
)

// The status probes cache under the diagnostics check IDs so both
// surfaces reuse the same cached results.
const (
	cacheKeyAuth = preflight.CheckAuth
	cacheKeyHub  = preflight.CheckHub
)

// AuthStatusHandler reports CLI authentication state. Results are
// cached; a fresh probe runs only once the TTL lapses.
func (h *Handlers) AuthStatusHandler(w http.ResponseWriter, r *http.Request) {
	value, err := h.cache.GetOrProbe(r.Context(), cacheKeyAuth, h.authTTL, func(ctx context.Context) (any, error) {
		return h.cluster.WhoAmI(ctx)
	})
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"error":         err.Error(),
			"tool_missing":  cluster.IsToolNotInstalled(err),
		})
		return
	}

	status := value.(cluster.AuthStatus)
	body := map[string]any{
		"authenticated": status.Authenticated,
		"user_info":     status.UserInfo,
	}
	if capturedAt, ok := h.cache.CapturedAt(cacheKeyAuth); ok {
		body["checked_at"] = capturedAt.Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, body)
}

// HubStatusHandler reports hub cluster connectivity using credentials
// from the workspace vars file.
func (h *Handlers) HubStatusHandler(w http.ResponseWriter, r *http.Request) {
	vars, err := h.catalog.Vars(h.varsFile)
	if err != nil {
		respondWithError(w, r, apperrors.Internal(err.Error()))
		return
	}

	creds := cluster.HubCredentials{
		APIURL:   vars["OCP_HUB_API_URL"],
		Username: vars["OCP_HUB_CLUSTER_USER"],
		Password: vars["OCP_HUB_CLUSTER_PASSWORD"],
	}
	if creds.APIURL == "" || creds.Username == "" || creds.Password == "" {
		respondWithError(w, r, apperrors.ConfigMissing("hub credentials are not configured"))
		return
	}

	value, err := h.cache.GetOrProbe(r.Context(), cacheKeyHub, h.hubTTL, func(ctx context.Context) (any, error) {
		return h.cluster.HubLogin(ctx, creds)
	})
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"connected":    false,
			"api_url":      creds.APIURL,
			"error":        err.Error(),
			"unauthorized": cluster.IsUnauthorized(err),
		})
		return
	}

	status := value.(cluster.HubStatus)
	body := map[string]any{
		"connected":    status.Connected,
		"api_url":      status.APIURL,
		"username":     status.Username,
		"cluster_info": status.ClusterInfo,
	}
	if capturedAt, ok := h.cache.CapturedAt(cacheKeyHub); ok {
		body["checked_at"] = capturedAt.Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, body)
}

// ConfigStatusHandler audits the workspace vars file against the
// required credential set.
func (h *Handlers) ConfigStatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := h.catalog.AuditVars(h.varsFile)
	if err != nil {
		respondWithError(w, r, apperrors.Internal(err.Error()))
		return
	}
	respondJSON(w, http.StatusOK, status)
}
