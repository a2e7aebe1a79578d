// Package handlers implements the HTTP and WebSocket surface of the
// orchestration service. Handlers translate requests into job
// submissions and registry reads; they never block on job execution.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/provisionworks/orchard/internal/errors"
	"github.com/provisionworks/orchard/pkg/applier"
	"github.com/provisionworks/orchard/pkg/catalog"
	"github.com/provisionworks/orchard/pkg/cluster"
	"github.com/provisionworks/orchard/pkg/jobstore"
	"github.com/provisionworks/orchard/pkg/preflight"
	"github.com/provisionworks/orchard/pkg/runner"
	"github.com/provisionworks/orchard/pkg/statuscache"
)

// Deps collects everything the handler set needs.
type Deps struct {
	Store   *jobstore.Store
	Runner  *runner.Runner
	Applier *applier.Applier
	Cluster *cluster.Client
	Cache   *statuscache.Cache
	Checker *preflight.Checker
	Catalog *catalog.Catalog
	Logger  *zap.Logger

	// VarsFile is the workspace-relative path of the credentials file.
	VarsFile string

	// AuthTTL and HubTTL bound how long cached probe results are
	// served for the status endpoints.
	AuthTTL time.Duration
	HubTTL  time.Duration
}

// Handlers is the wired handler set mounted by the server.
type Handlers struct {
	store   *jobstore.Store
	runner  *runner.Runner
	applier *applier.Applier
	cluster *cluster.Client
	cache   *statuscache.Cache
	checker *preflight.Checker
	catalog *catalog.Catalog
	logger  *zap.Logger

	varsFile string
	authTTL  time.Duration
	hubTTL   time.Duration

	clusters *clusterRegistry

	// wsPollInterval is how often the job stream re-reads the
	// registry. Shortened in tests.
	wsPollInterval time.Duration
}

func New(deps Deps) *Handlers {
	h := &Handlers{
		store:          deps.Store,
		runner:         deps.Runner,
		applier:        deps.Applier,
		cluster:        deps.Cluster,
		cache:          deps.Cache,
		checker:        deps.Checker,
		catalog:        deps.Catalog,
		logger:         deps.Logger,
		varsFile:       deps.VarsFile,
		authTTL:        deps.AuthTTL,
		hubTTL:         deps.HubTTL,
		clusters:       newClusterRegistry(),
		wsPollInterval: 2 * time.Second,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.varsFile == "" {
		h.varsFile = "vars/user_vars.yml"
	}
	if h.authTTL <= 0 {
		h.authTTL = 30 * time.Second
	}
	if h.hubTTL <= 0 {
		h.hubTTL = 60 * time.Second
	}
	return h
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads the request body into dst, rejecting unknown fields
// so client typos surface as validation errors instead of silence.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Validation("invalid request body: " + err.Error())
	}
	return nil
}
