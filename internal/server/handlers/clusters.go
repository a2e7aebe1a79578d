package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/provisionworks/orchard/internal/errors"
	"github.com/provisionworks/orchard/pkg/catalog"
	"github.com/provisionworks/orchard/pkg/jobstore"
	"github.com/provisionworks/orchard/pkg/runner"
)

// Playbooks driving the cluster lifecycle.
const (
	playbookCreateCluster = "create_rosa_hcp_cluster.yaml"
	playbookNetworkSetup  = "acm21174_environment_setup.yaml"
	playbookDeleteCluster = "delete_rosa_hcp_cluster.yaml"
)

// ClusterRequest is the body of a cluster creation call.
type ClusterRequest struct {
	Name              string            `json:"name"`
	Region            string            `json:"region,omitempty"`
	Version           string            `json:"version,omitempty"`
	Template          string            `json:"template,omitempty"`
	NetworkAutomation bool              `json:"network_automation,omitempty"`
	ExtraVars         map[string]string `json:"extra_vars,omitempty"`
}

// ClusterRecord tracks one requested cluster and its lifecycle jobs.
type ClusterRecord struct {
	ID            string         `json:"cluster_id"`
	Name          string         `json:"name"`
	Config        ClusterRequest `json:"config"`
	JobID         string         `json:"job_id"`
	DeletionJobID string         `json:"deletion_job_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// clusterRegistry is the in-memory cluster record store. Like the job
// registry it has process-lifetime scope only.
type clusterRegistry struct {
	mu      sync.RWMutex
	records map[string]*ClusterRecord
}

func newClusterRegistry() *clusterRegistry {
	return &clusterRegistry{records: make(map[string]*ClusterRecord)}
}

func (cr *clusterRegistry) put(rec *ClusterRecord) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.records[rec.ID] = rec
}

func (cr *clusterRegistry) get(id string) (ClusterRecord, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	rec, ok := cr.records[id]
	if !ok {
		return ClusterRecord{}, false
	}
	return *rec, true
}

func (cr *clusterRegistry) setDeletionJob(id, jobID string) bool {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	rec, ok := cr.records[id]
	if !ok {
		return false
	}
	rec.DeletionJobID = jobID
	return true
}

func (cr *clusterRegistry) list() []ClusterRecord {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	out := make([]ClusterRecord, 0, len(cr.records))
	for _, rec := range cr.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

// commandError maps catalog command-building failures onto the HTTP
// envelope.
func commandError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotInWorkspace):
		return apperrors.Validation(err.Error())
	case errors.Is(err, os.ErrNotExist):
		return apperrors.ConfigMissing(err.Error())
	default:
		return apperrors.Internal(err.Error())
	}
}

// CreateClusterHandler starts a cluster provisioning job and registers
// the cluster record. The response returns immediately; provisioning
// progress is tracked through the job.
func (h *Handlers) CreateClusterHandler(w http.ResponseWriter, r *http.Request) {
	var req ClusterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if req.Name == "" {
		respondWithError(w, r, apperrors.Validation("cluster name is required"))
		return
	}

	playbook := playbookCreateCluster
	if req.NetworkAutomation {
		playbook = playbookNetworkSetup
	}

	extraVars := map[string]string{"cluster_name": req.Name}
	if req.Region != "" {
		extraVars["aws_region"] = req.Region
	}
	if req.Version != "" {
		extraVars["openshift_version"] = req.Version
	}
	for k, v := range req.ExtraVars {
		extraVars[k] = v
	}

	cmd, err := h.catalog.PlaybookCommand(catalog.PlaybookRequest{
		Playbook:  playbook,
		ExtraVars: extraVars,
	})
	if err != nil {
		respondWithError(w, r, commandError(err))
		return
	}

	clusterID := uuid.New().String()
	jobID := h.store.Create(jobstore.KindPlaybook, map[string]string{
		"cluster_id": clusterID,
		"cluster":    req.Name,
		"playbook":   playbook,
	})

	spec := runner.Spec{
		Kind:           jobstore.KindPlaybook,
		Command:        cmd.Argv,
		Dir:            cmd.Dir,
		Env:            cmd.Env,
		Cleanup:        cmd.Cleanup,
		StartMessage:   fmt.Sprintf("Creating cluster %s", req.Name),
		SuccessMessage: fmt.Sprintf("Cluster %s created successfully", req.Name),
	}
	if err := h.runner.Submit(spec, jobID); err != nil {
		respondWithError(w, r, apperrors.Internal(err.Error()))
		return
	}

	h.clusters.put(&ClusterRecord{
		ID:        clusterID,
		Name:      req.Name,
		Config:    req,
		JobID:     jobID,
		CreatedAt: time.Now().UTC(),
	})

	h.logger.Info("cluster creation started",
		zap.String("cluster_id", clusterID),
		zap.String("cluster", req.Name),
		zap.String("job_id", jobID),
		zap.String("playbook", playbook))

	respondJSON(w, http.StatusAccepted, map[string]any{
		"cluster_id": clusterID,
		"job_id":     jobID,
		"message":    fmt.Sprintf("Cluster creation started for %s", req.Name),
		"status":     jobstore.StatusPending,
	})
}

// ListClustersHandler returns all registered cluster records.
func (h *Handlers) ListClustersHandler(w http.ResponseWriter, r *http.Request) {
	records := h.clusters.list()
	respondJSON(w, http.StatusOK, map[string]any{
		"clusters": records,
		"total":    len(records),
	})
}

// GetClusterHandler returns a cluster record with its current job
// snapshot.
func (h *Handlers) GetClusterHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.clusters.get(id)
	if !ok {
		respondWithError(w, r, apperrors.NotFound("cluster not found: "+id))
		return
	}

	body := map[string]any{"cluster": rec}
	if job, ok := h.store.Get(rec.JobID); ok {
		body["job"] = job
	}
	if rec.DeletionJobID != "" {
		if job, ok := h.store.Get(rec.DeletionJobID); ok {
			body["deletion_job"] = job
		}
	}
	respondJSON(w, http.StatusOK, body)
}

// DeleteClusterHandler starts a cluster deletion job. The record stays
// registered so the deletion can be tracked.
func (h *Handlers) DeleteClusterHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.clusters.get(id)
	if !ok {
		respondWithError(w, r, apperrors.NotFound("cluster not found: "+id))
		return
	}

	cmd, err := h.catalog.PlaybookCommand(catalog.PlaybookRequest{
		Playbook:  playbookDeleteCluster,
		ExtraVars: map[string]string{"cluster_name": rec.Name},
	})
	if err != nil {
		respondWithError(w, r, commandError(err))
		return
	}

	jobID := h.store.Create(jobstore.KindDeletion, map[string]string{
		"cluster_id": rec.ID,
		"cluster":    rec.Name,
		"playbook":   playbookDeleteCluster,
	})

	spec := runner.Spec{
		Kind:           jobstore.KindDeletion,
		Command:        cmd.Argv,
		Dir:            cmd.Dir,
		Env:            cmd.Env,
		Cleanup:        cmd.Cleanup,
		StartMessage:   fmt.Sprintf("Deleting cluster %s", rec.Name),
		SuccessMessage: fmt.Sprintf("Cluster %s deleted successfully", rec.Name),
	}
	if err := h.runner.Submit(spec, jobID); err != nil {
		respondWithError(w, r, apperrors.Internal(err.Error()))
		return
	}

	h.clusters.setDeletionJob(rec.ID, jobID)

	h.logger.Info("cluster deletion started",
		zap.String("cluster_id", rec.ID),
		zap.String("cluster", rec.Name),
		zap.String("job_id", jobID))

	respondJSON(w, http.StatusAccepted, map[string]any{
		"cluster_id": rec.ID,
		"job_id":     jobID,
		"message":    fmt.Sprintf("Cluster deletion started for %s", rec.Name),
		"status":     jobstore.StatusPending,
	})
}
