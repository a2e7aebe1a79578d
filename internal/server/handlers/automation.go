package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/provisionworks/orchard/internal/errors"
	"github.com/provisionworks/orchard/pkg/catalog"
	"github.com/provisionworks/orchard/pkg/jobstore"
	"github.com/provisionworks/orchard/pkg/runner"
)

// automationError maps catalog failures for client-supplied paths: a
// file the caller asked for is a validation problem, not ours.
func automationError(err error) error {
	return apperrors.Validation(err.Error())
}

// RunTaskRequest is the body of POST /api/automation/run-task.
type RunTaskRequest struct {
	TaskFile    string            `json:"task_file"`
	Description string            `json:"description,omitempty"`
	ExtraVars   map[string]string `json:"extra_vars,omitempty"`
}

// RunRoleRequest is the body of POST /api/automation/run-role.
type RunRoleRequest struct {
	RoleName    string            `json:"role_name"`
	Description string            `json:"description,omitempty"`
	ExtraVars   map[string]string `json:"extra_vars,omitempty"`
}

// RunPlaybookRequest is the body of POST /api/automation/run-playbook.
type RunPlaybookRequest struct {
	Playbook  string            `json:"playbook"`
	ExtraVars map[string]string `json:"extra_vars,omitempty"`
}

func (h *Handlers) submitAutomation(w http.ResponseWriter, r *http.Request, kind jobstore.Kind, cmd catalog.Command, metadata map[string]string, start, success string) {
	jobID := h.store.Create(kind, metadata)

	spec := runner.Spec{
		Kind:           kind,
		Command:        cmd.Argv,
		Dir:            cmd.Dir,
		Env:            cmd.Env,
		Cleanup:        cmd.Cleanup,
		StartMessage:   start,
		SuccessMessage: success,
	}
	if err := h.runner.Submit(spec, jobID); err != nil {
		respondWithError(w, r, apperrors.Internal(err.Error()))
		return
	}

	h.logger.Info("automation job submitted",
		zap.String("job_id", jobID),
		zap.String("kind", string(kind)))

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":  jobID,
		"message": start,
		"status":  jobstore.StatusPending,
	})
}

// RunTaskHandler starts a job wrapping a single task file.
func (h *Handlers) RunTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req RunTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if req.TaskFile == "" {
		respondWithError(w, r, apperrors.Validation("task_file is required"))
		return
	}

	cmd, err := h.catalog.TaskCommand(catalog.TaskRequest{
		TaskFile:    req.TaskFile,
		Description: req.Description,
		ExtraVars:   req.ExtraVars,
	})
	if err != nil {
		respondWithError(w, r, automationError(err))
		return
	}

	desc := req.Description
	if desc == "" {
		desc = req.TaskFile
	}
	h.submitAutomation(w, r, jobstore.KindAdHocTask, cmd,
		map[string]string{"task_file": req.TaskFile, "description": desc},
		fmt.Sprintf("Running task: %s", desc),
		fmt.Sprintf("Task completed: %s", desc))
}

// RunRoleHandler starts a job wrapping one role.
func (h *Handlers) RunRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req RunRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if req.RoleName == "" {
		respondWithError(w, r, apperrors.Validation("role_name is required"))
		return
	}

	cmd, err := h.catalog.RoleCommand(catalog.RoleRequest{
		RoleName:    req.RoleName,
		Description: req.Description,
		ExtraVars:   req.ExtraVars,
	})
	if err != nil {
		respondWithError(w, r, automationError(err))
		return
	}

	h.submitAutomation(w, r, jobstore.KindRoleTask, cmd,
		map[string]string{"role": req.RoleName},
		fmt.Sprintf("Running role: %s", req.RoleName),
		fmt.Sprintf("Role completed: %s", req.RoleName))
}

// RunPlaybookHandler starts a job running an existing workspace
// playbook.
func (h *Handlers) RunPlaybookHandler(w http.ResponseWriter, r *http.Request) {
	var req RunPlaybookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if req.Playbook == "" {
		respondWithError(w, r, apperrors.Validation("playbook is required"))
		return
	}

	cmd, err := h.catalog.PlaybookCommand(catalog.PlaybookRequest{
		Playbook:  req.Playbook,
		ExtraVars: req.ExtraVars,
	})
	if err != nil {
		respondWithError(w, r, automationError(err))
		return
	}

	h.submitAutomation(w, r, jobstore.KindPlaybook, cmd,
		map[string]string{"playbook": req.Playbook},
		fmt.Sprintf("Running playbook: %s", req.Playbook),
		fmt.Sprintf("Playbook completed: %s", req.Playbook))
}
