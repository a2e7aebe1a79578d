// Package runner executes job commands as bounded background
// subprocesses, reporting lifecycle and output through the job
// registry. One goroutine per job; the submitting request returns
// immediately.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/provisionworks/orchard/pkg/diagnose"
	"github.com/provisionworks/orchard/pkg/jobstore"
)

// Spec describes one command execution.
type Spec struct {
	// Kind selects the default timeout and is recorded on the job.
	Kind jobstore.Kind

	// Command is argv; Command[0] is the binary.
	Command []string

	// Dir is the working directory; empty means inherit.
	Dir string

	// Env entries are appended to the ambient environment.
	Env []string

	// Timeout bounds execution; zero selects DefaultTimeout(Kind).
	Timeout time.Duration

	// StartMessage is shown while the process launches.
	StartMessage string

	// SuccessMessage is shown on clean exit.
	SuccessMessage string

	// Cleanup, if set, runs after the job reaches a terminal state.
	// Used to remove generated wrapper files.
	Cleanup func()
}

// DefaultTimeout returns the execution bound for a job kind.
func DefaultTimeout(kind jobstore.Kind) time.Duration {
	switch kind {
	case jobstore.KindAdHocTask:
		return 300 * time.Second
	case jobstore.KindRoleTask:
		return 600 * time.Second
	default:
		// Playbooks, applies and deletions drive full cluster
		// lifecycles.
		return 1800 * time.Second
	}
}

// Runner launches and supervises job subprocesses.
type Runner struct {
	store  *jobstore.Store
	rules  *diagnose.Table
	logger *zap.Logger

	wg sync.WaitGroup
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRules substitutes the failure-message extraction table.
func WithRules(t *diagnose.Table) Option {
	return func(r *Runner) { r.rules = t }
}

func New(store *jobstore.Store, opts ...Option) *Runner {
	r := &Runner{
		store:  store,
		rules:  diagnose.MustDefault(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit validates the spec and launches the job's goroutine. The job
// must already exist in the store.
func (r *Runner) Submit(spec Spec, jobID string) error {
	if len(spec.Command) == 0 {
		return fmt.Errorf("job %s: empty command", jobID)
	}
	if _, ok := r.store.Get(jobID); !ok {
		return fmt.Errorf("job %s: %w", jobID, jobstore.ErrNotFound)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(spec, jobID)
	}()
	return nil
}

// Wait blocks until every submitted job has finished. Used by shutdown
// and tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(spec Spec, jobID string) {
	if spec.Cleanup != nil {
		defer spec.Cleanup()
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout(spec.Kind)
	}

	startMsg := spec.StartMessage
	if startMsg == "" {
		startMsg = "Starting execution"
	}

	_ = r.store.Mutate(jobID, func(j *jobstore.Job) {
		j.Status = jobstore.StatusRunning
		j.Progress = 10
		j.Message = startMsg
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	_ = r.store.Mutate(jobID, func(j *jobstore.Job) {
		j.Progress = 30
		j.Message = "Executing command"
	})

	r.logger.Info("job started",
		zap.String("job_id", jobID),
		zap.String("kind", string(spec.Kind)),
		zap.String("command", spec.Command[0]),
		zap.Duration("timeout", timeout))

	runErr := cmd.Run()
	outcome := jobOutcome(runErr, ctx.Err())

	lines := splitLines(stdout.Bytes())

	switch outcome {
	case jobstore.StatusTimeout:
		msg := fmt.Sprintf("Job timed out after %s", timeout)
		_ = r.store.Mutate(jobID, func(j *jobstore.Job) {
			j.Logs = append(j.Logs, lines...)
			j.Status = jobstore.StatusTimeout
			j.Message = msg
			j.ReturnCode = -1
		})
		r.logger.Warn("job timed out", zap.String("job_id", jobID), zap.Duration("timeout", timeout))

	case jobstore.StatusFailed:
		code := exitCode(runErr)
		msg := r.rules.Extract(stdout.Bytes(), stderr.Bytes())
		_ = r.store.Mutate(jobID, func(j *jobstore.Job) {
			j.Logs = append(j.Logs, lines...)
			j.Status = jobstore.StatusFailed
			j.Message = msg
			j.ReturnCode = code
		})
		r.logger.Warn("job failed",
			zap.String("job_id", jobID),
			zap.Int("return_code", code),
			zap.String("reason", msg))

	default:
		msg := spec.SuccessMessage
		if msg == "" {
			msg = "Command completed successfully"
		}
		_ = r.store.Mutate(jobID, func(j *jobstore.Job) {
			j.Logs = append(j.Logs, lines...)
			j.Status = jobstore.StatusCompleted
			j.Message = msg
			j.ReturnCode = 0
		})
		r.logger.Info("job completed", zap.String("job_id", jobID))
	}
}

// jobOutcome maps a finished command onto its terminal status. A clean
// exit racing the deadline still counts as success.
func jobOutcome(runErr, ctxErr error) jobstore.Status {
	switch {
	case runErr != nil && ctxErr == context.DeadlineExceeded:
		return jobstore.StatusTimeout
	case runErr != nil:
		return jobstore.StatusFailed
	default:
		return jobstore.StatusCompleted
	}
}

// splitLines turns captured output into log entries, dropping a single
// trailing empty line so a newline-terminated stream does not produce a
// phantom entry.
func splitLines(out []byte) []string {
	if len(out) == 0 {
		return nil
	}
	lines := strings.Split(string(out), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
