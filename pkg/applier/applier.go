// Package applier drives ordered multi-document declarative applies as
// tracked background jobs. Documents are applied strictly in sequence;
// the first failure aborts the run with everything already applied left
// in place. There is no rollback.
package applier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/provisionworks/orchard/pkg/jobstore"
)

// Document is one resource extracted from a multi-document payload.
type Document struct {
	Kind      string
	Name      string
	Namespace string
	Payload   []byte
}

// Target performs the external apply operations.
type Target interface {
	ApplyManifest(ctx context.Context, manifest []byte) (string, error)
	CopyCredentialSecret(ctx context.Context, namespace string) error
}

// namespaceProvisioningKinds are the kinds whose successful apply makes
// a new namespace relevant; the credential secret is replicated there.
var namespaceProvisioningKinds = map[string]bool{
	"Namespace":   true,
	"ROSACluster": true,
}

// Applier runs document sequences against a Target, reporting through
// the job registry.
type Applier struct {
	store   *jobstore.Store
	target  Target
	logger  *zap.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

// Option configures an Applier.
type Option func(*Applier)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Applier) { a.logger = l }
}

// WithTimeout overrides the whole-run execution bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Applier) { a.timeout = d }
}

func New(store *jobstore.Store, target Target, opts ...Option) *Applier {
	a := &Applier{
		store:   store,
		target:  target,
		logger:  zap.NewNop(),
		timeout: 1800 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply launches the background run for jobID. The job must exist and
// the document list must be non-empty.
func (a *Applier) Apply(jobID string, docs []Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("job %s: no documents to apply", jobID)
	}
	if _, ok := a.store.Get(jobID); !ok {
		return fmt.Errorf("job %s: %w", jobID, jobstore.ErrNotFound)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(jobID, docs)
	}()
	return nil
}

// Wait blocks until every launched run has finished.
func (a *Applier) Wait() {
	a.wg.Wait()
}

func (a *Applier) run(jobID string, docs []Document) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	n := len(docs)
	_ = a.store.Mutate(jobID, func(j *jobstore.Job) {
		j.Status = jobstore.StatusRunning
		j.Progress = 20
		j.Message = fmt.Sprintf("Applying %d documents", n)
		j.Logs = append(j.Logs, fmt.Sprintf("Parsed %d documents", n))
	})

	for k, doc := range docs {
		if ctx.Err() != nil {
			_ = a.store.Mutate(jobID, func(j *jobstore.Job) {
				j.Status = jobstore.StatusTimeout
				j.Message = fmt.Sprintf("Apply timed out after %s", a.timeout)
				j.ReturnCode = -1
			})
			return
		}

		out, err := a.target.ApplyManifest(ctx, doc.Payload)
		if err != nil {
			failMsg := fmt.Sprintf("Failed to apply %s/%s: %v", doc.Kind, doc.Name, err)
			_ = a.store.Mutate(jobID, func(j *jobstore.Job) {
				j.Logs = append(j.Logs, failMsg)
				j.Status = jobstore.StatusFailed
				j.Message = failMsg
				j.ReturnCode = 1
			})
			a.logger.Warn("apply aborted",
				zap.String("job_id", jobID),
				zap.String("kind", doc.Kind),
				zap.String("name", doc.Name),
				zap.Int("applied", k),
				zap.Error(err))
			return
		}

		successLine := fmt.Sprintf("Applied %s/%s", doc.Kind, doc.Name)
		if out != "" {
			successLine = fmt.Sprintf("Applied %s/%s: %s", doc.Kind, doc.Name, out)
		}

		var secretLine string
		if namespaceProvisioningKinds[doc.Kind] {
			ns := doc.Namespace
			if doc.Kind == "Namespace" {
				ns = doc.Name
			}
			if err := a.target.CopyCredentialSecret(ctx, ns); err != nil {
				// Best effort: a missing secret must not sink the apply.
				secretLine = fmt.Sprintf("Warning: credential secret copy to %s failed: %v", ns, err)
				a.logger.Warn("credential secret copy failed",
					zap.String("job_id", jobID),
					zap.String("namespace", ns),
					zap.Error(err))
			} else {
				secretLine = fmt.Sprintf("Copied credential secret to %s", ns)
			}
		}

		progress := 20 + (70*(k+1))/n
		_ = a.store.Mutate(jobID, func(j *jobstore.Job) {
			j.Logs = append(j.Logs, successLine)
			if secretLine != "" {
				j.Logs = append(j.Logs, secretLine)
			}
			j.Progress = progress
			j.Message = fmt.Sprintf("Applied %d/%d documents", k+1, n)
		})
	}

	_ = a.store.Mutate(jobID, func(j *jobstore.Job) {
		j.Status = jobstore.StatusCompleted
		j.Message = fmt.Sprintf("All %d documents applied", n)
		j.ReturnCode = 0
	})
	a.logger.Info("apply completed", zap.String("job_id", jobID), zap.Int("documents", n))
}
