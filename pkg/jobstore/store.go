// Package jobstore is the in-memory registry of tracked jobs.
//
// The registry has process-lifetime scope and no persistence: a restart
// loses all job history. That is a documented limitation, not a bug.
// All mutation is routed through Mutate so the state machine invariants
// hold under concurrent writers and readers.
package jobstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the job id is unknown to the registry.
	ErrNotFound = errors.New("job not found")

	// ErrTerminal indicates a mutation was attempted after the job
	// reached a terminal state. A retry is a new job, never a re-run.
	ErrTerminal = errors.New("job is terminal")
)

// Sink receives a snapshot after every mutation that changed status or
// progress. Implementations must not call back into the store.
type Sink interface {
	JobTransition(job Job)
}

// Store is a concurrency-safe job registry.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	seq  uint64
	sink Sink

	// now is overridable for tests.
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSink attaches a transition sink (e.g. a JSONL event writer).
func WithSink(sink Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New constructs an empty registry.
func New(opts ...Option) *Store {
	s := &Store{
		jobs: make(map[string]*Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create allocates a fresh id and inserts a pending job. It never fails.
func (s *Store) Create(kind Kind, metadata map[string]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.seq++

	var md map[string]string
	if len(metadata) > 0 {
		md = make(map[string]string, len(metadata))
		for k, v := range metadata {
			md[k] = v
		}
	}

	s.jobs[id] = &Job{
		ID:        id,
		Kind:      kind,
		Status:    StatusPending,
		Progress:  0,
		Message:   "Job queued for execution",
		Logs:      []string{},
		StartedAt: s.now(),
		Metadata:  md,
		seq:       s.seq,
	}
	return id
}

// Get returns a deep-copied snapshot of the job.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.clone(), true
}

// Mutate applies fn to the job under exclusive access and enforces the
// lifecycle invariants:
//
//   - a terminal job cannot be mutated again (ErrTerminal)
//   - progress never decreases while non-terminal
//   - a terminal transition forces progress=100 and stamps CompletedAt
func (s *Store) Mutate(id string, fn func(*Job)) error {
	s.mu.Lock()

	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("mutate %s: %w", id, ErrNotFound)
	}
	if j.Status.Terminal() {
		s.mu.Unlock()
		return fmt.Errorf("mutate %s: %w", id, ErrTerminal)
	}

	prevStatus := j.Status
	prevProgress := j.Progress

	fn(j)

	if j.Progress < prevProgress {
		j.Progress = prevProgress
	}
	if j.Progress > 100 {
		j.Progress = 100
	}
	if j.Status.Terminal() {
		j.Progress = 100
		if j.CompletedAt == nil {
			t := s.now()
			j.CompletedAt = &t
		}
	}

	changed := j.Status != prevStatus || j.Progress != prevProgress
	var snapshot Job
	if changed && s.sink != nil {
		snapshot = j.clone()
	}
	s.mu.Unlock()

	// Sink runs outside the lock so a slow writer cannot stall readers.
	if changed && s.sink != nil {
		s.sink.JobTransition(snapshot)
	}
	return nil
}

// List returns snapshots of all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.clone())
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].StartedAt.Equal(out[k].StartedAt) {
			return out[i].StartedAt.After(out[k].StartedAt)
		}
		return out[i].seq > out[k].seq
	})
	return out
}

// Clear wipes the registry and returns how many jobs were removed.
// Administrative reset; running jobs are not stopped, their later
// mutations simply fail with ErrNotFound.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.jobs)
	s.jobs = make(map[string]*Job)
	return n
}

// Len reports the number of registered jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
