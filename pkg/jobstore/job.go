package jobstore

import "time"

// Kind identifies what a job wraps: one external automation invocation
// or an ordered apply sequence.
type Kind string

const (
	KindPlaybook           Kind = "playbook"
	KindRoleTask           Kind = "role-task"
	KindAdHocTask          Kind = "ad-hoc-task"
	KindMultiDocumentApply Kind = "multi-document-apply"
	KindDeletion           Kind = "deletion"
)

// Status is the lifecycle state of a tracked job.
//
// NOTE: These values are part of the API contract the UI polls against.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimeout
}

// Job is a tracked unit of asynchronous work.
//
// Progress is monotonically non-decreasing while the job is non-terminal;
// the terminal write unconditionally sets it to 100 regardless of outcome.
// The UI reads 100% as "no longer running", not "succeeded".
type Job struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`

	// Logs is append-only for the lifetime of the job; lines are never
	// truncated or reordered during a run.
	Logs []string `json:"logs"`

	// ReturnCode is meaningful only once the job is terminal.
	ReturnCode int `json:"return_code"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Metadata is set at creation and not mutated afterward (source
	// document path, description, extra parameters).
	Metadata map[string]string `json:"metadata,omitempty"`

	// seq orders jobs by creation when timestamps collide.
	seq uint64
}

func (j *Job) clone() Job {
	out := *j
	out.Logs = append([]string(nil), j.Logs...)
	if j.Metadata != nil {
		md := make(map[string]string, len(j.Metadata))
		for k, v := range j.Metadata {
			md[k] = v
		}
		out.Metadata = md
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
