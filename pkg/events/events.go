// Package events provides JSONL output for job lifecycle transitions.
//
// Every status or progress change observed by the job registry is
// emitted as a typed record envelope, one self-contained JSON object
// per line. Downstream notification consumers tail the stream without
// touching the registry.
package events

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: orchard.<type>.v<version>
const (
	// TypeTransition identifies job status/progress transition records.
	TypeTransition = "orchard.job_transition.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line contains a Record with a type-specific payload in the Data
// field. The type field determines how to interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "orchard.job_transition.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the job the record describes.
	JobID string `json:"job_id"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// TransitionRecord is the data payload for job transitions.
type TransitionRecord struct {
	// Kind is the job kind (playbook, deletion, ...).
	Kind string `json:"kind"`

	// Status is the job status after the transition.
	Status string `json:"status"`

	// Progress is the job progress after the transition.
	Progress int `json:"progress"`

	// Message is the job's current status line.
	Message string `json:"message"`

	// ReturnCode is populated once the job is terminal.
	ReturnCode int `json:"return_code,omitempty"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "events: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
