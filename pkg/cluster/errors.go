package cluster

import (
	"errors"
	"fmt"
)

// Sentinel errors for external CLI operations.
var (
	// ErrToolNotInstalled indicates the CLI binary is not on PATH.
	ErrToolNotInstalled = errors.New("tool not installed")

	// ErrTimedOut indicates the CLI call exceeded its time bound.
	ErrTimedOut = errors.New("command timed out")

	// ErrUnauthorized indicates expired or invalid credentials.
	ErrUnauthorized = errors.New("not authenticated")

	// ErrConnectionFailed indicates the remote endpoint was unreachable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrTLS indicates a certificate problem reaching the endpoint.
	ErrTLS = errors.New("tls verification failed")
)

// CLIError wraps a failed tool invocation with context.
type CLIError struct {
	// Tool is the binary name (e.g. "rosa", "kubectl").
	Tool string

	// Op names the logical operation (e.g. "whoami", "apply").
	Op string

	// Stderr is the captured error output, trimmed.
	Stderr string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s %s: %v: %s", e.Tool, e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s %s: %v", e.Tool, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// IsToolNotInstalled returns true if the error indicates a missing binary.
func IsToolNotInstalled(err error) bool {
	return errors.Is(err, ErrToolNotInstalled)
}

// IsTimedOut returns true if the error indicates a timeout.
func IsTimedOut(err error) bool {
	return errors.Is(err, ErrTimedOut)
}

// IsUnauthorized returns true if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsConnectionFailed returns true if the error indicates an unreachable endpoint.
func IsConnectionFailed(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}
