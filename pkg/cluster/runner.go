package cluster

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// CommandRunner abstracts subprocess execution so the client can be
// exercised against canned output in tests.
type CommandRunner interface {
	// Run executes name with args, feeding stdin when non-nil, and
	// returns captured stdout and stderr. A non-zero exit is returned
	// as an *exec.ExitError with the captured streams still populated.
	Run(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// classify maps low-level execution errors onto the package sentinels.
func classify(ctx context.Context, tool, op string, stderr []byte, err error) error {
	msg := string(bytes.TrimSpace(stderr))
	wrap := func(sentinel error) error {
		return &CLIError{Tool: tool, Op: op, Stderr: msg, Err: sentinel}
	}

	if errors.Is(err, exec.ErrNotFound) {
		return wrap(ErrToolNotInstalled)
	}
	if ctx.Err() != nil {
		return wrap(ErrTimedOut)
	}

	lower := bytes.ToLower([]byte(msg))
	switch {
	case bytes.Contains(lower, []byte("not logged in")),
		bytes.Contains(lower, []byte("unauthorized")),
		bytes.Contains(lower, []byte("invalid username or password")),
		bytes.Contains(lower, []byte("authentication")):
		return wrap(ErrUnauthorized)
	case bytes.Contains(lower, []byte("certificate")),
		bytes.Contains(lower, []byte("tls")):
		return wrap(ErrTLS)
	case bytes.Contains(lower, []byte("connection")),
		bytes.Contains(lower, []byte("network")),
		bytes.Contains(lower, []byte("no such host")):
		return wrap(ErrConnectionFailed)
	}
	return &CLIError{Tool: tool, Op: op, Stderr: msg, Err: err}
}
