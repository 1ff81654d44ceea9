package sandbox

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Sandbox is a handle to one isolated execution environment. A sandbox is
// bound 1:1 to a project run; it is never shared or reused across projects.
type Sandbox struct {
	ID          string
	ProjectID   string
	ContainerID string
	Workdir     string

	cleaned atomic.Bool
}

// ExecResult is the outcome of running a command inside a sandbox. A non-zero
// exit code is a normal, reportable outcome, not an error.
type ExecResult struct {
	ExitCode int
	Output   string
}

// Executor creates, uses and tears down isolated execution environments.
//
// Cleanup takes no context and returns no error: teardown must run even when
// the run's context is already cancelled, and a teardown failure must never
// mask a previously decided outcome. Failures are logged and swallowed.
type Executor interface {
	Create(ctx context.Context, projectID string) (*Sandbox, error)
	Execute(ctx context.Context, sb *Sandbox, files map[string]string, command string) (*ExecResult, error)
	Cleanup(sb *Sandbox)
}

// CreationError is fatal: the backing isolation mechanism could not allocate
// an environment.
type CreationError struct {
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("sandbox creation failed: %v", e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// ExecutionError is fatal: the sandbox infrastructure itself failed (I/O,
// unreachable container). Distinct from a command exiting non-zero.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sandbox execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
