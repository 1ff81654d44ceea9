package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProjectNotFound = errors.New("project not found")

	// ErrIterationLimitExceeded is the expected failure when the fix loop
	// exhausts its budget while the artifact is still invalid. It is
	// distinguished from infrastructure failures so callers can tell
	// "could not satisfy validation" from "something broke".
	ErrIterationLimitExceeded = errors.New("iteration limit exceeded")
)

// GenerationError is fatal: one component's generation subtask could not
// produce output, so the whole run aborts (no partial artifact proceeds).
type GenerationError struct {
	Component Component
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Component, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// FixError is fatal: the fix service could not produce an alternative
// artifact.
type FixError struct {
	Err error
}

func (e *FixError) Error() string {
	return fmt.Sprintf("fix failed: %v", e.Err)
}

func (e *FixError) Unwrap() error { return e.Err }
