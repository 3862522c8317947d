package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Handlers map these to HTTP statuses; services wrap
// them with context via fmt.Errorf and %w.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError rejects malformed input. Surfaces as HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// BuildError carries the captured buildpack log alongside the failure.
type BuildError struct {
	Log string
	Err error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build failed: %v", e.Err)
	}
	return "build failed"
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// DependencyError wraps failures of external collaborators: the container
// engine, the git subprocess, or the buildpack.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
