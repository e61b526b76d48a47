// Package entity holds the domain model: Target, Snapshot, Change, Reminder,
// and the per-target/global agent memory records, plus the error taxonomy
// shared across use cases.
package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested target or reminder was not found.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input failed basic validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed.
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError reports which field failed validation and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// CheckKind tags a CheckError with the closed error taxonomy from the
// engine's error handling design: NotFound, Config, Fetch, Extract,
// AgentFailed, Notify, Store.
type CheckKind string

const (
	KindNotFound    CheckKind = "not_found"
	KindConfig      CheckKind = "config"
	KindFetch       CheckKind = "fetch"
	KindExtract     CheckKind = "extract"
	KindAgentFailed CheckKind = "agent_failed"
	KindNotify      CheckKind = "notify"
	KindStore       CheckKind = "store"
)

// CheckError carries a taxonomy tag alongside the target it occurred on, so
// the orchestrator and scheduler can log and abort a single check without
// losing the reason. It wraps an underlying cause.
type CheckError struct {
	Kind     CheckKind
	Target   string
	Cause    error
}

func (e *CheckError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s[%s]: %v", e.Kind, e.Target, e.Cause)
}

func (e *CheckError) Unwrap() error {
	return e.Cause
}

// NewCheckError builds a CheckError, wrapping cause with the given kind and
// target name for later logging and propagation.
func NewCheckError(kind CheckKind, target string, cause error) *CheckError {
	return &CheckError{Kind: kind, Target: target, Cause: cause}
}
