package simplefields

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrItemNotFound indicates a content item was not found
	ErrItemNotFound = errors.New("item not found")

	// ErrMetaNotFound indicates no metadata entry exists for a key
	ErrMetaNotFound = errors.New("metadata not found")

	// ErrFieldNotFound indicates a field id is not registered with the group
	ErrFieldNotFound = errors.New("field not found")

	// ErrTypeNotDeclared indicates a content type identifier was never declared
	ErrTypeNotDeclared = errors.New("content type not declared")

	// ErrModelNotRunning indicates an operation that requires a running model
	ErrModelNotRunning = errors.New("model is not running")
)

// PreconditionKind classifies save precondition failures.
type PreconditionKind string

// Precondition kinds.
const (
	PreconditionNonce      PreconditionKind = "nonce"
	PreconditionCapability PreconditionKind = "capability"
	PreconditionPhase      PreconditionKind = "phase"
)

// PreconditionError indicates a save request failed its transport or
// permission precondition before any field processing began. It is a distinct
// kind from validation failure and is never silently swallowed.
type PreconditionError struct {
	Kind PreconditionKind
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("save precondition failed: %s", e.Kind)
}

// ValidationError carries the per-field error messages from a failed save.
// It is a recoverable, structured result, not an exceptional condition.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// SaveError wraps an unexpected panic recovered at the outermost save
// boundary, so observers see a consistent failure signal.
type SaveError struct {
	ItemID uuid.UUID
	Reason interface{}
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save failed unexpectedly for item %s: %v", e.ItemID, e.Reason)
}

// StoreError represents an error propagated from the external content store.
type StoreError struct {
	ItemID uuid.UUID
	Op     string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
