package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the review workflow.
var (
	// ErrAlreadyActioned is returned when a transition is attempted on a
	// record that already has a terminal action. The caller should refresh
	// its view; the existing rows are never overwritten.
	ErrAlreadyActioned = errors.New("record already actioned")

	// ErrRecordNotFound is returned when an email_id is not in the queue.
	ErrRecordNotFound = errors.New("record not found")
)

// ValidationError carries the field-level failures that blocked an approval.
// It is recoverable: the reviewer corrects the values and resubmits.
type ValidationError struct {
	EmailID string
	Fields  []FieldValidation
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, fv := range e.Fields {
		names = append(names, fv.Field)
	}
	return fmt.Sprintf("record %s has invalid fields: %s", e.EmailID, strings.Join(names, ", "))
}

// StoreError wraps a failed durable-store read or write. It is transient and
// retryable with backoff; callers must surface it, never swallow it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a StoreError unless it already carries workflow
// meaning (not-found, already-actioned pass through unchanged).
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrAlreadyActioned) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// InconsistentWriteError reports that the primary effect of a transition
// succeeded but the paired audit write failed (or vice versa). It is fatal to
// the operation and must be reconciled by an operator; blind retry risks
// duplicating the primary effect.
type InconsistentWriteError struct {
	EmailID string
	Op      string
	Err     error
}

func (e *InconsistentWriteError) Error() string {
	return fmt.Sprintf("inconsistent write for record %s during %s: %v", e.EmailID, e.Op, e.Err)
}

func (e *InconsistentWriteError) Unwrap() error { return e.Err }
