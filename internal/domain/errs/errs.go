package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced user, request or credit does not
// exist. Repositories wrap their driver-specific not-found into this.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert loses a race on a unique column,
// such as two requests drawing the same daily number. Callers may retry.
var ErrDuplicate = errors.New("duplicate")

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the complete list of violated rules, never just the
// first one.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: message})
}

func (e *ValidationError) Empty() bool { return len(e.Violations) == 0 }

// Validation builds a single-violation error.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Violations: []Violation{{Field: field, Message: message}}}
}

// RestrictionError is a business-rule refusal, not a bug: the portfolio rules
// forbid another credit right now. Code is machine-readable.
type RestrictionError struct {
	Code      string  `json:"code"`
	Message   string  `json:"message"`
	Threshold float64 `json:"threshold"`
	Actual    float64 `json:"actual"`
}

func (e *RestrictionError) Error() string {
	return fmt.Sprintf("restriction %s: %s", e.Code, e.Message)
}

// StateConflictError reports a transition or mutation not permitted from the
// entity's current state.
type StateConflictError struct {
	Entity    string
	Current   string
	Attempted string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s in state %q does not allow %q", e.Entity, e.Current, e.Attempted)
}

// DependencyError wraps a failed external collaborator. Handlers surface it
// as an opaque system error; the wrapped cause stays in the logs.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string { return "dependency failure in " + e.Op + ": " + e.Err.Error() }
func (e *DependencyError) Unwrap() error { return e.Err }

func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Op: op, Err: err}
}
