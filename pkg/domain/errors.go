package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies engine failures.
type ErrorKind string

// Error taxonomy shared by the transfer engine, deletion resolver and service.
const (
	// KindNoOpTransfer is reported when source and target partitions are equal.
	KindNoOpTransfer ErrorKind = "no_op_transfer"
	// KindEmptySelection is reported when nothing was selected to operate on.
	KindEmptySelection ErrorKind = "empty_selection"
	// KindInvalidReference is reported when a named id does not exist where required.
	KindInvalidReference ErrorKind = "invalid_reference"
	// KindLastProjectViolation is reported when deletion would leave zero projects.
	KindLastProjectViolation ErrorKind = "last_project_violation"
	// KindIntegrityFault is reported when a post-condition check fails.
	KindIntegrityFault ErrorKind = "integrity_fault"
	// KindPersistenceFailure is reported when write-back to a repository fails.
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

// Sentinel errors matched with errors.Is against *EngineError and *PersistenceError.
var (
	ErrNoOpTransfer         = errors.New("source and target project are the same")
	ErrEmptySelection       = errors.New("selection is empty")
	ErrInvalidReference     = errors.New("invalid reference")
	ErrLastProjectViolation = errors.New("cannot delete the last remaining project")
	ErrIntegrityFault       = errors.New("integrity fault")
	ErrPersistenceFailure   = errors.New("persistence failure")
)

var kindSentinels = map[ErrorKind]error{
	KindNoOpTransfer:         ErrNoOpTransfer,
	KindEmptySelection:       ErrEmptySelection,
	KindInvalidReference:     ErrInvalidReference,
	KindLastProjectViolation: ErrLastProjectViolation,
	KindIntegrityFault:       ErrIntegrityFault,
	KindPersistenceFailure:   ErrPersistenceFailure,
}

// EngineError describes a failed engine operation. No snapshot accompanies it.
type EngineError struct {
	Kind       ErrorKind
	Op         string
	IDs        []string
	Violations []Violation
	Err        error
}

// NewEngineError constructs an EngineError for the given kind and operation.
func NewEngineError(kind ErrorKind, op string, ids ...string) *EngineError {
	return &EngineError{Kind: kind, Op: op, IDs: ids}
}

func (e *EngineError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		b.WriteString(sentinel.Error())
	} else {
		b.WriteString(string(e.Kind))
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.IDs, ", "))
	}
	if len(e.Violations) > 0 {
		fmt.Fprintf(&b, " (%d violations, first: %s)", len(e.Violations), e.Violations[0].Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is reports whether target is the sentinel for this error's kind.
func (e *EngineError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

func (e *EngineError) Unwrap() error { return e.Err }

// PersistenceError reports a failed write-back after a successful in-memory
// computation. Committed lists the sub-writes that completed before Failed.
type PersistenceError struct {
	Op        string
	Committed []string
	Failed    string
	Err       error
}

func (e *PersistenceError) Error() string {
	committed := "none"
	if len(e.Committed) > 0 {
		committed = strings.Join(e.Committed, ", ")
	}
	return fmt.Sprintf("%s: persistence failure writing %s (committed: %s): %v", e.Op, e.Failed, committed, e.Err)
}

// Is matches ErrPersistenceFailure.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistenceFailure }

func (e *PersistenceError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Kind, true
	}
	var persistErr *PersistenceError
	if errors.As(err, &persistErr) {
		return KindPersistenceFailure, true
	}
	return "", false
}
