package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrTransientTransport marks a connection-level failure where no
	// response was received. Reads retry on it; writes do not.
	ErrTransientTransport = errors.New("transient transport failure")

	// ErrAuthentication indicates the remote rejected the credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRetryExhausted indicates all read attempts have been used up.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrAncestorNotMigrated is returned for a suite whose ancestor was
	// skipped earlier in the run.
	ErrAncestorNotMigrated = errors.New("ancestor suite was not migrated")

	// ErrNotFound indicates a remote entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorage indicates the relation store could not persist a mapping.
	ErrStorage = errors.New("relation storage failure")
)

// StatusError is a non-success HTTP status accompanied by a response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// ReadError wraps any failure of a source read. Reads are fatal to the run.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// StructuralIntegrityError reports an entity referenced from within a plan
// that the source did not return: a suite's parent, or a case linked to a
// static suite.
type StructuralIntegrityError struct {
	Kind         EntityKind
	MissingID    int
	ReferencedBy int
}

func (e *StructuralIntegrityError) Error() string {
	return fmt.Sprintf("suite %d references %s %d which is not part of the plan", e.ReferencedBy, e.Kind, e.MissingID)
}

// CycleDetectedError reports a parent chain that revisits a suite being resolved.
type CycleDetectedError struct {
	Chain []int
}

func (e *CycleDetectedError) Error() string {
	ids := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		ids[i] = strconv.Itoa(id)
	}
	return "suite parent chain forms a cycle: " + strings.Join(ids, " -> ")
}

// DuplicateNodeError indicates a classification node already exists at the
// destination.
type DuplicateNodeError struct {
	Structure StructureType
	Path      string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("%s node %q already exists", e.Structure, e.Path)
}

// DuplicateRelationError indicates a source id already maps to a different
// destination id.
type DuplicateRelationError struct {
	Kind      EntityKind
	SourceID  int
	Existing  int
	Attempted int
}

func (e *DuplicateRelationError) Error() string {
	return fmt.Sprintf("%s %d is already related to %d, refusing %d", e.Kind, e.SourceID, e.Existing, e.Attempted)
}

// ParentNotFoundError indicates a destination parent suite that a relation
// points at is missing from the destination tree.
type ParentNotFoundError struct {
	PlanID   int
	ParentID int
}

func (e *ParentNotFoundError) Error() string {
	return fmt.Sprintf("parent suite %d not found in destination plan %d", e.ParentID, e.PlanID)
}

// ValidationError is a destination write rejected for its content.
type ValidationError struct {
	Entity  string
	Reasons []string
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("%s rejected by destination", e.Entity)
	}
	return fmt.Sprintf("%s rejected by destination: %s", e.Entity, strings.Join(e.Reasons, "; "))
}

// IsFatal reports whether err must abort the whole run. Per-entity write
// failures are not fatal; read, authentication, storage and source tree
// failures are.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrStorage) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var readErr *ReadError
	var structErr *StructuralIntegrityError
	var cycleErr *CycleDetectedError
	return errors.As(err, &readErr) || errors.As(err, &structErr) || errors.As(err, &cycleErr)
}
