// Package vgerr defines the error taxonomy shared across the VitalGraph
// engine. Every package wraps failures in an *Error carrying one of the
// Kinds below, following the teacher's plain-sentinel style
// (pkg/rdf's bare fmt.Errorf, internal/storage/badger.go's
// store.ErrNotFound) generalized with a tag because this catalog is much
// larger than the teacher's two sentinels.
package vgerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy entries from spec §7.
type Kind int

const (
	Internal Kind = iota
	Configuration
	Connectivity
	Schema
	Validation
	SPARQL
	Integrity
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Connectivity:
		return "connectivity"
	case Schema:
		return "schema"
	case Validation:
		return "validation"
	case SPARQL:
		return "sparql"
	case Integrity:
		return "integrity"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the wrapping type every engine package returns. Op names the
// failing operation (e.g. "schema.CreateSpaceTables"); Err is the
// underlying cause, which may itself be a *vgerr.Error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, target) match any *Error target that carries the
// same Kind, whatever its Op or cause.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// New wraps err (which may be nil) as a Kind-tagged *Error for op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is New with a formatted underlying error.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to Internal if err does
// not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Retryable reports whether the Conflict class may be retried
// automatically, per spec §7's propagation policy.
func Retryable(err error) bool {
	return KindOf(err) == Conflict
}

// Sentinel errors used where a plain comparable value is more convenient
// than constructing an *Error, mirroring pkg/store/storage.go's
// package-level errors.New sentinels in the teacher.
var (
	ErrNoSuchSpace       = errors.New("no such space")
	ErrSpaceExists       = errors.New("space already exists")
	ErrIdentifierTooLong = errors.New("identifier too long")
	ErrInvalidTermPlace  = errors.New("invalid term placement")
	ErrNotActive         = errors.New("transaction is not active")
)
