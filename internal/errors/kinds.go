// Package errors is the engine's structured error model (spec.md §7):
// a typed sum of failure kinds the verifier loop surfaces to its
// driver, plus a CLI-style reporter adapted from the teacher's
// internal/errors/reporter.go that renders them with the same
// Rust-like colorized caret formatting (github.com/fatih/color).
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is the closed set of verifier failure kinds (spec.md §7).
// There is deliberately no "Other": an engine path that cannot
// classify its own failure is a bug, not a new Kind, and should panic
// per spec.md §9 ("reserve panics for true bugs").
type Kind int

const (
	ConfigurationErrorKind Kind = iota
	UnsupportedConstructKind
	FootprintTooSmallKind
	LinearizationFailureKind
	InvariantViolationKind
	SolverUnknownKind
)

func (k Kind) String() string {
	switch k {
	case ConfigurationErrorKind:
		return "ConfigurationError"
	case UnsupportedConstructKind:
		return "UnsupportedConstruct"
	case FootprintTooSmallKind:
		return "FootprintTooSmall"
	case LinearizationFailureKind:
		return "LinearizationFailure"
	case InvariantViolationKind:
		return "InvariantViolation"
	case SolverUnknownKind:
		return "SolverUnknown"
	}
	return "Unknown"
}

// VerifierError is the one error type every engine package returns
// for an expected (non-bug) failure; callers switch on Kind rather
// than on the concrete Go type.
type VerifierError struct {
	Kind     Kind
	Message  string
	Site     string // the statement/scope where the failure triggered, e.g. "push, line 14"
	PreState string // LinearizationFailure only: the offending pre-state
	PostState string // LinearizationFailure only: the post-state the engine computed
}

func (e *VerifierError) Error() string {
	if e.Site != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Site, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, site, message string) *VerifierError {
	return &VerifierError{Kind: kind, Site: site, Message: message}
}

// Linearization builds a LinearizationFailure carrying the pre/post
// panel spec.md §7 requires ("prints ... the offending pre-state and
// the post-state it computed").
func Linearization(site, message, pre, post string) *VerifierError {
	return &VerifierError{Kind: LinearizationFailureKind, Site: site, Message: message, PreState: pre, PostState: post}
}

// Wrap attaches a stack trace to an unexpected internal failure (a
// broken engine invariant, not a modeled VerifierError) while leaving
// the original error inspectable via errors.Cause/Unwrap — used at
// the few points where a true engine bug should still carry enough
// context to debug rather than becoming an opaque panic message.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, context)
}
