package core

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapbind/pkg/token"
)

// ErrorKind is one of the closed set of binding failures. Kinds are errors
// themselves so callers can match with errors.Is.
type ErrorKind string

func (k ErrorKind) Error() string { return string(k) }

// Binding failure kinds.
const (
	ErrAmbiguousOrUnknownName ErrorKind = "ambiguous or unknown name"
	ErrUnknownField           ErrorKind = "unknown field"
	ErrNotComposite           ErrorKind = "not composite"
	ErrNoMatchingOperator     ErrorKind = "no matching operator"
	ErrAmbiguousOverload      ErrorKind = "ambiguous overload"
	ErrIncompatibleTypes      ErrorKind = "incompatible types"
	ErrImplicitCastNotAllowed ErrorKind = "implicit cast not allowed"
	ErrMalformedNode          ErrorKind = "malformed node"
)

// ErrCatalogRequired is returned when a component is built without a catalog.
var ErrCatalogRequired = errors.New("catalog is required")

// BindError reports why an expression could not be bound.
type BindError struct {
	Kind    ErrorKind
	Name    string // offending name, operator or type when there is one
	Message string
	Pos     token.Position
}

func (e *BindError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("bind error at line %d, column %d: %s: %s", e.Pos.Line, e.Pos.Column, e.Kind, e.Message)
	}
	return fmt.Sprintf("bind error: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the kind so errors.Is(err, core.ErrUnknownField) works.
func (e *BindError) Unwrap() error { return e.Kind }

// Errorf builds a BindError of the given kind.
func Errorf(kind ErrorKind, name string, format string, args ...any) *BindError {
	return &BindError{Kind: kind, Name: name, Message: fmt.Sprintf(format, args...)}
}

// At attaches a source position if the error does not carry one yet.
func (e *BindError) At(pos token.Position) *BindError {
	if !e.Pos.IsValid() {
		e.Pos = pos
	}
	return e
}

// KindOf returns the binding failure kind of err, or "" if err is not a
// binding failure.
func KindOf(err error) ErrorKind {
	var be *BindError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}
