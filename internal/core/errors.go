package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error that crosses a component boundary wraps exactly one of these.
var (
	ErrInput             = errors.New("invalid input")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrNotOnboarded      = errors.New("not onboarded")
	ErrForbidden         = errors.New("forbidden")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrUpstreamTransient = errors.New("upstream temporarily unavailable")
	ErrUpstreamPermanent = errors.New("upstream failure")
)

var kinds = []error{
	ErrInput,
	ErrUnauthenticated,
	ErrNotOnboarded,
	ErrForbidden,
	ErrSchemaMismatch,
	ErrUpstreamTransient,
	ErrUpstreamPermanent,
}

// Error carries a kind, the operation that failed and an optional cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// E wraps err with a kind. A nil err yields an error carrying only the kind.
func E(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the first kind err wraps, or nil when it carries none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsTransient reports whether a retry may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamTransient)
}
