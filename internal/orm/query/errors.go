package query

import (
	"errors"
	"fmt"
)

// ErrEmptyKey is returned when a predicate or order names no attribute
var ErrEmptyKey = errors.New("empty attribute key")

// UnsupportedOrderFunctionError is returned when an order key applies a
// function outside the allowlist
type UnsupportedOrderFunctionError struct {
	Function string
}

func (e *UnsupportedOrderFunctionError) Error() string {
	return fmt.Sprintf("unsupported order function: %s", e.Function)
}

// UnresolvableScopeError is returned when a filter or order refers to an
// alias that is not part of the matched graph
type UnresolvableScopeError struct {
	Scope string
	Key   string
}

func (e *UnresolvableScopeError) Error() string {
	return fmt.Sprintf("scope %q of %q does not match any alias in the query", e.Scope, e.Key)
}

// IsUnsupportedOrderFunction checks if an error is an UnsupportedOrderFunctionError
func IsUnsupportedOrderFunction(err error) bool {
	var e *UnsupportedOrderFunctionError
	return errors.As(err, &e)
}

// IsUnresolvableScope checks if an error is an UnresolvableScopeError
func IsUnresolvableScope(err error) bool {
	var e *UnresolvableScopeError
	return errors.As(err, &e)
}
