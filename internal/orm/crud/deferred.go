package crud

import (
	"context"

	"github.com/conduit-lang/graphorm/internal/orm/query"
)

// Deferred is the pending result of one operation. The statement is
// dispatched when the Deferred is created; every Await returns the same
// result and nothing is dispatched again.
type Deferred[T any] struct {
	stmt  query.Statement
	done  chan struct{}
	value T
	err   error
}

func newDeferred[T any](stmt query.Statement, fn func() (T, error)) *Deferred[T] {
	d := &Deferred[T]{stmt: stmt, done: make(chan struct{})}
	go func() {
		defer close(d.done)
		d.value, d.err = fn()
	}()
	return d
}

// Failed returns a Deferred that is already resolved with err. Nothing is
// dispatched.
func Failed[T any](err error) *Deferred[T] {
	d := &Deferred[T]{done: make(chan struct{}), err: err}
	close(d.done)
	return d
}

// Resolved returns a Deferred that is already resolved with value
func Resolved[T any](stmt query.Statement, value T) *Deferred[T] {
	d := &Deferred[T]{stmt: stmt, done: make(chan struct{}), value: value}
	close(d.done)
	return d
}

// Await blocks until the result is available or ctx is done. Cancelling ctx
// stops the wait, not the dispatched statement.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the result is available
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Statement returns the statement the Deferred dispatched
func (d *Deferred[T]) Statement() query.Statement {
	return d.stmt
}

// String returns the statement text
func (d *Deferred[T]) String() string {
	return d.stmt.Text
}

// Then derives a Deferred from the result of d without dispatching again.
// fn runs once, after d resolves successfully.
func Then[T, U any](d *Deferred[T], fn func(T) (U, error)) *Deferred[U] {
	next := &Deferred[U]{stmt: d.stmt, done: make(chan struct{})}
	go func() {
		defer close(next.done)
		<-d.done
		if d.err != nil {
			next.err = d.err
			return
		}
		next.value, next.err = fn(d.value)
	}()
	return next
}
