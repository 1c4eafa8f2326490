// Package hooks registers functions run around record writes.
package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/conduit-lang/graphorm/internal/orm/record"
)

// Type identifies the point in a write at which a hook runs
type Type int

const (
	BeforeCreate Type = iota
	AfterCreate
	BeforeUpdate
	AfterUpdate
	BeforeDelete
	AfterDelete
)

// String returns the string representation of the hook type
func (t Type) String() string {
	switch t {
	case BeforeCreate:
		return "before_create"
	case AfterCreate:
		return "after_create"
	case BeforeUpdate:
		return "before_update"
	case AfterUpdate:
		return "after_update"
	case BeforeDelete:
		return "before_delete"
	case AfterDelete:
		return "after_delete"
	default:
		return "unknown"
	}
}

// Func is a hook. Before hooks may change the record; an error from one
// stops the write before anything is sent to the store.
type Func func(ctx context.Context, rec *record.Record) error

// Registry holds the hooks of one entity in registration order
type Registry struct {
	mu    sync.RWMutex
	hooks map[Type][]Func
}

// NewRegistry creates an empty hook registry
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[Type][]Func)}
}

// Register adds fn to the hooks of type t
func (r *Registry) Register(t Type, fn Func) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[t] = append(r.hooks[t], fn)
	return r
}

// Has reports whether any hook of type t is registered
func (r *Registry) Has(t Type) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[t]) > 0
}

// Run calls the hooks of type t in order and stops at the first error
func (r *Registry) Run(ctx context.Context, t Type, rec *record.Record) error {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	fns := append([]Func(nil), r.hooks[t]...)
	r.mu.RUnlock()

	for _, fn := range fns {
		if err := fn(ctx, rec); err != nil {
			return fmt.Errorf("hook %s failed: %w", t, err)
		}
	}
	return nil
}
