// Package crud runs fetch, save and relate operations for one entity against
// a graph store.
package crud

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/graphorm/internal/logger"
	"github.com/conduit-lang/graphorm/internal/orm/hooks"
	"github.com/conduit-lang/graphorm/internal/orm/query"
	"github.com/conduit-lang/graphorm/internal/orm/record"
	"github.com/conduit-lang/graphorm/internal/orm/relationships"
	"github.com/conduit-lang/graphorm/internal/orm/schema"
)

// Config shapes a fetch
type Config struct {
	// With lists the relationships to load, as "a__b" paths
	With    []string
	Filters []query.Predicate
	OrderBy []query.Order
	Skip    *int
	Limit   *int
	// Optional is the default of path segments without a flag. Nil means
	// optional.
	Optional *bool
	// State is passed to relationship filters
	State interface{}
	// Parent receives every row instead of a fresh record per root
	Parent *record.Record
	// Count is the expression Count counts, such as "*" or "DISTINCT role".
	// Empty counts distinct roots.
	Count string
}

func (c Config) optional() bool {
	if c.Optional == nil {
		return true
	}
	return *c.Optional
}

// Int returns a pointer to n, for Config.Skip and Config.Limit
func Int(n int) *int {
	return &n
}

// Bool returns a pointer to b, for Config.Optional
func Bool(b bool) *bool {
	return &b
}

// Operations provides fetch, save and relate operations for an entity
type Operations struct {
	entity *schema.EntitySchema
	runner query.Runner
	logger logger.Logger
	hooks  *hooks.Registry
}

// Option configures Operations
type Option func(*Operations)

// WithLogger sets the logger statements are reported to
func WithLogger(l logger.Logger) Option {
	return func(o *Operations) {
		o.logger = l
	}
}

// WithHooks sets the hooks run around Save and Delete
func WithHooks(r *hooks.Registry) Option {
	return func(o *Operations) {
		o.hooks = r
	}
}

// NewOperations creates a new Operations instance
func NewOperations(entity *schema.EntitySchema, runner query.Runner, opts ...Option) *Operations {
	o := &Operations{
		entity: entity,
		runner: runner,
		logger: logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Entity returns the entity schema
func (o *Operations) Entity() *schema.EntitySchema {
	return o.entity
}

// New creates an unsaved record of the entity
func (o *Operations) New(values map[string]interface{}) (*record.Record, error) {
	return record.NewWithValues(o.entity, values)
}

func (o *Operations) alias() string {
	return o.entity.Alias()
}

// idFilter matches the node bound to alias by store id
func idFilter(alias string, id int64) query.Predicate {
	return query.Eq(fmt.Sprintf("id(%s)", alias), id)
}

func (o *Operations) checkRecord(rec *record.Record, persisted bool) error {
	if rec == nil || rec.Entity() != o.entity {
		return fmt.Errorf("%w: expected %s", ErrEntityMismatch, o.entity.Name)
	}
	if persisted && rec.IsNew() {
		return fmt.Errorf("%w: %s", ErrNotPersisted, o.entity.Name)
	}
	return nil
}

// prepare builds the plan of a fetch and walks it into a new builder
func (o *Operations) prepare(cfg Config, opts relationships.Options) (*relationships.Plan, *query.Builder, error) {
	paths, err := relationships.ParsePaths(cfg.With)
	if err != nil {
		return nil, nil, err
	}

	plan, err := relationships.NewPlan(o.entity, o.alias(), paths, opts)
	if err != nil {
		return nil, nil, err
	}

	filters, err := query.NormalizePredicates(cfg.Filters, plan.Root.Alias)
	if err != nil {
		return nil, nil, err
	}
	orders, err := query.NormalizeOrders(cfg.OrderBy, plan.Root.Alias)
	if err != nil {
		return nil, nil, err
	}

	b := query.NewBuilder()
	if cfg.Skip != nil {
		b.SetSkip(*cfg.Skip)
	}
	if cfg.Limit != nil {
		b.SetLimit(*cfg.Limit)
	}

	if err := plan.Walk(b, filters, orders); err != nil {
		return nil, nil, err
	}
	return plan, b, nil
}

// dispatch runs stmt once and reports it at debug level
func (o *Operations) dispatch(ctx context.Context, op string, stmt query.Statement) ([]query.Row, error) {
	start := time.Now()
	rows, err := query.Run(ctx, o.runner, stmt)

	fields := []zap.Field{
		zap.String("op_id", uuid.NewString()),
		zap.String("operation", op),
		zap.String("entity", o.entity.Name),
		zap.Int("params", len(stmt.Params)),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		o.logger.DebugWithContext(ctx, "statement failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	o.logger.DebugWithContext(ctx, "statement executed", append(fields, zap.Int("rows", len(rows)))...)
	return rows, nil
}
