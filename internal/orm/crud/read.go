package crud

import (
	"context"
	"fmt"

	"github.com/conduit-lang/graphorm/internal/orm/query"
	"github.com/conduit-lang/graphorm/internal/orm/record"
	"github.com/conduit-lang/graphorm/internal/orm/relationships"
)

// FindAll fetches every record matching cfg. Rows sharing a root are folded
// into one record; records keep the order in which their root first appears.
func (o *Operations) FindAll(ctx context.Context, cfg Config) *Deferred[*record.Collection] {
	if cfg.Parent != nil {
		if err := o.checkRecord(cfg.Parent, false); err != nil {
			return Failed[*record.Collection](err)
		}
	}

	plan, b, err := o.prepare(cfg, relationships.Options{Optional: cfg.optional(), State: cfg.State})
	if err != nil {
		return Failed[*record.Collection](err)
	}
	stmt, err := b.Find()
	if err != nil {
		return Failed[*record.Collection](err)
	}

	return newDeferred(stmt, func() (*record.Collection, error) {
		rows, err := o.dispatch(ctx, "find", stmt)
		if err != nil {
			return nil, err
		}
		return o.collect(plan, rows, cfg.Parent)
	})
}

func (o *Operations) collect(plan *relationships.Plan, rows []query.Row, parent *record.Record) (*record.Collection, error) {
	result := record.NewCollection()
	for _, row := range rows {
		if parent != nil {
			if err := plan.Hydrate(parent, row); err != nil {
				return nil, err
			}
			result.Add(parent)
			continue
		}

		id, err := plan.RootID(row)
		if err != nil {
			return nil, err
		}
		rec := result.GetOrAdd(id, func() *record.Record {
			return record.New(o.entity)
		})
		if err := plan.Hydrate(rec, row); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// FindBy fetches the records matching filters. Filters replace any in cfg.
func (o *Operations) FindBy(ctx context.Context, filters []query.Predicate, cfg Config) *Deferred[*record.Collection] {
	cfg.Filters = filters
	return o.FindAll(ctx, cfg)
}

// FindByID fetches one record by store id, or fails with ErrNotFound. The id
// filter is combined with the filters in cfg.
func (o *Operations) FindByID(ctx context.Context, id int64, cfg Config) *Deferred[*record.Record] {
	cfg.Filters = append([]query.Predicate{idFilter(o.alias(), id)}, cfg.Filters...)

	return Then(o.FindAll(ctx, cfg), func(c *record.Collection) (*record.Record, error) {
		first := c.First()
		if first == nil {
			return nil, fmt.Errorf("%w: %s %d", ErrNotFound, o.entity.Name, id)
		}
		return first, nil
	})
}

// Count counts the distinct roots matching cfg, or cfg.Count when it is
// set. Skip, limit and order do not apply.
func (o *Operations) Count(ctx context.Context, cfg Config) *Deferred[int64] {
	cfg.OrderBy = nil
	cfg.Skip, cfg.Limit = nil, nil

	plan, b, err := o.prepare(cfg, relationships.Options{Optional: cfg.optional(), State: cfg.State})
	if err != nil {
		return Failed[int64](err)
	}
	expr := cfg.Count
	if expr == "" {
		expr = "DISTINCT " + plan.Root.Alias
	}
	stmt, err := b.Count(expr)
	if err != nil {
		return Failed[int64](err)
	}

	return newDeferred(stmt, func() (int64, error) {
		rows, err := o.dispatch(ctx, "count", stmt)
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 0, nil
		}
		n, ok := rows[0].Int("count")
		if !ok {
			return 0, fmt.Errorf("count of %s returned no integer", o.entity.Name)
		}
		return n, nil
	})
}

// Fetch reloads a saved record in place, loading the relationships named by
// with. Relations hydrated earlier are dropped first. The record must not be
// used until the result is awaited.
func (o *Operations) Fetch(ctx context.Context, rec *record.Record, with []string, state interface{}) *Deferred[*record.Record] {
	if err := o.checkRecord(rec, true); err != nil {
		return Failed[*record.Record](err)
	}
	id, _ := rec.ID()

	for _, attr := range o.entity.Relationships() {
		rec.ClearRelation(attr.Name)
	}

	found := o.FindAll(ctx, Config{
		With:    with,
		Filters: []query.Predicate{idFilter(o.alias(), id)},
		State:   state,
		Parent:  rec,
	})
	return Then(found, func(c *record.Collection) (*record.Record, error) {
		if c.Len() == 0 {
			return nil, fmt.Errorf("%w: %s %d", ErrNotFound, o.entity.Name, id)
		}
		return rec, nil
	})
}
