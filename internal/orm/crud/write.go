package crud

import (
	"context"
	"fmt"

	"github.com/conduit-lang/graphorm/internal/orm/hooks"
	"github.com/conduit-lang/graphorm/internal/orm/query"
	"github.com/conduit-lang/graphorm/internal/orm/record"
	"github.com/conduit-lang/graphorm/internal/orm/relationships"
)

// Save creates the record when it has no store id and updates it otherwise.
// Defaults are applied, before hooks run and every attribute is validated
// first; on failure nothing is dispatched. A validation failure is a
// *validation.ValidationErrors and the record keeps the messages in
// Errors(). After hooks run once the record is hydrated. The record must not
// be used until the result is awaited.
func (o *Operations) Save(ctx context.Context, rec *record.Record) *Deferred[*record.Record] {
	if err := o.checkRecord(rec, false); err != nil {
		return Failed[*record.Record](err)
	}

	before, after := hooks.BeforeUpdate, hooks.AfterUpdate
	if rec.IsNew() {
		before, after = hooks.BeforeCreate, hooks.AfterCreate
	}

	rec.ApplyDefaults()
	if err := o.hooks.Run(ctx, before, rec); err != nil {
		return Failed[*record.Record](err)
	}
	if err := rec.Validate(); err != nil {
		return Failed[*record.Record](err)
	}

	var saved *Deferred[*record.Record]
	if rec.IsNew() {
		saved = o.create(ctx, rec)
	} else {
		saved = o.update(ctx, rec)
	}
	return o.runAfter(ctx, saved, after)
}

// runAfter chains the after hooks of t onto d
func (o *Operations) runAfter(ctx context.Context, d *Deferred[*record.Record], t hooks.Type) *Deferred[*record.Record] {
	if !o.hooks.Has(t) {
		return d
	}
	return Then(d, func(rec *record.Record) (*record.Record, error) {
		if err := o.hooks.Run(ctx, t, rec); err != nil {
			return rec, err
		}
		return rec, nil
	})
}

func (o *Operations) create(ctx context.Context, rec *record.Record) *Deferred[*record.Record] {
	plan, err := relationships.NewPlan(o.entity, o.alias(), nil, relationships.Options{SkipDefaults: true})
	if err != nil {
		return Failed[*record.Record](err)
	}
	alias := plan.Root.Alias

	b := query.NewBuilder()
	addSets(b, alias, rec, false)
	stmt, err := b.Create(alias, o.entity.NodeName())
	if err != nil {
		return Failed[*record.Record](err)
	}

	return newDeferred(stmt, func() (*record.Record, error) {
		rows, err := o.dispatch(ctx, "create", stmt)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("create %s returned no node", o.entity.Name)
		}
		if err := plan.Hydrate(rec, rows[0]); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

func (o *Operations) update(ctx context.Context, rec *record.Record) *Deferred[*record.Record] {
	id, _ := rec.ID()
	plan, b, err := o.prepare(
		Config{Filters: []query.Predicate{idFilter(o.alias(), id)}},
		relationships.Options{SkipDefaults: true},
	)
	if err != nil {
		return Failed[*record.Record](err)
	}

	b.Distinct()
	addSets(b, plan.Root.Alias, rec, true)
	stmt, err := b.Update()
	if err != nil {
		return Failed[*record.Record](err)
	}

	return newDeferred(stmt, func() (*record.Record, error) {
		rows, err := o.dispatch(ctx, "update", stmt)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: %s %d", ErrNotFound, o.entity.Name, id)
		}
		if err := plan.Hydrate(rec, rows[0]); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// addSets writes one SET term per stored scalar. Explicit nils are written
// only when keepNil is set, which removes the property on update.
func addSets(b *query.Builder, alias string, rec *record.Record, keepNil bool) {
	for _, attr := range rec.Entity().Fields() {
		v, ok := rec.Raw(attr.Name)
		if !ok || (v == nil && !keepNil) {
			continue
		}
		b.AddSet(alias+"."+attr.Name, v)
	}
}

// Delete deletes a saved record. With detach its relationships are deleted
// too; without it the store rejects deleting a node that has any.
func (o *Operations) Delete(ctx context.Context, rec *record.Record, detach bool) *Deferred[*record.Record] {
	if err := o.checkRecord(rec, true); err != nil {
		return Failed[*record.Record](err)
	}
	if err := o.hooks.Run(ctx, hooks.BeforeDelete, rec); err != nil {
		return Failed[*record.Record](err)
	}
	id, _ := rec.ID()

	plan, b, err := o.prepare(
		Config{Filters: []query.Predicate{idFilter(o.alias(), id)}},
		relationships.Options{SkipDefaults: true},
	)
	if err != nil {
		return Failed[*record.Record](err)
	}
	stmt, err := b.Delete(plan.Root.Alias, detach)
	if err != nil {
		return Failed[*record.Record](err)
	}

	deleted := newDeferred(stmt, func() (*record.Record, error) {
		if _, err := o.dispatch(ctx, "delete", stmt); err != nil {
			return nil, err
		}
		return rec, nil
	})
	return o.runAfter(ctx, deleted, hooks.AfterDelete)
}
