package crud

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/graphorm/internal/orm/query"
	"github.com/conduit-lang/graphorm/internal/orm/record"
	"github.com/conduit-lang/graphorm/internal/orm/relationships"
	"github.com/conduit-lang/graphorm/internal/orm/schema"
	"github.com/conduit-lang/graphorm/internal/orm/validation"
)

// Relate connects rec to target through the relationship attr and sets the
// edge properties in props. With create the relationship is merged, so an
// existing one is reused; without it only an existing relationship is
// updated. Edge properties are validated like record attributes and a
// failure is kept in rec.Errors(). The related record is hydrated into rec.
func (o *Operations) Relate(ctx context.Context, rec *record.Record, attr string, target *record.Record, props map[string]interface{}, create bool) *Deferred[*record.Record] {
	plan, stmt, err := o.prepareRelate(rec, attr, target, props, create)
	if err != nil {
		return Failed[*record.Record](err)
	}
	return newDeferred(stmt, func() (*record.Record, error) {
		return o.runRelate(ctx, plan, rec, attr, stmt)
	})
}

// CreateRelationship merges the relationship attr between rec and target
func (o *Operations) CreateRelationship(ctx context.Context, rec *record.Record, attr string, target *record.Record, props map[string]interface{}) *Deferred[*record.Record] {
	return o.Relate(ctx, rec, attr, target, props, true)
}

// UpdateRelationship sets the properties of an existing relationship attr
// between rec and target
func (o *Operations) UpdateRelationship(ctx context.Context, rec *record.Record, attr string, target *record.Record, props map[string]interface{}) *Deferred[*record.Record] {
	return o.Relate(ctx, rec, attr, target, props, false)
}

// RemoveAllRelationships deletes every relationship attr of rec
func (o *Operations) RemoveAllRelationships(ctx context.Context, rec *record.Record, attr string) *Deferred[*record.Record] {
	stmt, err := o.prepareRemove(rec, attr, nil)
	if err != nil {
		return Failed[*record.Record](err)
	}
	return newDeferred(stmt, func() (*record.Record, error) {
		if _, err := o.dispatch(ctx, "remove_all_relationships", stmt); err != nil {
			return nil, err
		}
		rec.ClearRelation(attr)
		return rec, nil
	})
}

// RemoveRelationship deletes the relationship attr between rec and target
func (o *Operations) RemoveRelationship(ctx context.Context, rec *record.Record, attr string, target *record.Record) *Deferred[*record.Record] {
	if target == nil || target.IsNew() {
		return Failed[*record.Record](fmt.Errorf("%w: relationship target", ErrNotPersisted))
	}
	stmt, err := o.prepareRemove(rec, attr, target)
	if err != nil {
		return Failed[*record.Record](err)
	}
	targetID, _ := target.ID()

	return newDeferred(stmt, func() (*record.Record, error) {
		if _, err := o.dispatch(ctx, "remove_relationship", stmt); err != nil {
			return nil, err
		}
		if rec.HasCollection(attr) {
			rec.Collection(attr).Remove(targetID)
		} else if related := rec.Related(attr); related != nil {
			if id, _ := related.ID(); id == targetID {
				rec.ClearRelation(attr)
			}
		}
		return rec, nil
	})
}

// RecreateRelationship replaces every relationship attr of rec with a single
// one to target. Removing the old relationships is best effort: a failure is
// logged and the new relationship is created anyway. A failure to create it
// is returned as a *RelationshipCreateError.
func (o *Operations) RecreateRelationship(ctx context.Context, rec *record.Record, attr string, target *record.Record, props map[string]interface{}) *Deferred[*record.Record] {
	removeStmt, removeErr := o.prepareRemove(rec, attr, nil)

	plan, stmt, err := o.prepareRelate(rec, attr, target, props, true)
	if err != nil {
		return Failed[*record.Record](&RelationshipCreateError{Attribute: attr, Err: err})
	}

	return newDeferred(stmt, func() (*record.Record, error) {
		if removeErr == nil {
			_, removeErr = o.dispatch(ctx, "remove_all_relationships", removeStmt)
		}
		if removeErr != nil {
			o.logger.WarnWithContext(ctx, "removing relationships before recreate failed",
				zap.String("entity", o.entity.Name),
				zap.String("attribute", attr),
				zap.Error(removeErr),
			)
		} else {
			rec.ClearRelation(attr)
		}

		out, err := o.runRelate(ctx, plan, rec, attr, stmt)
		if err != nil {
			return nil, &RelationshipCreateError{Attribute: attr, Err: err}
		}
		return out, nil
	})
}

func (o *Operations) relationship(attr string) (*schema.Relationship, error) {
	a, ok := o.entity.Attribute(attr)
	if !ok || !a.IsRelationship() {
		return nil, &UnknownAttributeError{Entity: o.entity.Name, Attribute: attr}
	}
	if a.Relationship.Target == nil {
		return nil, fmt.Errorf("%w: %s.%s targets %q", schema.ErrUnknownEntity, o.entity.Name, attr, a.Relationship.TargetName)
	}
	return a.Relationship, nil
}

// relationPlan plans the root and the single relationship attr, matched as
// required
func (o *Operations) relationPlan(attr string) (*relationships.Plan, *relationships.PlanNode, error) {
	paths := []relationships.WithPath{{{Name: attr}}}
	plan, err := relationships.NewPlan(o.entity, o.alias(), paths, relationships.Options{SkipDefaults: true})
	if err != nil {
		return nil, nil, err
	}
	node, ok := plan.Find(attr)
	if !ok {
		return nil, nil, &UnknownAttributeError{Entity: o.entity.Name, Attribute: attr}
	}
	return plan, node, nil
}

func (o *Operations) prepareRelate(rec *record.Record, attr string, target *record.Record, props map[string]interface{}, create bool) (*relationships.Plan, query.Statement, error) {
	if err := o.checkRecord(rec, true); err != nil {
		return nil, query.Statement{}, err
	}
	rel, err := o.relationship(attr)
	if err != nil {
		return nil, query.Statement{}, err
	}
	if target == nil || target.IsNew() {
		return nil, query.Statement{}, fmt.Errorf("%w: relationship target", ErrNotPersisted)
	}
	if target.Entity() != rel.Target {
		return nil, query.Statement{}, fmt.Errorf("%w: %s.%s expects %s", ErrEntityMismatch, o.entity.Name, attr, rel.Target.Name)
	}
	for key := range props {
		if _, ok := rel.Attribute(key); !ok {
			return nil, query.Statement{}, &UnknownAttributeError{Entity: o.entity.Name, Attribute: attr + "." + key}
		}
	}

	plan, node, err := o.relationPlan(attr)
	if err != nil {
		return nil, query.Statement{}, err
	}
	root := plan.Root.Alias
	ownerID, _ := rec.ID()
	targetID, _ := target.ID()

	b := query.NewBuilder()
	if err := matchByID(b, root, o.entity.NodeName(), ownerID); err != nil {
		return nil, query.Statement{}, err
	}
	if err := matchByID(b, node.Alias, rel.Target.NodeName(), targetID); err != nil {
		return nil, query.Statement{}, err
	}

	errs := validation.NewValidationErrors()
	for _, edgeAttr := range rel.Attributes {
		value := edgeAttr.Field.DefaultValue(props[edgeAttr.Name])
		if err := edgeAttr.Field.Validate(edgeAttr.Name, value); err != nil {
			errs.AddError(edgeAttr.Name, err)
			continue
		}
		if value != nil {
			b.AddSet(node.Edge+"."+edgeAttr.Name, edgeAttr.Field.Set(value))
		}
	}
	rec.SetErrors(errs.Map())
	if errs.HasErrors() {
		return nil, query.Statement{}, errs
	}

	typ := rel.MatchType()
	if create {
		typ = rel.Type()
	}
	stmt, err := b.Relate(query.RelateSpec{
		Owner:     root,
		Edge:      node.Edge,
		Target:    node.Alias,
		Type:      typ,
		Direction: rel.Direction,
	}, create)
	if err != nil {
		return nil, query.Statement{}, err
	}
	return plan, stmt, nil
}

func (o *Operations) runRelate(ctx context.Context, plan *relationships.Plan, rec *record.Record, attr string, stmt query.Statement) (*record.Record, error) {
	rows, err := o.dispatch(ctx, "relate", stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: relating %s.%s", ErrNotFound, o.entity.Name, attr)
	}

	if node, ok := plan.Find(attr); ok && node.CollectFirst {
		rec.ClearRelation(attr)
	}
	for _, row := range rows {
		if err := plan.Hydrate(rec, row); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// prepareRemove renders the deletion of the relationships attr of rec,
// restricted to target when it is given
func (o *Operations) prepareRemove(rec *record.Record, attr string, target *record.Record) (query.Statement, error) {
	if err := o.checkRecord(rec, true); err != nil {
		return query.Statement{}, err
	}
	if _, err := o.relationship(attr); err != nil {
		return query.Statement{}, err
	}
	plan, node, err := o.relationPlan(attr)
	if err != nil {
		return query.Statement{}, err
	}

	ownerID, _ := rec.ID()
	filters := []query.Predicate{idFilter(plan.Root.Alias, ownerID)}
	if target != nil {
		targetID, _ := target.ID()
		filters = append(filters, idFilter(node.Alias, targetID))
	}
	filters, err = query.NormalizePredicates(filters, plan.Root.Alias)
	if err != nil {
		return query.Statement{}, err
	}

	b := query.NewBuilder()
	if err := plan.Walk(b, filters, nil); err != nil {
		return query.Statement{}, err
	}
	return b.Delete(node.Edge, false)
}

// matchByID matches alias standalone and restricts it to one store id
func matchByID(b *query.Builder, alias, labels string, id int64) error {
	filter, err := query.NormalizePredicate(idFilter(alias, id), alias)
	if err != nil {
		return err
	}
	b.Match(query.MatchSpec{Alias: alias, Labels: labels})
	b.AddWhere(filter).WriteWhere()
	return b.Err()
}
