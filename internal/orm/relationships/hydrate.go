package relationships

import (
	"fmt"

	"github.com/conduit-lang/graphorm/internal/orm/query"
	"github.com/conduit-lang/graphorm/internal/orm/record"
	"github.com/conduit-lang/graphorm/internal/orm/schema"
)

// RootID returns the id of the root node of row
func (p *Plan) RootID(row query.Row) (int64, error) {
	n, ok := row.Node(p.Root.Alias)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRootNotFound, p.Root.Alias)
	}
	return n.ID, nil
}

// Hydrate merges row into rec, the record of the root node. Rows sharing a
// root are folded into the same record: many relations gain members they do
// not hold yet, single relations keep the first target seen. Values absent
// from the row leave the record untouched, so a relation no row reaches
// stays unset.
func (p *Plan) Hydrate(rec *record.Record, row query.Row) error {
	n, ok := row.Node(p.Root.Alias)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRootNotFound, p.Root.Alias)
	}
	if err := loadNode(rec, n); err != nil {
		return err
	}
	return hydrateChildren(rec, p.Root, row)
}

func hydrateChildren(parent *record.Record, node *PlanNode, row query.Row) error {
	for _, child := range node.Children {
		name := child.Attribute.Name

		n, ok := row.Node(child.Alias)
		if !ok {
			continue
		}

		var target *record.Record
		if child.CollectFirst {
			target = parent.Related(name)
			if target == nil {
				target = record.New(child.Entity)
				parent.SetRelated(name, target)
			} else if id, _ := target.ID(); id != n.ID {
				continue
			}
		} else {
			target = parent.Collection(name).GetOrAdd(n.ID, func() *record.Record {
				return record.New(child.Entity)
			})
		}

		if err := loadNode(target, n); err != nil {
			return err
		}
		if edge, ok := row.Relationship(child.Edge); ok {
			loadEdge(target, child.Relationship(), edge)
		}
		if err := hydrateChildren(target, child, row); err != nil {
			return err
		}
	}
	return nil
}

func loadNode(rec *record.Record, n *query.Node) error {
	if err := rec.SetID(n.ID); err != nil {
		return err
	}
	for _, attr := range rec.Entity().Fields() {
		if v, ok := n.Props[attr.Name]; ok && v != nil {
			rec.Load(attr.Name, v)
		}
	}
	return nil
}

// loadEdge keeps only the properties the relationship declares
func loadEdge(rec *record.Record, rel *schema.Relationship, edge *query.Relationship) {
	for _, attr := range rel.Attributes {
		v, ok := edge.Props[attr.Name]
		if !ok || v == nil {
			continue
		}
		if loader, ok := attr.Field.(schema.Loader); ok {
			v = loader.Load(v)
		}
		rec.SetEdgeProp(attr.Name, v)
	}
}
