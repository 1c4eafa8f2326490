package relationships

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/graphorm/internal/orm/query"
	"github.com/conduit-lang/graphorm/internal/orm/schema"
)

// PlanNode is one matched node of a fetch: the root entity or a relationship
// target reached from its parent.
type PlanNode struct {
	Entity *schema.EntitySchema
	Alias  string

	// Set for every node but the root
	Parent     *PlanNode
	Attribute  *schema.Attribute
	Edge       string
	EdgeFilter map[string]interface{}

	Optional bool
	// Flagged is set when Optional comes from a path flag or an optional
	// parent rather than the plan default
	Flagged      bool
	CollectFirst bool
	Depth        int
	Children     []*PlanNode
}

// Relationship returns the relationship the node was reached through
func (n *PlanNode) Relationship() *schema.Relationship {
	if n.Attribute == nil {
		return nil
	}
	return n.Attribute.Relationship
}

// Options control how a plan is built
type Options struct {
	// Optional is the flag of path segments that carry none
	Optional bool
	// State is passed to relationship filters
	State interface{}
	// SkipDefaults ignores root relationships flagged With
	SkipDefaults bool
}

// Plan is the alias tree of one fetch. The walker renders it into a builder
// and the hydrator reads rows with it, so both agree on aliases.
type Plan struct {
	Root  *PlanNode
	Paths []WithPath
	// Optional is the default of unflagged traversals
	Optional bool

	nodes []*PlanNode
	used  map[string]bool
}

// NewPlan builds the alias tree for entity. Only relationships named by a
// with-path at the matching depth are included, so depth is bounded by the
// paths even when the entity graph has cycles.
func NewPlan(entity *schema.EntitySchema, alias string, paths []WithPath, opts Options) (*Plan, error) {
	if alias == "" {
		alias = entity.Alias()
	}

	if !opts.SkipDefaults {
		for _, attr := range entity.Relationships() {
			if attr.Relationship.With && !hasHead(paths, attr.Name) {
				paths = append(paths, WithPath{{Name: attr.Name}})
			}
		}
	}

	p := &Plan{
		Root:     &PlanNode{Entity: entity, Alias: alias},
		Paths:    paths,
		Optional: opts.Optional,
		used:     map[string]bool{alias: true},
	}
	p.nodes = append(p.nodes, p.Root)

	resolved := make(map[string]bool)
	if err := p.build(p.Root, nil, opts, resolved); err != nil {
		return nil, err
	}

	for _, path := range paths {
		for i := range path {
			if !resolved[chainKey(path[:i+1])] {
				return nil, fmt.Errorf("%w: %q in path %s of %s", ErrUnknownRelationship, path[i].Name, path, entity.Name)
			}
		}
	}

	return p, nil
}

func (p *Plan) build(node *PlanNode, chain []string, opts Options, resolved map[string]bool) error {
	for _, attr := range node.Entity.Relationships() {
		found, optional, flagged := lookup(p.Paths, chain, attr.Name, opts.Optional)
		if !found {
			continue
		}

		rel := attr.Relationship
		if rel.Target == nil {
			return fmt.Errorf("%w: %s.%s targets unresolved entity %q", schema.ErrUnknownEntity, node.Entity.Name, attr.Name, rel.TargetName)
		}

		child := &PlanNode{
			Entity:       rel.Target,
			Alias:        p.claim(attr.Name, node.Alias+"__"+attr.Name),
			Parent:       node,
			Attribute:    attr,
			Edge:         p.claim(node.Alias+"_"+attr.Name, node.Alias+"_"+attr.Name+"_rel"),
			EdgeFilter:   rel.FilterProps(opts.State),
			Optional:     node.Optional || optional,
			Flagged:      flagged || node.Optional,
			CollectFirst: !rel.IsMany(),
			Depth:        len(chain) + 1,
		}
		node.Children = append(node.Children, child)
		p.nodes = append(p.nodes, child)

		next := append(append([]string(nil), chain...), attr.Name)
		resolved[strings.Join(next, PathSeparator)] = true

		if err := p.build(child, next, opts, resolved); err != nil {
			return err
		}
	}
	return nil
}

// claim reserves the preferred alias, or the fallback when it is taken
func (p *Plan) claim(preferred, fallback string) string {
	alias := preferred
	if p.used[alias] {
		alias = fallback
	}
	for n := 2; p.used[alias]; n++ {
		alias = fmt.Sprintf("%s%d", fallback, n)
	}
	p.used[alias] = true
	return alias
}

// Nodes returns the plan nodes in walk order
func (p *Plan) Nodes() []*PlanNode {
	out := make([]*PlanNode, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Aliases returns every node and edge alias of the plan
func (p *Plan) Aliases() []string {
	var out []string
	for _, n := range p.nodes {
		out = append(out, n.Alias)
		if n.Edge != "" {
			out = append(out, n.Edge)
		}
	}
	return out
}

// HasAlias reports whether alias names a node or edge of the plan
func (p *Plan) HasAlias(alias string) bool {
	return p.used[alias]
}

// Find returns the node reached through the named root relationship
func (p *Plan) Find(attr string) (*PlanNode, bool) {
	for _, c := range p.Root.Children {
		if c.Attribute.Name == attr {
			return c, true
		}
	}
	return nil, false
}

// CheckScopes fails with *query.UnresolvableScopeError when a normalized
// filter or order refers to an alias outside the plan
func (p *Plan) CheckScopes(filters []query.Predicate, orders []query.Order) error {
	for _, f := range filters {
		if err := p.checkPredicate(f); err != nil {
			return err
		}
	}
	for _, o := range orders {
		if !p.HasAlias(o.Scope) {
			return &query.UnresolvableScopeError{Scope: o.Scope, Key: o.Attr}
		}
	}
	return nil
}

func (p *Plan) checkPredicate(f query.Predicate) error {
	if f.IsGroup() {
		for _, c := range append(append([]query.Predicate(nil), f.And...), f.Or...) {
			if err := p.checkPredicate(c); err != nil {
				return err
			}
		}
		return nil
	}
	if !p.HasAlias(f.Scope) {
		return &query.UnresolvableScopeError{Scope: f.Scope, Key: f.Attr}
	}
	return nil
}

// Walk renders the plan into b: one match per node, each followed by the
// filters scoped to the node or to the edge reaching it, then the order
// terms. Boolean groups scoped to the root alone are applied at the root;
// groups naming other aliases are applied once every match is bound. The
// plan default becomes the builder's optional default. Filters and orders
// must be normalized; scopes are checked before anything is rendered.
func (p *Plan) Walk(b *query.Builder, filters []query.Predicate, orders []query.Order) error {
	if err := p.CheckScopes(filters, orders); err != nil {
		return err
	}

	b.SetOptional(p.Optional)
	p.walk(b, p.Root, filters)

	for _, f := range filters {
		if f.IsGroup() && !p.rootOnly(f) {
			b.Filter(f)
		}
	}

	for _, o := range orders {
		b.AddOrderBy(o.Attr, o.Direction)
	}
	return b.Err()
}

func (p *Plan) walk(b *query.Builder, node *PlanNode, filters []query.Predicate) {
	spec := query.MatchSpec{
		Alias:  node.Alias,
		Labels: node.Entity.NodeName(),
	}
	if node.Parent != nil {
		rel := node.Relationship()
		spec.From = node.Parent.Alias
		spec.Edge = node.Edge
		spec.EdgeType = rel.MatchType()
		spec.Direction = rel.Direction
		spec.EdgeProps = node.EdgeFilter
		if node.Flagged {
			optional := node.Optional
			spec.Optional = &optional
		}
		b.AddReturn(node.Edge)
	}
	b.Match(spec)
	b.AddReturn(node.Alias)

	for _, f := range filters {
		if f.IsGroup() {
			if node.Parent == nil && p.rootOnly(f) {
				b.AddWhere(f)
			}
			continue
		}
		if f.Scope == node.Alias || (node.Edge != "" && f.Scope == node.Edge) {
			b.AddWhere(f)
		}
	}
	b.WriteWhere()

	for _, child := range node.Children {
		p.walk(b, child, filters)
	}
}

// rootOnly reports whether every leaf of a group is scoped to the root node
func (p *Plan) rootOnly(f query.Predicate) bool {
	if !f.IsGroup() {
		return f.Scope == p.Root.Alias
	}
	for _, c := range f.And {
		if !p.rootOnly(c) {
			return false
		}
	}
	for _, c := range f.Or {
		if !p.rootOnly(c) {
			return false
		}
	}
	return true
}

func hasHead(paths []WithPath, name string) bool {
	for _, p := range paths {
		if p.Head() == name {
			return true
		}
	}
	return false
}

func chainKey(path WithPath) string {
	names := make([]string, len(path))
	for i, seg := range path {
		names[i] = seg.Name
	}
	return strings.Join(names, PathSeparator)
}
