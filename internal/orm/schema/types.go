// Package schema defines entity descriptions for the graph mapper: labelled
// node types, their scalar attributes and the relationships between them.
package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// Capability is the per-attribute behaviour the mapper consumes. Default
// computation, validation and value transforms all live behind it.
type Capability interface {
	// DefaultValue returns the value to persist when value is unset.
	DefaultValue(value interface{}) interface{}
	// Validate returns an error describing why value is invalid for name.
	Validate(name string, value interface{}) error
	// Set transforms a value assigned by application code.
	Set(value interface{}) interface{}
	// Get transforms a stored value when it is read back by application code.
	Get(value interface{}) interface{}
}

// Loader is implemented by capabilities that convert raw store values while
// hydrating a record.
type Loader interface {
	Load(value interface{}) interface{}
}

// Hider is implemented by capabilities whose values must not be exported.
type Hider interface {
	Hidden() bool
}

// Cardinality tells whether a relationship points at one node or many
type Cardinality int

const (
	// One relationships hydrate into a single record
	One Cardinality = iota
	// Many relationships hydrate into a collection keyed by target id
	Many
)

// String returns the string representation of the cardinality
func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Direction is the traversal direction of a relationship, seen from its owner
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// String returns the string representation of the direction
func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "out"
	case Incoming:
		return "in"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// ParseDirection converts a string to a Direction
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "out", "outgoing":
		return Outgoing, nil
	case "in", "incoming":
		return Incoming, nil
	case "both":
		return Both, nil
	default:
		return 0, fmt.Errorf("unknown relationship direction: %s", s)
	}
}

// RelationshipFilter computes property equalities that a traversed
// relationship must satisfy. state is the per-call context supplied by the
// caller and may be nil.
type RelationshipFilter func(state interface{}) map[string]interface{}

// StaticFilter returns a RelationshipFilter that ignores state
func StaticFilter(props map[string]interface{}) RelationshipFilter {
	return func(interface{}) map[string]interface{} {
		return props
	}
}

// Relationship describes an edge type from an entity to a target entity
type Relationship struct {
	// Target is the related entity. It may be left nil and resolved from
	// TargetName by a Registry.
	Target     *EntitySchema
	TargetName string

	// Labels form the relationship type. The first label is used when the
	// relationship is created.
	Labels      []string
	Cardinality Cardinality
	Direction   Direction

	// Attributes are stored on the relationship itself
	Attributes []*Attribute

	Filter RelationshipFilter

	// With marks the relationship as eagerly included on root fetches
	With bool
}

// IsMany reports whether the relationship hydrates into a collection
func (r *Relationship) IsMany() bool {
	return r.Cardinality == Many
}

// Type returns the relationship type used for CREATE and MERGE
func (r *Relationship) Type() string {
	if len(r.Labels) == 0 {
		return ""
	}
	return r.Labels[0]
}

// MatchType returns the relationship type expression used for MATCH
func (r *Relationship) MatchType() string {
	return strings.Join(r.Labels, "|")
}

// Attribute returns the named relationship attribute
func (r *Relationship) Attribute(name string) (*Attribute, bool) {
	for _, attr := range r.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return nil, false
}

// FilterProps evaluates the relationship filter for state
func (r *Relationship) FilterProps(state interface{}) map[string]interface{} {
	if r.Filter == nil {
		return nil
	}
	return r.Filter(state)
}

// Attribute is a named scalar field or relationship of an entity
type Attribute struct {
	Name         string
	Field        Capability
	Relationship *Relationship
}

// IsRelationship reports whether the attribute is a relationship
func (a *Attribute) IsRelationship() bool {
	return a.Relationship != nil
}

// IsHidden reports whether the attribute is excluded from exports
func (a *Attribute) IsHidden() bool {
	if a.Field == nil {
		return false
	}
	h, ok := a.Field.(Hider)
	return ok && h.Hidden()
}

// EntitySchema is the static description of one node type
type EntitySchema struct {
	Name   string
	Labels []string

	attributes []*Attribute
	index      map[string]int
}

// NewEntitySchema creates an entity description. When no labels are given the
// name is used as the only label.
func NewEntitySchema(name string, labels ...string) *EntitySchema {
	if len(labels) == 0 {
		labels = []string{name}
	}
	return &EntitySchema{
		Name:   name,
		Labels: labels,
		index:  make(map[string]int),
	}
}

// AddField declares a scalar attribute
func (e *EntitySchema) AddField(name string, field Capability) error {
	if field == nil {
		return fmt.Errorf("field %s on %s has no capability", name, e.Name)
	}
	return e.add(&Attribute{Name: name, Field: field})
}

// AddRelationship declares a relationship attribute
func (e *EntitySchema) AddRelationship(name string, rel *Relationship) error {
	if rel == nil {
		return fmt.Errorf("relationship %s on %s is nil", name, e.Name)
	}
	if len(rel.Labels) == 0 {
		return fmt.Errorf("relationship %s on %s has no labels", name, e.Name)
	}
	for _, attr := range rel.Attributes {
		if attr.IsRelationship() {
			return fmt.Errorf("relationship %s on %s: edge attribute %s cannot be a relationship", name, e.Name, attr.Name)
		}
	}
	return e.add(&Attribute{Name: name, Relationship: rel})
}

// Field declares a scalar attribute and panics if it cannot be added.
// It is meant for schema definitions written in Go.
func (e *EntitySchema) Field(name string, field Capability) *EntitySchema {
	if err := e.AddField(name, field); err != nil {
		panic(err)
	}
	return e
}

// Relation declares a relationship attribute and panics if it cannot be added
func (e *EntitySchema) Relation(name string, rel *Relationship) *EntitySchema {
	if err := e.AddRelationship(name, rel); err != nil {
		panic(err)
	}
	return e
}

func (e *EntitySchema) add(attr *Attribute) error {
	if e.index == nil {
		e.index = make(map[string]int)
	}
	if attr.Name == "" {
		return fmt.Errorf("attribute on %s has no name", e.Name)
	}
	if _, exists := e.index[attr.Name]; exists {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateAttribute, e.Name, attr.Name)
	}
	e.index[attr.Name] = len(e.attributes)
	e.attributes = append(e.attributes, attr)
	return nil
}

// Attribute returns the named attribute
func (e *EntitySchema) Attribute(name string) (*Attribute, bool) {
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.attributes[i], true
}

// HasAttribute returns true if the entity declares name
func (e *EntitySchema) HasAttribute(name string) bool {
	_, ok := e.index[name]
	return ok
}

// Attributes returns all attributes in declaration order
func (e *EntitySchema) Attributes() []*Attribute {
	out := make([]*Attribute, len(e.attributes))
	copy(out, e.attributes)
	return out
}

// Fields returns the scalar attributes in declaration order
func (e *EntitySchema) Fields() []*Attribute {
	var out []*Attribute
	for _, attr := range e.attributes {
		if !attr.IsRelationship() {
			out = append(out, attr)
		}
	}
	return out
}

// Relationships returns the relationship attributes in declaration order
func (e *EntitySchema) Relationships() []*Attribute {
	var out []*Attribute
	for _, attr := range e.attributes {
		if attr.IsRelationship() {
			out = append(out, attr)
		}
	}
	return out
}

// Alias returns the default query alias: the labels joined and lower-cased
func (e *EntitySchema) Alias() string {
	return lower.String(strings.Join(e.Labels, ""))
}

// NodeName returns the label expression used in node patterns
func (e *EntitySchema) NodeName() string {
	return strings.Join(e.Labels, ":")
}

// PatternName returns "alias:Labels" for alias, or for the default alias
func (e *EntitySchema) PatternName(alias string) string {
	if alias == "" {
		alias = e.Alias()
	}
	return alias + ":" + e.NodeName()
}
