// Package record holds hydrated entity instances and ordered, deduplicated
// collections of them.
package record

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/graphorm/internal/orm/schema"
	"github.com/conduit-lang/graphorm/internal/orm/validation"
)

// ErrIDAssigned is returned when a different store id is assigned to a record
// that already has one
var ErrIDAssigned = errors.New("record id already assigned")

// Record is one entity instance: its store id, scalar values, related records
// and the properties of the relationship it was reached through.
type Record struct {
	entity *schema.EntitySchema

	id    int64
	hasID bool

	values map[string]interface{}
	single map[string]*Record
	many   map[string]*Collection
	edge   map[string]interface{}

	errors map[string]string
}

// New creates an empty record of entity
func New(entity *schema.EntitySchema) *Record {
	return &Record{
		entity: entity,
		values: make(map[string]interface{}),
		single: make(map[string]*Record),
		many:   make(map[string]*Collection),
		edge:   make(map[string]interface{}),
		errors: make(map[string]string),
	}
}

// NewWithValues creates a record and assigns values through each attribute's
// Set transform
func NewWithValues(entity *schema.EntitySchema, values map[string]interface{}) (*Record, error) {
	r := New(entity)
	for _, attr := range entity.Fields() {
		if v, ok := values[attr.Name]; ok {
			if err := r.Set(attr.Name, v); err != nil {
				return nil, err
			}
		}
	}
	for name := range values {
		if !entity.HasAttribute(name) {
			return nil, fmt.Errorf("%w: %s.%s", schema.ErrUnknownAttribute, entity.Name, name)
		}
	}
	return r, nil
}

// Entity returns the entity description of the record
func (r *Record) Entity() *schema.EntitySchema {
	return r.entity
}

// ID returns the store id and whether one is assigned
func (r *Record) ID() (int64, bool) {
	return r.id, r.hasID
}

// IsNew reports whether the record has not been persisted
func (r *Record) IsNew() bool {
	return !r.hasID
}

// SetID assigns the store id. Once assigned the id cannot change.
func (r *Record) SetID(id int64) error {
	if r.hasID && r.id != id {
		return fmt.Errorf("%w: %d, got %d", ErrIDAssigned, r.id, id)
	}
	r.id = id
	r.hasID = true
	return nil
}

// Set assigns a scalar attribute through its Set transform
func (r *Record) Set(name string, value interface{}) error {
	attr, ok := r.entity.Attribute(name)
	if !ok || attr.IsRelationship() {
		return fmt.Errorf("%w: %s.%s", schema.ErrUnknownAttribute, r.entity.Name, name)
	}
	r.values[name] = attr.Field.Set(value)
	return nil
}

// Get returns a scalar attribute through its Get transform
func (r *Record) Get(name string) interface{} {
	attr, ok := r.entity.Attribute(name)
	if !ok || attr.IsRelationship() {
		return nil
	}
	v, ok := r.values[name]
	if !ok {
		return nil
	}
	return attr.Field.Get(v)
}

// Raw returns the stored value of a scalar attribute without transforms
func (r *Record) Raw(name string) (interface{}, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Load stores a value read from the graph. The attribute's Loader is applied
// when its capability implements one; Set is not.
func (r *Record) Load(name string, value interface{}) {
	attr, ok := r.entity.Attribute(name)
	if !ok || attr.IsRelationship() {
		return
	}
	if loader, ok := attr.Field.(schema.Loader); ok {
		value = loader.Load(value)
	}
	r.values[name] = value
}

// Values returns a copy of the stored scalar values
func (r *Record) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Related returns the record attached to a single relationship
func (r *Record) Related(name string) *Record {
	return r.single[name]
}

// SetRelated attaches a record to a single relationship
func (r *Record) SetRelated(name string, related *Record) {
	if related == nil {
		delete(r.single, name)
		return
	}
	r.single[name] = related
}

// Collection returns the collection of a many relationship, creating it when
// absent
func (r *Record) Collection(name string) *Collection {
	c, ok := r.many[name]
	if !ok {
		c = NewCollection()
		r.many[name] = c
	}
	return c
}

// HasCollection reports whether a many relationship was hydrated
func (r *Record) HasCollection(name string) bool {
	_, ok := r.many[name]
	return ok
}

// ClearRelation forgets what was hydrated for a relationship
func (r *Record) ClearRelation(name string) {
	delete(r.single, name)
	delete(r.many, name)
}

// EdgeProps returns the properties of the relationship the record was reached
// through
func (r *Record) EdgeProps() map[string]interface{} {
	return r.edge
}

// SetEdgeProp stores a relationship property
func (r *Record) SetEdgeProp(name string, value interface{}) {
	r.edge[name] = value
}

// Errors returns the field messages of the last validation
func (r *Record) Errors() map[string]string {
	out := make(map[string]string, len(r.errors))
	for k, v := range r.errors {
		out[k] = v
	}
	return out
}

// SetErrors replaces the field messages
func (r *Record) SetErrors(errs map[string]string) {
	r.errors = make(map[string]string, len(errs))
	for k, v := range errs {
		r.errors[k] = v
	}
}

// Validate checks every scalar attribute, after computing defaults, and
// returns a *validation.ValidationErrors when any fails. Checking does not
// stop at the first failure. The messages are also kept in Errors().
func (r *Record) Validate() error {
	errs := validation.NewValidationErrors()
	for _, attr := range r.entity.Fields() {
		value := attr.Field.DefaultValue(r.values[attr.Name])
		if err := attr.Field.Validate(attr.Name, value); err != nil {
			errs.AddError(attr.Name, err)
		}
	}
	r.SetErrors(errs.Map())
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// IsValid validates the record without persisting it
func (r *Record) IsValid() bool {
	return r.Validate() == nil
}

// ApplyDefaults stores the default value of every unset scalar attribute
func (r *Record) ApplyDefaults() {
	for _, attr := range r.entity.Fields() {
		if v := attr.Field.DefaultValue(r.values[attr.Name]); v != nil {
			r.values[attr.Name] = v
		}
	}
}

// ToMap exports the record: its id, visible scalar values through Get, and
// hydrated relations. Hidden attributes are omitted.
func (r *Record) ToMap() map[string]interface{} {
	return r.export(nil)
}

func (r *Record) export(via *schema.Relationship) map[string]interface{} {
	data := make(map[string]interface{})
	if r.hasID {
		data["id"] = r.id
	}

	if via != nil {
		for _, attr := range via.Attributes {
			if v, ok := r.edge[attr.Name]; ok && v != nil {
				data[attr.Name] = attr.Field.Get(v)
			}
		}
	}

	for _, attr := range r.entity.Attributes() {
		if attr.IsRelationship() {
			rel := attr.Relationship
			if rel.IsMany() {
				if c, ok := r.many[attr.Name]; ok {
					items := make([]map[string]interface{}, 0, c.Len())
					for _, item := range c.Records() {
						items = append(items, item.export(rel))
					}
					data[attr.Name] = items
				}
			} else if related, ok := r.single[attr.Name]; ok {
				data[attr.Name] = related.export(rel)
			}
			continue
		}
		if attr.IsHidden() {
			continue
		}
		data[attr.Name] = r.Get(attr.Name)
	}

	return data
}
