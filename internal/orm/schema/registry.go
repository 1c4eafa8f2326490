package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the entity descriptions of an application and resolves
// relationship targets declared by name.
type Registry struct {
	schemas map[string]*EntitySchema
	mu      sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*EntitySchema),
	}
}

// Register adds an entity description
func (r *Registry) Register(entity *EntitySchema) error {
	if entity == nil || entity.Name == "" {
		return fmt.Errorf("cannot register an unnamed entity")
	}
	if len(entity.Labels) == 0 {
		return fmt.Errorf("entity %s has no labels", entity.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[entity.Name]; exists {
		return fmt.Errorf("entity %s is already registered", entity.Name)
	}
	r.schemas[entity.Name] = entity
	return nil
}

// MustRegister registers entities and panics on failure
func (r *Registry) MustRegister(entities ...*EntitySchema) *Registry {
	for _, e := range entities {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
	return r
}

// Get retrieves an entity description by name
func (r *Registry) Get(name string) (*EntitySchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, exists := r.schemas[name]
	return entity, exists
}

// All returns a copy of all registered entities
func (r *Registry) All() map[string]*EntitySchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*EntitySchema, len(r.schemas))
	for k, v := range r.schemas {
		result[k] = v
	}
	return result
}

// List returns the registered entity names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve links every relationship declared by TargetName to its registered
// entity. It must be called once all entities are registered.
func (r *Registry) Resolve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entity := r.schemas[name]
		for _, attr := range entity.Relationships() {
			rel := attr.Relationship
			if rel.Target != nil {
				if rel.TargetName == "" {
					rel.TargetName = rel.Target.Name
				}
				continue
			}
			target, ok := r.schemas[rel.TargetName]
			if !ok {
				return fmt.Errorf("%w: %s.%s references %q", ErrUnknownEntity, entity.Name, attr.Name, rel.TargetName)
			}
			rel.Target = target
		}
	}
	return nil
}

// Graph returns the relationship graph of the registered entities
func (r *Registry) Graph() *RelationshipGraph {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return NewRelationshipGraph(r.schemas)
}
