package query

import (
	"context"
)

// Runner executes a Cypher statement with parameters and returns its rows.
// Implementations must return driver errors unchanged.
type Runner interface {
	Run(ctx context.Context, statement string, params map[string]interface{}) ([]Row, error)
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, statement string, params map[string]interface{}) ([]Row, error)

// Run implements Runner
func (f RunnerFunc) Run(ctx context.Context, statement string, params map[string]interface{}) ([]Row, error) {
	return f(ctx, statement, params)
}

// Node is a graph node returned by the store
type Node struct {
	ID        int64                  `msgpack:"id"`
	ElementID string                 `msgpack:"element_id"`
	Labels    []string               `msgpack:"labels"`
	Props     map[string]interface{} `msgpack:"props"`
}

// Relationship is a graph relationship returned by the store
type Relationship struct {
	ID        int64                  `msgpack:"id"`
	ElementID string                 `msgpack:"element_id"`
	StartID   int64                  `msgpack:"start_id"`
	EndID     int64                  `msgpack:"end_id"`
	Type      string                 `msgpack:"type"`
	Props     map[string]interface{} `msgpack:"props"`
}

// Row is one result record: ordered keys and their values. Values are Node,
// Relationship, scalars, lists or maps.
type Row struct {
	Keys   []string
	Values []interface{}
}

// NewRow creates a row from parallel key and value slices
func NewRow(keys []string, values []interface{}) Row {
	return Row{Keys: keys, Values: values}
}

// RowOf creates a row from alternating key, value arguments
func RowOf(pairs ...interface{}) Row {
	var row Row
	for i := 0; i+1 < len(pairs); i += 2 {
		row.Keys = append(row.Keys, pairs[i].(string))
		row.Values = append(row.Values, pairs[i+1])
	}
	return row
}

// Get returns the value bound to key. A key bound to null is reported as
// absent.
func (r Row) Get(key string) (interface{}, bool) {
	for i, k := range r.Keys {
		if k == key {
			if i >= len(r.Values) || r.Values[i] == nil {
				return nil, false
			}
			return r.Values[i], true
		}
	}
	return nil, false
}

// Node returns the node bound to alias
func (r Row) Node(alias string) (*Node, bool) {
	v, ok := r.Get(alias)
	if !ok {
		return nil, false
	}
	switch n := v.(type) {
	case Node:
		return &n, true
	case *Node:
		return n, n != nil
	default:
		return nil, false
	}
}

// Relationship returns the relationship bound to alias
func (r Row) Relationship(alias string) (*Relationship, bool) {
	v, ok := r.Get(alias)
	if !ok {
		return nil, false
	}
	switch rel := v.(type) {
	case Relationship:
		return &rel, true
	case *Relationship:
		return rel, rel != nil
	default:
		return nil, false
	}
}

// Int returns the integer bound to key
func (r Row) Int(key string) (int64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
