package cache

import (
	"bytes"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/conduit-lang/graphorm/internal/orm/query"
)

type valueKind uint8

const (
	kindScalar valueKind = iota
	kindNode
	kindRelationship
)

// cachedValue keeps the graph type of a row value, which a plain interface
// encoding would flatten into a map
type cachedValue struct {
	Kind  valueKind           `msgpack:"k"`
	Node  *query.Node         `msgpack:"n,omitempty"`
	Rel   *query.Relationship `msgpack:"r,omitempty"`
	Value interface{}         `msgpack:"v,omitempty"`
}

type cachedRow struct {
	Keys   []string      `msgpack:"keys"`
	Values []cachedValue `msgpack:"values"`
}

// EncodeRows serializes rows for storage
func EncodeRows(rows []query.Row) ([]byte, error) {
	out := make([]cachedRow, len(rows))
	for i, row := range rows {
		cr := cachedRow{Keys: row.Keys, Values: make([]cachedValue, len(row.Values))}
		for j, v := range row.Values {
			cr.Values[j] = wrapValue(v)
		}
		out[i] = cr
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRows restores rows written by EncodeRows. Integers come back as
// int64, the way the graph driver reports them.
func DecodeRows(data []byte) ([]query.Row, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var in []cachedRow
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	rows := make([]query.Row, len(in))
	for i, cr := range in {
		values := make([]interface{}, len(cr.Values))
		for j, v := range cr.Values {
			values[j] = unwrapValue(v)
		}
		rows[i] = query.NewRow(cr.Keys, values)
	}
	return rows, nil
}

func wrapValue(v interface{}) cachedValue {
	switch x := v.(type) {
	case query.Node:
		return cachedValue{Kind: kindNode, Node: &x}
	case *query.Node:
		if x == nil {
			return cachedValue{}
		}
		return cachedValue{Kind: kindNode, Node: x}
	case query.Relationship:
		return cachedValue{Kind: kindRelationship, Rel: &x}
	case *query.Relationship:
		if x == nil {
			return cachedValue{}
		}
		return cachedValue{Kind: kindRelationship, Rel: x}
	default:
		return cachedValue{Value: v}
	}
}

func unwrapValue(v cachedValue) interface{} {
	switch v.Kind {
	case kindNode:
		if v.Node == nil {
			return nil
		}
		n := *v.Node
		n.Props = normalizeMap(n.Props)
		return n
	case kindRelationship:
		if v.Rel == nil {
			return nil
		}
		r := *v.Rel
		r.Props = normalizeMap(r.Props)
		return r
	default:
		return normalize(v.Value)
	}
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		m[k] = normalize(v)
	}
	return m
}

func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case []interface{}:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]interface{}:
		return normalizeMap(x)
	default:
		return v
	}
}
