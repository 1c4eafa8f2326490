package graphstore

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/conduit-lang/graphorm/internal/orm/query"
)

// convertValue maps driver values onto the row types. Temporal values become
// time.Time and durations their ISO 8601 text.
func convertValue(v interface{}) interface{} {
	switch x := v.(type) {
	case dbtype.Node:
		// numeric ids are what id() filters compare against
		return query.Node{
			ID:        x.Id,
			ElementID: x.ElementId,
			Labels:    x.Labels,
			Props:     convertProps(x.Props),
		}
	case dbtype.Relationship:
		return query.Relationship{
			ID:        x.Id,
			ElementID: x.ElementId,
			StartID:   x.StartId,
			EndID:     x.EndId,
			Type:      x.Type,
			Props:     convertProps(x.Props),
		}
	case dbtype.Date:
		return x.Time()
	case dbtype.LocalDateTime:
		return x.Time()
	case dbtype.LocalTime:
		return x.Time()
	case dbtype.Time:
		return x.Time()
	case dbtype.Duration:
		return x.String()
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = convertValue(item)
		}
		return out
	case map[string]interface{}:
		return convertProps(x)
	default:
		return v
	}
}

func convertProps(props map[string]interface{}) map[string]interface{} {
	if props == nil {
		return nil
	}
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = convertValue(v)
	}
	return out
}
