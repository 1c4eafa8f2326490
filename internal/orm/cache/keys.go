package cache

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// StatementKey derives the cache key of a statement and its parameters.
// Parameter maps are encoded with sorted keys so equal statements share a
// key regardless of map order.
func StatementKey(statement string, params map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(params); err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}

	d := xxhash.New()
	_, _ = d.WriteString(statement)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(buf.Bytes())

	return fmt.Sprintf("stmt:%016x", d.Sum64()), nil
}
