package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/graphorm/internal/orm/query"
)

func TestRowsSurviveEncoding(t *testing.T) {
	since := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []query.Row{
		query.RowOf(
			"user", query.Node{ID: 42, Labels: []string{"User"}, Props: map[string]interface{}{"name": "Ann", "age": int64(31)}},
			"user_friends", &query.Relationship{ID: 1, StartID: 42, EndID: 7, Type: "FRIENDSHIP", Props: map[string]interface{}{"since": since}},
			"friends", nil,
			"total", int64(3),
			"tags", []interface{}{"a", int64(1)},
		),
	}

	data, err := EncodeRows(rows)
	require.NoError(t, err)

	got, err := DecodeRows(data)
	require.NoError(t, err)
	require.Len(t, got, 1)

	row := got[0]
	assert.Equal(t, rows[0].Keys, row.Keys)

	user, ok := row.Node("user")
	require.True(t, ok)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, []string{"User"}, user.Labels)
	assert.Equal(t, map[string]interface{}{"name": "Ann", "age": int64(31)}, user.Props)

	edge, ok := row.Relationship("user_friends")
	require.True(t, ok)
	assert.Equal(t, "FRIENDSHIP", edge.Type)
	assert.Equal(t, int64(7), edge.EndID)
	assert.True(t, since.Equal(edge.Props["since"].(time.Time)))

	_, ok = row.Get("friends")
	assert.False(t, ok)

	total, ok := row.Int("total")
	require.True(t, ok)
	assert.Equal(t, int64(3), total)

	tags, _ := row.Get("tags")
	assert.Equal(t, []interface{}{"a", int64(1)}, tags)
}

func TestDecodeRowsRejectsGarbage(t *testing.T) {
	_, err := DecodeRows([]byte{0xc1})
	assert.Error(t, err)
}

func TestStatementKey(t *testing.T) {
	a, err := StatementKey("MATCH (u:User) WHERE u.name = $p0 AND u.age = $p1 RETURN u",
		map[string]interface{}{"p0": "Ann", "p1": 3})
	require.NoError(t, err)
	b, err := StatementKey("MATCH (u:User) WHERE u.name = $p0 AND u.age = $p1 RETURN u",
		map[string]interface{}{"p1": 3, "p0": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, `^stmt:[0-9a-f]{16}$`, a)

	c, err := StatementKey("MATCH (u:User) WHERE u.name = $p0 AND u.age = $p1 RETURN u",
		map[string]interface{}{"p0": "Bob", "p1": 3})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	d, err := StatementKey("MATCH (u:User) RETURN u", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}
