package relationships

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	p, err := ParsePath("role?__name!__text")
	require.NoError(t, err)
	require.Len(t, p, 3)

	assert.Equal(t, "role", p[0].Name)
	require.NotNil(t, p[0].Optional)
	assert.True(t, *p[0].Optional)
	assert.False(t, *p[1].Optional)
	assert.Nil(t, p[2].Optional)

	assert.Equal(t, "role", p.Head())
	assert.Equal(t, "role?__name!__text", p.String())
}

func TestParsePathInvalid(t *testing.T) {
	for _, s := range []string{"", "  ", "role____name", "?", "role__!"} {
		_, err := ParsePath(s)
		assert.ErrorIs(t, err, ErrInvalidPath, s)
	}

	_, err := ParsePaths([]string{"role", ""})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLookup(t *testing.T) {
	paths := []WithPath{
		{{Name: "role", Optional: boolPtr(false)}, {Name: "name"}},
		{{Name: "friends"}},
	}

	found, optional, flagged := lookup(paths, nil, "role", true)
	assert.True(t, found)
	assert.False(t, optional)
	assert.True(t, flagged)

	found, optional, flagged = lookup(paths, []string{"role"}, "name", true)
	assert.True(t, found)
	assert.True(t, optional)
	assert.False(t, flagged)

	found, _, _ = lookup(paths, nil, "name", true)
	assert.False(t, found)

	found, _, _ = lookup(paths, []string{"friends"}, "name", true)
	assert.False(t, found)
}
