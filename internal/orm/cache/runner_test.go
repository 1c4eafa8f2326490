package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/graphorm/internal/logger"
	"github.com/conduit-lang/graphorm/internal/orm/query"
)

type countingRunner struct {
	calls []string
	err   error
}

func (c *countingRunner) Run(_ context.Context, statement string, _ map[string]interface{}) ([]query.Row, error) {
	c.calls = append(c.calls, statement)
	if c.err != nil {
		return nil, c.err
	}
	return []query.Row{query.RowOf("user", query.Node{ID: int64(len(c.calls)), Props: map[string]interface{}{"name": "Ann"}})}, nil
}

// failingCache fails every operation
type failingCache struct{}

var errBackend = errors.New("backend down")

func (failingCache) Get(context.Context, string) ([]byte, error)              { return nil, errBackend }
func (failingCache) Set(context.Context, string, []byte, time.Duration) error { return errBackend }
func (failingCache) Delete(context.Context, string) error                     { return errBackend }
func (failingCache) Clear(context.Context) error                              { return errBackend }
func (failingCache) Exists(context.Context, string) (bool, error)             { return false, errBackend }
func (failingCache) Close() error                                             { return nil }

const readStmt = "MATCH (user:User) WHERE user.name = $p0 RETURN user"

func TestRunnerServesRepeatedReads(t *testing.T) {
	next := &countingRunner{}
	r := NewRunner(next, newTestMemoryCache(t, DefaultCacheConfig()))
	ctx := context.Background()

	first, err := r.Run(ctx, readStmt, map[string]interface{}{"p0": "Ann"})
	require.NoError(t, err)
	second, err := r.Run(ctx, readStmt, map[string]interface{}{"p0": "Ann"})
	require.NoError(t, err)

	assert.Len(t, next.calls, 1)
	n1, _ := first[0].Node("user")
	n2, _ := second[0].Node("user")
	assert.Equal(t, n1.ID, n2.ID)

	_, err = r.Run(ctx, readStmt, map[string]interface{}{"p0": "Bob"})
	require.NoError(t, err)
	assert.Len(t, next.calls, 2)

	hits, misses := r.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestRunnerWritesClearCache(t *testing.T) {
	next := &countingRunner{}
	r := NewRunner(next, newTestMemoryCache(t, DefaultCacheConfig()))
	ctx := context.Background()

	_, err := r.Run(ctx, readStmt, map[string]interface{}{"p0": "Ann"})
	require.NoError(t, err)

	_, err = r.Run(ctx, "MATCH (user:User) WHERE id(user) = $p0 SET user.name = $p1 RETURN DISTINCT user",
		map[string]interface{}{"p0": 1, "p1": "Bob"})
	require.NoError(t, err)

	_, err = r.Run(ctx, readStmt, map[string]interface{}{"p0": "Ann"})
	require.NoError(t, err)

	assert.Len(t, next.calls, 3)
}

func TestRunnerDoesNotCacheErrors(t *testing.T) {
	next := &countingRunner{err: errors.New("syntax error")}
	r := NewRunner(next, newTestMemoryCache(t, DefaultCacheConfig()))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := r.Run(ctx, readStmt, nil)
		assert.EqualError(t, err, "syntax error")
	}
	assert.Len(t, next.calls, 2)
}

func TestRunnerToleratesCacheFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	next := &countingRunner{}
	r := NewRunner(next, failingCache{}, WithLogger(&logger.ZapLogger{Logger: zap.New(core)}))
	ctx := context.Background()

	rows, err := r.Run(ctx, readStmt, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = r.Run(ctx, "CREATE (user:User) SET user.name = $p0 RETURN user", map[string]interface{}{"p0": "Ann"})
	require.NoError(t, err)

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{"cache get failed", "cache set failed", "cache clear failed"}, messages)
}
