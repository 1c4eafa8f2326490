package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/graphorm/internal/logger"
	"github.com/conduit-lang/graphorm/internal/orm/query"
)

// Runner is a query.Runner that serves repeated read statements from a
// cache. Write statements always reach the store and clear the cache once
// they succeed. Cache failures are logged and never fail a statement.
type Runner struct {
	next   query.Runner
	cache  Cache
	ttl    time.Duration
	logger logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithTTL sets how long rows are kept. Zero uses the backend default.
func WithTTL(ttl time.Duration) RunnerOption {
	return func(r *Runner) {
		r.ttl = ttl
	}
}

// WithLogger sets the logger cache failures are reported to
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner wraps next with cache
func NewRunner(next query.Runner, cache Cache, opts ...RunnerOption) *Runner {
	r := &Runner{
		next:   next,
		cache:  cache,
		logger: logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run implements query.Runner
func (r *Runner) Run(ctx context.Context, statement string, params map[string]interface{}) ([]query.Row, error) {
	if query.IsWriteStatement(statement) {
		rows, err := r.next.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}
		if cerr := r.cache.Clear(ctx); cerr != nil {
			r.logger.WarnWithContext(ctx, "cache clear failed", zap.Error(cerr))
		}
		return rows, nil
	}

	key, err := StatementKey(statement, params)
	if err != nil {
		r.logger.WarnWithContext(ctx, "cache key failed", zap.Error(err))
		return r.next.Run(ctx, statement, params)
	}

	if rows, ok := r.lookup(ctx, key); ok {
		r.hits.Add(1)
		return rows, nil
	}
	r.misses.Add(1)

	rows, err := r.next.Run(ctx, statement, params)
	if err != nil {
		return nil, err
	}

	data, err := EncodeRows(rows)
	if err != nil {
		r.logger.WarnWithContext(ctx, "cache encode failed", zap.String("key", key), zap.Error(err))
		return rows, nil
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.WarnWithContext(ctx, "cache set failed", zap.String("key", key), zap.Error(err))
	}
	return rows, nil
}

func (r *Runner) lookup(ctx context.Context, key string) ([]query.Row, bool) {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !IsCacheMiss(err) {
			r.logger.WarnWithContext(ctx, "cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	rows, err := DecodeRows(data)
	if err != nil {
		r.logger.WarnWithContext(ctx, "cache decode failed", zap.String("key", key), zap.Error(err))
		_ = r.cache.Delete(ctx, key)
		return nil, false
	}
	r.logger.DebugWithContext(ctx, "cache hit", zap.String("key", key), zap.Int("rows", len(rows)))
	return rows, true
}

// Stats returns the number of cache hits and misses so far
func (r *Runner) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}
