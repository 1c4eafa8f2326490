package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/conduit-lang/graphorm/internal/cli/config"
	"github.com/conduit-lang/graphorm/internal/cli/ui"
	"github.com/conduit-lang/graphorm/internal/graphstore"
	"github.com/conduit-lang/graphorm/internal/logger"
	"github.com/conduit-lang/graphorm/internal/orm/cache"
	"github.com/conduit-lang/graphorm/internal/orm/query"
	"github.com/conduit-lang/graphorm/internal/orm/schema"
)

// errEntityNotFound is returned after the suggestion message is printed
var errEntityNotFound = errors.New("entity not found")

// env is what a command needs once flags are parsed
type env struct {
	cfg      *config.Config
	log      *logger.ZapLogger
	registry *schema.Registry
	opts     *options
}

func (o *options) load() (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}

	log, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	registry, err := schema.LoadFile(cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", cfg.Schema.Path, err)
	}

	return &env{cfg: cfg, log: log, registry: registry, opts: o}, nil
}

// entity looks name up, printing close matches to w when it is unknown
func (e *env) entity(w io.Writer, name string) (*schema.EntitySchema, error) {
	entity, ok := e.registry.Get(name)
	if !ok {
		fmt.Fprint(w, ui.EntityNotFoundError(name, e.registry.List(), e.opts.noColor))
		return nil, fmt.Errorf("%w: %s", errEntityNotFound, name)
	}
	return entity, nil
}

// runner opens the graph store, behind the result cache when one is
// configured. A dry run never connects: statements are answered with no
// rows. The returned func releases what was opened.
func (e *env) runner(ctx context.Context, dryRun bool) (query.Runner, func(), error) {
	if dryRun {
		return query.RunnerFunc(func(context.Context, string, map[string]interface{}) ([]query.Row, error) {
			return nil, nil
		}), func() {}, nil
	}
	if e.opts.runner != nil {
		return e.opts.runner, func() {}, nil
	}

	store, err := graphstore.Open(ctx, e.cfg.Store(), e.log)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		_ = store.Close(context.Background())
	}

	if !e.cfg.CacheEnabled() {
		return store, closeStore, nil
	}

	common, redisCfg := e.cfg.CacheBackend()
	c, err := cache.New(e.cfg.Cache.Backend, common, redisCfg)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}

	cached := cache.NewRunner(store, c, cache.WithTTL(e.cfg.Cache.TTL), cache.WithLogger(e.log))
	return cached, func() {
		_ = c.Close()
		closeStore()
	}, nil
}
