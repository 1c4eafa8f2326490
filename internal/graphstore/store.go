// Package graphstore runs rendered statements against a Neo4j server and
// converts the driver's records into query rows.
package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/conduit-lang/graphorm/internal/logger"
	"github.com/conduit-lang/graphorm/internal/orm/query"
)

// Config holds the connection settings of a store
type Config struct {
	URI      string
	Username string
	Password string
	// Database selects a named database; empty uses the server default
	Database string
	// ConnectTimeout bounds the connectivity check in Open
	ConnectTimeout time.Duration
}

// DefaultConfig returns the settings of a local development server
func DefaultConfig() Config {
	return Config{
		URI:            "neo4j://localhost:7687",
		Username:       "neo4j",
		ConnectTimeout: 10 * time.Second,
	}
}

// Store is a query.Runner backed by a Neo4j driver
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   logger.Logger
}

var _ query.Runner = (*Store)(nil)

// Open connects to the server described by cfg and verifies connectivity
func Open(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("graph store uri is required")
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.URI, err)
	}

	log.Info("connected to graph store", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))

	return &Store{driver: driver, database: cfg.Database, logger: log}, nil
}

// Run executes statement in a managed transaction of its own session.
// Write statements run in write mode so they reach the cluster leader. The
// driver retries transient failures; other errors are returned unchanged.
func (s *Store) Run(ctx context.Context, statement string, params map[string]interface{}) ([]query.Row, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}
		return collect(ctx, result)
	}

	var (
		out any
		err error
	)
	if query.IsWriteStatement(statement) {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return nil, err
	}
	rows, _ := out.([]query.Row)
	return rows, nil
}

func collect(ctx context.Context, result neo4j.ResultWithContext) ([]query.Row, error) {
	var rows []query.Row
	for result.Next(ctx) {
		rec := result.Record()
		values := make([]interface{}, len(rec.Values))
		for i, v := range rec.Values {
			values[i] = convertValue(v)
		}
		rows = append(rows, query.NewRow(rec.Keys, values))
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Close closes the driver
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
