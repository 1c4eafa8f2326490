package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/graphorm/internal/graphstore"
	"github.com/conduit-lang/graphorm/internal/orm/cache"
)

// EnvPrefix prefixes every environment override, e.g. GRAPHORM_NEO4J_URI
const EnvPrefix = "GRAPHORM"

// Config represents the graphorm configuration
type Config struct {
	Neo4j  Neo4jConfig  `mapstructure:"neo4j"`
	Log    LogConfig    `mapstructure:"log"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Schema SchemaConfig `mapstructure:"schema"`
}

// Neo4jConfig represents the graph store connection
type Neo4jConfig struct {
	URI            string        `mapstructure:"uri"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

// CacheConfig represents result cache configuration
type CacheConfig struct {
	// Backend is none, memory or redis
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents the redis cache backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SchemaConfig locates the entity schema file
type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("neo4j.connect_timeout", "10s")

	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "warn")

	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.ttl", "1m")
	v.SetDefault("cache.prefix", "graphorm:")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("schema.path", "schema.yaml")
}

// Load loads the configuration from path, or from graphorm.yaml in the
// working directory when path is empty. A missing default file is not an
// error. GRAPHORM_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("graphorm")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	if path != "" && !filepath.IsAbs(config.Schema.Path) {
		config.Schema.Path = filepath.Join(filepath.Dir(path), config.Schema.Path)
	}

	return &config, nil
}

// Store returns the graph store connection settings
func (c *Config) Store() graphstore.Config {
	return graphstore.Config{
		URI:            c.Neo4j.URI,
		Username:       c.Neo4j.Username,
		Password:       c.Neo4j.Password,
		Database:       c.Neo4j.Database,
		ConnectTimeout: c.Neo4j.ConnectTimeout,
	}
}

// CacheEnabled reports whether statements should go through a result cache
func (c *Config) CacheEnabled() bool {
	return c.Cache.Backend != "none"
}

// CacheBackend returns the backend settings of the result cache
func (c *Config) CacheBackend() (cache.CacheConfig, cache.RedisConfig) {
	common := cache.DefaultCacheConfig()
	common.DefaultTTL = c.Cache.TTL
	common.Prefix = c.Cache.Prefix

	redisConfig := cache.DefaultRedisConfig()
	redisConfig.Addr = c.Cache.Redis.Addr
	redisConfig.Password = c.Cache.Redis.Password
	redisConfig.DB = c.Cache.Redis.DB
	redisConfig.CacheConfig = common
	return common, redisConfig
}

// SchemaExists reports whether the configured schema file is present
func (c *Config) SchemaExists() bool {
	_, err := os.Stat(c.Schema.Path)
	return err == nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}

	switch cfg.Cache.Backend {
	case "none", cache.BackendMemory, cache.BackendRedis:
	default:
		return fmt.Errorf("cache.backend must be one of none, memory, redis, got: %s", cfg.Cache.Backend)
	}

	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got: %s", cfg.Cache.TTL)
	}
	return nil
}
