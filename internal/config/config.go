// Package config defines the configuration of the metadata repository tooling.
// No I/O lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Neo4jConfig holds graph database connection parameters.
type Neo4jConfig struct {
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	MaxConnectionLifetime        time.Duration `mapstructure:"max_connection_lifetime"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
	ConnectTimeout               time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds connection parameters for the advisory lock backend.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Lock backends.
const (
	LockBackendGraph = "graph"
	LockBackendRedis = "redis"
)

// LockConfig selects how roots are locked for update.
type LockConfig struct {
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	RetryCount int           `mapstructure:"retry_count"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	// Watchdog keeps extending a held advisory lock until it is released.
	Watchdog   bool          `mapstructure:"watchdog"`
}

// LogConfig holds logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// MetricsConfig controls the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Addr      string `mapstructure:"addr"`
}

// RepositoryConfig bounds what list and header queries may ask for.
type RepositoryConfig struct {
	MaxPageSize       int `mapstructure:"max_page_size"`
	MaxSkip           int `mapstructure:"max_skip"`
	HeaderResultCount int `mapstructure:"header_result_count"`
}

// Config is the root configuration.
type Config struct {
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Lock       LockConfig       `mapstructure:"lock"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Repository RepositoryConfig `mapstructure:"repository"`
}

var neo4jSchemes = map[string]bool{
	"neo4j": true, "neo4j+s": true, "neo4j+ssc": true,
	"bolt": true, "bolt+s": true, "bolt+ssc": true,
}

// Validate returns the first semantic error found in c.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required")
	}
	u, err := url.Parse(c.Neo4j.URI)
	if err != nil || !neo4jSchemes[u.Scheme] {
		return fmt.Errorf("config: neo4j.uri %q must use one of the neo4j or bolt schemes", c.Neo4j.URI)
	}
	if c.Neo4j.MaxConnectionPoolSize < 1 {
		return fmt.Errorf("config: neo4j.max_connection_pool_size must be ≥ 1, got %d", c.Neo4j.MaxConnectionPoolSize)
	}

	switch c.Lock.Backend {
	case LockBackendGraph:
	case LockBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required when lock.backend is redis")
		}
		if c.Lock.TTL <= 0 {
			return fmt.Errorf("config: lock.ttl must be positive, got %s", c.Lock.TTL)
		}
	default:
		return fmt.Errorf("config: lock.backend %q is invalid; expected graph|redis", c.Lock.Backend)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Repository.MaxPageSize < 1 {
		return fmt.Errorf("config: repository.max_page_size must be ≥ 1, got %d", c.Repository.MaxPageSize)
	}
	if c.Repository.MaxSkip < 0 {
		return fmt.Errorf("config: repository.max_skip must be ≥ 0, got %d", c.Repository.MaxSkip)
	}
	return nil
}
