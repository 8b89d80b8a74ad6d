package config

import "time"

const (
	DefaultNeo4jURI                     = "bolt://localhost:7687"
	DefaultNeo4jDatabase                = "neo4j"
	DefaultNeo4jMaxConnectionPoolSize   = 50
	DefaultNeo4jMaxConnectionLifetime   = time.Hour
	DefaultNeo4jConnectionAcquisition   = 60 * time.Second
	DefaultNeo4jConnectTimeout          = 10 * time.Second

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPoolSize = 10

	DefaultLockBackend    = LockBackendGraph
	DefaultLockTTL        = 30 * time.Second
	DefaultLockRetryCount = 3
	DefaultLockRetryDelay = 100 * time.Millisecond
	DefaultLockKeyPrefix  = "mdr:lock:root:"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "mdr"

	DefaultMaxPageSize       = 1000
	DefaultMaxSkip           = 100000
	DefaultHeaderResultCount = 10
)

// ApplyDefaults fills zero-value fields of cfg. Explicit values win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = DefaultNeo4jDatabase
	}
	if cfg.Neo4j.MaxConnectionPoolSize == 0 {
		cfg.Neo4j.MaxConnectionPoolSize = DefaultNeo4jMaxConnectionPoolSize
	}
	if cfg.Neo4j.MaxConnectionLifetime == 0 {
		cfg.Neo4j.MaxConnectionLifetime = DefaultNeo4jMaxConnectionLifetime
	}
	if cfg.Neo4j.ConnectionAcquisitionTimeout == 0 {
		cfg.Neo4j.ConnectionAcquisitionTimeout = DefaultNeo4jConnectionAcquisition
	}
	if cfg.Neo4j.ConnectTimeout == 0 {
		cfg.Neo4j.ConnectTimeout = DefaultNeo4jConnectTimeout
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}

	if cfg.Lock.Backend == "" {
		cfg.Lock.Backend = DefaultLockBackend
	}
	if cfg.Lock.TTL == 0 {
		cfg.Lock.TTL = DefaultLockTTL
	}
	if cfg.Lock.RetryCount == 0 {
		cfg.Lock.RetryCount = DefaultLockRetryCount
	}
	if cfg.Lock.RetryDelay == 0 {
		cfg.Lock.RetryDelay = DefaultLockRetryDelay
	}
	if cfg.Lock.KeyPrefix == "" {
		cfg.Lock.KeyPrefix = DefaultLockKeyPrefix
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Repository.MaxPageSize == 0 {
		cfg.Repository.MaxPageSize = DefaultMaxPageSize
	}
	if cfg.Repository.MaxSkip == 0 {
		cfg.Repository.MaxSkip = DefaultMaxSkip
	}
	if cfg.Repository.HeaderResultCount == 0 {
		cfg.Repository.HeaderResultCount = DefaultHeaderResultCount
	}
}
