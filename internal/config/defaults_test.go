package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultNeo4jURI, cfg.Neo4j.URI)
	assert.Equal(t, DefaultNeo4jDatabase, cfg.Neo4j.Database)
	assert.Equal(t, DefaultNeo4jMaxConnectionPoolSize, cfg.Neo4j.MaxConnectionPoolSize)
	assert.Equal(t, LockBackendGraph, cfg.Lock.Backend)
	assert.Equal(t, DefaultLockTTL, cfg.Lock.TTL)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultMetricsNamespace, cfg.Metrics.Namespace)
	assert.Equal(t, DefaultMaxPageSize, cfg.Repository.MaxPageSize)
	assert.Equal(t, DefaultMaxSkip, cfg.Repository.MaxSkip)
	assert.Equal(t, DefaultHeaderResultCount, cfg.Repository.HeaderResultCount)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{
		Neo4j:      Neo4jConfig{URI: "neo4j://graph:7687", MaxConnectionPoolSize: 5},
		Lock:       LockConfig{Backend: LockBackendRedis, TTL: time.Minute},
		Repository: RepositoryConfig{MaxPageSize: 50},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "neo4j://graph:7687", cfg.Neo4j.URI)
	assert.Equal(t, 5, cfg.Neo4j.MaxConnectionPoolSize)
	assert.Equal(t, LockBackendRedis, cfg.Lock.Backend)
	assert.Equal(t, time.Minute, cfg.Lock.TTL)
	assert.Equal(t, 50, cfg.Repository.MaxPageSize)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
