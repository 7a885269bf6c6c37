package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "DATABASE_URL", "STORE_BACKEND", "GRAPH_BACKEND",
		"NEO4J_URI", "NEO4J_USERNAME", "NEO4J_PASSWORD", "NEO4J_DATABASE",
		"AMQP_URL", "AMQP_EXCHANGE", "ROOM_TTL", "ROOM_STRICT_STATUS",
		"REAPER_INTERVAL", "RATE_LIMIT_PER_SECOND", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	assert := assert.New(t)
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/boardgame")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(8080, cfg.Port)
	assert.Equal(BackendPostgres, cfg.StoreBackend)
	assert.Equal(BackendPostgres, cfg.GraphBackend)
	assert.Equal(24*time.Hour, cfg.RoomTTL)
	assert.Equal(time.Hour, cfg.ReaperInterval)
	assert.False(cfg.RoomStrictStatus)
	assert.Equal(20, cfg.RateLimitPerSecond)
	assert.Equal([]string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal("boardgame.rooms", cfg.AMQPExchange)
}

func TestLoadOverrides(t *testing.T) {
	assert := assert.New(t)
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("GRAPH_BACKEND", "Neo4j")
	t.Setenv("NEO4J_URI", "neo4j://localhost:7687")
	t.Setenv("ROOM_TTL", "30m")
	t.Setenv("ROOM_STRICT_STATUS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://game.example.com ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(9090, cfg.Port)
	assert.Equal(BackendMemory, cfg.StoreBackend)
	assert.Equal(BackendNeo4j, cfg.GraphBackend)
	assert.False(cfg.NeedsPostgres())
	assert.Equal(30*time.Minute, cfg.RoomTTL)
	assert.True(cfg.RoomStrictStatus)
	assert.Equal([]string{"http://localhost:3000", "https://game.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"STORE_BACKEND": "mongo"}},
		{"unknown graph", map[string]string{"STORE_BACKEND": "memory", "GRAPH_BACKEND": "redis"}},
		{"postgres without url", map[string]string{"STORE_BACKEND": "postgres"}},
		{"neo4j without uri", map[string]string{"STORE_BACKEND": "memory", "GRAPH_BACKEND": "neo4j"}},
		{"bad port", map[string]string{"STORE_BACKEND": "memory", "PORT": "70000"}},
		{"negative ttl", map[string]string{"STORE_BACKEND": "memory", "ROOM_TTL": "-1h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestMalformedValuesFail(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PORT", "eighty")
	t.Setenv("ROOM_STRICT_STATUS", "maybe")
	t.Setenv("REAPER_INTERVAL", "often")
	t.Setenv("RATE_LIMIT_PER_SECOND", "1.5")

	_, err := Load()
	require.Error(t, err)
	for _, key := range []string{"PORT", "ROOM_STRICT_STATUS", "REAPER_INTERVAL", "RATE_LIMIT_PER_SECOND"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestBlankValuesUseDefaults(t *testing.T) {
	assert := assert.New(t)
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PORT", "  ")
	t.Setenv("ROOM_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(8080, cfg.Port)
	assert.Equal(24*time.Hour, cfg.RoomTTL)
}
