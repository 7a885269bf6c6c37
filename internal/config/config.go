// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendNeo4j    = "neo4j"
)

type Config struct {
	Port     int
	LogLevel string

	DatabaseURL  string
	StoreBackend string
	GraphBackend string

	Neo4jURI      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string

	AMQPURL      string
	AMQPExchange string

	RoomTTL            time.Duration
	RoomStrictStatus   bool
	ReaperInterval     time.Duration
	RateLimitPerSecond int
	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		Port:     env.getInt("PORT", 8080),
		LogLevel: getString("LOG_LEVEL", "info"),

		DatabaseURL:  getString("DATABASE_URL", ""),
		StoreBackend: strings.ToLower(getString("STORE_BACKEND", BackendPostgres)),

		Neo4jURI:      getString("NEO4J_URI", ""),
		Neo4jUsername: getString("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword: getString("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getString("NEO4J_DATABASE", "neo4j"),

		AMQPURL:      getString("AMQP_URL", ""),
		AMQPExchange: getString("AMQP_EXCHANGE", "boardgame.rooms"),

		RoomTTL:            env.getDuration("ROOM_TTL", 24*time.Hour),
		RoomStrictStatus:   env.getBool("ROOM_STRICT_STATUS", false),
		ReaperInterval:     env.getDuration("REAPER_INTERVAL", time.Hour),
		RateLimitPerSecond: env.getInt("RATE_LIMIT_PER_SECOND", 20),
		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
	cfg.GraphBackend = strings.ToLower(getString("GRAPH_BACKEND", cfg.StoreBackend))

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.StoreBackend)
	}

	switch c.GraphBackend {
	case BackendMemory, BackendPostgres, BackendNeo4j:
	default:
		return fmt.Errorf("GRAPH_BACKEND must be %q, %q or %q, got %q",
			BackendPostgres, BackendNeo4j, BackendMemory, c.GraphBackend)
	}

	if c.NeedsPostgres() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	if c.GraphBackend == BackendNeo4j && c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required for the neo4j graph backend")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.RoomTTL <= 0 {
		return fmt.Errorf("ROOM_TTL must be positive")
	}
	if c.ReaperInterval <= 0 {
		return fmt.Errorf("REAPER_INTERVAL must be positive")
	}
	if c.RateLimitPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND must be positive")
	}
	return nil
}

// NeedsPostgres reports whether either store is backed by PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.StoreBackend == BackendPostgres || c.GraphBackend == BackendPostgres
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// envReader parses typed values and collects an error for every variable
// that is set but malformed.
type envReader struct {
	errs []error
}

func (e *envReader) getInt(key string, fallback int) int {
	raw := getString(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be an integer, got %q", key, raw))
		return fallback
	}
	return v
}

func (e *envReader) getBool(key string, fallback bool) bool {
	raw := getString(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be a boolean, got %q", key, raw))
		return fallback
	}
	return v
}

func (e *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	raw := getString(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be a duration like 30m, got %q", key, raw))
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := getString(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
