// Package postgres stores boards and rooms in PostgreSQL through pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const defaultTimeout = 3 * time.Second

// Postgres error codes this package reacts to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

//go:embed migrations/*.sql
var migrations embed.FS

type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New opens a connection pool and verifies it with a ping.
func New(ctx context.Context, connStr string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	logger.Info("connected to postgres", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return &DB{pool: pool, logger: logger}, nil
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Migrate applies the embedded goose migrations.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	db.logger.Info("database migrations applied")
	return nil
}

// Health reports pool statistics. status is "down" when the ping fails.
func (db *DB) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := db.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		db.logger.Error("database health check failed", "error", err)
		return stats
	}

	s := db.pool.Stat()
	stats["status"] = "up"
	stats["backend"] = "postgres"
	stats["total_connections"] = strconv.Itoa(int(s.TotalConns()))
	stats["idle_connections"] = strconv.Itoa(int(s.IdleConns()))
	stats["acquired_connections"] = strconv.Itoa(int(s.AcquiredConns()))
	stats["max_connections"] = strconv.Itoa(int(s.MaxConns()))
	stats["acquire_count"] = strconv.FormatInt(s.AcquireCount(), 10)
	stats["empty_acquire_count"] = strconv.FormatInt(s.EmptyAcquireCount(), 10)

	if s.AcquiredConns() == s.MaxConns() {
		stats["message"] = "The database pool is fully in use."
	} else {
		stats["message"] = "It's healthy"
	}
	return stats
}

func (db *DB) Close() {
	db.logger.Info("closing database pool")
	db.pool.Close()
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
