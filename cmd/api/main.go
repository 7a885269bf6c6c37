package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boardgame-server/internal/board"
	"boardgame-server/internal/config"
	"boardgame-server/internal/events"
	"boardgame-server/internal/logging"
	"boardgame-server/internal/room"
	"boardgame-server/internal/server"
	"boardgame-server/internal/store/memory"
	"boardgame-server/internal/store/neo4jstore"
	"boardgame-server/internal/store/postgres"
)

type graphStore interface {
	board.Store
	server.HealthChecker
}

type roomStore interface {
	room.Store
	server.HealthChecker
}

func gracefulShutdown(logger *slog.Logger, customServer *server.Server, httpServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("shutdown signal received, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close lobby sockets before the HTTP server waits on them.
	if err := customServer.Shutdown(ctx); err != nil {
		logger.Error("error during custom shutdown", "error", err)
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http server forced to shutdown", "error", err)
	}

	done <- true
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	health := make(map[string]server.HealthChecker)

	var db *postgres.DB
	if cfg.NeedsPostgres() {
		db, err = postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		health["database"] = db
	}

	var graph graphStore
	switch cfg.GraphBackend {
	case config.BackendPostgres:
		graph = postgres.NewGraphStore(db)
	case config.BackendNeo4j:
		executor, err := neo4jstore.NewExecutor(ctx, cfg.Neo4jURI, cfg.Neo4jUsername, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return err
		}
		defer executor.Close(context.Background())
		graph = neo4jstore.NewGraphStore(executor)
	default:
		graph = memory.NewGraphStore()
	}
	health["boards"] = graph

	var rooms roomStore
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		rooms = postgres.NewRoomStore(db)
	default:
		rooms = memory.NewRoomStore()
	}
	health["rooms"] = rooms

	hub := server.NewLobbyHub(logger)
	publishers := events.Fanout{hub}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
	}

	roomOpts := []room.Option{
		room.WithTTL(cfg.RoomTTL),
		room.WithPublisher(publishers),
		room.WithLogger(logger),
	}
	if cfg.RoomStrictStatus {
		roomOpts = append(roomOpts, room.WithStrictTransitions())
	}

	customServer, httpServer := server.NewServer(server.Deps{
		Logger:         logger,
		Boards:         board.NewService(graph, board.WithLogger(logger)),
		Rooms:          room.NewManager(rooms, roomOpts...),
		Hub:            hub,
		Health:         health,
		Port:           cfg.Port,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RatePerSecond:  cfg.RateLimitPerSecond,
		ReaperInterval: cfg.ReaperInterval,
	})
	customServer.Start()

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	go gracefulShutdown(logger, customServer, httpServer, done)

	logger.Info("server listening",
		"addr", httpServer.Addr,
		"store", cfg.StoreBackend,
		"graph", cfg.GraphBackend,
		"amqp", cfg.AMQPURL != "")

	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	// Wait for the graceful shutdown to complete
	<-done
	logger.Info("graceful shutdown complete")
	return nil
}
