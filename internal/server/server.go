package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"boardgame-server/internal/board"
	"boardgame-server/internal/room"
)

const (
	lobbyIdleTimeout    = 10 * time.Minute
	housekeepingPeriod  = time.Minute
	defaultReaperPeriod = time.Hour
)

// HealthChecker is implemented by every store and by the database pool.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

// Deps are the collaborators a Server is built from. Hub must be the same
// LobbyHub the room manager publishes to.
type Deps struct {
	Logger         *slog.Logger
	Boards         *board.Service
	Rooms          *room.Manager
	Hub            *LobbyHub
	Health         map[string]HealthChecker
	Port           int
	AllowedOrigins []string
	RatePerSecond  int
	ReaperInterval time.Duration
}

type Server struct {
	port           int
	logger         *slog.Logger
	boards         *board.Service
	rooms          *room.Manager
	hub            *LobbyHub
	health         map[string]HealthChecker
	limiter        *RateLimiter
	allowedOrigins []string
	socketOrigins  []string
	reaperInterval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewServer(deps Deps) (*Server, *http.Server) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewLobbyHub(logger)
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	reaper := deps.ReaperInterval
	if reaper <= 0 {
		reaper = defaultReaperPeriod
	}

	s := &Server{
		port:           deps.Port,
		logger:         logger,
		boards:         deps.Boards,
		rooms:          deps.Rooms,
		hub:            hub,
		health:         deps.Health,
		allowedOrigins: origins,
		socketOrigins:  originHosts(origins),
		reaperInterval: reaper,
		stop:           make(chan struct{}),
	}
	if deps.RatePerSecond > 0 {
		s.limiter = NewRateLimiter(deps.RatePerSecond, time.Second)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

// originHosts turns CORS origins into the host patterns websocket.Accept
// matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}

// Start launches the background tasks. They run until Shutdown.
func (s *Server) Start() {
	s.wg.Add(2)
	go s.reaperTask()
	go s.housekeepingTask()
}

// Shutdown stops background tasks and closes lobby sockets.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.hub.CloseAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reaperTask deletes expired rooms every reaperInterval.
func (s *Server) reaperTask() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.reaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.reapOnce()
		}
	}
}

func (s *Server) reapOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.rooms.ReapExpired(ctx)
	if err != nil {
		s.logger.Error("room reaper failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("room reaper deleted expired rooms", "count", deleted)
	}
}

// housekeepingTask trims rate limiter state and drops idle lobby sockets.
func (s *Server) housekeepingTask() {
	defer s.wg.Done()

	ticker := time.NewTicker(housekeepingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.limiter != nil {
				s.limiter.Cleanup()
			}
			if n := s.hub.CloseInactive(lobbyIdleTimeout); n > 0 {
				s.logger.Info("closed idle lobby connections", "count", n)
			}
		}
	}
}
