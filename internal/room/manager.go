package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinPlayers = 2
	MaxPlayers = 4

	DefaultTTL = 24 * time.Hour

	maxCodeAttempts   = 10
	maxUpdateAttempts = 5
)

// Store persists rooms. Update and Delete are compare-and-swap on Version:
// they fail with ErrVersionConflict when the stored version differs from the
// one passed in. Insert fails with ErrCodeTaken on a duplicate code.
type Store interface {
	FindByCode(ctx context.Context, code string) (*Room, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, r *Room) (*Room, error)
	Update(ctx context.Context, r *Room) (*Room, error)
	Delete(ctx context.Context, id string, version int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type Manager struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	codes     CodeSource
	now       func() time.Time
	ttl       time.Duration
	strict    bool
}

type Option func(*Manager)

func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithCodeSource replaces the random source used for room codes. The source
// must be safe for concurrent use if the manager is.
func WithCodeSource(src CodeSource) Option {
	return func(m *Manager) { m.codes = src }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithStrictTransitions makes SetStatus follow the state machine
// waiting -> in_progress -> completed|abandoned.
func WithStrictTransitions() Option {
	return func(m *Manager) { m.strict = true }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		publisher: noopPublisher{},
		logger:    slog.Default(),
		codes:     newLockedSource(),
		now:       time.Now,
		ttl:       DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Create(ctx context.Context, gameName string, maxPlayers int, boardID string) (*Room, error) {
	gameName = strings.TrimSpace(gameName)
	if gameName == "" {
		return nil, fmt.Errorf("%w: gameName is required", ErrInvalidArgument)
	}
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return nil, fmt.Errorf("%w: maxPlayers must be between %d and %d", ErrInvalidArgument, MinPlayers, MaxPlayers)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code := GenerateRoomCode(m.codes)

		exists, err := m.store.ExistsByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check room code %s: %w", code, err)
		}
		if exists {
			m.logger.Debug("room code collision", "code", code, "attempt", attempt)
			continue
		}

		now := m.now()
		r := &Room{
			ID:         uuid.New().String(),
			Code:       code,
			GameName:   gameName,
			MaxPlayers: maxPlayers,
			Players:    []Player{},
			BoardID:    strings.TrimSpace(boardID),
			Status:     StatusWaiting,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
			ExpiresAt:  now.Add(m.ttl),
		}

		saved, err := m.store.Insert(ctx, r)
		if errors.Is(err, ErrCodeTaken) {
			m.logger.Debug("room code taken on insert", "code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert room: %w", err)
		}

		m.logger.Info("room created", "code", saved.Code, "game", saved.GameName, "max_players", saved.MaxPlayers)
		m.publish(ctx, EventCreated, saved)
		return saved, nil
	}

	return nil, ErrCodeGenerationExhausted
}

func (m *Manager) Get(ctx context.Context, code string) (*Room, error) {
	code, err := checkCode(code)
	if err != nil {
		return nil, err
	}
	return m.findLive(ctx, code)
}

// findLive loads a room and hides it once its TTL has run out, even before
// the reaper removes it.
func (m *Manager) findLive(ctx context.Context, code string) (*Room, error) {
	r, err := m.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !r.ExpiresAt.After(m.now()) {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (m *Manager) Join(ctx context.Context, code string, playerID int, playerName, userName string) (*Room, error) {
	code, err := checkCode(code)
	if err != nil {
		return nil, err
	}
	if err := checkPlayerID(playerID); err != nil {
		return nil, err
	}
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return nil, fmt.Errorf("%w: playerName is required", ErrInvalidArgument)
	}

	r, _, err := m.mutate(ctx, code, func(r *Room) (action, error) {
		if r.Status != StatusWaiting {
			return actionNone, ErrRoomNotJoinable
		}
		if r.IsFull() {
			return actionNone, ErrRoomFull
		}
		if r.HasPlayer(playerID) {
			return actionNone, ErrPlayerAlreadyJoined
		}
		r.Players = append(r.Players, Player{
			ID:       playerID,
			Name:     playerName,
			UserName: strings.TrimSpace(userName),
			IsReady:  false,
		})
		return actionUpdate, nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("player joined room", "code", code, "player_id", playerID, "players", r.CurrentPlayers)
	return r, nil
}

// Leave removes a player. Leaving twice is not an error. A room left empty is
// deleted; the returned snapshot is the one taken just before deletion.
func (m *Manager) Leave(ctx context.Context, code string, playerID int) (*Room, error) {
	code, err := checkCode(code)
	if err != nil {
		return nil, err
	}
	if err := checkPlayerID(playerID); err != nil {
		return nil, err
	}

	r, deleted, err := m.mutate(ctx, code, func(r *Room) (action, error) {
		idx := r.playerIndex(playerID)
		if idx != -1 {
			r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
		}
		if len(r.Players) == 0 {
			return actionDelete, nil
		}
		if idx == -1 {
			return actionNone, nil
		}
		return actionUpdate, nil
	})
	if err != nil {
		return nil, err
	}

	if deleted {
		m.logger.Info("room emptied and deleted", "code", code)
	} else {
		m.logger.Info("player left room", "code", code, "player_id", playerID, "players", r.CurrentPlayers)
	}
	return r, nil
}

func (m *Manager) SetReady(ctx context.Context, code string, playerID int, ready bool) (*Room, error) {
	code, err := checkCode(code)
	if err != nil {
		return nil, err
	}
	if err := checkPlayerID(playerID); err != nil {
		return nil, err
	}

	r, _, err := m.mutate(ctx, code, func(r *Room) (action, error) {
		idx := r.playerIndex(playerID)
		if idx == -1 {
			return actionNone, ErrPlayerNotFound
		}
		r.Players[idx].IsReady = ready
		return actionUpdate, nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// SetStatus changes the room status. Unless the manager was built with
// WithStrictTransitions any status may follow any other.
func (m *Manager) SetStatus(ctx context.Context, code string, status Status) (*Room, error) {
	code, err := checkCode(code)
	if err != nil {
		return nil, err
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	r, _, err := m.mutate(ctx, code, func(r *Room) (action, error) {
		if m.strict && !r.Status.CanTransitionTo(status) {
			return actionNone, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, status)
		}
		r.Status = status
		return actionUpdate, nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("room status changed", "code", code, "status", r.Status)
	return r, nil
}

// ReapExpired removes rooms whose expiry has passed.
func (m *Manager) ReapExpired(ctx context.Context) (int, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to reap expired rooms: %w", err)
	}
	return n, nil
}

type action int

const (
	actionNone action = iota
	actionUpdate
	actionDelete
)

// mutate runs a read-modify-write cycle on one room, retrying when another
// writer got there first. fn may be called several times.
func (m *Manager) mutate(ctx context.Context, code string, fn func(r *Room) (action, error)) (*Room, bool, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		r, err := m.findLive(ctx, code)
		if err != nil {
			return nil, false, err
		}

		act, err := fn(r)
		if err != nil {
			return nil, false, err
		}
		r.CurrentPlayers = len(r.Players)

		switch act {
		case actionNone:
			return r, false, nil

		case actionDelete:
			err = m.store.Delete(ctx, r.ID, r.Version)
			if errors.Is(err, ErrVersionConflict) {
				m.logger.Debug("room delete conflict, retrying", "code", code, "attempt", attempt)
				continue
			}
			if err != nil {
				return nil, false, fmt.Errorf("failed to delete room %s: %w", code, err)
			}
			m.publish(ctx, EventDeleted, r)
			return r, true, nil

		default:
			r.UpdatedAt = m.now()
			updated, err := m.store.Update(ctx, r)
			if errors.Is(err, ErrVersionConflict) {
				m.logger.Debug("room update conflict, retrying", "code", code, "attempt", attempt)
				continue
			}
			if err != nil {
				return nil, false, fmt.Errorf("failed to update room %s: %w", code, err)
			}
			m.publish(ctx, EventUpdated, updated)
			return updated, false, nil
		}
	}

	return nil, false, ErrConcurrentUpdate
}

func (m *Manager) publish(ctx context.Context, t EventType, r *Room) {
	ev := Event{Type: t, Room: r.Clone(), At: m.now()}
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.logger.Warn("failed to publish room event", "type", t, "code", r.Code, "error", err)
	}
}

func checkCode(code string) (string, error) {
	code = NormalizeRoomCode(code)
	if err := ValidateRoomCode(code); err != nil {
		return "", err
	}
	return code, nil
}

func checkPlayerID(playerID int) error {
	if playerID <= 0 {
		return fmt.Errorf("%w: playerId must be a positive number", ErrInvalidArgument)
	}
	return nil
}
