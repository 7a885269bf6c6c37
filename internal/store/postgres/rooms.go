package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"boardgame-server/internal/room"
)

const roomColumns = `id, code, game_name, max_players, current_players, players,
	COALESCE(board_id, ''), status, version, created_at, updated_at, expires_at`

// RoomStore implements room.Store. The code column is UNIQUE and every write
// is conditional on the version the caller read.
type RoomStore struct {
	db *DB
}

func NewRoomStore(db *DB) *RoomStore {
	return &RoomStore{db: db}
}

func (s *RoomStore) FindByCode(ctx context.Context, code string) (*room.Room, error) {
	row := s.db.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = $1`, code)
	r, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, room.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", code, err)
	}
	return r, nil
}

func (s *RoomStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check room code %s: %w", code, err)
	}
	return exists, nil
}

func (s *RoomStore) Insert(ctx context.Context, r *room.Room) (*room.Room, error) {
	players, err := json.Marshal(nonNilPlayers(r.Players))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize players: %w", err)
	}

	version := r.Version
	if version == 0 {
		version = 1
	}

	row := s.db.pool.QueryRow(ctx, `
		INSERT INTO rooms (id, code, game_name, max_players, current_players, players,
			board_id, status, version, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12)
		RETURNING `+roomColumns,
		r.ID,
		r.Code,
		r.GameName,
		r.MaxPlayers,
		len(r.Players),
		string(players),
		r.BoardID,
		string(r.Status),
		version,
		r.CreatedAt,
		r.UpdatedAt,
		r.ExpiresAt,
	)

	saved, err := scanRoom(row)
	if pgErrorCode(err) == codeUniqueViolation {
		return nil, room.ErrCodeTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert room %s: %w", r.Code, err)
	}
	return saved, nil
}

// Update writes r if the stored version still equals r.Version and bumps the
// version by one.
func (s *RoomStore) Update(ctx context.Context, r *room.Room) (*room.Room, error) {
	players, err := json.Marshal(nonNilPlayers(r.Players))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize players: %w", err)
	}

	row := s.db.pool.QueryRow(ctx, `
		UPDATE rooms
		SET game_name = $3,
			max_players = $4,
			current_players = $5,
			players = $6,
			board_id = NULLIF($7, ''),
			status = $8,
			updated_at = $9,
			expires_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING `+roomColumns,
		r.ID,
		r.Version,
		r.GameName,
		r.MaxPlayers,
		len(r.Players),
		string(players),
		r.BoardID,
		string(r.Status),
		r.UpdatedAt,
		r.ExpiresAt,
	)

	updated, err := scanRoom(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, s.missOrConflict(ctx, r.ID)
	case pgErrorCode(err) == codeCheckViolation:
		return nil, room.ErrRoomFull
	case err != nil:
		return nil, fmt.Errorf("failed to update room %s: %w", r.Code, err)
	}
	return updated, nil
}

func (s *RoomStore) Delete(ctx context.Context, id string, version int64) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("failed to delete room %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, id)
	}
	return nil
}

func (s *RoomStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM rooms WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired rooms: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *RoomStore) Health(ctx context.Context) map[string]string {
	return s.db.Health(ctx)
}

// missOrConflict tells a vanished room apart from a stale version after a
// conditional write matched no rows.
func (s *RoomStore) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	err := s.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check room %s: %w", id, err)
	}
	if exists {
		return room.ErrVersionConflict
	}
	return room.ErrRoomNotFound
}

func scanRoom(row pgx.Row) (*room.Room, error) {
	var (
		r       room.Room
		status  string
		players []byte
	)
	err := row.Scan(
		&r.ID,
		&r.Code,
		&r.GameName,
		&r.MaxPlayers,
		&r.CurrentPlayers,
		&players,
		&r.BoardID,
		&status,
		&r.Version,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = room.Status(status)
	if err := json.Unmarshal(players, &r.Players); err != nil {
		return nil, fmt.Errorf("failed to deserialize players of room %s: %w", r.Code, err)
	}
	if r.Players == nil {
		r.Players = []room.Player{}
	}
	return &r, nil
}

func nonNilPlayers(p []room.Player) []room.Player {
	if p == nil {
		return []room.Player{}
	}
	return p
}
