package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"boardgame-server/internal/room"
)

// RoomStore keeps rooms keyed by code. Update and Delete compare the stored
// Version before writing.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*room.Room)}
}

func (s *RoomStore) FindByCode(_ context.Context, code string) (*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return r.Clone(), nil
}

func (s *RoomStore) ExistsByCode(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.rooms[code]
	return ok, nil
}

func (s *RoomStore) Insert(_ context.Context, r *room.Room) (*room.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[r.Code]; ok {
		return nil, room.ErrCodeTaken
	}
	stored := r.Clone()
	stored.CurrentPlayers = len(stored.Players)
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.rooms[r.Code] = stored
	return stored.Clone(), nil
}

func (s *RoomStore) Update(_ context.Context, r *room.Room) (*room.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rooms[r.Code]
	if !ok || cur.ID != r.ID {
		return nil, room.ErrRoomNotFound
	}
	if cur.Version != r.Version {
		return nil, room.ErrVersionConflict
	}

	stored := r.Clone()
	stored.CurrentPlayers = len(stored.Players)
	stored.Version = cur.Version + 1
	s.rooms[r.Code] = stored
	return stored.Clone(), nil
}

func (s *RoomStore) Delete(_ context.Context, id string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, r := range s.rooms {
		if r.ID != id {
			continue
		}
		if r.Version != version {
			return room.ErrVersionConflict
		}
		delete(s.rooms, code)
		return nil
	}
	return room.ErrRoomNotFound
}

func (s *RoomStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for code, r := range s.rooms {
		if !r.ExpiresAt.After(now) {
			delete(s.rooms, code)
			n++
		}
	}
	return n, nil
}

func (s *RoomStore) Health(_ context.Context) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]string{
		"status":  "up",
		"backend": "memory",
		"rooms":   strconv.Itoa(len(s.rooms)),
	}
}
