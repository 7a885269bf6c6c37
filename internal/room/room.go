package room

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusAbandoned:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown room status %q", ErrInvalidArgument, s)
}

// CanTransitionTo reports whether next is reachable from s in the room state
// machine. Staying in the same status is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusWaiting:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted || next == StatusAbandoned
	}
	return false
}

type Player struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	UserName string `json:"userName,omitempty"`
	IsReady  bool   `json:"isReady"`
}

// Room is a multiplayer session keyed by a 6-digit code.
// CurrentPlayers always equals len(Players) and never exceeds MaxPlayers.
// Version grows by one on every stored update.
type Room struct {
	ID             string    `json:"id"`
	Code           string    `json:"roomCode"`
	GameName       string    `json:"gameName"`
	MaxPlayers     int       `json:"maxPlayers"`
	CurrentPlayers int       `json:"currentPlayers"`
	Players        []Player  `json:"players"`
	BoardID        string    `json:"boardId,omitempty"`
	Status         Status    `json:"status"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// Clone returns a deep copy so stores and callers never share the players slice.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Players = make([]Player, len(r.Players))
	copy(c.Players, r.Players)
	return &c
}

func (r *Room) playerIndex(playerID int) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) HasPlayer(playerID int) bool {
	return r.playerIndex(playerID) != -1
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// AllReady reports whether the room is full and every player is ready.
func (r *Room) AllReady() bool {
	if len(r.Players) < r.MaxPlayers {
		return false
	}
	for _, p := range r.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}
