package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"boardgame-server/internal/room"
)

const lobbyWriteTimeout = 5 * time.Second

var _ room.Publisher = (*LobbyHub)(nil)

type lobbyConnection struct {
	socket   *websocket.Conn
	roomCode string
}

// LobbyHub tracks lobby sockets per room and pushes room events to them. It
// implements room.Publisher.
type LobbyHub struct {
	connections map[string]lobbyConnection     // connectionID → socket
	rooms       map[string]map[string]struct{} // room code → connectionIDs
	health      *ConnectionHealth
	logger      *slog.Logger
	mu          sync.RWMutex
}

func NewLobbyHub(logger *slog.Logger) *LobbyHub {
	return &LobbyHub{
		connections: make(map[string]lobbyConnection),
		rooms:       make(map[string]map[string]struct{}),
		health:      NewConnectionHealth(),
		logger:      logger,
	}
}

func (h *LobbyHub) AddConnection(id, roomCode string, socket *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[id] = lobbyConnection{socket: socket, roomCode: roomCode}
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[string]struct{})
	}
	h.rooms[roomCode][id] = struct{}{}
	h.health.UpdateActivity(id)
}

func (h *LobbyHub) RemoveConnection(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.connections[id]; ok {
		delete(h.rooms[c.roomCode], id)
		if len(h.rooms[c.roomCode]) == 0 {
			delete(h.rooms, c.roomCode)
		}
	}
	delete(h.connections, id)
	h.health.RemoveConnection(id)
}

func (h *LobbyHub) Touch(id string) {
	h.health.UpdateActivity(id)
}

// ConnectionCount returns the number of sockets watching roomCode.
func (h *LobbyHub) ConnectionCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

func (h *LobbyHub) socketsFor(roomCode string) []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sockets := make([]*websocket.Conn, 0, len(h.rooms[roomCode]))
	for id := range h.rooms[roomCode] {
		sockets = append(sockets, h.connections[id].socket)
	}
	return sockets
}

// Publish relays a room event to every socket in that room. A deleted room
// also closes its sockets.
func (h *LobbyHub) Publish(ctx context.Context, ev room.Event) error {
	if ev.Room == nil {
		return nil
	}

	switch ev.Type {
	case room.EventUpdated:
		h.Broadcast(ctx, ev.Room.Code, ServerMessage{Type: msgRoomUpdate, Payload: lobbyState(ev.Room)})

	case room.EventDeleted:
		h.Broadcast(ctx, ev.Room.Code, ServerMessage{Type: msgRoomDeleted, Payload: ev.Room})
		// Close blocks until the peer answers the close frame.
		for _, socket := range h.socketsFor(ev.Room.Code) {
			go socket.Close(websocket.StatusNormalClosure, "Room closed")
		}
	}
	return nil
}

// Broadcast sends msg to every socket watching roomCode. Failed writes are
// logged and skipped.
func (h *LobbyHub) Broadcast(ctx context.Context, roomCode string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal lobby message", "type", msg.Type, "error", err)
		return
	}

	for _, socket := range h.socketsFor(roomCode) {
		if err := writeWithTimeout(ctx, socket, data); err != nil {
			h.logger.Debug("lobby broadcast failed", "code", roomCode, "type", msg.Type, "error", err)
		}
	}
}

// CloseInactive closes sockets silent for longer than timeout and returns how
// many were closed.
func (h *LobbyHub) CloseInactive(timeout time.Duration) int {
	ids := h.health.GetInactiveConnections(timeout)

	closed := 0
	for _, id := range ids {
		h.mu.RLock()
		c, ok := h.connections[id]
		h.mu.RUnlock()
		if !ok {
			h.health.RemoveConnection(id)
			continue
		}
		// Activity may have arrived since the scan.
		if !h.health.IsInactive(id, timeout) {
			continue
		}
		c.socket.Close(websocket.StatusPolicyViolation, "Inactive")
		h.RemoveConnection(id)
		closed++
	}
	return closed
}

// CloseAll tells every client the server is going away.
func (h *LobbyHub) CloseAll() {
	h.mu.RLock()
	sockets := make([]*websocket.Conn, 0, len(h.connections))
	for _, c := range h.connections {
		sockets = append(sockets, c.socket)
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	for _, socket := range sockets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			socket.Close(websocket.StatusGoingAway, "Server shutting down")
		}()
	}
	wg.Wait()
}

func sendMessage(ctx context.Context, socket *websocket.Conn, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return writeWithTimeout(ctx, socket, data)
}

func writeWithTimeout(ctx context.Context, socket *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, lobbyWriteTimeout)
	defer cancel()
	return socket.Write(ctx, websocket.MessageText, data)
}
