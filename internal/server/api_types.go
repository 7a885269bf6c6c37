package server

import (
	"boardgame-server/internal/board"
	"boardgame-server/internal/room"
)

// ============================================================================
// RESPONSE ENVELOPE
// ============================================================================

// JSONResponse wraps every HTTP reply. Code carries the error class, e.g.
// ROOM_FULL, and is empty on success.
type JSONResponse struct {
	Error   bool   `json:"error"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// GAME
// ============================================================================

// MoveRequest is one dice roll. RailwayChallengePassed asks for the alternate
// railway route as well.
type MoveRequest struct {
	BoardID                string `json:"boardId"`
	PlayerID               string `json:"playerId"`
	CurrentPosition        string `json:"currentPosition"`
	DiceValue              int    `json:"diceValue"`
	RailwayChallengePassed bool   `json:"railwayChallengePassed"`
}

func (r MoveRequest) toMove() board.MoveRequest {
	return board.MoveRequest{
		BoardID:         r.BoardID,
		PlayerID:        r.PlayerID,
		CurrentPosition: r.CurrentPosition,
		DiceValue:       r.DiceValue,
		AlternateRoute:  r.RailwayChallengePassed,
	}
}

// ============================================================================
// BOARDS
// ============================================================================

type CreateBoardRequest struct {
	Name       string `json:"name"`
	StartNode  string `json:"startNode"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    int    `json:"version"`
}

type UpdateBoardRequest struct {
	Name       *string `json:"name"`
	StartNode  *string `json:"startNode"`
	MaxPlayers *int    `json:"maxPlayers"`
	Version    *int    `json:"version"`
}

// ============================================================================
// ROOMS
// ============================================================================

type CreateRoomRequest struct {
	GameName   string `json:"gameName"`
	MaxPlayers int    `json:"maxPlayers"`
	BoardID    string `json:"boardId"`
}

type JoinRoomRequest struct {
	PlayerID   int    `json:"playerId"`
	PlayerName string `json:"playerName"`
	UserName   string `json:"userName"`
}

type LeaveRoomRequest struct {
	PlayerID int `json:"playerId"`
}

type SetReadyRequest struct {
	PlayerID int  `json:"playerId"`
	IsReady  bool `json:"isReady"`
}

type SetStatusRequest struct {
	Status room.Status `json:"status"`
}

// LobbyState is the payload of room_update: the room plus whether the game
// can start.
type LobbyState struct {
	Room     *room.Room `json:"room"`
	AllReady bool       `json:"allReady"`
}

func lobbyState(r *room.Room) LobbyState {
	return LobbyState{Room: r, AllReady: r.AllReady()}
}
