package server

import "encoding/json"

// Lobby socket message types.
const (
	msgPing        = "ping"
	msgPong        = "pong"
	msgSetReady    = "set_ready"
	msgLeaveRoom   = "leave_room"
	msgRoomUpdate  = "room_update"
	msgRoomDeleted = "room_deleted"
	msgError       = "error"
)

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
