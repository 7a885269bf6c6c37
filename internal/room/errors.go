package room

import "errors"

var (
	ErrInvalidArgument         = errors.New("INVALID_ARGUMENT")
	ErrRoomNotFound            = errors.New("ROOM_NOT_FOUND: Room not found")
	ErrPlayerNotFound          = errors.New("PLAYER_NOT_FOUND: Player is not in this room")
	ErrRoomNotJoinable         = errors.New("ROOM_NOT_JOINABLE: Room has already started or ended")
	ErrRoomFull                = errors.New("ROOM_FULL: Room is full")
	ErrPlayerAlreadyJoined     = errors.New("PLAYER_ALREADY_JOINED: Player is already in this room")
	ErrInvalidTransition       = errors.New("INVALID_TRANSITION: Room status cannot change that way")
	ErrCodeGenerationExhausted = errors.New("CODE_GENERATION_EXHAUSTED: Could not generate a unique room code")
	ErrConcurrentUpdate        = errors.New("CONCURRENT_UPDATE: Room kept changing, try again")

	// Returned by stores.
	ErrCodeTaken       = errors.New("CODE_TAKEN: Room code already in use")
	ErrVersionConflict = errors.New("VERSION_CONFLICT: Room was modified concurrently")
)
