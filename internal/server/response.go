package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"boardgame-server/internal/board"
	"boardgame-server/internal/room"
)

const maxBodyBytes = 1 << 20

var errorStatuses = []struct {
	err    error
	status int
}{
	{board.ErrInvalidArgument, http.StatusBadRequest},
	{room.ErrInvalidArgument, http.StatusBadRequest},

	{board.ErrBoardNotFound, http.StatusNotFound},
	{board.ErrNodeNotFound, http.StatusNotFound},
	{board.ErrEdgeNotFound, http.StatusNotFound},
	{room.ErrRoomNotFound, http.StatusNotFound},
	{room.ErrPlayerNotFound, http.StatusNotFound},

	{board.ErrNodeExists, http.StatusConflict},
	{room.ErrRoomNotJoinable, http.StatusConflict},
	{room.ErrRoomFull, http.StatusConflict},
	{room.ErrPlayerAlreadyJoined, http.StatusConflict},
	{room.ErrInvalidTransition, http.StatusConflict},
	{room.ErrCodeGenerationExhausted, http.StatusConflict},
	{room.ErrConcurrentUpdate, http.StatusConflict},
	{room.ErrCodeTaken, http.StatusConflict},
	{room.ErrVersionConflict, http.StatusConflict},

	{board.ErrNoOutgoingEdge, http.StatusUnprocessableEntity},
}

// classify maps an error to its HTTP status and error code. Unknown errors
// are storage or programming faults and become an opaque 500.
func classify(err error) (int, string, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, errorCode(e.err), err.Error()
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
}

// errorCode returns the CODE part of a "CODE: message" sentinel.
func errorCode(err error) string {
	code, _, _ := strings.Cut(err.Error(), ":")
	return code
}

func writeJSON(w http.ResponseWriter, status int, data any, msg string) {
	write(w, status, JSONResponse{Error: false, Data: data, Message: msg})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	write(w, status, JSONResponse{Error: true, Message: msg, Code: code})
}

func write(w http.ResponseWriter, status int, resp JSONResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// decodeJSON reads a JSON request body into dst. Malformed bodies are
// reported as invalid arguments.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", board.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", board.ErrInvalidArgument, err)
	}
	return nil
}

// decodeBatch accepts a bare array, a single object, or an object with the
// batch under key.
func decodeBatch[T any](w http.ResponseWriter, r *http.Request, key string) ([]T, error) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON array: %v", board.ErrInvalidArgument, err)
		}
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: expected an object or array: %v", board.ErrInvalidArgument, err)
	}
	if batch, ok := wrapped[key]; ok {
		var items []T
		if err := json.Unmarshal(batch, &items); err != nil {
			return nil, fmt.Errorf("%w: invalid %s: %v", board.ErrInvalidArgument, key, err)
		}
		return items, nil
	}

	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body: %v", board.ErrInvalidArgument, err)
	}
	return []T{item}, nil
}
