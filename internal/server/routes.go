package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// The lobby socket is not rate limited.
		r.Get("/rooms/{code}/ws", s.lobbySocketHandler)

		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.Middleware)
			}

			r.Route("/game", func(r chi.Router) {
				r.Post("/move", s.moveHandler)
				r.Get("/map-info/{boardID}", s.mapInfoHandler)
			})

			r.Route("/boards", func(r chi.Router) {
				r.Get("/", s.listBoardsHandler)
				r.Post("/", s.createBoardHandler)

				r.Route("/{boardID}", func(r chi.Router) {
					r.Get("/", s.getBoardHandler)
					r.Patch("/", s.updateBoardHandler)
					r.Delete("/", s.deleteBoardHandler)

					r.Get("/nodes", s.listNodesHandler)
					r.Post("/nodes", s.createNodesHandler)
					r.Get("/nodes/{nodeID}", s.getNodeHandler)
					r.Delete("/nodes/{nodeID}", s.deleteNodeHandler)

					r.Get("/edges", s.listEdgesHandler)
					r.Post("/edges", s.createEdgesHandler)
					r.Delete("/edges/{edgeID}", s.deleteEdgeHandler)
				})
			})

			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", s.createRoomHandler)
				r.Get("/{code}", s.getRoomHandler)
				r.Post("/{code}/join", s.joinRoomHandler)
				r.Post("/{code}/leave", s.leaveRoomHandler)
				r.Put("/{code}/ready", s.setReadyHandler)
				r.Put("/{code}/status", s.setStatusHandler)
			})
		})
	})

	return r
}

// healthHandler reports every registered checker and answers 503 when any of
// them is down.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	report := make(map[string]map[string]string, len(s.health))
	for name, check := range s.health {
		res := check.Health(r.Context())
		if res["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		report[name] = res
	}

	msg := "healthy"
	if status != http.StatusOK {
		msg = "unhealthy"
	}
	write(w, status, JSONResponse{Error: status != http.StatusOK, Data: report, Message: msg})
}

// lobbySocketHandler streams lobby updates for one room. The room must exist
// before the upgrade.
func (s *Server) lobbySocketHandler(w http.ResponseWriter, r *http.Request) {
	current, err := s.rooms.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.socketOrigins,
	})
	if err != nil {
		s.logger.Warn("failed to open websocket", "code", current.Code, "error", err)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	s.hub.AddConnection(connectionID, current.Code, socket)
	s.logger.Info("lobby connection opened", "connection_id", connectionID, "code", current.Code)
	defer func() {
		s.hub.RemoveConnection(connectionID)
		s.logger.Info("lobby connection closed", "connection_id", connectionID, "code", current.Code)
	}()

	if err := sendMessage(ctx, socket, ServerMessage{Type: msgRoomUpdate, Payload: lobbyState(current)}); err != nil {
		s.logger.Debug("failed to send lobby snapshot", "connection_id", connectionID, "error", err)
		return
	}

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			s.logger.Debug("lobby read ended", "connection_id", connectionID, "error", err)
			return
		}
		s.hub.Touch(connectionID)

		if msgType != websocket.MessageText {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(ctx, socket, "INVALID_JSON", "Invalid JSON")
			continue
		}
		if err := ValidateMessageType(msg.Type); err != nil {
			s.sendError(ctx, socket, "INVALID_MESSAGE_TYPE", fmt.Sprintf("Unknown message type: %s", msg.Type))
			continue
		}

		switch msg.Type {
		case msgPing:
			s.handlePing(ctx, socket, connectionID)

		case msgSetReady:
			s.handleSocketReady(ctx, socket, current.Code, msg.Payload)

		case msgLeaveRoom:
			if s.handleSocketLeave(ctx, socket, current.Code, msg.Payload) {
				return
			}
		}
	}
}

func (s *Server) handlePing(ctx context.Context, socket *websocket.Conn, connectionID string) {
	if err := sendMessage(ctx, socket, ServerMessage{Type: msgPong, Payload: struct{}{}}); err != nil {
		s.logger.Debug("failed to send pong", "connection_id", connectionID, "error", err)
	}
}

// handleSocketReady toggles a player's ready flag. The resulting room_update
// reaches this socket through the hub like every other one.
func (s *Server) handleSocketReady(ctx context.Context, socket *websocket.Conn, code string, payload json.RawMessage) {
	var req SetReadyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(ctx, socket, "INVALID_PAYLOAD", "Invalid set_ready payload")
		return
	}
	if _, err := s.rooms.SetReady(ctx, code, req.PlayerID, req.IsReady); err != nil {
		s.sendRoomError(ctx, socket, err)
	}
}

// handleSocketLeave removes the player and reports whether the socket should
// close.
func (s *Server) handleSocketLeave(ctx context.Context, socket *websocket.Conn, code string, payload json.RawMessage) bool {
	var req LeaveRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(ctx, socket, "INVALID_PAYLOAD", "Invalid leave_room payload")
		return false
	}
	if _, err := s.rooms.Leave(ctx, code, req.PlayerID); err != nil {
		s.sendRoomError(ctx, socket, err)
		return false
	}
	socket.Close(websocket.StatusNormalClosure, "Left room")
	return true
}

func (s *Server) sendRoomError(ctx context.Context, socket *websocket.Conn, err error) {
	status, code, msg := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("lobby operation failed", "error", err)
	}
	s.sendError(ctx, socket, code, msg)
}

func (s *Server) sendError(ctx context.Context, socket *websocket.Conn, code, message string) {
	msg := ServerMessage{Type: msgError, Payload: ErrorMessage{Message: message, Code: code}}
	if err := sendMessage(ctx, socket, msg); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("failed to send error message", "error", err)
	}
}
