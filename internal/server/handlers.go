package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"boardgame-server/internal/board"
)

// ============================================================================
// GAME
// ============================================================================

func (s *Server) moveHandler(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.boards.CalculateMove(r.Context(), req.toMove())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result, "Move calculated")
}

func (s *Server) mapInfoHandler(w http.ResponseWriter, r *http.Request) {
	info, err := s.boards.MapInfo(r.Context(), chi.URLParam(r, "boardID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info, "Map info retrieved")
}

// ============================================================================
// BOARDS
// ============================================================================

func (s *Server) listBoardsHandler(w http.ResponseWriter, r *http.Request) {
	boards, err := s.boards.ListBoards(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boards, "Boards retrieved")
}

func (s *Server) createBoardHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateBoardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.boards.CreateBoard(r.Context(), board.BoardInput{
		Name:       req.Name,
		StartNode:  req.StartNode,
		MaxPlayers: req.MaxPlayers,
		Version:    req.Version,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b, "Board created")
}

func (s *Server) getBoardHandler(w http.ResponseWriter, r *http.Request) {
	b, err := s.boards.GetBoard(r.Context(), chi.URLParam(r, "boardID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b, "Board retrieved")
}

func (s *Server) updateBoardHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateBoardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.boards.UpdateBoard(r.Context(), chi.URLParam(r, "boardID"), board.BoardPatch{
		Name:       req.Name,
		StartNode:  req.StartNode,
		MaxPlayers: req.MaxPlayers,
		Version:    req.Version,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b, "Board updated")
}

func (s *Server) deleteBoardHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.boards.DeleteBoard(r.Context(), chi.URLParam(r, "boardID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "Board deleted")
}

func (s *Server) listNodesHandler(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.boards.ListNodes(r.Context(), chi.URLParam(r, "boardID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes, "Nodes retrieved")
}

func (s *Server) createNodesHandler(w http.ResponseWriter, r *http.Request) {
	nodes, err := decodeBatch[board.Node](w, r, "nodes")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.boards.CreateNodes(r.Context(), chi.URLParam(r, "boardID"), nodes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created, "Nodes created")
}

func (s *Server) getNodeHandler(w http.ResponseWriter, r *http.Request) {
	node, err := s.boards.GetNode(r.Context(), chi.URLParam(r, "boardID"), chi.URLParam(r, "nodeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, node, "Node retrieved")
}

func (s *Server) deleteNodeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.boards.DeleteNode(r.Context(), chi.URLParam(r, "boardID"), chi.URLParam(r, "nodeID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "Node deleted")
}

func (s *Server) listEdgesHandler(w http.ResponseWriter, r *http.Request) {
	edges, err := s.boards.ListEdges(r.Context(), chi.URLParam(r, "boardID"), r.URL.Query().Get("from"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, edges, "Edges retrieved")
}

func (s *Server) createEdgesHandler(w http.ResponseWriter, r *http.Request) {
	edges, err := decodeBatch[board.Edge](w, r, "edges")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.boards.CreateEdges(r.Context(), chi.URLParam(r, "boardID"), edges)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created, "Edges created")
}

func (s *Server) deleteEdgeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.boards.DeleteEdge(r.Context(), chi.URLParam(r, "boardID"), chi.URLParam(r, "edgeID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "Edge deleted")
}

// ============================================================================
// ROOMS
// ============================================================================

func (s *Server) createRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.rooms.Create(r.Context(), req.GameName, req.MaxPlayers, req.BoardID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created, "Room created")
}

func (s *Server) getRoomHandler(w http.ResponseWriter, r *http.Request) {
	found, err := s.rooms.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found, "Room retrieved")
}

func (s *Server) joinRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	joined, err := s.rooms.Join(r.Context(), chi.URLParam(r, "code"), req.PlayerID, req.PlayerName, req.UserName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joined, "Joined room")
}

func (s *Server) leaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req LeaveRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	left, err := s.rooms.Leave(r.Context(), chi.URLParam(r, "code"), req.PlayerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, left, "Left room")
}

func (s *Server) setReadyHandler(w http.ResponseWriter, r *http.Request) {
	var req SetReadyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.rooms.SetReady(r.Context(), chi.URLParam(r, "code"), req.PlayerID, req.IsReady)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lobbyState(updated), "Ready state updated")
}

func (s *Server) setStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.rooms.SetStatus(r.Context(), chi.URLParam(r, "code"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated, "Room status updated")
}
