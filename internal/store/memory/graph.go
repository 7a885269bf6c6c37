// Package memory holds in-process implementations of the board and room
// stores. They back the test suites and STORE_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"boardgame-server/internal/board"
)

type GraphStore struct {
	mu sync.RWMutex

	boards    map[string]board.Board
	nodes     map[string]map[string]board.Node
	nodeOrder map[string][]string
	edges     map[string][]board.Edge
	seq       int64
}

func NewGraphStore() *GraphStore {
	return &GraphStore{
		boards:    make(map[string]board.Board),
		nodes:     make(map[string]map[string]board.Node),
		nodeOrder: make(map[string][]string),
		edges:     make(map[string][]board.Edge),
	}
}

func (s *GraphStore) GetBoard(_ context.Context, boardID string) (*board.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[boardID]
	if !ok {
		return nil, board.ErrBoardNotFound
	}
	return &b, nil
}

func (s *GraphStore) GetNode(_ context.Context, boardID, nodeID string) (*board.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[boardID][nodeID]
	if !ok {
		return nil, board.ErrNodeNotFound
	}
	return &n, nil
}

func (s *GraphStore) ListNodes(_ context.Context, boardID string) ([]board.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]board.Node, 0, len(s.nodeOrder[boardID]))
	for _, id := range s.nodeOrder[boardID] {
		out = append(out, s.nodes[boardID][id])
	}
	return out, nil
}

func (s *GraphStore) GetEdges(_ context.Context, boardID string) ([]board.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]board.Edge, len(s.edges[boardID]))
	copy(out, s.edges[boardID])
	return out, nil
}

func (s *GraphStore) ListBoards(_ context.Context) ([]board.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]board.Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *GraphStore) SaveBoard(_ context.Context, b board.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.boards[b.ID] = b
	return nil
}

// DeleteBoard removes the board together with its nodes and edges.
func (s *GraphStore) DeleteBoard(_ context.Context, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[boardID]; !ok {
		return board.ErrBoardNotFound
	}
	delete(s.boards, boardID)
	delete(s.nodes, boardID)
	delete(s.nodeOrder, boardID)
	delete(s.edges, boardID)
	return nil
}

func (s *GraphStore) SaveNodes(_ context.Context, boardID string, nodes []board.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[boardID]; !ok {
		return board.ErrBoardNotFound
	}
	if s.nodes[boardID] == nil {
		s.nodes[boardID] = make(map[string]board.Node)
	}
	for _, n := range nodes {
		n.BoardID = boardID
		if _, exists := s.nodes[boardID][n.NodeID]; !exists {
			s.nodeOrder[boardID] = append(s.nodeOrder[boardID], n.NodeID)
		}
		s.nodes[boardID][n.NodeID] = n
	}
	return nil
}

func (s *GraphStore) DeleteNode(_ context.Context, boardID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[boardID][nodeID]; !ok {
		return board.ErrNodeNotFound
	}
	delete(s.nodes[boardID], nodeID)

	order := s.nodeOrder[boardID]
	for i, id := range order {
		if id == nodeID {
			s.nodeOrder[boardID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// SaveEdges appends edges in the given order, assigning each a Seq.
func (s *GraphStore) SaveEdges(_ context.Context, boardID string, edges []board.Edge) ([]board.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[boardID]; !ok {
		return nil, board.ErrBoardNotFound
	}

	saved := make([]board.Edge, 0, len(edges))
	for _, e := range edges {
		s.seq++
		e.BoardID = boardID
		e.Seq = s.seq
		s.edges[boardID] = append(s.edges[boardID], e)
		saved = append(saved, e)
	}
	return saved, nil
}

func (s *GraphStore) DeleteEdge(_ context.Context, boardID, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edges := s.edges[boardID]
	for i, e := range edges {
		if e.ID == edgeID {
			s.edges[boardID] = append(edges[:i], edges[i+1:]...)
			return nil
		}
	}
	return board.ErrEdgeNotFound
}

func (s *GraphStore) Health(_ context.Context) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]string{
		"status":  "up",
		"backend": "memory",
		"boards":  strconv.Itoa(len(s.boards)),
	}
}
