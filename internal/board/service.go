package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	minBoardPlayers = 2
	maxBoardPlayers = 8
)

// Reader is the read side of the graph store used by move resolution.
type Reader interface {
	GetBoard(ctx context.Context, boardID string) (*Board, error)
	GetNode(ctx context.Context, boardID, nodeID string) (*Node, error)
	ListNodes(ctx context.Context, boardID string) ([]Node, error)
	GetEdges(ctx context.Context, boardID string) ([]Edge, error)
}

// Writer is the authoring side of the graph store.
type Writer interface {
	ListBoards(ctx context.Context) ([]Board, error)
	SaveBoard(ctx context.Context, b Board) error
	DeleteBoard(ctx context.Context, boardID string) error
	SaveNodes(ctx context.Context, boardID string, nodes []Node) error
	DeleteNode(ctx context.Context, boardID, nodeID string) error
	SaveEdges(ctx context.Context, boardID string, edges []Edge) ([]Edge, error)
	DeleteEdge(ctx context.Context, boardID, edgeID string) error
}

type Store interface {
	Reader
	Writer
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MoveRequest describes one dice roll. AlternateRoute is set once the railway
// challenge was passed this turn.
type MoveRequest struct {
	BoardID         string
	PlayerID        string
	CurrentPosition string
	DiceValue       int
	AlternateRoute  bool
}

// CalculateMove resolves a dice roll on a board. Missing board or node data
// is reported, never guessed around.
func (s *Service) CalculateMove(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	if req.BoardID == "" || req.PlayerID == "" || req.CurrentPosition == "" {
		return nil, invalidArgument("boardId, playerId and currentPosition are required")
	}
	if req.DiceValue < 1 || req.DiceValue > MaxSteps {
		return nil, invalidArgument("diceValue must be between 1 and %d", MaxSteps)
	}

	b, err := s.store.GetBoard(ctx, req.BoardID)
	if err != nil {
		return nil, err
	}

	edges, err := s.store.GetEdges(ctx, req.BoardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges for board %s: %w", req.BoardID, err)
	}

	route, err := ResolveMove(edges, req.CurrentPosition, req.DiceValue)
	if err != nil {
		s.logger.Warn("move resolution failed",
			"board_id", req.BoardID,
			"player_id", req.PlayerID,
			"position", req.CurrentPosition,
			"dice", req.DiceValue,
			"edges", len(edges),
			"error", err)
		return nil, err
	}

	node, err := s.store.GetNode(ctx, req.BoardID, route.EndNode)
	if err != nil {
		return nil, err
	}

	passed := PassedStart(route.Path, b.StartNode)
	result := &MoveResult{
		NewPosition:    route.EndNode,
		Path:           route.Path,
		PositionInfo:   node,
		PassedStart:    passed,
		RoundCompleted: passed,
		CanUseShortcut: CanUseShortcut(edges, route.EndNode),
	}

	if req.AlternateRoute {
		if alt, ok := ResolveAlternateMove(edges, req.CurrentPosition, req.DiceValue); ok {
			result.AlternativePath = alt
		}
	}

	s.logger.Debug("move resolved",
		"board_id", req.BoardID,
		"player_id", req.PlayerID,
		"path", route.Path,
		"passed_start", passed,
		"alternate", result.AlternativePath != nil)

	return result, nil
}

// MapInfo returns a board with its full topology.
func (s *Service) MapInfo(ctx context.Context, boardID string) (*MapInfo, error) {
	if boardID == "" {
		return nil, invalidArgument("boardId is required")
	}

	b, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.store.ListNodes(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes for board %s: %w", boardID, err)
	}
	edges, err := s.store.GetEdges(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges for board %s: %w", boardID, err)
	}

	return &MapInfo{Board: *b, Nodes: nodes, Edges: edges}, nil
}

// ============================================================================
// BOARDS
// ============================================================================

type BoardInput struct {
	Name       string
	StartNode  string
	MaxPlayers int
	Version    int
}

// BoardPatch holds the fields of an update; nil means unchanged.
type BoardPatch struct {
	Name       *string
	StartNode  *string
	MaxPlayers *int
	Version    *int
}

func (s *Service) ListBoards(ctx context.Context) ([]Board, error) {
	return s.store.ListBoards(ctx)
}

func (s *Service) GetBoard(ctx context.Context, boardID string) (*Board, error) {
	if boardID == "" {
		return nil, invalidArgument("boardId is required")
	}
	return s.store.GetBoard(ctx, boardID)
}

func (s *Service) CreateBoard(ctx context.Context, in BoardInput) (*Board, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.StartNode = strings.TrimSpace(in.StartNode)
	if in.Name == "" || in.StartNode == "" {
		return nil, invalidArgument("name and startNode are required")
	}
	if err := validateMaxPlayers(in.MaxPlayers); err != nil {
		return nil, err
	}
	if in.Version == 0 {
		in.Version = 1
	}
	if in.Version < 1 {
		return nil, invalidArgument("version must be positive")
	}

	now := s.now()
	b := Board{
		ID:         s.newID(),
		Name:       in.Name,
		StartNode:  in.StartNode,
		MaxPlayers: in.MaxPlayers,
		Version:    in.Version,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save board: %w", err)
	}

	s.logger.Info("board created", "board_id", b.ID, "name", b.Name)
	return &b, nil
}

func (s *Service) UpdateBoard(ctx context.Context, boardID string, patch BoardPatch) (*Board, error) {
	if boardID == "" {
		return nil, invalidArgument("boardId is required")
	}
	if patch.Name == nil && patch.StartNode == nil && patch.MaxPlayers == nil && patch.Version == nil {
		return nil, invalidArgument("no fields to update")
	}

	b, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalidArgument("name cannot be empty")
		}
		b.Name = name
	}
	if patch.StartNode != nil {
		start := strings.TrimSpace(*patch.StartNode)
		if start == "" {
			return nil, invalidArgument("startNode cannot be empty")
		}
		b.StartNode = start
	}
	if patch.MaxPlayers != nil {
		if err := validateMaxPlayers(*patch.MaxPlayers); err != nil {
			return nil, err
		}
		b.MaxPlayers = *patch.MaxPlayers
	}
	if patch.Version != nil {
		if *patch.Version < 1 {
			return nil, invalidArgument("version must be positive")
		}
		b.Version = *patch.Version
	}
	b.UpdatedAt = s.now()

	if err := s.store.SaveBoard(ctx, *b); err != nil {
		return nil, fmt.Errorf("failed to save board %s: %w", boardID, err)
	}
	return b, nil
}

func (s *Service) DeleteBoard(ctx context.Context, boardID string) error {
	if boardID == "" {
		return invalidArgument("boardId is required")
	}
	if err := s.store.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	s.logger.Info("board deleted", "board_id", boardID)
	return nil
}

func validateMaxPlayers(n int) error {
	if n < minBoardPlayers || n > maxBoardPlayers {
		return invalidArgument("maxPlayers must be between %d and %d", minBoardPlayers, maxBoardPlayers)
	}
	return nil
}

// ============================================================================
// NODES
// ============================================================================

func (s *Service) ListNodes(ctx context.Context, boardID string) ([]Node, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	return s.store.ListNodes(ctx, boardID)
}

func (s *Service) GetNode(ctx context.Context, boardID, nodeID string) (*Node, error) {
	if boardID == "" || nodeID == "" {
		return nil, invalidArgument("boardId and nodeId are required")
	}
	return s.store.GetNode(ctx, boardID, nodeID)
}

// CreateNodes adds a batch of nodes to a board. The whole batch is rejected
// if any node is invalid or already present.
func (s *Service) CreateNodes(ctx context.Context, boardID string, nodes []Node) ([]Node, error) {
	if len(nodes) == 0 {
		return nil, invalidArgument("no nodes to create")
	}
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(nodes))
	out := make([]Node, 0, len(nodes))
	for i, n := range nodes {
		n.BoardID = boardID
		n.NodeID = strings.TrimSpace(n.NodeID)
		n.Name = strings.TrimSpace(n.Name)
		if n.NodeID == "" || n.Name == "" {
			return nil, invalidArgument("node %d: nodeId and name are required", i)
		}
		if !n.Type.Valid() {
			return nil, invalidArgument("node %s: unknown type %q", n.NodeID, n.Type)
		}
		if seen[n.NodeID] {
			return nil, invalidArgument("node %s appears more than once", n.NodeID)
		}
		seen[n.NodeID] = true

		_, err := s.store.GetNode(ctx, boardID, n.NodeID)
		switch {
		case err == nil:
			return nil, fmt.Errorf("node %s: %w", n.NodeID, ErrNodeExists)
		case !errors.Is(err, ErrNodeNotFound):
			return nil, err
		}
		out = append(out, n)
	}

	if err := s.store.SaveNodes(ctx, boardID, out); err != nil {
		return nil, fmt.Errorf("failed to save nodes: %w", err)
	}
	return out, nil
}

func (s *Service) DeleteNode(ctx context.Context, boardID, nodeID string) error {
	if boardID == "" || nodeID == "" {
		return invalidArgument("boardId and nodeId are required")
	}
	return s.store.DeleteNode(ctx, boardID, nodeID)
}

// ============================================================================
// EDGES
// ============================================================================

// ListEdges returns the board's edges in stored order, optionally only those
// leaving from.
func (s *Service) ListEdges(ctx context.Context, boardID, from string) ([]Edge, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	edges, err := s.store.GetEdges(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if from == "" {
		return edges, nil
	}

	filtered := make([]Edge, 0)
	for _, e := range edges {
		if e.From == from {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (s *Service) CreateEdges(ctx context.Context, boardID string, edges []Edge) ([]Edge, error) {
	if len(edges) == 0 {
		return nil, invalidArgument("no edges to create")
	}
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}

	prepared := make([]Edge, 0, len(edges))
	for i, e := range edges {
		e.From = strings.TrimSpace(e.From)
		e.To = strings.TrimSpace(e.To)
		if e.From == "" || e.To == "" {
			return nil, invalidArgument("edge %d: from and to are required", i)
		}
		if e.Type == "" {
			e.Type = EdgeNormal
		}
		if !e.Type.Valid() {
			return nil, invalidArgument("edge %d: unknown type %q", i, e.Type)
		}
		e.ID = s.newID()
		e.BoardID = boardID
		e.Seq = 0
		prepared = append(prepared, e)
	}

	saved, err := s.store.SaveEdges(ctx, boardID, prepared)
	if err != nil {
		return nil, fmt.Errorf("failed to save edges: %w", err)
	}
	return saved, nil
}

func (s *Service) DeleteEdge(ctx context.Context, boardID, edgeID string) error {
	if boardID == "" || edgeID == "" {
		return invalidArgument("boardId and edgeId are required")
	}
	return s.store.DeleteEdge(ctx, boardID, edgeID)
}
