package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"boardgame-server/internal/board"
)

// nodeDetails is the JSONB payload of map_nodes.details.
type nodeDetails struct {
	Challenge *board.Challenge `json:"challenge,omitempty"`
	Chance    *board.Chance    `json:"chance,omitempty"`
	Shortcut  *board.Shortcut  `json:"shortcut,omitempty"`
	Property  *board.Property  `json:"property,omitempty"`
}

// GraphStore implements board.Store over the boards, map_nodes and map_edges
// tables.
type GraphStore struct {
	db *DB
}

func NewGraphStore(db *DB) *GraphStore {
	return &GraphStore{db: db}
}

// ============================================================================
// BOARDS
// ============================================================================

const boardColumns = `id, name, start_node, max_players, version, created_at, updated_at`

func (s *GraphStore) GetBoard(ctx context.Context, boardID string) (*board.Board, error) {
	var b board.Board
	err := s.db.pool.QueryRow(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = $1`, boardID).
		Scan(&b.ID, &b.Name, &b.StartNode, &b.MaxPlayers, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, board.ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load board %s: %w", boardID, err)
	}
	return &b, nil
}

func (s *GraphStore) ListBoards(ctx context.Context) ([]board.Board, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT `+boardColumns+` FROM boards ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query boards: %w", err)
	}
	defer rows.Close()

	boards := make([]board.Board, 0)
	for rows.Next() {
		var b board.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.StartNode, &b.MaxPlayers, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan board row: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating board rows: %w", err)
	}
	return boards, nil
}

// SaveBoard inserts or replaces a board row.
func (s *GraphStore) SaveBoard(ctx context.Context, b board.Board) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO boards (id, name, start_node, max_players, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			start_node = EXCLUDED.start_node,
			max_players = EXCLUDED.max_players,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`,
		b.ID, b.Name, b.StartNode, b.MaxPlayers, b.Version, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save board %s: %w", b.ID, err)
	}
	return nil
}

func (s *GraphStore) DeleteBoard(ctx context.Context, boardID string) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, boardID)
	if err != nil {
		return fmt.Errorf("failed to delete board %s: %w", boardID, err)
	}
	if tag.RowsAffected() == 0 {
		return board.ErrBoardNotFound
	}
	return nil
}

// ============================================================================
// NODES
// ============================================================================

const nodeColumns = `board_id, node_id, name, type, description, details`

func (s *GraphStore) GetNode(ctx context.Context, boardID, nodeID string) (*board.Node, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM map_nodes WHERE board_id = $1 AND node_id = $2`,
		boardID, nodeID)
	n, err := scanNode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, board.ErrNodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s/%s: %w", boardID, nodeID, err)
	}
	return n, nil
}

func (s *GraphStore) ListNodes(ctx context.Context, boardID string) ([]board.Node, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+nodeColumns+` FROM map_nodes WHERE board_id = $1 ORDER BY seq`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes of board %s: %w", boardID, err)
	}
	defer rows.Close()

	nodes := make([]board.Node, 0)
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node rows: %w", err)
	}
	return nodes, nil
}

// SaveNodes upserts nodes in one transaction.
func (s *GraphStore) SaveNodes(ctx context.Context, boardID string, nodes []board.Node) error {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, n := range nodes {
		details, err := json.Marshal(nodeDetails{
			Challenge: n.Challenge,
			Chance:    n.Chance,
			Shortcut:  n.Shortcut,
			Property:  n.Property,
		})
		if err != nil {
			return fmt.Errorf("failed to serialize node %s: %w", n.NodeID, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO map_nodes (board_id, node_id, name, type, description, details)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (board_id, node_id) DO UPDATE SET
				name = EXCLUDED.name,
				type = EXCLUDED.type,
				description = EXCLUDED.description,
				details = EXCLUDED.details`,
			boardID, n.NodeID, n.Name, string(n.Type), n.Description, string(details))
		if pgErrorCode(err) == codeForeignKeyViolation {
			return board.ErrBoardNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to save node %s: %w", n.NodeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit nodes: %w", err)
	}
	return nil
}

func (s *GraphStore) DeleteNode(ctx context.Context, boardID, nodeID string) error {
	tag, err := s.db.pool.Exec(ctx,
		`DELETE FROM map_nodes WHERE board_id = $1 AND node_id = $2`, boardID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete node %s/%s: %w", boardID, nodeID, err)
	}
	if tag.RowsAffected() == 0 {
		return board.ErrNodeNotFound
	}
	return nil
}

func scanNode(row pgx.Row) (*board.Node, error) {
	var (
		n       board.Node
		typ     string
		details []byte
		d       nodeDetails
	)
	if err := row.Scan(&n.BoardID, &n.NodeID, &n.Name, &typ, &n.Description, &details); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &d); err != nil {
			return nil, fmt.Errorf("failed to deserialize node %s: %w", n.NodeID, err)
		}
	}
	n.Type = board.NodeType(typ)
	n.Challenge = d.Challenge
	n.Chance = d.Chance
	n.Shortcut = d.Shortcut
	n.Property = d.Property
	return &n, nil
}

// ============================================================================
// EDGES
// ============================================================================

// GetEdges returns all edges of a board in insertion order.
func (s *GraphStore) GetEdges(ctx context.Context, boardID string) ([]board.Edge, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT id, board_id, from_node, to_node, type, condition, seq
		FROM map_edges
		WHERE board_id = $1
		ORDER BY seq`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges of board %s: %w", boardID, err)
	}
	defer rows.Close()

	edges := make([]board.Edge, 0)
	for rows.Next() {
		var (
			e         board.Edge
			typ       string
			condition []byte
		)
		if err := rows.Scan(&e.ID, &e.BoardID, &e.From, &e.To, &typ, &condition, &e.Seq); err != nil {
			return nil, fmt.Errorf("failed to scan edge row: %w", err)
		}
		e.Type = board.EdgeType(typ)
		if len(condition) > 0 {
			e.Condition = &board.Condition{}
			if err := json.Unmarshal(condition, e.Condition); err != nil {
				return nil, fmt.Errorf("failed to deserialize condition of edge %s: %w", e.ID, err)
			}
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edge rows: %w", err)
	}
	return edges, nil
}

// SaveEdges inserts edges in order and returns them with their assigned seq.
func (s *GraphStore) SaveEdges(ctx context.Context, boardID string, edges []board.Edge) ([]board.Edge, error) {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	saved := make([]board.Edge, 0, len(edges))
	for _, e := range edges {
		var condition any
		if e.Condition != nil {
			raw, err := json.Marshal(e.Condition)
			if err != nil {
				return nil, fmt.Errorf("failed to serialize condition of edge %s: %w", e.ID, err)
			}
			condition = string(raw)
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO map_edges (id, board_id, from_node, to_node, type, condition)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING seq`,
			e.ID, boardID, e.From, e.To, string(e.Type), condition).Scan(&e.Seq)
		if pgErrorCode(err) == codeForeignKeyViolation {
			return nil, board.ErrBoardNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save edge %s -> %s: %w", e.From, e.To, err)
		}
		e.BoardID = boardID
		saved = append(saved, e)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit edges: %w", err)
	}
	return saved, nil
}

func (s *GraphStore) DeleteEdge(ctx context.Context, boardID, edgeID string) error {
	tag, err := s.db.pool.Exec(ctx,
		`DELETE FROM map_edges WHERE board_id = $1 AND id = $2`, boardID, edgeID)
	if err != nil {
		return fmt.Errorf("failed to delete edge %s: %w", edgeID, err)
	}
	if tag.RowsAffected() == 0 {
		return board.ErrEdgeNotFound
	}
	return nil
}

func (s *GraphStore) Health(ctx context.Context) map[string]string {
	return s.db.Health(ctx)
}
