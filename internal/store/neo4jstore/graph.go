package neo4jstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"boardgame-server/internal/board"
)

const (
	labelBoard = "Board"
	labelNode  = "MapNode"
)

type nodeDetails struct {
	Challenge *board.Challenge `json:"challenge,omitempty"`
	Chance    *board.Chance    `json:"chance,omitempty"`
	Shortcut  *board.Shortcut  `json:"shortcut,omitempty"`
	Property  *board.Property  `json:"property,omitempty"`
}

// GraphStore implements board.Store on Neo4j. Unlike the SQL store, an edge
// can only be created between nodes that already exist, and deleting a node
// removes its edges.
type GraphStore struct {
	runner Runner
}

func NewGraphStore(runner Runner) *GraphStore {
	return &GraphStore{runner: runner}
}

// ============================================================================
// BOARDS
// ============================================================================

func (s *GraphStore) GetBoard(ctx context.Context, boardID string) (*board.Board, error) {
	return getBoard(ctx, s.runner, boardID)
}

func getBoard(ctx context.Context, r Runner, boardID string) (*board.Board, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("b", labelBoard).WithProperties(map[string]interface{}{"id": boardID})).
		Return("b").
		Build()
	if err != nil {
		return nil, err
	}

	res, err := r.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load board %s: %w", boardID, err)
	}
	if len(res.Records) == 0 {
		return nil, board.ErrBoardNotFound
	}

	n, err := recordNode(res.Records[0], "b")
	if err != nil {
		return nil, err
	}
	b := boardFromProps(n.Props)
	return &b, nil
}

func (s *GraphStore) ListBoards(ctx context.Context) ([]board.Board, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("b", labelBoard)).
		Return("b").
		Build()
	if err != nil {
		return nil, err
	}

	res, err := s.runner.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query boards: %w", err)
	}

	boards := make([]board.Board, 0, len(res.Records))
	for _, rec := range res.Records {
		n, err := recordNode(rec, "b")
		if err != nil {
			return nil, err
		}
		boards = append(boards, boardFromProps(n.Props))
	}
	sort.Slice(boards, func(i, j int) bool {
		if boards[i].CreatedAt.Equal(boards[j].CreatedAt) {
			return boards[i].ID < boards[j].ID
		}
		return boards[i].CreatedAt.Before(boards[j].CreatedAt)
	})
	return boards, nil
}

func (s *GraphStore) SaveBoard(ctx context.Context, b board.Board) error {
	query, params, err := gocypher.NewQueryBuilder().
		Merge(gocypher.N("b", labelBoard).WithProperties(map[string]interface{}{"id": b.ID})).
		Set(map[string]interface{}{
			"b.name":        b.Name,
			"b.start_node":  b.StartNode,
			"b.max_players": int64(b.MaxPlayers),
			"b.version":     int64(b.Version),
			"b.created_at":  b.CreatedAt,
			"b.updated_at":  b.UpdatedAt,
		}).
		Return("b").
		Build()
	if err != nil {
		return err
	}

	if _, err := s.runner.Run(ctx, query, params); err != nil {
		return fmt.Errorf("failed to save board %s: %w", b.ID, err)
	}
	return nil
}

const deleteBoardQuery = `
MATCH (b:Board {id: $board_id})
OPTIONAL MATCH (n:MapNode {board_id: $board_id})
WITH b, collect(n) AS nodes
FOREACH (x IN nodes | DETACH DELETE x)
DETACH DELETE b
RETURN 1 AS deleted`

// DeleteBoard removes the board, its nodes and every edge between them.
func (s *GraphStore) DeleteBoard(ctx context.Context, boardID string) error {
	res, err := s.runner.Run(ctx, deleteBoardQuery, map[string]any{"board_id": boardID})
	if err != nil {
		return fmt.Errorf("failed to delete board %s: %w", boardID, err)
	}
	if len(res.Records) == 0 {
		return board.ErrBoardNotFound
	}
	return nil
}

func boardFromProps(p map[string]any) board.Board {
	return board.Board{
		ID:         propString(p, "id"),
		Name:       propString(p, "name"),
		StartNode:  propString(p, "start_node"),
		MaxPlayers: int(propInt(p, "max_players")),
		Version:    int(propInt(p, "version")),
		CreatedAt:  propTime(p, "created_at"),
		UpdatedAt:  propTime(p, "updated_at"),
	}
}

// ============================================================================
// NODES
// ============================================================================

func (s *GraphStore) GetNode(ctx context.Context, boardID, nodeID string) (*board.Node, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", labelNode).WithProperties(map[string]interface{}{
			"board_id": boardID,
			"node_id":  nodeID,
		})).
		Return("n").
		Build()
	if err != nil {
		return nil, err
	}

	res, err := s.runner.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s/%s: %w", boardID, nodeID, err)
	}
	if len(res.Records) == 0 {
		return nil, board.ErrNodeNotFound
	}

	n, err := recordNode(res.Records[0], "n")
	if err != nil {
		return nil, err
	}
	node, _, err := nodeFromProps(n.Props)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *GraphStore) ListNodes(ctx context.Context, boardID string) ([]board.Node, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", labelNode).WithProperties(map[string]interface{}{"board_id": boardID})).
		Return("n").
		Build()
	if err != nil {
		return nil, err
	}

	res, err := s.runner.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes of board %s: %w", boardID, err)
	}

	type seqNode struct {
		node board.Node
		seq  int64
	}
	collected := make([]seqNode, 0, len(res.Records))
	for _, rec := range res.Records {
		n, err := recordNode(rec, "n")
		if err != nil {
			return nil, err
		}
		node, seq, err := nodeFromProps(n.Props)
		if err != nil {
			return nil, err
		}
		collected = append(collected, seqNode{node: node, seq: seq})
	}
	sort.SliceStable(collected, func(i, j int) bool { return collected[i].seq < collected[j].seq })

	nodes := make([]board.Node, 0, len(collected))
	for _, c := range collected {
		nodes = append(nodes, c.node)
	}
	return nodes, nil
}

const saveNodeQuery = `
MATCH (b:Board {id: $board_id})
MERGE (n:MapNode {board_id: $board_id, node_id: $node_id})
ON CREATE SET n.seq = coalesce(b.node_seq, 0) + 1, b.node_seq = coalesce(b.node_seq, 0) + 1
SET n.name = $name, n.type = $type, n.description = $description, n.details = $details
RETURN n.node_id AS node_id`

// SaveNodes upserts the batch in one transaction.
func (s *GraphStore) SaveNodes(ctx context.Context, boardID string, nodes []board.Node) error {
	return s.runner.InTx(ctx, func(tx Runner) error {
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

			res, err := tx.Run(ctx, saveNodeQuery, map[string]any{
				"board_id":    boardID,
				"node_id":     n.NodeID,
				"name":        n.Name,
				"type":        string(n.Type),
				"description": n.Description,
				"details":     string(details),
			})
			if err != nil {
				return fmt.Errorf("failed to save node %s: %w", n.NodeID, err)
			}
			if len(res.Records) == 0 {
				return board.ErrBoardNotFound
			}
		}
		return nil
	})
}

const deleteNodeQuery = `
MATCH (n:MapNode {board_id: $board_id, node_id: $node_id})
DETACH DELETE n
RETURN 1 AS deleted`

func (s *GraphStore) DeleteNode(ctx context.Context, boardID, nodeID string) error {
	res, err := s.runner.Run(ctx, deleteNodeQuery, map[string]any{"board_id": boardID, "node_id": nodeID})
	if err != nil {
		return fmt.Errorf("failed to delete node %s/%s: %w", boardID, nodeID, err)
	}
	if len(res.Records) == 0 {
		return board.ErrNodeNotFound
	}
	return nil
}

func nodeFromProps(p map[string]any) (board.Node, int64, error) {
	n := board.Node{
		BoardID:     propString(p, "board_id"),
		NodeID:      propString(p, "node_id"),
		Name:        propString(p, "name"),
		Type:        board.NodeType(propString(p, "type")),
		Description: propString(p, "description"),
	}
	if raw := propString(p, "details"); raw != "" {
		var d nodeDetails
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return board.Node{}, 0, fmt.Errorf("failed to deserialize node %s: %w", n.NodeID, err)
		}
		n.Challenge = d.Challenge
		n.Chance = d.Chance
		n.Shortcut = d.Shortcut
		n.Property = d.Property
	}
	return n, propInt(p, "seq"), nil
}

// ============================================================================
// EDGES
// ============================================================================

const getEdgesQuery = `
MATCH (a:MapNode {board_id: $board_id})-[r:EDGE]->(z:MapNode)
RETURN r.id AS id, a.node_id AS from, z.node_id AS to, r.type AS type,
       r.condition AS condition, r.seq AS seq
ORDER BY r.seq`

func (s *GraphStore) GetEdges(ctx context.Context, boardID string) ([]board.Edge, error) {
	res, err := s.runner.Run(ctx, getEdgesQuery, map[string]any{"board_id": boardID})
	if err != nil {
		return nil, fmt.Errorf("failed to query edges of board %s: %w", boardID, err)
	}

	edges := make([]board.Edge, 0, len(res.Records))
	for _, rec := range res.Records {
		p := recordMap(rec)
		e := board.Edge{
			ID:      propString(p, "id"),
			BoardID: boardID,
			From:    propString(p, "from"),
			To:      propString(p, "to"),
			Type:    board.EdgeType(propString(p, "type")),
			Seq:     propInt(p, "seq"),
		}
		if raw := propString(p, "condition"); raw != "" {
			e.Condition = &board.Condition{}
			if err := json.Unmarshal([]byte(raw), e.Condition); err != nil {
				return nil, fmt.Errorf("failed to deserialize condition of edge %s: %w", e.ID, err)
			}
		}
		edges = append(edges, e)
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Seq < edges[j].Seq })
	return edges, nil
}

const saveEdgeQuery = `
MATCH (b:Board {id: $board_id})
MATCH (a:MapNode {board_id: $board_id, node_id: $from})
MATCH (z:MapNode {board_id: $board_id, node_id: $to})
WITH b, a, z, coalesce(b.edge_seq, 0) + 1 AS seq
SET b.edge_seq = seq
CREATE (a)-[r:EDGE {id: $id, board_id: $board_id, type: $type, condition: $condition, seq: seq}]->(z)
RETURN r.seq AS seq`

// SaveEdges creates one relationship per edge in a single transaction. Both
// endpoints must exist.
func (s *GraphStore) SaveEdges(ctx context.Context, boardID string, edges []board.Edge) ([]board.Edge, error) {
	var saved []board.Edge
	err := s.runner.InTx(ctx, func(tx Runner) error {
		saved = make([]board.Edge, 0, len(edges))
		for _, e := range edges {
			condition := ""
			if e.Condition != nil {
				raw, err := json.Marshal(e.Condition)
				if err != nil {
					return fmt.Errorf("failed to serialize condition of edge %s: %w", e.ID, err)
				}
				condition = string(raw)
			}

			res, err := tx.Run(ctx, saveEdgeQuery, map[string]any{
				"board_id":  boardID,
				"id":        e.ID,
				"from":      e.From,
				"to":        e.To,
				"type":      string(e.Type),
				"condition": condition,
			})
			if err != nil {
				return fmt.Errorf("failed to save edge %s -> %s: %w", e.From, e.To, err)
			}
			if len(res.Records) == 0 {
				if _, err := getBoard(ctx, tx, boardID); err != nil {
					return err
				}
				return fmt.Errorf("edge %s -> %s: %w", e.From, e.To, board.ErrNodeNotFound)
			}

			e.BoardID = boardID
			e.Seq = propInt(recordMap(res.Records[0]), "seq")
			saved = append(saved, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

const deleteEdgeQuery = `
MATCH (:MapNode {board_id: $board_id})-[r:EDGE {id: $edge_id}]->()
DELETE r
RETURN 1 AS deleted`

func (s *GraphStore) DeleteEdge(ctx context.Context, boardID, edgeID string) error {
	res, err := s.runner.Run(ctx, deleteEdgeQuery, map[string]any{"board_id": boardID, "edge_id": edgeID})
	if err != nil {
		return fmt.Errorf("failed to delete edge %s: %w", edgeID, err)
	}
	if len(res.Records) == 0 {
		return board.ErrEdgeNotFound
	}
	return nil
}

func (s *GraphStore) Health(ctx context.Context) map[string]string {
	if _, err := s.runner.Run(ctx, "RETURN 1 AS ok", nil); err != nil {
		return map[string]string{"status": "down", "backend": "neo4j", "error": err.Error()}
	}
	return map[string]string{"status": "up", "backend": "neo4j"}
}

// ============================================================================
// RECORD HELPERS
// ============================================================================

func recordNode(rec *neo4j.Record, key string) (neo4j.Node, error) {
	v, ok := rec.Get(key)
	if !ok {
		return neo4j.Node{}, fmt.Errorf("could not find return value %q in query result", key)
	}
	n, ok := v.(neo4j.Node)
	if !ok {
		return neo4j.Node{}, fmt.Errorf("return value %q is not a node", key)
	}
	return n, nil
}

func recordMap(rec *neo4j.Record) map[string]any {
	m := make(map[string]any, len(rec.Keys))
	for i, k := range rec.Keys {
		if i < len(rec.Values) {
			m[k] = rec.Values[i]
		}
	}
	return m
}

func propString(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func propInt(p map[string]any, key string) int64 {
	switch v := p[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func propTime(p map[string]any, key string) time.Time {
	switch v := p[key].(type) {
	case time.Time:
		return v
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	}
	return time.Time{}
}
