package neo4jstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardgame-server/internal/board"
)

type call struct {
	query  string
	params map[string]any
	inTx   bool
}

// scriptedRunner answers queries from a queue, in call order.
type scriptedRunner struct {
	results   []*neo4j.EagerResult
	err       error
	calls     []call
	inTx      bool
	commits   int
	rollbacks int
}

func (r *scriptedRunner) InTx(_ context.Context, fn func(tx Runner) error) error {
	r.inTx = true
	err := fn(r)
	r.inTx = false
	if err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

func (r *scriptedRunner) Run(_ context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	r.calls = append(r.calls, call{query: query, params: params, inTx: r.inTx})
	if r.err != nil {
		return nil, r.err
	}
	if len(r.results) == 0 {
		return &neo4j.EagerResult{}, nil
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res, nil
}

func nodeResult(key string, props ...map[string]any) *neo4j.EagerResult {
	res := &neo4j.EagerResult{Keys: []string{key}}
	for _, p := range props {
		res.Records = append(res.Records, &neo4j.Record{
			Keys:   []string{key},
			Values: []any{neo4j.Node{Props: p}},
		})
	}
	return res
}

func rowsResult(keys []string, rows ...[]any) *neo4j.EagerResult {
	res := &neo4j.EagerResult{Keys: keys}
	for _, row := range rows {
		res.Records = append(res.Records, &neo4j.Record{Keys: keys, Values: row})
	}
	return res
}

func TestGetBoard(t *testing.T) {
	assert := assert.New(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	runner := &scriptedRunner{results: []*neo4j.EagerResult{
		nodeResult("b", map[string]any{
			"id":          "b1",
			"name":        "Java",
			"start_node":  "S0",
			"max_players": int64(4),
			"version":     int64(2),
			"created_at":  created,
			"updated_at":  created,
		}),
	}}
	store := NewGraphStore(runner)

	b, err := store.GetBoard(context.Background(), "b1")
	require.NoError(t, err)

	assert.Equal(board.Board{
		ID:         "b1",
		Name:       "Java",
		StartNode:  "S0",
		MaxPlayers: 4,
		Version:    2,
		CreatedAt:  created,
		UpdatedAt:  created,
	}, *b)
	require.Len(t, runner.calls, 1)
	assert.Contains(runner.calls[0].query, "Board")
}

func TestGetBoardNotFound(t *testing.T) {
	store := NewGraphStore(&scriptedRunner{})

	_, err := store.GetBoard(context.Background(), "missing")
	assert.ErrorIs(t, err, board.ErrBoardNotFound)
}

func TestRunnerErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	store := NewGraphStore(&scriptedRunner{err: boom})

	_, err := store.GetEdges(context.Background(), "b1")
	assert.ErrorIs(t, err, boom)

	health := store.Health(context.Background())
	assert.Equal(t, "down", health["status"])
}

func TestListNodesOrdersBySeq(t *testing.T) {
	assert := assert.New(t)
	runner := &scriptedRunner{results: []*neo4j.EagerResult{
		nodeResult("n",
			map[string]any{"board_id": "b1", "node_id": "02", "name": "Second", "type": "chance", "seq": int64(2)},
			map[string]any{
				"board_id": "b1",
				"node_id":  "01",
				"name":     "First",
				"type":     "property",
				"seq":      int64(1),
				"details":  `{"property":{"price":120,"color":"blue"}}`,
			},
		),
	}}
	store := NewGraphStore(runner)

	nodes, err := store.ListNodes(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal("01", nodes[0].NodeID)
	assert.Equal(board.NodeProperty, nodes[0].Type)
	require.NotNil(t, nodes[0].Property)
	assert.Equal(120, *nodes[0].Property.Price)
	assert.Equal("02", nodes[1].NodeID)
	assert.Nil(nodes[1].Property)
}

func TestGetEdges(t *testing.T) {
	assert := assert.New(t)
	keys := []string{"id", "from", "to", "type", "condition", "seq"}
	runner := &scriptedRunner{results: []*neo4j.EagerResult{
		rowsResult(keys,
			[]any{"e2", "03", "D5", "conditional", `{"requiredChallenge":"train"}`, int64(2)},
			[]any{"e1", "S0", "01", "normal", "", int64(1)},
		),
	}}
	store := NewGraphStore(runner)

	edges, err := store.GetEdges(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, edges, 2)

	assert.Equal("e1", edges[0].ID)
	assert.Equal(board.EdgeNormal, edges[0].Type)
	assert.Nil(edges[0].Condition)
	assert.Equal("b1", edges[0].BoardID)

	assert.Equal("D5", edges[1].To)
	require.NotNil(t, edges[1].Condition)
	assert.Equal("train", edges[1].Condition.RequiredChallenge)
	assert.Equal("b1", runner.calls[0].params["board_id"])
}

func TestSaveEdgesAssignsSeq(t *testing.T) {
	assert := assert.New(t)
	runner := &scriptedRunner{results: []*neo4j.EagerResult{
		rowsResult([]string{"seq"}, []any{int64(7)}),
	}}
	store := NewGraphStore(runner)

	saved, err := store.SaveEdges(context.Background(), "b1", []board.Edge{{
		ID:        "e1",
		From:      "03",
		To:        "D5",
		Type:      board.EdgeConditional,
		Condition: &board.Condition{RequiredItem: "ticket"},
	}})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	assert.Equal(int64(7), saved[0].Seq)
	assert.Equal("b1", saved[0].BoardID)
	params := runner.calls[0].params
	assert.Equal("03", params["from"])
	assert.Equal("D5", params["to"])
	assert.JSONEq(`{"requiredItem":"ticket"}`, params["condition"].(string))
}

func TestSaveEdgesMissingEndpoint(t *testing.T) {
	runner := &scriptedRunner{results: []*neo4j.EagerResult{
		{},
		nodeResult("b", map[string]any{"id": "b1", "name": "Java", "start_node": "S0"}),
	}}
	store := NewGraphStore(runner)

	_, err := store.SaveEdges(context.Background(), "b1", []board.Edge{{ID: "e1", From: "03", To: "ghost", Type: board.EdgeNormal}})
	assert.ErrorIs(t, err, board.ErrNodeNotFound)
}

func TestSaveEdgesMissingBoard(t *testing.T) {
	store := NewGraphStore(&scriptedRunner{})

	_, err := store.SaveEdges(context.Background(), "nope", []board.Edge{{ID: "e1", From: "a", To: "b", Type: board.EdgeNormal}})
	assert.ErrorIs(t, err, board.ErrBoardNotFound)
}

func TestDeleteNotFound(t *testing.T) {
	store := NewGraphStore(&scriptedRunner{})
	ctx := context.Background()

	assert.ErrorIs(t, store.DeleteBoard(ctx, "b1"), board.ErrBoardNotFound)
	assert.ErrorIs(t, store.DeleteNode(ctx, "b1", "01"), board.ErrNodeNotFound)
	assert.ErrorIs(t, store.DeleteEdge(ctx, "b1", "e1"), board.ErrEdgeNotFound)
}

func TestSaveNodesRequiresBoard(t *testing.T) {
	assert := assert.New(t)
	runner := &scriptedRunner{results: []*neo4j.EagerResult{
		rowsResult([]string{"node_id"}, []any{"01"}),
	}}
	store := NewGraphStore(runner)

	err := store.SaveNodes(context.Background(), "b1", []board.Node{
		{NodeID: "01", Name: "One", Type: board.NodeProperty},
		{NodeID: "02", Name: "Two", Type: board.NodeChance},
	})
	assert.ErrorIs(err, board.ErrBoardNotFound)
	assert.Len(runner.calls, 2)
	assert.Equal("01", runner.calls[0].params["node_id"])
	assert.Equal(0, runner.commits)
	assert.Equal(1, runner.rollbacks)
}

func TestSaveBatchesShareOneTransaction(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	runner := &scriptedRunner{results: []*neo4j.EagerResult{
		rowsResult([]string{"node_id"}, []any{"01"}),
		rowsResult([]string{"node_id"}, []any{"02"}),
		rowsResult([]string{"seq"}, []any{int64(1)}),
		{},
		nodeResult("b", map[string]any{"id": "b1", "name": "Java", "start_node": "S0"}),
	}}
	store := NewGraphStore(runner)

	err := store.SaveNodes(ctx, "b1", []board.Node{
		{NodeID: "01", Name: "One", Type: board.NodeProperty},
		{NodeID: "02", Name: "Two", Type: board.NodeChance},
	})
	require.NoError(t, err)
	assert.Equal(1, runner.commits)

	_, err = store.SaveEdges(ctx, "b1", []board.Edge{
		{ID: "e1", From: "01", To: "02", Type: board.EdgeNormal},
		{ID: "e2", From: "02", To: "ghost", Type: board.EdgeNormal},
	})
	assert.ErrorIs(err, board.ErrNodeNotFound)
	assert.Equal(1, runner.commits)
	assert.Equal(1, runner.rollbacks)

	require.Len(t, runner.calls, 5)
	for _, c := range runner.calls {
		assert.True(c.inTx, c.query)
	}
}
