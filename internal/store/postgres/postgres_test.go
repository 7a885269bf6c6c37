package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"boardgame-server/internal/board"
	"boardgame-server/internal/room"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("boardgame"),
		tcpostgres.WithUsername("boardgame"),
		tcpostgres.WithPassword("boardgame"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := New(ctx, connStr, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	return db
}

func newRoom(code string, now time.Time) *room.Room {
	return &room.Room{
		ID:         "room-" + code,
		Code:       code,
		GameName:   "Monopoly Java",
		MaxPlayers: 2,
		Players:    []room.Player{},
		Status:     room.StatusWaiting,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}
}

func TestPostgresStores(t *testing.T) {
	db := setupTestDB(t)
	rooms := NewRoomStore(db)
	graph := NewGraphStore(db)
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("health", func(t *testing.T) {
		stats := db.Health(context.Background())
		assert.Equal(t, "up", stats["status"])
	})

	t.Run("room insert and find", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()

		saved, err := rooms.Insert(ctx, newRoom("111111", now))
		require.NoError(t, err)
		assert.Equal(int64(1), saved.Version)

		got, err := rooms.FindByCode(ctx, "111111")
		require.NoError(t, err)
		assert.Equal("Monopoly Java", got.GameName)
		assert.Equal(room.StatusWaiting, got.Status)
		assert.Empty(got.Players)
		assert.True(now.Equal(got.CreatedAt))

		exists, err := rooms.ExistsByCode(ctx, "111111")
		require.NoError(t, err)
		assert.True(exists)

		_, err = rooms.FindByCode(ctx, "222222")
		assert.ErrorIs(err, room.ErrRoomNotFound)
	})

	t.Run("duplicate code", func(t *testing.T) {
		ctx := context.Background()
		dup := newRoom("111111", now)
		dup.ID = "other-id"

		_, err := rooms.Insert(ctx, dup)
		assert.ErrorIs(t, err, room.ErrCodeTaken)
	})

	t.Run("compare and swap update", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		_, err := rooms.Insert(ctx, newRoom("333333", now))
		require.NoError(t, err)

		r, err := rooms.FindByCode(ctx, "333333")
		require.NoError(t, err)
		stale := r.Clone()

		r.Players = append(r.Players, room.Player{ID: 1, Name: "Alice"})
		updated, err := rooms.Update(ctx, r)
		require.NoError(t, err)
		assert.Equal(int64(2), updated.Version)
		assert.Equal(1, updated.CurrentPlayers)
		assert.Equal("Alice", updated.Players[0].Name)

		stale.Players = append(stale.Players, room.Player{ID: 2, Name: "Bob"})
		_, err = rooms.Update(ctx, stale)
		assert.ErrorIs(err, room.ErrVersionConflict)

		assert.ErrorIs(rooms.Delete(ctx, r.ID, 1), room.ErrVersionConflict)
		require.NoError(t, rooms.Delete(ctx, r.ID, 2))
		assert.ErrorIs(rooms.Delete(ctx, r.ID, 2), room.ErrRoomNotFound)
	})

	t.Run("capacity check", func(t *testing.T) {
		ctx := context.Background()
		_, err := rooms.Insert(ctx, newRoom("444444", now))
		require.NoError(t, err)

		r, err := rooms.FindByCode(ctx, "444444")
		require.NoError(t, err)
		r.Players = []room.Player{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}

		_, err = rooms.Update(ctx, r)
		assert.ErrorIs(t, err, room.ErrRoomFull)
	})

	t.Run("delete expired", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		old := newRoom("555555", now.Add(-48*time.Hour))
		_, err := rooms.Insert(ctx, old)
		require.NoError(t, err)

		n, err := rooms.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(1, n)

		_, err = rooms.FindByCode(ctx, "555555")
		assert.ErrorIs(err, room.ErrRoomNotFound)
	})

	t.Run("manager join race", func(t *testing.T) {
		ctx := context.Background()
		m := room.NewManager(rooms)
		created, err := m.Create(ctx, "Race", 2, "")
		require.NoError(t, err)
		_, err = m.Join(ctx, created.Code, 1, "First", "")
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)
		for id := 10; id < 16; id++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				if _, err := m.Join(ctx, created.Code, id, "Racer", ""); err == nil {
					mu.Lock()
					success++
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()

		assert.Equal(t, 1, success)
		r, err := m.Get(ctx, created.Code)
		require.NoError(t, err)
		assert.Equal(t, 2, r.CurrentPlayers)
	})

	t.Run("board graph", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()

		b := board.Board{ID: "b1", Name: "Java", StartNode: "S0", MaxPlayers: 4, Version: 1, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, graph.SaveBoard(ctx, b))

		price := 150
		require.NoError(t, graph.SaveNodes(ctx, "b1", []board.Node{
			{NodeID: "S0", Name: "Start", Type: board.NodeStart},
			{NodeID: "01", Name: "Borobudur", Type: board.NodeProperty, Property: &board.Property{Price: &price, Color: "red"}},
			{NodeID: "02", Name: "Quiz", Type: board.NodeChallenge, Challenge: &board.Challenge{Type: "vocabulary", Title: "Words"}},
		}))

		n, err := graph.GetNode(ctx, "b1", "01")
		require.NoError(t, err)
		require.NotNil(t, n.Property)
		assert.Equal(150, *n.Property.Price)

		_, err = graph.GetNode(ctx, "b1", "zz")
		assert.ErrorIs(err, board.ErrNodeNotFound)

		nodes, err := graph.ListNodes(ctx, "b1")
		require.NoError(t, err)
		assert.Equal([]string{"S0", "01", "02"}, []string{nodes[0].NodeID, nodes[1].NodeID, nodes[2].NodeID})

		saved, err := graph.SaveEdges(ctx, "b1", []board.Edge{
			{ID: "e1", From: "S0", To: "01", Type: board.EdgeNormal},
			{ID: "e2", From: "01", To: "02", Type: board.EdgeConditional, Condition: &board.Condition{RequiredChallenge: "train"}},
		})
		require.NoError(t, err)
		assert.Less(saved[0].Seq, saved[1].Seq)

		edges, err := graph.GetEdges(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal("e1", edges[0].ID)
		assert.Nil(edges[0].Condition)
		assert.Equal("train", edges[1].Condition.RequiredChallenge)

		route, err := board.ResolveMove(edges, "S0", 2)
		require.NoError(t, err)
		assert.Equal("02", route.EndNode)

		_, err = graph.SaveEdges(ctx, "missing", []board.Edge{{ID: "e3", From: "a", To: "b", Type: board.EdgeNormal}})
		assert.ErrorIs(err, board.ErrBoardNotFound)

		require.NoError(t, graph.DeleteEdge(ctx, "b1", "e2"))
		assert.ErrorIs(graph.DeleteEdge(ctx, "b1", "e2"), board.ErrEdgeNotFound)

		require.NoError(t, graph.DeleteBoard(ctx, "b1"))
		nodes, err = graph.ListNodes(ctx, "b1")
		require.NoError(t, err)
		assert.Empty(nodes)
		assert.ErrorIs(graph.DeleteBoard(ctx, "b1"), board.ErrBoardNotFound)
	})
}
