package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/domain"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/session"
)

func TestEventStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewEventStore()
	t.Cleanup(func() { _ = repo.Close() })

	// Given: a game with moves, a jump back and a move that discards the old branch
	game, err := session.NewGame("es-1", session.Versus)
	require.NoError(t, err)
	game.Join("p1")
	game.Join("p2")
	require.NoError(t, game.Play("p1", 0))
	require.NoError(t, game.Play("p2", 4))
	require.NoError(t, repo.Save(ctx, game))

	require.NoError(t, game.JumpTo("p1", 1))
	require.NoError(t, game.Play("p2", 5))
	game.SetOrder(domain.Descending)
	require.NoError(t, repo.Save(ctx, game))

	// When: the game is loaded from its events
	loaded, err := repo.GetByID(ctx, "es-1")

	// Then: replay reproduces the same state
	require.NoError(t, err)
	assert.Equal(t, game.Snapshot(), loaded.Snapshot())
	assert.Equal(t, 3, loaded.History.Len())
	assert.Equal(t, domain.Board{0: domain.X, 5: domain.O}, loaded.History.CurrentBoard())
	assert.Equal(t, "p1", loaded.X)
	assert.Equal(t, "p2", loaded.O)
}

func TestEventStore_LoadedGameKeepsPlaying(t *testing.T) {
	ctx := context.Background()
	repo := NewEventStore()

	game, err := session.NewGame("es-2", session.Hotseat)
	require.NoError(t, err)
	require.NoError(t, game.Play("", 4))
	require.NoError(t, repo.Save(ctx, game))

	loaded, err := repo.GetByID(ctx, "es-2")
	require.NoError(t, err)
	require.NoError(t, loaded.Play("", 0))
	require.NoError(t, repo.Save(ctx, loaded))

	again, err := repo.GetByID(ctx, "es-2")
	require.NoError(t, err)
	assert.Equal(t, 3, again.History.Len())
}

func TestEventStore_NotFound(t *testing.T) {
	repo := NewEventStore()

	_, err := repo.GetByID(context.Background(), "missing")

	require.ErrorIs(t, err, ErrGameNotFound)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Options{Driver: "postgres"})
	require.ErrorIs(t, err, ErrUnknownDriver)

	repo, err := New(context.Background(), Options{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &EventStore{}, repo)
}
