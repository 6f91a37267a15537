package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/domain"
)

func newGame(t *testing.T, mode Mode) *Game {
	t.Helper()
	g, err := NewGame("game-1", mode)
	require.NoError(t, err)
	return g
}

func TestNewGame(t *testing.T) {
	g := newGame(t, Hotseat)

	assert.Equal(t, "game-1", g.ID())
	assert.Equal(t, Hotseat, g.Mode)
	assert.Equal(t, 1, g.History.Len())
	assert.Equal(t, domain.Ascending, g.Order)
	assert.False(t, g.Created.IsZero())

	events := g.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Created", events[0].Reason())

	_, err := NewGame("game-2", Mode("chess"))
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestJoinSeatsAndRejoin(t *testing.T) {
	g := newGame(t, Versus)

	assert.Equal(t, domain.X, g.Join("p1"))
	assert.Equal(t, domain.O, g.Join("p2"))
	assert.Equal(t, domain.X, g.Join("p1"))
	assert.Equal(t, domain.Empty, g.Join("p3"))
	assert.Equal(t, domain.Empty, g.Join(""))

	// Created + two seats; rejoin and spectators add nothing
	assert.Len(t, g.Events(), 3)
}

func TestVersusEnforcesTurnAndSeats(t *testing.T) {
	g := newGame(t, Versus)
	g.Join("p1")
	g.Join("p2")

	require.ErrorIs(t, g.Play("p2", 0), ErrNotYourTurn)
	require.ErrorIs(t, g.Play("p3", 0), ErrNotAPlayer)
	require.NoError(t, g.Play("p1", 0))
	require.ErrorIs(t, g.Play("p1", 1), ErrNotYourTurn)
	require.ErrorIs(t, g.Play("p2", 0), domain.ErrOccupied)

	assert.Equal(t, domain.X, g.History.CurrentBoard()[0])
	assert.Equal(t, domain.O, g.History.Turn())

	require.ErrorIs(t, g.JumpTo("p3", 0), ErrNotAPlayer)
	require.NoError(t, g.JumpTo("p2", 0))
	assert.Equal(t, 0, g.History.CurrentMove())
}

func TestHotseatPlaysBothMarks(t *testing.T) {
	g := newGame(t, Hotseat)

	require.NoError(t, g.Play("anyone", 4))
	require.NoError(t, g.Play("anyone", 0))

	assert.Equal(t, domain.Board{0: domain.O, 4: domain.X}, g.History.CurrentBoard())
}

func TestPlayRejectionTracksNoEvent(t *testing.T) {
	g := newGame(t, Hotseat)
	for _, m := range []int{0, 3, 1, 4, 2} {
		require.NoError(t, g.Play("", m))
	}
	n := len(g.Events())

	require.ErrorIs(t, g.Play("", 8), domain.ErrGameOver)
	require.ErrorIs(t, g.JumpTo("", 9), domain.ErrInvalidArgument)

	assert.Len(t, g.Events(), n)
}

func TestJumpThenPlayTruncates(t *testing.T) {
	g := newGame(t, Hotseat)
	require.NoError(t, g.Play("", 0))
	require.NoError(t, g.Play("", 4))

	require.NoError(t, g.JumpTo("", 1))
	require.NoError(t, g.Play("", 5))

	assert.Equal(t, 3, g.History.Len())
	assert.Equal(t, 2, g.History.CurrentMove())
	assert.Equal(t, domain.Board{0: domain.X, 5: domain.O}, g.History.CurrentBoard())
}

func TestJumpToCurrentIsNoop(t *testing.T) {
	g := newGame(t, Hotseat)
	n := len(g.Events())
	require.NoError(t, g.JumpTo("", 0))
	assert.Len(t, g.Events(), n)
}

func TestSetOrder(t *testing.T) {
	g := newGame(t, Hotseat)
	g.SetOrder(domain.Descending)
	assert.Equal(t, domain.Descending, g.Order)
	n := len(g.Events())
	g.SetOrder(domain.Descending)
	assert.Len(t, g.Events(), n)
}

func TestBotMode(t *testing.T) {
	g := newGame(t, WithBot)
	assert.Equal(t, BotPlayer, g.O)
	assert.Equal(t, domain.X, g.Join("human"))
	assert.False(t, g.BotTurn())

	require.ErrorIs(t, g.playBot(0), ErrNotYourTurn)
	require.NoError(t, g.Play("human", 0))
	assert.True(t, g.BotTurn())
	require.ErrorIs(t, g.Play("human", 1), ErrNotYourTurn)
	require.NoError(t, g.playBot(1))
	assert.False(t, g.BotTurn())
}

func TestBotSeatCannotBeImpersonated(t *testing.T) {
	g := newGame(t, WithBot)

	// X to move: the bot id may not play X
	require.ErrorIs(t, g.Play(BotPlayer, 0), ErrNotAPlayer)
	require.NoError(t, g.Play("human", 0))

	// O to move: the bot's mark is only placed through the bot
	require.ErrorIs(t, g.Play(BotPlayer, 1), ErrNotAPlayer)
	assert.Equal(t, 1, g.History.CurrentMove())
	assert.True(t, g.BotTurn())
}

func TestSnapshotRestore(t *testing.T) {
	g := newGame(t, Versus)
	g.Join("p1")
	g.Join("p2")
	require.NoError(t, g.Play("p1", 4))
	require.NoError(t, g.Play("p2", 0))
	require.NoError(t, g.JumpTo("p1", 1))
	g.SetOrder(domain.Descending)

	restored, err := Restore(g.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, g.Snapshot(), restored.Snapshot())
	assert.Equal(t, "game-1", restored.ID())
	assert.Empty(t, restored.Events())

	// the restored game keeps playing by the same rules
	require.ErrorIs(t, restored.Play("p1", 8), ErrNotYourTurn)
	require.NoError(t, restored.Play("p2", 8))
	assert.Equal(t, 3, restored.History.Len())
}

func TestRestoreRejectsBrokenSnapshot(t *testing.T) {
	_, err := Restore(Snapshot{ID: "x", Mode: Hotseat})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = Restore(Snapshot{ID: "x", Mode: "nope", Entries: []domain.Entry{{}}})
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Hotseat, m)

	m, err = ParseMode("bot")
	require.NoError(t, err)
	assert.Equal(t, WithBot, m)
}
