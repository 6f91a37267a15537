package session

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/rand"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/domain"
)

var ErrNoAvailableMoves = errors.New("no available moves")

// Bot plays a random empty cell.
type Bot struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBot(seed uint64) *Bot {
	return &Bot{rnd: rand.New(rand.NewSource(seed))}
}

// Choose picks an empty cell of the board.
func (b *Bot) Choose(board domain.Board) (int, error) {
	cells := board.EmptyCells()
	if len(cells) == 0 {
		return 0, ErrNoAvailableMoves
	}
	b.mu.Lock()
	i := b.rnd.Intn(len(cells))
	b.mu.Unlock()
	return cells[i], nil
}

// MakeTurn plays the bot's move on the game.
func (b *Bot) MakeTurn(g *Game) error {
	if !g.BotTurn() {
		return ErrNotYourTurn
	}
	index, err := b.Choose(g.History.CurrentBoard())
	if err != nil {
		return err
	}
	if err = g.playBot(index); err != nil {
		return fmt.Errorf("bot failed to make turn: %w", err)
	}
	return nil
}
