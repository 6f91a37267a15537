package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/hallgren/eventsourcing"
	"github.com/hallgren/eventsourcing/aggregate"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/domain"
)

// Errors returned by session behaviours.
var (
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotAPlayer  = errors.New("not a player")
	ErrInvalidMode = errors.New("invalid mode")
)

// BotPlayer is the seat id used by the bot in bot mode.
const BotPlayer = "bot"

// Mode decides who may move.
type Mode string

const (
	Hotseat Mode = "hotseat"
	Versus  Mode = "versus"
	WithBot Mode = "bot"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", Hotseat:
		return Hotseat, nil
	case Versus:
		return Versus, nil
	case WithBot:
		return WithBot, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Game is one tic-tac-toe session. Its state is rebuilt from its events.
type Game struct {
	aggregate.Root
	Mode    Mode
	X       string
	O       string
	History *domain.History
	Order   domain.Order
	Created time.Time
	Updated time.Time
}

// Created starts a session.
type Created struct {
	Mode Mode
}

type SeatClaimed struct {
	Player string
	Mark   domain.Cell
}

type MovePlayed struct {
	Index int
	Mark  domain.Cell
}

type JumpedTo struct {
	Move int
}

type OrderChanged struct {
	Order domain.Order
}

func (g *Game) Transition(event eventsourcing.Event) {
	switch e := event.Data().(type) {
	case *Created:
		g.Mode = e.Mode
		g.History = domain.NewHistory()
		g.Created = event.Timestamp()
	case *SeatClaimed:
		if e.Mark == domain.X {
			g.X = e.Player
		} else {
			g.O = e.Player
		}
	case *MovePlayed:
		// validated before the event was tracked
		_ = g.History.Play(e.Index, e.Mark)
	case *JumpedTo:
		_ = g.History.JumpTo(e.Move)
	case *OrderChanged:
		g.Order = e.Order
	}
	g.Updated = event.Timestamp()
}

func (g *Game) Register(f aggregate.RegisterFunc) {
	f(&Created{}, &SeatClaimed{}, &MovePlayed{}, &JumpedTo{}, &OrderChanged{})
}

// NewGame creates a session with the given id. In bot mode the bot holds O.
func NewGame(id string, mode Mode) (*Game, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	g := &Game{}
	if err := g.SetID(id); err != nil {
		return nil, fmt.Errorf("set id: %w", err)
	}
	aggregate.TrackChange(g, &Created{Mode: mode})
	if mode == WithBot {
		aggregate.TrackChange(g, &SeatClaimed{Player: BotPlayer, Mark: domain.O})
	}
	return g, nil
}

// Seat returns the mark held by player, or Empty for spectators.
func (g *Game) Seat(player string) domain.Cell {
	switch {
	case player == "":
		return domain.Empty
	case g.X == player:
		return domain.X
	case g.O == player:
		return domain.O
	}
	return domain.Empty
}

// Join assigns a free seat to the player if one is available; returns Empty for spectators.
func (g *Game) Join(player string) domain.Cell {
	if seat := g.Seat(player); seat != domain.Empty || player == "" {
		return seat
	}
	switch {
	case g.X == "":
		aggregate.TrackChange(g, &SeatClaimed{Player: player, Mark: domain.X})
		return domain.X
	case g.O == "":
		aggregate.TrackChange(g, &SeatClaimed{Player: player, Mark: domain.O})
		return domain.O
	}
	return domain.Empty
}

// Play places the mark that is to move at index on behalf of player.
func (g *Game) Play(player string, index int) error {
	mark := g.History.Turn()
	if err := g.mayPlay(player, mark); err != nil {
		return err
	}
	return g.place(index, mark)
}

// playBot places O for the bot. Players never act under the bot's id.
func (g *Game) playBot(index int) error {
	if !g.BotTurn() {
		return ErrNotYourTurn
	}
	return g.place(index, domain.O)
}

func (g *Game) place(index int, mark domain.Cell) error {
	if _, _, err := domain.ApplyMove(g.History.CurrentBoard(), index, mark); err != nil {
		return err
	}
	aggregate.TrackChange(g, &MovePlayed{Index: index, Mark: mark})
	return nil
}

// JumpTo shows an earlier or later board without changing the history.
func (g *Game) JumpTo(player string, move int) error {
	if g.Mode == Versus && g.Seat(player) == domain.Empty {
		return ErrNotAPlayer
	}
	if move < 0 || move >= g.History.Len() {
		return fmt.Errorf("%w: move %d of %d", domain.ErrInvalidArgument, move, g.History.Len())
	}
	if move == g.History.CurrentMove() {
		return nil
	}
	aggregate.TrackChange(g, &JumpedTo{Move: move})
	return nil
}

// SetOrder changes how the move list is displayed.
func (g *Game) SetOrder(order domain.Order) {
	if order == g.Order {
		return
	}
	aggregate.TrackChange(g, &OrderChanged{Order: order})
}

// BotTurn reports whether the bot is to move on the current board.
func (g *Game) BotTurn() bool {
	return g.Mode == WithBot && !g.History.Result().Over() && g.Seat(BotPlayer) == g.History.Turn()
}

func (g *Game) mayPlay(player string, mark domain.Cell) error {
	switch g.Mode {
	case Hotseat:
		return nil
	case WithBot:
		if player == BotPlayer {
			return ErrNotAPlayer
		}
		if mark != domain.X {
			return ErrNotYourTurn
		}
		return nil
	default:
		seat := g.Seat(player)
		if seat == domain.Empty {
			return ErrNotAPlayer
		}
		if seat != mark {
			return ErrNotYourTurn
		}
		return nil
	}
}

// Snapshot is the plain form of a game for stores that keep state rather than events.
type Snapshot struct {
	ID          string         `json:"id"`
	Mode        Mode           `json:"mode"`
	X           string         `json:"x,omitempty"`
	O           string         `json:"o,omitempty"`
	Entries     []domain.Entry `json:"entries"`
	CurrentMove int            `json:"current_move"`
	Order       domain.Order   `json:"order"`
	Created     time.Time      `json:"created"`
	Updated     time.Time      `json:"updated"`
}

func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		ID:          g.ID(),
		Mode:        g.Mode,
		X:           g.X,
		O:           g.O,
		Entries:     g.History.Entries(),
		CurrentMove: g.History.CurrentMove(),
		Order:       g.Order,
		Created:     g.Created,
		Updated:     g.Updated,
	}
}

// Restore rebuilds a game from a snapshot.
func Restore(s Snapshot) (*Game, error) {
	mode, err := ParseMode(string(s.Mode))
	if err != nil {
		return nil, err
	}
	h, err := domain.RestoreHistory(s.Entries, s.CurrentMove)
	if err != nil {
		return nil, fmt.Errorf("restore history: %w", err)
	}
	g := &Game{
		Mode:    mode,
		X:       s.X,
		O:       s.O,
		History: h,
		Order:   s.Order,
		Created: s.Created,
		Updated: s.Updated,
	}
	if err = g.SetID(s.ID); err != nil {
		return nil, fmt.Errorf("set id: %w", err)
	}
	return g, nil
}
