package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/domain"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/repository"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/session"
)

// Errors exposed by the service layer.
var (
	ErrNotFound = errors.New("game not found")
)

// GameState is a read-only copy of a game handed to transports.
type GameState struct {
	ID      string          `json:"id"`
	Mode    session.Mode    `json:"mode"`
	X       string          `json:"x,omitempty"`
	O       string          `json:"o,omitempty"`
	History *domain.History `json:"-"`
	Order   domain.Order    `json:"order"`
	Result  domain.Result   `json:"result"`
	Created time.Time       `json:"created"`
	Updated time.Time       `json:"updated"`
}

func stateOf(g *session.Game) GameState {
	h := g.History.Clone()
	return GameState{
		ID:      g.ID(),
		Mode:    g.Mode,
		X:       g.X,
		O:       g.O,
		History: h,
		Order:   g.Order,
		Result:  h.Result(),
		Created: g.Created,
		Updated: g.Updated,
	}
}

// Board returns the board at the current move.
func (gs GameState) Board() domain.Board { return gs.History.CurrentBoard() }

// Turn returns the mark to move at the current move.
func (gs GameState) Turn() domain.Cell { return gs.History.Turn() }

// Moves lists the history in the game's display order.
func (gs GameState) Moves() []domain.MoveInfo {
	out := make([]domain.MoveInfo, 0, gs.History.Len())
	for m := range gs.History.Describe(gs.Order) {
		out = append(out, m)
	}
	return out
}

// BotTurn reports whether a bot game waits for the bot.
func (gs GameState) BotTurn() bool {
	return gs.Mode == session.WithBot && !gs.Result.Over() && gs.O == session.BotPlayer && gs.Turn() == domain.O
}

// subscriber guards its channel so a send never races a close.
type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// offer hands payload over without blocking. A full buffer closes the
// subscriber and reports false; a closed subscriber is skipped.
func (s *subscriber) offer(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- payload:
		return true
	default:
		s.closed = true
		close(s.ch)
		return false
	}
}

// Service manages games and subscribers.
type Service struct {
	mu     sync.Mutex
	repo   repository.GameRepository
	bot    *session.Bot
	log    zerolog.Logger
	order  domain.Order
	subs   map[string]map[*subscriber]struct{}
	render func(GameState) []byte
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log.With().Str("component", "app").Logger() }
}

// WithBot replaces the bot opponent.
func WithBot(bot *session.Bot) Option {
	return func(s *Service) { s.bot = bot }
}

// WithDefaultOrder sets the move list order of new games.
func WithDefaultOrder(order domain.Order) Option {
	return func(s *Service) { s.order = order }
}

// WithRenderer injects the renderer for broadcast payloads.
func WithRenderer(renderer func(GameState) []byte) Option {
	return func(s *Service) {
		if renderer != nil {
			s.render = renderer
		}
	}
}

// NewService creates a service backed by repo.
func NewService(repo repository.GameRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		bot:    session.NewBot(uint64(time.Now().UnixNano())),
		log:    zerolog.Nop(),
		subs:   make(map[string]map[*subscriber]struct{}),
		render: func(GameState) []byte { return nil },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// CreateGame creates and stores a new game.
func (s *Service) CreateGame(ctx context.Context, mode session.Mode) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := session.NewGame(uuid.NewString(), mode)
	if err != nil {
		return nil, err
	}
	g.SetOrder(s.order)
	if err = s.repo.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	s.log.Info().Str("game", g.ID()).Str("mode", string(mode)).Msg("game created")
	gs := stateOf(g)
	return &gs, nil
}

// Get returns a copy of the game state.
func (s *Service) Get(ctx context.Context, id string) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	gs := stateOf(g)
	return &gs, nil
}

// Join assigns a seat to the player if available; returns Empty for spectators.
func (s *Service) Join(ctx context.Context, id, playerID string) (domain.Cell, *GameState, error) {
	var side domain.Cell
	gs, err := s.update(ctx, id, func(g *session.Game) error {
		side = g.Join(playerID)
		return nil
	})
	if err != nil {
		return domain.Empty, nil, err
	}
	return side, gs, nil
}

// Play applies a move for the player. In bot mode the bot answers right away.
func (s *Service) Play(ctx context.Context, id, playerID string, index int) (*GameState, error) {
	return s.update(ctx, id, func(g *session.Game) error {
		if err := g.Play(playerID, index); err != nil {
			return err
		}
		if g.BotTurn() {
			return s.bot.MakeTurn(g)
		}
		return nil
	})
}

// JumpTo moves the game to an earlier or later entry of its history.
func (s *Service) JumpTo(ctx context.Context, id, playerID string, move int) (*GameState, error) {
	return s.update(ctx, id, func(g *session.Game) error {
		return g.JumpTo(playerID, move)
	})
}

// SetOrder changes the move list order.
func (s *Service) SetOrder(ctx context.Context, id string, order domain.Order) (*GameState, error) {
	return s.update(ctx, id, func(g *session.Game) error {
		g.SetOrder(order)
		return nil
	})
}

// BotMove lets the bot play when a bot game is waiting for it, e.g. after a jump.
func (s *Service) BotMove(ctx context.Context, id string) (*GameState, error) {
	return s.update(ctx, id, s.bot.MakeTurn)
}

// update loads the game, applies fn, saves the changes and broadcasts the new state.
// A failing fn leaves the stored game untouched.
func (s *Service) update(ctx context.Context, id string, fn func(*session.Game) error) (*GameState, error) {
	var toDrop []*subscriber

	s.mu.Lock()
	g, err := s.load(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err = fn(g); err != nil {
		s.mu.Unlock()
		if domain.Rejected(err) {
			s.log.Debug().Err(err).Str("game", id).Msg("move refused")
		} else {
			s.log.Info().Err(err).Str("game", id).Msg("change rejected")
		}
		return nil, err
	}
	changed := g.UnsavedEvents()
	if changed {
		if err = s.repo.Save(ctx, g); err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("failed to update game: %w", err)
		}
	}

	// Snapshot state and subscribers
	cp := stateOf(g)
	if !changed {
		s.mu.Unlock()
		return &cp, nil
	}
	subs := s.copySubsLocked(id)
	payload := s.render(cp)
	s.mu.Unlock()

	// Fan-out; drop slow subscribers by closing and marking for deletion
	for sub := range subs {
		if !sub.offer(payload) {
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
		s.log.Warn().Str("game", id).Int("dropped", len(toDrop)).Msg("dropped slow subscribers")
	}
	return &cp, nil
}

func (s *Service) load(ctx context.Context, id string) (*session.Game, error) {
	g, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrGameNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return g, nil
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
