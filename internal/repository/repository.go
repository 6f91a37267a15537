package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/session"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// GameRepository persists game sessions.
type GameRepository interface {
	Save(ctx context.Context, game *session.Game) error
	GetByID(ctx context.Context, id string) (*session.Game, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver    string
	RedisAddr string
	TTL       time.Duration
}

// New builds the repository named by opts.Driver.
func New(ctx context.Context, opts Options) (GameRepository, error) {
	switch opts.Driver {
	case "", "memory":
		return NewEventStore(), nil
	case "redis":
		repo, err := NewRedis(ctx, opts.RedisAddr, opts.TTL)
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
}
