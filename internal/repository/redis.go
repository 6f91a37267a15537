package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/session"
)

// Redis stores the latest snapshot of each game as JSON under "game:<id>".
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client. A zero ttl keeps games forever.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func gameKey(id string) string {
	return "game:" + id
}

func (that *Redis) Save(ctx context.Context, game *session.Game) error {
	gameJSON, err := json.Marshal(game.Snapshot())
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	if err = that.client.Set(ctx, gameKey(game.ID()), gameJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return nil
}

func (that *Redis) GetByID(ctx context.Context, id string) (*session.Game, error) {
	response, err := that.client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var snap session.Snapshot
	if err = json.Unmarshal(response, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	game, err := session.Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to restore game: %w", err)
	}

	return game, nil
}

func (that *Redis) Close() error {
	return that.client.Close()
}
