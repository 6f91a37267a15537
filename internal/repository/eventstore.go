package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hallgren/eventsourcing"
	"github.com/hallgren/eventsourcing/aggregate"
	"github.com/hallgren/eventsourcing/eventstore/memory"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/session"
)

// EventStore keeps every game as its event stream in memory. Loading a game
// replays its moves and jumps.
type EventStore struct {
	es *memory.Memory
}

func NewEventStore() *EventStore {
	aggregate.Register(&session.Game{})
	return &EventStore{es: memory.Create()}
}

func (that *EventStore) Save(_ context.Context, game *session.Game) error {
	if err := aggregate.Save(that.es, game); err != nil {
		return fmt.Errorf("failed to save game events: %w", err)
	}
	return nil
}

func (that *EventStore) GetByID(ctx context.Context, id string) (*session.Game, error) {
	game := &session.Game{}
	err := aggregate.Load(ctx, that.es, id, game)
	if errors.Is(err, eventsourcing.ErrAggregateNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return game, nil
}

func (that *EventStore) Close() error {
	that.es.Close()
	return nil
}
