package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ethoscan/evidence-resolver/internal/resolver"
)

// EventStore reads event provenance rows. Events are never written by the
// resolution pipeline.
type EventStore struct {
	pool querier
}

// NewEventStore constructs a store over an existing pool.
func NewEventStore(pool querier) (*EventStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &EventStore{pool: pool}, nil
}

// GetEvent returns the event's category and raw provenance bag.
func (s *EventStore) GetEvent(ctx context.Context, id string) (resolver.Event, error) {
	const query = `SELECT id, category, raw_data FROM events WHERE id = $1`

	var (
		ev      resolver.Event
		rawData []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(&ev.ID, &ev.Category, &rawData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return resolver.Event{}, resolver.ErrNotFound
		}
		return resolver.Event{}, fmt.Errorf("get event: %w", err)
	}
	if len(rawData) > 0 {
		if err := json.Unmarshal(rawData, &ev.RawData); err != nil {
			return resolver.Event{}, fmt.Errorf("decode event raw_data: %w", err)
		}
	}
	return ev, nil
}
