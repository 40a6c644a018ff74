package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/event"
)

// EventStore implements event.Store backed by Postgres.
type EventStore struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sqlx.DB, clk clock.Clock) *EventStore {
	return &EventStore{db: db, clock: clk}
}

func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO events (id, aggregate_id, type, data, actor, created_at) VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return wrap("preparing statement", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.clock.Now().UTC()
		}
		data := string(e.Data)
		if data == "" {
			data = "{}"
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.AggregateID, e.Type, data, e.Actor, e.CreatedAt); err != nil {
			return wrap(fmt.Sprintf("inserting event (aggregate=%s, type=%s)", e.AggregateID, e.Type), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap("committing events", err)
	}
	return nil
}

func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		`SELECT id, aggregate_id, type, data, actor, created_at
		 FROM events WHERE aggregate_id = $1 ORDER BY seq ASC`, aggregateID)
	if err != nil {
		return nil, wrap("loading events", err)
	}
	return events, nil
}

func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		`SELECT id, aggregate_id, type, data, actor, created_at
		 FROM events WHERE type = $1 ORDER BY seq ASC`, eventType)
	if err != nil {
		return nil, wrap("loading events by type", err)
	}
	return events, nil
}
