package event

import "context"

// Store persists and retrieves ledger events.
type Store interface {
	// Append persists one or more events atomically.
	Append(ctx context.Context, events ...Event) error
	// Load returns all events for an aggregate, oldest first.
	Load(ctx context.Context, aggregateID string) ([]Event, error)
	// LoadByType returns events filtered by type, oldest first.
	LoadByType(ctx context.Context, eventType Type) ([]Event, error)
}
