package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	PlayerAssigned    Type = "player.assigned"
	PlayerUnassigned  Type = "player.unassigned"
	PlayerTierChanged Type = "player.tier_changed"

	LedgerReset Type = "ledger.reset"
)

// Event is a single entry in the ledger audit trail. AggregateID is the
// player name for player events and "ledger" for ledger-wide events.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Actor       string          `json:"actor" db:"actor"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// LedgerAggregate is the aggregate ID used for ledger-wide events.
const LedgerAggregate = "ledger"

// AssignedData is the payload for PlayerAssigned events.
type AssignedData struct {
	Team  string `json:"team"`
	Price int    `json:"price"`
}

// UnassignedData is the payload for PlayerUnassigned events.
type UnassignedData struct {
	Team     string `json:"team"`
	Price    int    `json:"price"`
	PrevTier string `json:"prev_tier"`
}

// TierChangedData is the payload for PlayerTierChanged events.
type TierChangedData struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ResetData is the payload for LedgerReset events.
type ResetData struct {
	Players int `json:"players"`
	Teams   int `json:"teams"`
	Users   int `json:"users"`
}

// New builds an event with a JSON-encoded payload.
func New(aggregateID string, t Type, actor string, payload any, at time.Time) Event {
	data, _ := json.Marshal(payload)
	return Event{
		AggregateID: aggregateID,
		Type:        t,
		Data:        data,
		Actor:       actor,
		CreatedAt:   at.UTC(),
	}
}
