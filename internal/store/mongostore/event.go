package mongostore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/event"
)

// eventDoc is keyed by an ObjectID so _id order is append order.
type eventDoc struct {
	OID         primitive.ObjectID `bson:"_id"`
	ID          string             `bson:"event_id"`
	AggregateID string             `bson:"aggregate_id"`
	Type        string             `bson:"type"`
	Data        string             `bson:"data"`
	Actor       string             `bson:"actor"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d eventDoc) event() event.Event {
	return event.Event{
		ID:          d.ID,
		AggregateID: d.AggregateID,
		Type:        event.Type(d.Type),
		Data:        json.RawMessage(d.Data),
		Actor:       d.Actor,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

// EventStore implements event.Store over a MongoDB collection.
type EventStore struct {
	coll  *mongo.Collection
	clock clock.Clock
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *mongo.Database, clk clock.Clock) *EventStore {
	return &EventStore{coll: db.Collection(eventsCollection), clock: clk}
}

func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]any, 0, len(events))
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
		docs = append(docs, eventDoc{
			OID:         primitive.NewObjectID(),
			ID:          e.ID,
			AggregateID: e.AggregateID,
			Type:        string(e.Type),
			Data:        data,
			Actor:       e.Actor,
			CreatedAt:   e.CreatedAt,
		})
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return wrap(fmt.Sprintf("inserting %d events", len(docs)), err)
	}
	return nil
}

func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]event.Event, error) {
	return s.find(ctx, bson.M{"aggregate_id": aggregateID})
}

func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	return s.find(ctx, bson.M{"type": string(eventType)})
}

func (s *EventStore) find(ctx context.Context, filter bson.M) ([]event.Event, error) {
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, wrap("loading events", err)
	}
	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("decoding events", err)
	}
	events := make([]event.Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.event())
	}
	return events, nil
}
