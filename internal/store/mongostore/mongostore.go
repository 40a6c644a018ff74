// Package mongostore provides the "mongo" store driver. Player, team and user
// documents keep the dataset column names so collections written by earlier
// tooling can be opened in place.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	crerr "github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/config"
	"github.com/jensholdgaard/league-auction/internal/store"
)

// Collection names.
const (
	playersCollection = "players"
	teamsCollection   = "teams"
	usersCollection   = "users"
	eventsCollection  = "events"
	schemaCollection  = "schema_migrations"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func init() {
	store.Register("mongo", Open)
}

// Open connects to MongoDB and returns repositories over cfg.DBName.
func Open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(client.Database(cfg.DBName), clk), nil
}

// New wires repositories around db.
func New(db *mongo.Database, clk clock.Clock) *store.Repositories {
	client := db.Client()
	return &store.Repositories{
		Players: NewPlayerRepo(db, clk),
		Teams:   NewTeamRepo(db),
		Users:   NewUserRepo(db),
		Events:  NewEventStore(db, clk),
		Closer: closerFunc(func() error {
			return client.Disconnect(context.Background())
		}),
		Ping: func(ctx context.Context) error {
			if err := client.Ping(ctx, readpref.Primary()); err != nil {
				return unavailable("pinging mongo", err)
			}
			return nil
		},
		Migrate: func(ctx context.Context) error {
			return Migrate(ctx, db)
		},
	}
}

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*mongo.Client, error) {
	uri := cfg.MongoURI
	if uri == "" {
		uri = fmt.Sprintf("mongodb://%s:%d", cfg.Host, cfg.Port)
	}
	opts := options.Client().ApplyURI(uri)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout).SetServerSelectionTimeout(cfg.ConnectTimeout)

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating mongo client: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable("connecting to mongo", err)
	}
	return client, nil
}

// unavailable marks err as a storage outage so callers can match it with
// errors.Is(err, store.ErrStorageUnavailable).
func unavailable(op string, err error) error {
	return crerr.Wrapf(store.ErrStorageUnavailable, "%s: %v", op, err)
}

// wrap classifies a driver error for op.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	case mongo.IsNetworkError(err),
		mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected):
		return unavailable(op, err)
	}
	return crerr.Wrap(err, op)
}

// text decodes any scalar into a string. Documents imported from spreadsheets
// carry NaN for blank cells and numbers for numeric-looking values.
type text string

func (t *text) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: bt, Value: data}
	switch bt {
	case bson.TypeString:
		*t = text(rv.StringValue())
	case bson.TypeNull, bson.TypeUndefined:
		*t = ""
	case bson.TypeDouble:
		f := rv.Double()
		if math.IsNaN(f) {
			*t = ""
			return nil
		}
		*t = text(strconv.FormatFloat(f, 'f', -1, 64))
	case bson.TypeInt32:
		*t = text(strconv.Itoa(int(rv.Int32())))
	case bson.TypeInt64:
		*t = text(strconv.FormatInt(rv.Int64(), 10))
	case bson.TypeBoolean:
		*t = text(strconv.FormatBool(rv.Boolean()))
	default:
		return fmt.Errorf("cannot decode bson %s into a string", bt)
	}
	return nil
}
