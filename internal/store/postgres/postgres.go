// Package postgres provides the "sqlx" store driver backed by Postgres.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/XSAM/otelsql"
	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/config"
	"github.com/jensholdgaard/league-auction/internal/store"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func init() {
	store.Register("sqlx", open)
}

func open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repos := New(db, clk)
	dbURL := cfg.URL()
	repos.Migrate = func(ctx context.Context) error { return Migrate(ctx, dbURL) }
	return repos, nil
}

// New wires repositories around an open database. Migrate is left nil;
// callers that own the schema set it.
func New(db *sqlx.DB, clk clock.Clock) *store.Repositories {
	return &store.Repositories{
		Players: NewPlayerRepo(db, clk),
		Teams:   NewTeamRepo(db),
		Users:   NewUserRepo(db),
		Events:  NewEventStore(db, clk),
		Closer:  closerFunc(db.Close),
		Ping: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return unavailable("pinging database", err)
			}
			return nil
		},
	}
}

// Connect opens and verifies a Postgres connection with OTEL instrumentation.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("registering otel driver: %w", err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	db, err := sqlx.ConnectContext(ctx, driverName, cfg.DSN())
	if err != nil {
		return nil, unavailable("connecting to database", err)
	}
	return db, nil
}

// unavailable marks err as a storage outage so callers can match it with
// errors.Is(err, store.ErrStorageUnavailable).
func unavailable(op string, err error) error {
	return crerr.Wrapf(store.ErrStorageUnavailable, "%s: %v", op, err)
}

// wrap classifies a database error for op.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	case isConnectionError(err):
		return unavailable(op, err)
	}
	return crerr.Wrap(err, op)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isConnectionError(err error) bool {
	var (
		netErr net.Error
		pqErr  *pq.Error
	)
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.As(err, &netErr):
		return true
	case errors.As(err, &pqErr):
		// 08: connection exception, 57: operator intervention (shutdown).
		class := pqErr.Code.Class()
		return class == "08" || class == "57"
	}
	return false
}
