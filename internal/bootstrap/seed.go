package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/event"
	"github.com/jensholdgaard/league-auction/internal/store"
)

// Result counts the records written per collection.
type Result struct {
	Players int
	Teams   int
	Users   int
}

// Seeder writes a Dataset into the store.
type Seeder struct {
	repos  *store.Repositories
	logger *slog.Logger
	clock  clock.Clock
}

// NewSeeder returns a Seeder writing to repos.
func NewSeeder(repos *store.Repositories, logger *slog.Logger, clk clock.Clock) *Seeder {
	return &Seeder{repos: repos, logger: logger, clock: clk}
}

// Seed loads each collection from ds only if that collection is empty.
// Existing auction state is never touched.
func (s *Seeder) Seed(ctx context.Context, ds *Dataset) (Result, error) {
	var res Result

	n, err := s.repos.Players.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("counting players: %w", err)
	}
	if n == 0 && len(ds.Players) > 0 {
		if err := s.repos.Players.Insert(ctx, ds.Players...); err != nil {
			return res, fmt.Errorf("seeding players: %w", err)
		}
		res.Players = len(ds.Players)
	}

	n, err = s.repos.Teams.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("counting teams: %w", err)
	}
	if n == 0 && len(ds.Teams) > 0 {
		if err := s.repos.Teams.Insert(ctx, ds.Teams...); err != nil {
			return res, fmt.Errorf("seeding teams: %w", err)
		}
		res.Teams = len(ds.Teams)
	}

	n, err = s.repos.Users.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("counting users: %w", err)
	}
	if n == 0 && len(ds.Users) > 0 {
		if err := s.repos.Users.Insert(ctx, ds.Users...); err != nil {
			return res, fmt.Errorf("seeding users: %w", err)
		}
		res.Users = len(ds.Users)
	}

	s.logger.InfoContext(ctx, "seed complete",
		slog.Int("players", res.Players),
		slog.Int("teams", res.Teams),
		slog.Int("users", res.Users),
	)
	return res, nil
}

// Reset wipes players, teams and users and reloads them from ds, returning
// every player to unsold in its dataset tier. The audit trail is kept and a
// reset event is appended to it.
func (s *Seeder) Reset(ctx context.Context, ds *Dataset, actor string) (Result, error) {
	if err := s.repos.Players.DeleteAll(ctx); err != nil {
		return Result{}, fmt.Errorf("clearing players: %w", err)
	}
	if err := s.repos.Teams.DeleteAll(ctx); err != nil {
		return Result{}, fmt.Errorf("clearing teams: %w", err)
	}
	if err := s.repos.Users.DeleteAll(ctx); err != nil {
		return Result{}, fmt.Errorf("clearing users: %w", err)
	}

	res, err := s.Seed(ctx, ds)
	if err != nil {
		return res, err
	}

	e := event.New(event.LedgerAggregate, event.LedgerReset, actor,
		event.ResetData{Players: res.Players, Teams: res.Teams, Users: res.Users}, s.clock.Now())
	if err := s.repos.Events.Append(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to append reset event", slog.Any("error", err))
	}

	s.logger.WarnContext(ctx, "ledger reset", slog.String("actor", actor))
	return res, nil
}
