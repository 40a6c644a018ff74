package bootstrap_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensholdgaard/league-auction/internal/bootstrap"
	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/event"
	"github.com/jensholdgaard/league-auction/internal/store"
	"github.com/jensholdgaard/league-auction/internal/store/memory"
)

var testClk = clock.Mock{T: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

func dataset(t *testing.T) *bootstrap.Dataset {
	t.Helper()
	players, err := bootstrap.ReadPlayers(strings.NewReader(playersCSV))
	require.NoError(t, err)
	teams, err := bootstrap.ReadTeams(strings.NewReader(teamsCSV), 20000)
	require.NoError(t, err)
	users, err := bootstrap.ReadUsers(strings.NewReader(usersCSV))
	require.NoError(t, err)
	return &bootstrap.Dataset{Players: players, Teams: teams, Users: users}
}

func TestSeed_OnlyEmptyCollections(t *testing.T) {
	repos := memory.New(testClk)
	ctx := context.Background()
	seeder := bootstrap.NewSeeder(repos, slog.Default(), testClk)

	require.NoError(t, repos.Teams.Insert(ctx, store.Team{Name: "Existing", Budget: 1000}))

	res, err := seeder.Seed(ctx, dataset(t))
	require.NoError(t, err)
	assert.Equal(t, bootstrap.Result{Players: 3, Teams: 0, Users: 3}, res)

	teams, _ := repos.Teams.List(ctx)
	require.Len(t, teams, 1)
	assert.Equal(t, "Existing", teams[0].Name)

	// Seeding again is a no-op and keeps auction state.
	sold := store.SoldTo("Existing", 600)
	require.NoError(t, repos.Players.WritePlayer(ctx, "Arjun", store.StatusUnsold, store.PlayerUpdate{State: &sold}))

	res, err = seeder.Seed(ctx, dataset(t))
	require.NoError(t, err)
	assert.Equal(t, bootstrap.Result{}, res)

	p, _ := repos.Players.Get(ctx, "Arjun")
	assert.Equal(t, sold, p.AuctionState)
}

func TestReset(t *testing.T) {
	repos := memory.New(testClk)
	ctx := context.Background()
	seeder := bootstrap.NewSeeder(repos, slog.Default(), testClk)

	_, err := seeder.Seed(ctx, dataset(t))
	require.NoError(t, err)

	sold := store.SoldTo("Hawks", 900)
	prime := store.TierPrime
	require.NoError(t, repos.Players.WritePlayer(ctx, "Arjun", store.StatusUnsold, store.PlayerUpdate{State: &sold, Tier: &prime}))

	res, err := seeder.Reset(ctx, dataset(t), "admin")
	require.NoError(t, err)
	assert.Equal(t, bootstrap.Result{Players: 3, Teams: 2, Users: 3}, res)

	p, err := repos.Players.Get(ctx, "Arjun")
	require.NoError(t, err)
	assert.Equal(t, store.Unsold(), p.AuctionState)
	assert.Equal(t, store.TierRegular, p.Tier)
	assert.Equal(t, 600, p.Points)

	resets, _ := repos.Events.LoadByType(ctx, event.LedgerReset)
	require.Len(t, resets, 1)
	assert.Equal(t, "admin", resets[0].Actor)
}
