package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/league-auction/internal/bootstrap"
	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/ledger"
	"github.com/jensholdgaard/league-auction/internal/report"
	"github.com/jensholdgaard/league-auction/internal/selection"
	"github.com/jensholdgaard/league-auction/internal/session"
	"github.com/jensholdgaard/league-auction/internal/store"
	"github.com/jensholdgaard/league-auction/internal/store/memory"
)

var testClk = clock.Mock{T: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

const (
	playersCSV = `Name,Flat No,Skill,Preferred Playing Position,Batting Skill Level,Bowler Skill Level,Bowler Type,Wicket Keeper,auction_status
Arjun,A-101,All Rounder,Opener,Expert,Advanced,Fast,Yes,prime
Bhavin,B-204,Batsman,Middle Order,Intermediate,,,No,regular
Chirag,C-12,Bowler,Finisher,Beginner,Expert,Spin,No,end
`
	teamsCSV = "team_name\nHawks\nOwls\n"
	usersCSV = "username,password,role\nadmin,admin123,admin\ncaller,bid,auctioneer\nfan,fan,viewer\n"
)

// Discord user IDs used in the tests.
const (
	adminID  = "100"
	callerID = "200"
	fanID    = "300"
)

type fixture struct {
	repos    *store.Repositories
	handlers *Handlers
}

func loadDataset() (*bootstrap.Dataset, error) {
	players, err := bootstrap.ReadPlayers(strings.NewReader(playersCSV))
	if err != nil {
		return nil, err
	}
	teams, err := bootstrap.ReadTeams(strings.NewReader(teamsCSV), 20000)
	if err != nil {
		return nil, err
	}
	users, err := bootstrap.ReadUsers(strings.NewReader(usersCSV))
	if err != nil {
		return nil, err
	}
	return &bootstrap.Dataset{Players: players, Teams: teams, Users: users}, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.New(testClk)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tp := noop.NewTracerProvider()

	seeder := bootstrap.NewSeeder(repos, logger, testClk)
	ds, err := loadDataset()
	require.NoError(t, err)
	_, err = seeder.Seed(context.Background(), ds)
	require.NoError(t, err)

	h := NewHandlers(Deps{
		Ledger:      ledger.NewManager(repos.Players, repos.Teams, repos.Events, logger, tp, metricnoop.NewMeterProvider(), testClk),
		Selector:    selection.NewSelector(repos.Players, tp, rand.New(rand.NewPCG(1, 2))),
		Seeder:      seeder,
		Exporter:    report.NewExporter(repos.Players, logger, tp),
		Users:       repos.Users,
		Sessions:    session.NewTable(),
		LoadDataset: loadDataset,
	}, logger, tp)
	return &fixture{repos: repos, handlers: h}
}

func (f *fixture) run(uid, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) Reply {
	return f.handlers.Handle(context.Background(), uid, discordgo.ApplicationCommandInteractionData{
		Name:    name,
		Options: opts,
	})
}

func (f *fixture) login(t *testing.T, uid, username, password string) {
	t.Helper()
	r := f.run(uid, cmdLogin, str(optUsername, username), str(optPassword, password))
	require.True(t, strings.HasPrefix(r.Content, "Logged in"), r.Content)
}

func str(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: v,
	}
}

// Discord delivers integer options as JSON numbers.
func integer(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(v),
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	r := f.run(callerID, cmdLogin, str(optUsername, "caller"), str(optPassword, "wrong"))
	assert.True(t, r.Ephemeral)
	assert.Equal(t, "Invalid username or password.", r.Content)

	r = f.run(callerID, cmdWhoami)
	assert.Contains(t, r.Content, "not logged in")

	f.login(t, callerID, "caller", "bid")
	r = f.run(callerID, cmdWhoami)
	assert.Equal(t, "You are **caller** (auctioneer).", r.Content)

	r = f.run(callerID, cmdLogout)
	assert.Equal(t, "Logged out.", r.Content)
	r = f.run(callerID, cmdLogout)
	assert.Equal(t, "You were not logged in.", r.Content)
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.run(callerID, cmdAssign, str(optPlayer, "Arjun"), str(optTeam, "Hawks"), integer(optPrice, 600))
	assert.True(t, r.Ephemeral)
	assert.Contains(t, r.Content, "Not allowed")

	f.login(t, fanID, "fan", "fan")
	r = f.run(fanID, cmdAssign, str(optPlayer, "Arjun"), str(optTeam, "Hawks"), integer(optPrice, 600))
	assert.Contains(t, r.Content, "Not allowed")

	f.login(t, callerID, "caller", "bid")
	r = f.run(callerID, cmdAssign, str(optPlayer, "Arjun"), str(optTeam, "Hawks"), integer(optPrice, 500))
	assert.True(t, r.Ephemeral)
	assert.Contains(t, r.Content, "Cannot assign")

	r = f.run(callerID, cmdAssign, str(optPlayer, "Arjun"), str(optTeam, "Hawks"), integer(optPrice, 600))
	assert.False(t, r.Ephemeral)
	assert.Equal(t, "**Arjun** (Flat A-101) sold to **Hawks** for **600**. Hawks has **19400** left.", r.Content)

	p, err := f.repos.Players.Get(ctx, "Arjun")
	require.NoError(t, err)
	assert.Equal(t, store.SoldTo("Hawks", 600), p.AuctionState)

	r = f.run(callerID, cmdAssign, str(optPlayer, "Arjun"), str(optTeam, "Owls"), integer(optPrice, 700))
	assert.Contains(t, r.Content, "Cannot assign")
	assert.Contains(t, r.Content, ledger.ErrAlreadySold.Error())
}

func TestAssign_MissingOptions(t *testing.T) {
	f := newFixture(t)
	f.login(t, callerID, "caller", "bid")

	r := f.run(callerID, cmdAssign, str(optPlayer, "Arjun"), str(optTeam, "Hawks"))
	assert.True(t, r.Ephemeral)
	assert.Contains(t, r.Content, "Cannot assign")
}

func TestUndo(t *testing.T) {
	f := newFixture(t)
	f.login(t, callerID, "caller", "bid")

	r := f.run(callerID, cmdUndo, str(optPlayer, "Arjun"))
	assert.Contains(t, r.Content, ledger.ErrNotSold.Error())

	f.run(callerID, cmdAssign, str(optPlayer, "Arjun"), str(optTeam, "Hawks"), integer(optPrice, 600))
	r = f.run(callerID, cmdUndo, str(optPlayer, "Arjun"))
	assert.Contains(t, r.Content, "reverted")

	p, err := f.repos.Players.Get(context.Background(), "Arjun")
	require.NoError(t, err)
	assert.Equal(t, store.Unsold(), p.AuctionState)
	assert.Equal(t, store.TierRegular, p.Tier)

	r = f.run(callerID, cmdHistory, str(optPlayer, "Arjun"))
	assert.Contains(t, r.Content, "player.assigned by caller: Hawks for 600")
	assert.Contains(t, r.Content, "player.unassigned by caller: from Hawks (was 600)")
}

func TestNextAndLot(t *testing.T) {
	f := newFixture(t)

	r := f.run(fanID, cmdNext)
	assert.Contains(t, r.Content, "Up for auction: Arjun")

	r = f.run(fanID, cmdNext, str(optTier, "end"))
	assert.Contains(t, r.Content, "Up for auction: Chirag")

	r = f.run(fanID, cmdNext, str(optTier, "prime"), str(optCategory, "Bowler"))
	assert.True(t, r.Ephemeral)
	assert.Contains(t, r.Content, selection.ErrNoPlayersAvailable.Error())

	r = f.run(fanID, cmdLot, str(optPlayer, "Bhavin"))
	assert.Contains(t, r.Content, "Base price: **200**")

	r = f.run(fanID, cmdLot, str(optPlayer, "Nobody"))
	assert.True(t, r.Ephemeral)
	assert.Contains(t, r.Content, "Cannot lot")
}

func TestTier(t *testing.T) {
	f := newFixture(t)

	f.login(t, callerID, "caller", "bid")
	r := f.run(callerID, cmdTier, str(optPlayer, "Bhavin"), str(optTier, "prime"))
	assert.Contains(t, r.Content, "Not allowed")

	f.login(t, adminID, "admin", "admin123")
	r = f.run(adminID, cmdTier, str(optPlayer, "Bhavin"), str(optTier, "prime"))
	assert.Equal(t, "**Bhavin** moved to the **prime** tier.", r.Content)

	p, err := f.repos.Players.Get(context.Background(), "Bhavin")
	require.NoError(t, err)
	assert.Equal(t, store.TierPrime, p.Tier)
}

func TestTeamsRosterAndLists(t *testing.T) {
	f := newFixture(t)
	f.login(t, callerID, "caller", "bid")
	f.run(callerID, cmdAssign, str(optPlayer, "Chirag"), str(optTeam, "Owls"), integer(optPrice, 1000))

	r := f.run(fanID, cmdTeams)
	assert.Contains(t, r.Content, "**Hawks**: 0 players, spent 0 of 20000, **20000** remaining")
	assert.Contains(t, r.Content, "**Owls**: 1 players, spent 1000 of 20000, **19000** remaining")

	r = f.run(fanID, cmdRoster, str(optTeam, "Owls"))
	assert.Contains(t, r.Content, "Chirag (Bowler) for 1000")

	r = f.run(fanID, cmdRoster, str(optTeam, "Hawks"))
	assert.Contains(t, r.Content, "No players bought yet.")

	r = f.run(fanID, cmdSold)
	assert.Contains(t, r.Content, "**Sold players (1):**")
	assert.Contains(t, r.Content, "Chirag (Bowler) to Owls for 1000")

	r = f.run(fanID, cmdUnsold)
	assert.Contains(t, r.Content, "**Unsold players (2):**")
	assert.NotContains(t, r.Content, "Chirag")

	r = f.run(fanID, cmdUnsold, str(optCategory, "Batsman"))
	assert.Contains(t, r.Content, "**Unsold players (1):**")
	assert.Contains(t, r.Content, "Bhavin")
}

func TestPoints(t *testing.T) {
	f := newFixture(t)
	r := f.run(fanID, cmdPoints)
	assert.True(t, r.Ephemeral)
	assert.Contains(t, r.Content, "Skill: all rounder 150, batsman 100, bowler 100")
	assert.Contains(t, r.Content, "Wicket keeper: yes 50, no 0")
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.login(t, callerID, "caller", "bid")
	f.run(callerID, cmdAssign, str(optPlayer, "Arjun"), str(optTeam, "Hawks"), integer(optPrice, 600))

	r := f.run(callerID, cmdReset)
	assert.Contains(t, r.Content, "Not allowed")

	f.login(t, adminID, "admin", "admin123")
	r = f.run(adminID, cmdReset)
	assert.Contains(t, r.Content, "Ledger reset: 3 players, 2 teams, 3 users loaded.")

	p, err := f.repos.Players.Get(context.Background(), "Arjun")
	require.NoError(t, err)
	assert.Equal(t, store.Unsold(), p.AuctionState)

	r = f.run(callerID, cmdWhoami)
	assert.Contains(t, r.Content, "not logged in")
}

func TestReset_DatasetError(t *testing.T) {
	f := newFixture(t)
	f.handlers.LoadDataset = func() (*bootstrap.Dataset, error) { return nil, errors.New("no such file") }
	f.login(t, adminID, "admin", "admin123")

	r := f.run(adminID, cmdReset)
	assert.Equal(t, "Failed to reset: internal error.", r.Content)

	count, err := f.repos.Players.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	r := f.run(fanID, cmdExport)
	require.Len(t, r.Files, 1)
	assert.Equal(t, "players.csv", r.Files[0].Name)

	body, err := io.ReadAll(r.Files[0].Reader)
	require.NoError(t, err)
	players, err := bootstrap.ReadPlayers(strings.NewReader(string(body)))
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, "Arjun", players[0].Name)
}

func TestHandle_RequiresUserID(t *testing.T) {
	f := newFixture(t)

	r := f.run("", cmdLogin, str(optUsername, "admin"), str(optPassword, "admin123"))
	assert.Equal(t, Reply{Content: "Could not identify the calling Discord user.", Ephemeral: true}, r)

	_, ok := f.handlers.Sessions.Lookup("")
	assert.False(t, ok)
}

func TestUserID(t *testing.T) {
	member := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "1"}},
	}}
	direct := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "2"}}}
	anonymous := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}

	assert.Equal(t, "1", userID(member))
	assert.Equal(t, "2", userID(direct))
	assert.Empty(t, userID(anonymous))
}

func TestUnsold_CategorySpelling(t *testing.T) {
	f := newFixture(t)
	r := f.run(fanID, cmdUnsold, str(optCategory, "all-rounder"))
	assert.Contains(t, r.Content, "**Unsold players (1):**")
	assert.Contains(t, r.Content, "Arjun")
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	r := f.run(fanID, "bogus")
	assert.Equal(t, Reply{Content: "Unknown command", Ephemeral: true}, r)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "The ledger store is unavailable. Nothing was changed; try again shortly.",
		describe(cmdAssign, fmt.Errorf("writing: %w", store.ErrStorageUnavailable)))
	assert.Equal(t, "Cannot undo: player \"X\": not found",
		describe(cmdUndo, fmt.Errorf("player %q: %w", "X", store.ErrNotFound)))
	assert.Equal(t, "Failed to export: internal error.", describe(cmdExport, errors.New("boom")))
}

func TestAutocomplete(t *testing.T) {
	f := newFixture(t)
	f.login(t, callerID, "caller", "bid")
	f.run(callerID, cmdAssign, str(optPlayer, "Arjun"), str(optTeam, "Hawks"), integer(optPrice, 600))

	complete := func(command string, focused *discordgo.ApplicationCommandInteractionDataOption) []string {
		focused.Focused = true
		choices := f.handlers.Autocomplete(context.Background(), discordgo.ApplicationCommandInteractionData{
			Name:    command,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{str(optTeam, ""), focused},
		})
		out := make([]string, len(choices))
		for i, c := range choices {
			out[i] = c.Name
		}
		return out
	}

	assert.Equal(t, []string{"Chirag", "Bhavin"}, complete(cmdAssign, str(optPlayer, "")))
	assert.Equal(t, []string{"Arjun"}, complete(cmdUndo, str(optPlayer, "")))
	assert.Equal(t, []string{"Chirag"}, complete(cmdLot, str(optPlayer, "chi")))
	assert.Equal(t, []string{"Arjun", "Chirag", "Bhavin"}, complete(cmdHistory, str(optPlayer, "")))
	assert.Equal(t, []string{"Owls"}, complete(cmdRoster, str(optTeam, "ow")))
}

func TestRank_CapsChoices(t *testing.T) {
	var candidates names
	for i := range 40 {
		candidates = append(candidates, fmt.Sprintf("Player %02d", i))
	}
	assert.Len(t, rank(candidates, ""), maxChoices)
	assert.Len(t, rank(candidates, "pl"), maxChoices)
	assert.Empty(t, rank(candidates, "zzz"))
}

func TestClip(t *testing.T) {
	lines := make([]string, 200)
	for i := range lines {
		lines[i] = strings.Repeat("x", 30)
	}
	out := clip("header", lines)
	assert.LessOrEqual(t, len(out), maxMessageLen)
	assert.Contains(t, out, "more")

	assert.Equal(t, "header\na\nb", clip("header", []string{"a", "b"}))
}
