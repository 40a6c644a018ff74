// Package ledger owns the authoritative auction state: which team bought which
// player, at what price, and what every team has left to spend.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/event"
	"github.com/jensholdgaard/league-auction/internal/scoring"
	"github.com/jensholdgaard/league-auction/internal/session"
	"github.com/jensholdgaard/league-auction/internal/store"
)

const instrumentationName = "github.com/jensholdgaard/league-auction/internal/ledger"

// Errors returned by ledger operations.
var (
	ErrNotFound           = store.ErrNotFound
	ErrStorageUnavailable = store.ErrStorageUnavailable
	ErrAlreadySold        = errors.New("player already sold")
	ErrNotSold            = errors.New("player is not sold")
	ErrInvalidBid         = errors.New("bid is below player valuation")
	ErrBudgetExceeded     = errors.New("bid exceeds remaining budget")
	ErrInvalidTier        = errors.New("unknown tier")
	ErrForbidden          = errors.New("role may not modify the ledger")
)

// Summary is a team's budget position, computed from the ledger on demand.
type Summary struct {
	Team      string
	Budget    int
	Spent     int
	Remaining int
	Players   int
}

// Manager applies ledger operations. Operations on the same player, and
// assignments to the same team, are serialized.
type Manager struct {
	players store.PlayerRepository
	teams   store.TeamRepository
	events  event.Store
	logger  *slog.Logger
	tracer  trace.Tracer
	clock   clock.Clock
	locks   *keyLocks

	assignments   metric.Int64Counter
	unassignments metric.Int64Counter
	rejections    metric.Int64Counter
}

// NewManager returns a new ledger Manager.
func NewManager(players store.PlayerRepository, teams store.TeamRepository, events event.Store, logger *slog.Logger, tp trace.TracerProvider, mp metric.MeterProvider, clk clock.Clock) *Manager {
	meter := mp.Meter(instrumentationName)
	assignments, _ := meter.Int64Counter("auction.assignments",
		metric.WithDescription("Players sold to a team"))
	unassignments, _ := meter.Int64Counter("auction.unassignments",
		metric.WithDescription("Sales reverted"))
	rejections, _ := meter.Int64Counter("auction.rejections",
		metric.WithDescription("Ledger operations rejected by a precondition"))

	return &Manager{
		players:       players,
		teams:         teams,
		events:        events,
		logger:        logger,
		tracer:        tp.Tracer(instrumentationName),
		clock:         clk,
		locks:         newKeyLocks(),
		assignments:   assignments,
		unassignments: unassignments,
		rejections:    rejections,
	}
}

// Assign sells an unsold player to team at price. The price must be positive,
// at least the player's score and no more than the team's remaining budget.
func (m *Manager) Assign(ctx context.Context, playerName, teamName string, price int) (*store.Player, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Assign",
		trace.WithAttributes(
			attribute.String("player", playerName),
			attribute.String("team", teamName),
			attribute.Int("price", price),
		),
	)
	defer span.End()

	actor, err := m.authorize(ctx, session.Principal.CanMutate)
	if err != nil {
		return nil, m.reject(ctx, span, "forbidden", err)
	}

	unlock := m.locks.lock(teamKey(teamName), playerKey(playerName))
	defer unlock()

	p, err := m.players.Get(ctx, playerName)
	if err != nil {
		return nil, m.fail(ctx, span, fmt.Errorf("getting player %q: %w", playerName, err))
	}
	team, err := m.teams.Get(ctx, teamName)
	if err != nil {
		return nil, m.fail(ctx, span, fmt.Errorf("getting team %q: %w", teamName, err))
	}

	if p.Sold() {
		return nil, m.reject(ctx, span, "already_sold",
			fmt.Errorf("%w: %s belongs to %s", ErrAlreadySold, p.Name, p.Owner))
	}
	if valuation := scoring.Score(p.Attributes()); price <= 0 || price < valuation {
		return nil, m.reject(ctx, span, "invalid_bid",
			fmt.Errorf("%w: %d offered, minimum is %d", ErrInvalidBid, price, max(valuation, 1)))
	}

	summary, err := m.summarize(ctx, *team)
	if err != nil {
		return nil, m.fail(ctx, span, err)
	}
	if price > summary.Remaining {
		return nil, m.reject(ctx, span, "budget_exceeded",
			fmt.Errorf("%w: %s has %d left, bid is %d", ErrBudgetExceeded, team.Name, summary.Remaining, price))
	}

	state := store.SoldTo(team.Name, price)
	err = m.players.WritePlayer(ctx, p.Name, store.StatusUnsold, store.PlayerUpdate{State: &state})
	if errors.Is(err, store.ErrConflict) {
		return nil, m.reject(ctx, span, "already_sold", fmt.Errorf("%w: %s", ErrAlreadySold, p.Name))
	}
	if err != nil {
		return nil, m.fail(ctx, span, fmt.Errorf("recording sale: %w", err))
	}
	p.AuctionState = state

	m.record(ctx, event.New(p.Name, event.PlayerAssigned, actor.Username,
		event.AssignedData{Team: team.Name, Price: price}, m.clock.Now()))
	m.assignments.Add(ctx, 1, metric.WithAttributes(attribute.String("team", team.Name)))

	m.logger.InfoContext(ctx, "player assigned",
		slog.String("player", p.Name),
		slog.String("team", team.Name),
		slog.Int("price", price),
		slog.String("actor", actor.Username),
	)
	return p, nil
}

// Unassign reverts a sale: the player becomes unsold, ownerless, priced at
// zero and returns to the regular tier. The previous tier is not restored.
func (m *Manager) Unassign(ctx context.Context, playerName string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.Unassign",
		trace.WithAttributes(attribute.String("player", playerName)),
	)
	defer span.End()

	actor, err := m.authorize(ctx, session.Principal.CanMutate)
	if err != nil {
		return m.reject(ctx, span, "forbidden", err)
	}

	unlock := m.locks.lock(playerKey(playerName))
	defer unlock()

	p, err := m.players.Get(ctx, playerName)
	if err != nil {
		return m.fail(ctx, span, fmt.Errorf("getting player %q: %w", playerName, err))
	}
	if !p.Sold() {
		return m.reject(ctx, span, "not_sold", fmt.Errorf("%w: %s", ErrNotSold, p.Name))
	}

	state := store.Unsold()
	tier := store.TierRegular
	err = m.players.WritePlayer(ctx, p.Name, store.StatusSold, store.PlayerUpdate{State: &state, Tier: &tier})
	if errors.Is(err, store.ErrConflict) {
		return m.reject(ctx, span, "not_sold", fmt.Errorf("%w: %s", ErrNotSold, p.Name))
	}
	if err != nil {
		return m.fail(ctx, span, fmt.Errorf("reverting sale: %w", err))
	}

	m.record(ctx, event.New(p.Name, event.PlayerUnassigned, actor.Username,
		event.UnassignedData{Team: p.Owner, Price: p.Price, PrevTier: string(p.Tier)}, m.clock.Now()))
	m.unassignments.Add(ctx, 1, metric.WithAttributes(attribute.String("team", p.Owner)))

	m.logger.InfoContext(ctx, "player unassigned",
		slog.String("player", p.Name),
		slog.String("team", p.Owner),
		slog.Int("price", p.Price),
		slog.String("actor", actor.Username),
	)
	return nil
}

// SetTier reclassifies a player's draw tier. Admin only.
func (m *Manager) SetTier(ctx context.Context, playerName string, tier store.Tier) error {
	ctx, span := m.tracer.Start(ctx, "Manager.SetTier",
		trace.WithAttributes(
			attribute.String("player", playerName),
			attribute.String("tier", string(tier)),
		),
	)
	defer span.End()

	actor, err := m.authorize(ctx, session.Principal.IsAdmin)
	if err != nil {
		return m.reject(ctx, span, "forbidden", err)
	}
	if !tier.Valid() {
		return m.reject(ctx, span, "invalid_tier", fmt.Errorf("%w: %q", ErrInvalidTier, tier))
	}

	unlock := m.locks.lock(playerKey(playerName))
	defer unlock()

	p, err := m.players.Get(ctx, playerName)
	if err != nil {
		return m.fail(ctx, span, fmt.Errorf("getting player %q: %w", playerName, err))
	}
	if err := m.players.WritePlayer(ctx, p.Name, "", store.PlayerUpdate{Tier: &tier}); err != nil {
		return m.fail(ctx, span, fmt.Errorf("setting tier: %w", err))
	}

	m.record(ctx, event.New(p.Name, event.PlayerTierChanged, actor.Username,
		event.TierChangedData{From: string(p.Tier), To: string(tier)}, m.clock.Now()))

	m.logger.InfoContext(ctx, "player tier changed",
		slog.String("player", p.Name),
		slog.String("from", string(p.Tier)),
		slog.String("to", string(tier)),
		slog.String("actor", actor.Username),
	)
	return nil
}

// TeamSummary returns what the team has spent and has left. It is always
// computed from the current ledger.
func (m *Manager) TeamSummary(ctx context.Context, teamName string) (Summary, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.TeamSummary",
		trace.WithAttributes(attribute.String("team", teamName)),
	)
	defer span.End()

	team, err := m.teams.Get(ctx, teamName)
	if err != nil {
		return Summary{}, fmt.Errorf("getting team %q: %w", teamName, err)
	}
	return m.summarize(ctx, *team)
}

// Summaries returns a Summary for every team, ordered as the team store lists them.
func (m *Manager) Summaries(ctx context.Context) ([]Summary, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Summaries")
	defer span.End()

	teams, err := m.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	sold, err := m.players.List(ctx, store.PlayerFilter{Status: store.StatusSold})
	if err != nil {
		return nil, fmt.Errorf("listing sold players: %w", err)
	}

	spent := make(map[string]int, len(teams))
	count := make(map[string]int, len(teams))
	for _, p := range sold {
		spent[p.Owner] += p.Price
		count[p.Owner]++
	}

	out := make([]Summary, 0, len(teams))
	for _, t := range teams {
		out = append(out, Summary{
			Team:      t.Name,
			Budget:    t.Budget,
			Spent:     spent[t.Name],
			Remaining: t.Budget - spent[t.Name],
			Players:   count[t.Name],
		})
	}
	return out, nil
}

// Roster returns the players owned by a team.
func (m *Manager) Roster(ctx context.Context, teamName string) ([]store.Player, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Roster",
		trace.WithAttributes(attribute.String("team", teamName)),
	)
	defer span.End()

	if _, err := m.teams.Get(ctx, teamName); err != nil {
		return nil, fmt.Errorf("getting team %q: %w", teamName, err)
	}
	return m.players.List(ctx, store.PlayerFilter{Status: store.StatusSold, Owner: teamName})
}

// Players lists players matching filter.
func (m *Manager) Players(ctx context.Context, filter store.PlayerFilter) ([]store.Player, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Players")
	defer span.End()

	return m.players.List(ctx, filter)
}

// Teams lists all teams.
func (m *Manager) Teams(ctx context.Context) ([]store.Team, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Teams")
	defer span.End()

	return m.teams.List(ctx)
}

// History returns the audit trail of a player, oldest first.
func (m *Manager) History(ctx context.Context, playerName string) ([]event.Event, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.History",
		trace.WithAttributes(attribute.String("player", playerName)),
	)
	defer span.End()

	return m.events.Load(ctx, playerName)
}

func (m *Manager) summarize(ctx context.Context, team store.Team) (Summary, error) {
	owned, err := m.players.List(ctx, store.PlayerFilter{Status: store.StatusSold, Owner: team.Name})
	if err != nil {
		return Summary{}, fmt.Errorf("listing players of %q: %w", team.Name, err)
	}
	spent := 0
	for _, p := range owned {
		spent += p.Price
	}
	return Summary{
		Team:      team.Name,
		Budget:    team.Budget,
		Spent:     spent,
		Remaining: team.Budget - spent,
		Players:   len(owned),
	}, nil
}

func (m *Manager) authorize(ctx context.Context, allowed func(session.Principal) bool) (session.Principal, error) {
	p, ok := session.PrincipalFrom(ctx)
	if !ok {
		return session.Principal{}, fmt.Errorf("%w: not logged in", ErrForbidden)
	}
	if !allowed(p) {
		return p, fmt.Errorf("%w: %s is %q", ErrForbidden, p.Username, p.Role)
	}
	return p, nil
}

// record appends an audit event. The ledger write has already happened, so a
// failure here is logged rather than returned.
func (m *Manager) record(ctx context.Context, e event.Event) {
	if err := m.events.Append(ctx, e); err != nil {
		m.logger.ErrorContext(ctx, "failed to append ledger event",
			slog.String("type", string(e.Type)),
			slog.String("aggregate_id", e.AggregateID),
			slog.Any("error", err),
		)
	}
}

func (m *Manager) reject(ctx context.Context, span trace.Span, reason string, err error) error {
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	span.SetAttributes(attribute.String("rejected", reason))
	m.logger.InfoContext(ctx, "ledger operation rejected",
		slog.String("reason", reason),
		slog.Any("error", err),
	)
	return err
}

func (m *Manager) fail(ctx context.Context, span trace.Span, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return m.reject(ctx, span, "not_found", err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
