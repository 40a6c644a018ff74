package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/jensholdgaard/league-auction/internal/ledger"
	"github.com/jensholdgaard/league-auction/internal/selection"
	"github.com/jensholdgaard/league-auction/internal/session"
	"github.com/jensholdgaard/league-auction/internal/store"
)

var errMissingOption = errors.New("missing option")

func (h *Handlers) handleLogin(ctx context.Context, uid string, opts options) (Reply, error) {
	p, err := session.Authenticate(ctx, h.Users, opts.str(optUsername), opts.str(optPassword))
	if err != nil {
		return Reply{}, err
	}
	h.Sessions.Login(uid, p)
	h.logger.InfoContext(ctx, "operator logged in",
		slog.String("username", p.Username),
		slog.String("role", p.Role),
	)
	return Reply{Content: fmt.Sprintf("Logged in as **%s** (%s).", p.Username, p.Role), Ephemeral: true}, nil
}

func (h *Handlers) handleLogout(uid string) Reply {
	if !h.Sessions.Logout(uid) {
		return Reply{Content: "You were not logged in.", Ephemeral: true}
	}
	return Reply{Content: "Logged out.", Ephemeral: true}
}

func (h *Handlers) handleWhoami(ctx context.Context) Reply {
	p, ok := session.PrincipalFrom(ctx)
	if !ok {
		return Reply{Content: "You are not logged in. Use `/login`.", Ephemeral: true}
	}
	return Reply{Content: fmt.Sprintf("You are **%s** (%s).", p.Username, p.Role), Ephemeral: true}
}

func (h *Handlers) handleNext(ctx context.Context, opts options) (Reply, error) {
	p, err := h.Selector.SelectNext(ctx, selection.Criteria{
		Tier:     store.Tier(opts.str(optTier)),
		Category: opts.str(optCategory),
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: formatLot(p)}, nil
}

func (h *Handlers) handleLot(ctx context.Context, opts options) (Reply, error) {
	name := opts.str(optPlayer)
	if name == "" {
		return Reply{}, fmt.Errorf("%w: %s", errMissingOption, optPlayer)
	}
	p, err := h.Selector.Pick(ctx, name)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: formatLot(p)}, nil
}

func (h *Handlers) handleAssign(ctx context.Context, opts options) (Reply, error) {
	player, team := opts.str(optPlayer), opts.str(optTeam)
	price, ok := opts.integer(optPrice)
	if player == "" || team == "" || !ok {
		return Reply{}, fmt.Errorf("%w: player, team and price are required", errMissingOption)
	}

	p, err := h.Ledger.Assign(ctx, player, team, price)
	if err != nil {
		return Reply{}, err
	}
	summary, err := h.Ledger.TeamSummary(ctx, team)
	if err != nil {
		// The sale stands; only the follow-up figure is missing.
		return Reply{Content: fmt.Sprintf("**%s** (Flat %s) sold to **%s** for **%d**.", p.Name, p.FlatNo, team, price)}, nil
	}
	return Reply{Content: fmt.Sprintf("**%s** (Flat %s) sold to **%s** for **%d**. %s has **%d** left.",
		p.Name, p.FlatNo, team, price, team, summary.Remaining)}, nil
}

func (h *Handlers) handleUndo(ctx context.Context, opts options) (Reply, error) {
	name := opts.str(optPlayer)
	if name == "" {
		return Reply{}, fmt.Errorf("%w: %s", errMissingOption, optPlayer)
	}
	if err := h.Ledger.Unassign(ctx, name); err != nil {
		return Reply{}, err
	}
	return Reply{Content: fmt.Sprintf("Sale of **%s** reverted. The player is back in the regular pool.", name)}, nil
}

func (h *Handlers) handleTier(ctx context.Context, opts options) (Reply, error) {
	name, tier := opts.str(optPlayer), store.Tier(opts.str(optTier))
	if name == "" || tier == "" {
		return Reply{}, fmt.Errorf("%w: player and tier are required", errMissingOption)
	}
	if err := h.Ledger.SetTier(ctx, name, tier); err != nil {
		return Reply{}, err
	}
	return Reply{Content: fmt.Sprintf("**%s** moved to the **%s** tier.", name, tier)}, nil
}

func (h *Handlers) handleTeams(ctx context.Context) (Reply, error) {
	summaries, err := h.Ledger.Summaries(ctx)
	if err != nil {
		return Reply{}, err
	}
	if len(summaries) == 0 {
		return Reply{Content: "No teams loaded."}, nil
	}
	return Reply{Content: formatSummaries(summaries)}, nil
}

func (h *Handlers) handleRoster(ctx context.Context, opts options) (Reply, error) {
	team := opts.str(optTeam)
	if team == "" {
		return Reply{}, fmt.Errorf("%w: %s", errMissingOption, optTeam)
	}
	players, err := h.Ledger.Roster(ctx, team)
	if err != nil {
		return Reply{}, err
	}
	summary, err := h.Ledger.TeamSummary(ctx, team)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: formatRoster(summary, players)}, nil
}

func (h *Handlers) handleUnsold(ctx context.Context, opts options) (Reply, error) {
	filter := store.PlayerFilter{Status: store.StatusUnsold}
	if c := opts.str(optCategory); c != "" && c != selection.AllCategories {
		filter.Skill = c
	}
	players, err := h.Ledger.Players(ctx, filter)
	if err != nil {
		return Reply{}, err
	}
	if len(players) == 0 {
		return Reply{Content: "No unsold players."}, nil
	}
	return Reply{Content: formatPlayers(fmt.Sprintf("**Unsold players (%d):**", len(players)), players, false)}, nil
}

func (h *Handlers) handleSold(ctx context.Context) (Reply, error) {
	players, err := h.Ledger.Players(ctx, store.PlayerFilter{Status: store.StatusSold})
	if err != nil {
		return Reply{}, err
	}
	if len(players) == 0 {
		return Reply{Content: "No players sold yet."}, nil
	}
	return Reply{Content: formatPlayers(fmt.Sprintf("**Sold players (%d):**", len(players)), players, true)}, nil
}

func (h *Handlers) handlePoints() Reply {
	return Reply{Content: formatPointsTable(), Ephemeral: true}
}

func (h *Handlers) handleHistory(ctx context.Context, opts options) (Reply, error) {
	name := opts.str(optPlayer)
	if name == "" {
		return Reply{}, fmt.Errorf("%w: %s", errMissingOption, optPlayer)
	}
	events, err := h.Ledger.History(ctx, name)
	if err != nil {
		return Reply{}, err
	}
	if len(events) == 0 {
		return Reply{Content: fmt.Sprintf("No history for **%s**.", name), Ephemeral: true}, nil
	}
	return Reply{Content: formatHistory(name, events), Ephemeral: true}, nil
}

func (h *Handlers) handleReset(ctx context.Context) (Reply, error) {
	p, ok := session.PrincipalFrom(ctx)
	if !ok || !p.IsAdmin() {
		return Reply{}, fmt.Errorf("%w: reset requires an admin", ledger.ErrForbidden)
	}

	ds, err := h.LoadDataset()
	if err != nil {
		return Reply{}, fmt.Errorf("loading dataset: %w", err)
	}
	res, err := h.Seeder.Reset(ctx, ds, p.Username)
	if err != nil {
		return Reply{}, err
	}
	h.Sessions.Clear()

	return Reply{Content: fmt.Sprintf("Ledger reset: %d players, %d teams, %d users loaded. Everyone has been logged out.",
		res.Players, res.Teams, res.Users)}, nil
}

func (h *Handlers) handleExport(ctx context.Context) (Reply, error) {
	var buf bytes.Buffer
	if err := h.Exporter.WriteCSV(ctx, &buf); err != nil {
		return Reply{}, err
	}
	return Reply{
		Content:   "Player ledger export.",
		Ephemeral: true,
		Files: []*discordgo.File{{
			Name:        "players.csv",
			ContentType: "text/csv",
			Reader:      &buf,
		}},
	}, nil
}

// describe turns a command error into a user-facing message.
func describe(command string, err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ledger.ErrForbidden):
		return fmt.Sprintf("Not allowed: %s. Use `/login` with an account that has the required role.", err)
	case errors.Is(err, store.ErrStorageUnavailable):
		return "The ledger store is unavailable. Nothing was changed; try again shortly."
	case errors.Is(err, selection.ErrNoPlayersAvailable),
		errors.Is(err, ledger.ErrAlreadySold),
		errors.Is(err, ledger.ErrNotSold),
		errors.Is(err, ledger.ErrInvalidBid),
		errors.Is(err, ledger.ErrBudgetExceeded),
		errors.Is(err, ledger.ErrInvalidTier),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, errMissingOption):
		return fmt.Sprintf("Cannot %s: %s", command, err)
	}
	return fmt.Sprintf("Failed to %s: internal error.", command)
}
