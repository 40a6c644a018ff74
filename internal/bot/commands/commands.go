// Package commands implements the auction slash commands. Handle turns a
// command into a Reply without touching Discord, so InteractionCreate only
// has to route and respond.
package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/league-auction/internal/bootstrap"
	"github.com/jensholdgaard/league-auction/internal/ledger"
	"github.com/jensholdgaard/league-auction/internal/report"
	"github.com/jensholdgaard/league-auction/internal/selection"
	"github.com/jensholdgaard/league-auction/internal/session"
	"github.com/jensholdgaard/league-auction/internal/store"
	"github.com/jensholdgaard/league-auction/internal/telemetry"
)

// Command and option names.
const (
	cmdLogin   = "login"
	cmdLogout  = "logout"
	cmdWhoami  = "whoami"
	cmdNext    = "next"
	cmdLot     = "lot"
	cmdAssign  = "assign"
	cmdUndo    = "undo"
	cmdTier    = "tier"
	cmdTeams   = "teams"
	cmdRoster  = "roster"
	cmdUnsold  = "unsold"
	cmdSold    = "sold"
	cmdPoints  = "points"
	cmdHistory = "history"
	cmdReset   = "reset"
	cmdExport  = "export"

	optUsername = "username"
	optPassword = "password"
	optPlayer   = "player"
	optTeam     = "team"
	optPrice    = "price"
	optTier     = "tier"
	optCategory = "category"
)

// Categories offered for /next and /unsold.
var Categories = []string{selection.AllCategories, "Batsman", "Bowler", "All Rounder"}

// Reply is the response to one command.
type Reply struct {
	Content   string
	Ephemeral bool
	Files     []*discordgo.File
}

// Deps are the services the handlers drive.
type Deps struct {
	Ledger   *ledger.Manager
	Selector *selection.Selector
	Seeder   *bootstrap.Seeder
	Exporter *report.Exporter
	Users    store.UserRepository
	Sessions *session.Table
	// LoadDataset reads the bootstrap files for /reset.
	LoadDataset func() (*bootstrap.Dataset, error)
}

// Handlers process Discord interactions.
type Handlers struct {
	Deps
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHandlers creates new command handlers.
func NewHandlers(deps Deps, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		Deps:   deps,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/league-auction/internal/bot/commands"),
	}
}

// InteractionCreate handles incoming slash command and autocomplete
// interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		reply := h.Handle(context.Background(), userID(i), i.ApplicationCommandData())
		respond(s, i, reply)
	case discordgo.InteractionApplicationCommandAutocomplete:
		choices := h.Autocomplete(context.Background(), i.ApplicationCommandData())
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionApplicationCommandAutocompleteResult,
			Data: &discordgo.InteractionResponseData{Choices: choices},
		})
		if err != nil {
			h.logger.Error("failed to send autocomplete choices", slog.Any("error", err))
		}
	}
}

// Handle runs one slash command on behalf of the Discord user uid.
func (h *Handlers) Handle(ctx context.Context, uid string, data discordgo.ApplicationCommandInteractionData) Reply {
	ctx, span := h.tracer.Start(ctx, "Handlers.Handle",
		trace.WithAttributes(attribute.String("command", data.Name)),
	)
	defer span.End()

	// Sessions are keyed by user ID, so an interaction without one cannot
	// be attributed to anybody.
	if uid == "" {
		span.SetStatus(codes.Error, "missing user id")
		return Reply{Content: "Could not identify the calling Discord user.", Ephemeral: true}
	}

	if p, ok := h.Sessions.Lookup(uid); ok {
		ctx = session.WithPrincipal(ctx, p)
		span.SetAttributes(attribute.String("principal", p.Username))
	}
	opts := optionsOf(data.Options)

	var (
		reply Reply
		err   error
	)
	switch data.Name {
	case cmdLogin:
		reply, err = h.handleLogin(ctx, uid, opts)
	case cmdLogout:
		reply = h.handleLogout(uid)
	case cmdWhoami:
		reply = h.handleWhoami(ctx)
	case cmdNext:
		reply, err = h.handleNext(ctx, opts)
	case cmdLot:
		reply, err = h.handleLot(ctx, opts)
	case cmdAssign:
		reply, err = h.handleAssign(ctx, opts)
	case cmdUndo:
		reply, err = h.handleUndo(ctx, opts)
	case cmdTier:
		reply, err = h.handleTier(ctx, opts)
	case cmdTeams:
		reply, err = h.handleTeams(ctx)
	case cmdRoster:
		reply, err = h.handleRoster(ctx, opts)
	case cmdUnsold:
		reply, err = h.handleUnsold(ctx, opts)
	case cmdSold:
		reply, err = h.handleSold(ctx)
	case cmdPoints:
		reply = h.handlePoints()
	case cmdHistory:
		reply, err = h.handleHistory(ctx, opts)
	case cmdReset:
		reply, err = h.handleReset(ctx)
	case cmdExport:
		reply, err = h.handleExport(ctx)
	default:
		reply = Reply{Content: "Unknown command", Ephemeral: true}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.LogWithTrace(ctx, h.logger).InfoContext(ctx, "command failed",
			slog.String("command", data.Name),
			slog.Any("error", err),
		)
		return Reply{Content: describe(data.Name, err), Ephemeral: true}
	}
	return reply
}

func userID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, r Reply) {
	data := &discordgo.InteractionResponseData{
		Content: r.Content,
		Files:   r.Files,
	}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	out := make(options, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

func (o options) str(name string) string {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return strings.TrimSpace(opt.StringValue())
}

func (o options) integer(name string) (int, bool) {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return int(opt.IntValue()), true
}
