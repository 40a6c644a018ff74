// Package bot connects the auction command handlers to Discord.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/jensholdgaard/league-auction/internal/bot/commands"
	"github.com/jensholdgaard/league-auction/internal/config"
)

// ErrNoToken is returned by New when no bot token is configured.
var ErrNoToken = errors.New("discord token is not configured")

// Bot wraps the Discord session and command handlers.
type Bot struct {
	session  *discordgo.Session
	cfg      config.DiscordConfig
	logger   *slog.Logger
	handlers *commands.Handlers
	cmds     []*discordgo.ApplicationCommand
}

// New creates a new Bot instance.
func New(cfg config.DiscordConfig, handlers *commands.Handlers, logger *slog.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	return &Bot{
		session:  session,
		cfg:      cfg,
		logger:   logger,
		handlers: handlers,
	}, nil
}

// Start opens the Discord connection and registers slash commands.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.InfoContext(ctx, "bot is ready", slog.String("user", s.State.User.Username))
	})

	b.session.AddHandler(b.handlers.InteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	registered, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.cfg.GuildID, commands.SlashCommands())
	if err != nil {
		_ = b.session.Close()
		return fmt.Errorf("registering slash commands: %w", err)
	}
	b.cmds = registered

	b.logger.InfoContext(ctx, "slash commands registered",
		slog.Int("count", len(registered)),
		slog.String("guild_id", b.cfg.GuildID),
	)
	return nil
}

// Stop closes the Discord connection. Guild commands are removed so a
// standby replica taking over registers a fresh set; global commands are
// left in place because Discord propagates them slowly.
func (b *Bot) Stop() error {
	if b.cfg.GuildID != "" {
		for _, cmd := range b.cmds {
			if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.cfg.GuildID, cmd.ID); err != nil {
				b.logger.Error("failed to delete command", slog.String("command", cmd.Name), slog.Any("error", err))
			}
		}
	}
	return b.session.Close()
}
