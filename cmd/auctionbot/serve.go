package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jensholdgaard/league-auction/internal/bot"
	"github.com/jensholdgaard/league-auction/internal/bot/commands"
	"github.com/jensholdgaard/league-auction/internal/health"
	"github.com/jensholdgaard/league-auction/internal/leader"
	"github.com/jensholdgaard/league-auction/internal/ledger"
	"github.com/jensholdgaard/league-auction/internal/report"
	"github.com/jensholdgaard/league-auction/internal/selection"
	"github.com/jensholdgaard/league-auction/internal/session"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot, health probes and report endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	if err := a.migrate(ctx); err != nil {
		return err
	}
	if a.cfg.Auction.SeedOnStart {
		if err := seedOnStart(ctx, a); err != nil {
			return err
		}
	}

	tracerProvider := a.tp.TracerProvider
	exporter := report.NewExporter(a.repos.Players, logger, tracerProvider)
	handlers := commands.NewHandlers(commands.Deps{
		Ledger: ledger.NewManager(a.repos.Players, a.repos.Teams, a.repos.Events,
			logger, tracerProvider, a.tp.MeterProvider, a.clock),
		Selector:    selection.NewSelector(a.repos.Players, tracerProvider, nil),
		Seeder:      a.seeder(),
		Exporter:    exporter,
		Users:       a.repos.Users,
		Sessions:    session.NewTable(),
		LoadDataset: a.loadDataset,
	}, logger, tracerProvider)

	healthHandler := health.NewHandler(a.clock,
		health.Checker{
			Name:  "database",
			Check: a.repos.Ping,
		},
	)
	healthHandler.SetRole(health.RoleStandby)

	// The HTTP server runs on every replica; standbys serve probes and exports.
	mux := http.NewServeMux()
	healthHandler.Register(mux)
	mux.Handle(report.Path, exporter.Handler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", a.cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
		}
	}()
	healthHandler.SetReady(true)

	// runBot is the work that only the ledger writer does.
	runBot := func(ctx context.Context) {
		healthHandler.SetRole(health.RoleLeader)
		logger.InfoContext(ctx, "auctionbot is the ledger writer", slog.String("version", version))

		discordBot, botErr := bot.New(a.cfg.Discord, handlers, logger)
		if errors.Is(botErr, bot.ErrNoToken) {
			logger.WarnContext(ctx, "no discord token configured, running without the bot")
			<-ctx.Done()
			return
		}
		if botErr != nil {
			logger.ErrorContext(ctx, "creating bot failed", slog.Any("error", botErr))
			return
		}
		if botErr = discordBot.Start(ctx); botErr != nil {
			logger.ErrorContext(ctx, "starting bot failed", slog.Any("error", botErr))
			return
		}

		// Block until leadership is lost or process is shutting down.
		<-ctx.Done()

		if stopErr := discordBot.Stop(); stopErr != nil {
			logger.Error("bot shutdown error", slog.Any("error", stopErr))
		}
	}

	leaderErr := leader.Run(ctx, a.cfg.LeaderElection, logger, leader.Callbacks{
		OnStartedLeading: runBot,
		OnStoppedLeading: func() {
			healthHandler.SetRole(health.RoleStandby)
			logger.Info("no longer the ledger writer")
		},
		OnNewLeader: func(identity string) {
			logger.Info("ledger writer elected", slog.String("identity", identity))
		},
	})
	healthHandler.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	if leaderErr != nil {
		return fmt.Errorf("leader election: %w", leaderErr)
	}
	logger.Info("shutdown complete")
	return nil
}

// seedOnStart loads the datasets into empty collections. A missing data
// directory is not fatal: the store may already have been seeded elsewhere.
func seedOnStart(ctx context.Context, a *app) error {
	ds, err := a.loadDataset()
	if errors.Is(err, os.ErrNotExist) {
		a.logger.WarnContext(ctx, "dataset not found, skipping seed",
			slog.String("data_dir", a.cfg.Auction.DataDir),
			slog.Any("error", err),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	if _, err := a.seeder().Seed(ctx, ds); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	return nil
}
