package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jensholdgaard/league-auction/internal/bootstrap"
	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/config"
	"github.com/jensholdgaard/league-auction/internal/store"
	"github.com/jensholdgaard/league-auction/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/league-auction/internal/store/memory"
	_ "github.com/jensholdgaard/league-auction/internal/store/mongostore"
	_ "github.com/jensholdgaard/league-auction/internal/store/postgres"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "auctionbot",
		Short:         "League player auction ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")

	cmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		seedCmd(&configPath),
		resetCmd(&configPath),
		exportCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return cmd
}

// app is the state shared by every subcommand: configuration, telemetry and
// an open store.
type app struct {
	cfg    *config.Config
	tp     *telemetry.Provider
	logger *slog.Logger
	clock  clock.Clock
	repos  *store.Repositories
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}

	clk := clock.Real{}
	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	tp.Logger.InfoContext(ctx, "connected to store", slog.String("driver", cfg.Database.Driver))

	return &app{cfg: cfg, tp: tp, logger: tp.Logger, clock: clk, repos: repos}, nil
}

func (a *app) close() {
	if err := a.repos.Closer.Close(); err != nil {
		a.logger.Error("store close error", slog.Any("error", err))
	}
	if err := a.tp.Shutdown(context.Background()); err != nil {
		slog.Error("telemetry shutdown error", slog.Any("error", err))
	}
}

func (a *app) migrate(ctx context.Context) error {
	if err := a.repos.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	a.logger.InfoContext(ctx, "schema up to date")
	return nil
}

func (a *app) loadDataset() (*bootstrap.Dataset, error) {
	return bootstrap.LoadDir(a.cfg.Auction.DataDir, a.cfg.Auction.StartingBudget)
}

func (a *app) seeder() *bootstrap.Seeder {
	return bootstrap.NewSeeder(a.repos, a.logger, a.clock)
}
