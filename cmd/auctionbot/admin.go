package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jensholdgaard/league-auction/internal/report"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the store schema up to the latest version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()
			return a.migrate(ctx)
		},
	}
}

func seedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the datasets into empty collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.migrate(ctx); err != nil {
				return err
			}
			ds, err := a.loadDataset()
			if err != nil {
				return fmt.Errorf("loading dataset: %w", err)
			}
			res, err := a.seeder().Seed(ctx, ds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d players, %d teams, %d users\n", res.Players, res.Teams, res.Users)
			return nil
		},
	}
}

func resetCmd(configPath *string) *cobra.Command {
	var (
		confirm bool
		actor   string
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe the ledger and reload it from the datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("reset discards every sale; pass --yes to confirm")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.migrate(ctx); err != nil {
				return err
			}
			ds, err := a.loadDataset()
			if err != nil {
				return fmt.Errorf("loading dataset: %w", err)
			}
			res, err := a.seeder().Reset(ctx, ds, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset: %d players, %d teams, %d users\n", res.Players, res.Teams, res.Users)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the reset")
	cmd.Flags().StringVar(&actor, "actor", "cli", "actor recorded on the reset event")
	return cmd
}

func exportCmd(configPath *string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the player report as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			exporter := report.NewExporter(a.repos.Players, a.logger, a.tp.TracerProvider)
			if output == "" || output == "-" {
				return exporter.WriteCSV(ctx, cmd.OutOrStdout())
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := exporter.WriteCSV(ctx, f); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}
