package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetcast/app"
	"github.com/kilianp07/fleetcast/config"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/infra/source/sqlite"
)

var snap struct {
	from     string
	to       string
	db       string
	terminal string
	side     string
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy daily counts from the configured source into a SQLite file",
	Long: "Snapshot fetches every month between --from and --to from the configured\n" +
		"source and stores the daily counts in a SQLite file usable as the sqlite source.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(ctx context.Context, _ *config.Config, svc *app.Service) error {
			return runSnapshot(ctx, cmd, svc)
		})
	},
}

func init() {
	fs := snapshotCmd.Flags()
	fs.StringVar(&snap.from, "from", "", "first month YYYY-MM (required)")
	fs.StringVar(&snap.to, "to", "", "last month YYYY-MM (default previous month)")
	fs.StringVar(&snap.db, "db", "counts.db", "SQLite file to write")
	fs.StringVar(&snap.terminal, "terminal", "", "restrict counts to one terminal")
	fs.StringVar(&snap.side, "side", "", "terminal side: any, sender or receiver")
	_ = snapshotCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(ctx context.Context, cmd *cobra.Command, svc *app.Service) error {
	from, err := model.ParseMonthKey(snap.from)
	if err != nil {
		return err
	}
	to := model.NewMonthKey(time.Now()).Prev()
	if snap.to != "" {
		if to, err = model.ParseMonthKey(snap.to); err != nil {
			return err
		}
	}
	if to.Before(from) {
		return fmt.Errorf("%w: --to %s before --from %s", model.ErrInvalidConfiguration, to, from)
	}
	side, err := model.ParseTerminalSide(snap.side)
	if err != nil {
		return err
	}
	filter := model.TerminalFilter{Name: snap.terminal, Side: side}

	store, err := sqlite.Open(snap.db)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for k := from; !to.Before(k); k = k.Next() {
		obs, err := svc.Source.FetchDailyCounts(ctx, k, filter)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", k, err)
		}
		if err := store.Upsert(ctx, k, filter, obs); err != nil {
			return fmt.Errorf("store %s: %w", k, err)
		}
		printer.Fprintf(cmd.OutOrStdout(), "%s  %d packages\n", k, model.MonthBatch{Key: k, Observations: obs}.Total())
	}
	return nil
}
