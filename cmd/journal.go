package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetcast/app"
	"github.com/kilianp07/fleetcast/config"
	"github.com/kilianp07/fleetcast/core/journal"
	"github.com/kilianp07/fleetcast/core/model"
)

var jq struct {
	terminal string
	target   string
	since    time.Duration
	limit    int
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List past planning runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(ctx context.Context, cfg *config.Config, svc *app.Service) error {
			if cfg.Journal.Backend == "none" {
				return fmt.Errorf("journal is disabled, set journal.backend to jsonl or sqlite")
			}
			q := journal.Query{Terminal: jq.terminal, Limit: jq.limit}
			if jq.target != "" {
				k, err := model.ParseMonthKey(jq.target)
				if err != nil {
					return err
				}
				q.Target = k
			}
			if jq.since > 0 {
				q.Start = time.Now().Add(-jq.since)
			}
			recs, err := svc.Journal.Query(ctx, q)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "Time\tPlan\tTarget\tTerminal\tStatus\tPackages\tTrucks\tRemaining")
			for _, r := range recs {
				printer.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					r.Timestamp.Local().Format("2006-01-02 15:04"), r.PlanID, r.Target, r.Terminal, r.Status,
					r.ForecastPackages, r.Summary.TotalTrucks, r.Summary.TotalRemaining)
			}
			return tw.Flush()
		})
	},
}

func init() {
	fs := journalCmd.Flags()
	fs.StringVar(&jq.terminal, "terminal", "", "only runs for this terminal label")
	fs.StringVar(&jq.target, "target", "", "only runs for this target month")
	fs.DurationVar(&jq.since, "since", 0, "only runs newer than this duration")
	fs.IntVarP(&jq.limit, "limit", "n", 20, "most recent runs to show")
	rootCmd.AddCommand(journalCmd)
}
