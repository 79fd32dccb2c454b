package cmd

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetcast/app"
	"github.com/kilianp07/fleetcast/config"
	"github.com/kilianp07/fleetcast/core/model"
)

var (
	planSel   selectionFlags
	planOut   outputFlags
	fcSel     selectionFlags
	fcOut     outputFlags
	serveTick time.Duration
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Forecast the target month and size the truck fleet per day",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPlan(cmd, &planSel, &planOut, printFleet)
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast daily package volumes of the target month",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPlan(cmd, &fcSel, &fcOut, printForecast)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Re-plan the configured selection periodically and publish the results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(ctx context.Context, _ *config.Config, svc *app.Service) error {
			return svc.Run(ctx, serveTick)
		})
	},
}

func init() {
	planSel.register(planCmd, true)
	planOut.register(planCmd)
	fcSel.register(forecastCmd, false)
	fcOut.register(forecastCmd)
	serveCmd.Flags().DurationVar(&serveTick, "interval", time.Hour, "time between planning passes")
	rootCmd.AddCommand(planCmd, forecastCmd, serveCmd)
}

func runPlan(cmd *cobra.Command, sel *selectionFlags, out *outputFlags, table func(w io.Writer, p *model.Plan)) error {
	return withService(func(ctx context.Context, _ *config.Config, svc *app.Service) error {
		req, err := svc.Request(time.Now())
		if err != nil {
			return err
		}
		if err := sel.apply(cmd, &req); err != nil {
			return err
		}
		svc.Start(ctx)
		plan, err := svc.Plan(ctx, req)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if done, err := out.export(w, plan); done || err != nil {
			return err
		}
		table(w, plan)
		return nil
	})
}
