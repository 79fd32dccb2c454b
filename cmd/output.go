package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/pkg/export"
)

// outputFlags choose how a plan leaves the process.
type outputFlags struct {
	format string
	path   string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "export format: json, csv or xlsx (default: table)")
	cmd.Flags().StringVar(&o.path, "output", "", "write the export to this file instead of stdout")
}

// export writes the plan in the selected format. It reports false when no
// format was requested so the caller prints a table instead.
func (o *outputFlags) export(w io.Writer, plan *model.Plan) (bool, error) {
	if o.format == "" && o.path == "" {
		return false, nil
	}
	f, err := export.ParseFormat(o.format)
	if err != nil {
		return true, err
	}
	if o.path == "" {
		return true, export.Write(w, f, plan)
	}
	file, err := os.Create(o.path)
	if err != nil {
		return true, err
	}
	if err := export.Write(file, f, plan); err != nil {
		_ = file.Close()
		return true, err
	}
	return true, file.Close()
}

var printer = message.NewPrinter(language.English)

func printHeader(w io.Writer, plan *model.Plan) {
	sel := plan.Selection
	printer.Fprintf(w, "Plan %s for %s, terminal %s (%s), %s days\n",
		plan.ID, sel.Target, sel.Terminal.Label(), sel.Terminal.Side, sel.DayType)
	printer.Fprintf(w, "History: %d of %d months used", len(plan.Included), sel.HistoricalMonths)
	if len(plan.Empty) > 0 {
		printer.Fprintf(w, ", %d empty", len(plan.Empty))
	}
	if len(plan.Failed) > 0 {
		printer.Fprintf(w, ", %d failed", len(plan.Failed))
	}
	printer.Fprintf(w, ". Status %s, trend %.1f packages/month\n\n", plan.Status, plan.Trend)
}

func printForecast(w io.Writer, plan *model.Plan) {
	printHeader(w, plan)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tWeekday\tForecast\tMin\tMax\t")
	for _, p := range plan.Forecast {
		d := plan.Selection.Target.Date(p.Day)
		printer.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t\n", d.Format("2006-01-02"), d.Weekday().String()[:3], p.Forecast, p.ForecastMin, p.ForecastMax)
	}
	_ = tw.Flush()
	printer.Fprintf(w, "\nTotal forecast: %d packages\n", plan.ForecastTotal())
}

func printFleet(w io.Writer, plan *model.Plan) {
	printHeader(w, plan)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tPackages\tRegular\tLarge\tCapacity\tRemaining\tSurplus\t")
	for _, r := range plan.Fleet {
		mark := ""
		if r.Overridden {
			mark = "*"
		}
		printer.Fprintf(tw, "%s%s\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			plan.Selection.Target.Date(r.Day).Format("2006-01-02"), mark,
			r.Packages, r.AssignedRegularTrucks, r.AssignedLargeTrucks, r.AssignedCapacity, r.RemainingPackages, r.SurplusCapacity)
	}
	_ = tw.Flush()
	s := plan.Summary
	printer.Fprintf(w, "\n%d days, %d packages, %d trucks (%d regular, %d large), %.2f trucks/day\n",
		s.Days, s.TotalPackages, s.TotalTrucks, s.TotalRegularTrucks, s.TotalLargeTrucks, s.AverageTrucksPerDay)
	if s.PeakDay > 0 {
		printer.Fprintf(w, "Peak: day %d with %d trucks\n", s.PeakDay, s.PeakTrucks)
	}
	if s.TotalRemaining > 0 {
		printer.Fprintf(w, "Unassigned: %d packages\n", s.TotalRemaining)
	}
	if s.AdditionalCapacity > 0 {
		printer.Fprintf(w, "Spare capacity: %d packages\n", s.AdditionalCapacity)
	}
}
