// Package export renders plans as JSON, CSV or Excel workbooks.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/fleetcast/core/model"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts json, csv or xlsx in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", model.ErrInvalidConfiguration, s)
	}
}

// Write renders plan to w in the given format.
func Write(w io.Writer, f Format, plan *model.Plan) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, plan)
	case FormatCSV:
		return WriteDailyCSV(w, plan)
	case FormatXLSX:
		return WriteXLSX(w, plan)
	default:
		return fmt.Errorf("%w: unknown export format %q", model.ErrInvalidConfiguration, f)
	}
}

// WriteJSON writes the plan as indented JSON.
func WriteJSON(w io.Writer, plan *model.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

var forecastHeader = []string{"day", "forecast", "forecast_min", "forecast_max"}

func forecastRow(p model.ForecastPoint) []any {
	return []any{p.Day, p.Forecast, p.ForecastMin, p.ForecastMax}
}

var fleetHeader = []string{
	"day", "packages",
	"regular_trucks", "large_trucks", "total_trucks", "total_capacity",
	"assigned_regular_trucks", "assigned_large_trucks", "assigned_capacity",
	"remaining_packages", "surplus_capacity", "overridden",
}

func fleetRow(r model.FleetRequirement) []any {
	return []any{
		r.Day, r.Packages,
		r.RegularTrucks, r.LargeTrucks, r.TotalTrucks, r.TotalCapacity,
		r.AssignedRegularTrucks, r.AssignedLargeTrucks, r.AssignedCapacity,
		r.RemainingPackages, r.SurplusCapacity, r.Overridden,
	}
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case int:
			out[i] = strconv.Itoa(x)
		case bool:
			out[i] = strconv.FormatBool(x)
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func writeCSV(w io.Writer, header []string, rows [][]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(toStrings(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecastCSV writes one row per forecast day.
func WriteForecastCSV(w io.Writer, points []model.ForecastPoint) error {
	rows := make([][]any, len(points))
	for i, p := range points {
		rows[i] = forecastRow(p)
	}
	return writeCSV(w, forecastHeader, rows)
}

// WriteFleetCSV writes one row per fleet requirement.
func WriteFleetCSV(w io.Writer, reqs []model.FleetRequirement) error {
	rows := make([][]any, len(reqs))
	for i, r := range reqs {
		rows[i] = fleetRow(r)
	}
	return writeCSV(w, fleetHeader, rows)
}

// dailyRows joins the forecast band onto each fleet requirement by day.
func dailyRows(plan *model.Plan) ([]string, [][]any) {
	band := make(map[int]model.ForecastPoint, len(plan.Forecast))
	for _, p := range plan.Forecast {
		band[p.Day] = p
	}
	header := append([]string{"date", "forecast_min", "forecast_max"}, fleetHeader...)
	rows := make([][]any, 0, len(plan.Fleet))
	for _, r := range plan.Fleet {
		p := band[r.Day]
		date := plan.Selection.Target.Date(r.Day).Format("2006-01-02")
		rows = append(rows, append([]any{date, p.ForecastMin, p.ForecastMax}, fleetRow(r)...))
	}
	return header, rows
}

// WriteDailyCSV writes the forecast band and fleet sizing of every planned day.
func WriteDailyCSV(w io.Writer, plan *model.Plan) error {
	header, rows := dailyRows(plan)
	return writeCSV(w, header, rows)
}
