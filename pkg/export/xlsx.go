package export

import (
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kilianp07/fleetcast/core/model"
)

const (
	sheetForecast = "Forecast"
	sheetFleet    = "Fleet"
	sheetSummary  = "Summary"
)

// WriteXLSX writes a workbook with Summary, Forecast and Fleet sheets.
func WriteXLSX(w io.Writer, plan *model.Plan) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	if err := writeSummary(f, plan, bold); err != nil {
		return err
	}

	forecast := make([][]any, len(plan.Forecast))
	for i, p := range plan.Forecast {
		forecast[i] = forecastRow(p)
	}
	if err := writeTable(f, sheetForecast, forecastHeader, forecast, bold); err != nil {
		return err
	}

	header, daily := dailyRows(plan)
	if err := writeTable(f, sheetFleet, header, daily, bold); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func writeTable(f *excelize.File, sheet string, header []string, rows [][]any, style int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := r
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeSummary(f *excelize.File, plan *model.Plan, style int) error {
	s := plan.Summary
	sel := plan.Selection
	rows := [][]any{
		{"plan_id", plan.ID},
		{"generated_at", plan.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"status", string(plan.Status)},
		{"target", sel.Target.String()},
		{"terminal", sel.Terminal.Label()},
		{"side", sel.Terminal.Side.String()},
		{"day_type", sel.DayType},
		{"historical_months", sel.HistoricalMonths},
		{"strategy", sel.Strategy},
		{"use_large_trucks", sel.UseLargeTrucks},
		{"trend", plan.Trend},
		{"forecast_packages", plan.ForecastTotal()},
		{"total_trucks", s.TotalTrucks},
		{"total_regular_trucks", s.TotalRegularTrucks},
		{"total_large_trucks", s.TotalLargeTrucks},
		{"total_assigned_capacity", s.TotalAssignedCapacity},
		{"total_remaining", s.TotalRemaining},
		{"additional_capacity", s.AdditionalCapacity},
		{"peak_day", s.PeakDay},
		{"peak_trucks", s.PeakTrucks},
		{"average_trucks_per_day", s.AverageTrucksPerDay},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := r
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "A"+strconv.Itoa(len(rows)), style); err != nil {
		return err
	}
	return f.SetColWidth(sheetSummary, "A", "A", 26)
}
