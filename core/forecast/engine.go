package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fleetcast/core/model"
)

// Blend weights and band heuristics. These encode planning judgement, not
// derived math, and must stay stable for forecasts to remain comparable.
const (
	// DayOfWeekWeight is the share of the day-of-week average in a daily forecast.
	DayOfWeekWeight = 0.7
	// BaseWeight is the share of the trend-adjusted overall average.
	BaseWeight = 0.3
	// FallbackStdDevRatio sizes the band as a fraction of the overall average
	// when fewer than two samples exist.
	FallbackStdDevRatio = 0.2
)

// Model holds the statistics fitted on a historical window.
type Model struct {
	// OverallAverage is the mean of all positive values, pooled across months.
	OverallAverage float64 `json:"overall_average"`
	// MonthlyAverages holds the mean of positive values per month, oldest first.
	MonthlyAverages []float64 `json:"monthly_averages"`
	// Trend is the least-squares slope of MonthlyAverages against 1..N.
	Trend float64 `json:"trend"`
	// DayOfWeek holds the average per weekday, Sunday first. Buckets without
	// observations carry OverallAverage.
	DayOfWeek [7]float64 `json:"day_of_week"`
	// DayOfWeekSamples counts the observations behind each bucket.
	DayOfWeekSamples [7]int `json:"day_of_week_samples"`
	// StdDev is the half-width of the confidence band.
	StdDev  float64 `json:"std_dev"`
	Samples int     `json:"samples"`
	Months  int     `json:"months"`
}

// Base returns the overall average projected one month past the window.
func (m Model) Base() float64 {
	return m.OverallAverage + m.Trend*float64(m.Months+1)
}

// Point computes the forecast for a single weekday.
func (m Model) Point(day int, wd time.Weekday) model.ForecastPoint {
	value := m.Base()
	if dow := m.DayOfWeek[wd]; dow > 0 {
		value = DayOfWeekWeight*dow + BaseWeight*value
	}
	return model.ForecastPoint{
		Day:         day,
		Forecast:    roundNonNegative(value),
		ForecastMin: roundNonNegative(value - m.StdDev),
		ForecastMax: roundNonNegative(value + m.StdDev),
	}
}

// Engine computes forecasts. The zero value is ready to use and holds no state.
type Engine struct{}

// NewEngine returns a forecast engine.
func NewEngine() Engine { return Engine{} }

// Fit derives the model statistics from batches restricted by filter.
func (Engine) Fit(batches []model.MonthBatch, filter model.DayType) Model {
	m := Model{Months: len(batches), MonthlyAverages: make([]float64, len(batches))}
	var pooled []float64
	var dowSum [7]float64
	for i, b := range batches {
		var month []float64
		for _, o := range b.Observations {
			if o.Value <= 0 || o.Day < 1 || o.Day > b.Key.DaysIn() {
				continue
			}
			wd := b.Key.Weekday(o.Day)
			if !filter.Matches(wd) {
				continue
			}
			v := float64(o.Value)
			month = append(month, v)
			dowSum[wd] += v
			m.DayOfWeekSamples[wd]++
		}
		if len(month) > 0 {
			m.MonthlyAverages[i] = stat.Mean(month, nil)
		}
		pooled = append(pooled, month...)
	}
	m.Samples = len(pooled)
	if m.Samples > 0 {
		m.OverallAverage = stat.Mean(pooled, nil)
	}
	m.Trend = trend(m.MonthlyAverages)
	for wd := range m.DayOfWeek {
		if m.DayOfWeekSamples[wd] > 0 {
			m.DayOfWeek[wd] = dowSum[wd] / float64(m.DayOfWeekSamples[wd])
		} else {
			m.DayOfWeek[wd] = m.OverallAverage
		}
	}
	if m.Samples >= 2 {
		_, variance := stat.PopMeanVariance(pooled, nil)
		m.StdDev = math.Sqrt(variance)
	} else {
		m.StdDev = m.OverallAverage * FallbackStdDevRatio
	}
	return m
}

// Compute returns one forecast point per day of target matching filter.
// Days filtered out are omitted. An empty window yields an empty result.
func (e Engine) Compute(batches []model.MonthBatch, filter model.DayType, target model.MonthKey) ([]model.ForecastPoint, error) {
	_, points, err := e.Forecast(batches, filter, target)
	return points, err
}

// Forecast is Compute that also returns the fitted model, so callers can
// report its statistics without fitting twice.
func (e Engine) Forecast(batches []model.MonthBatch, filter model.DayType, target model.MonthKey) (Model, []model.ForecastPoint, error) {
	if err := target.Validate(); err != nil {
		return Model{}, nil, err
	}
	if !filter.Valid() {
		return Model{}, nil, fmt.Errorf("%w: day type %d", model.ErrInvalidConfiguration, filter)
	}
	if len(batches) == 0 {
		return Model{}, []model.ForecastPoint{}, nil
	}
	m := e.Fit(batches, filter)
	points := make([]model.ForecastPoint, 0, target.DaysIn())
	for day := 1; day <= target.DaysIn(); day++ {
		wd := target.Weekday(day)
		if !filter.Matches(wd) {
			continue
		}
		points = append(points, m.Point(day, wd))
	}
	return m, points, nil
}

// trend is the closed-form least-squares slope of ys against 1..N.
func trend(ys []float64) float64 {
	if len(ys) <= 1 {
		return 0
	}
	xs := make([]float64, len(ys))
	for i := range ys {
		xs[i] = float64(i + 1)
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope
}

func roundNonNegative(v float64) int {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}
