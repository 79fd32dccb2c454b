package model

import "time"

// PlanStatus tells consumers how much history a plan rests on.
type PlanStatus string

const (
	PlanOK                  PlanStatus = "ok"
	PlanNoData              PlanStatus = "no_data"
	PlanInsufficientHistory PlanStatus = "insufficient_history"
)

// FetchStatus classifies the outcome of loading one historical month.
type FetchStatus string

const (
	FetchOK     FetchStatus = "ok"
	FetchEmpty  FetchStatus = "empty"
	FetchFailed FetchStatus = "failed"
)

// FetchEvent describes the load of one historical month.
type FetchEvent struct {
	Month    MonthKey      `json:"month"`
	Terminal string        `json:"terminal"`
	Status   FetchStatus   `json:"status"`
	Days     int           `json:"days"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Time     time.Time     `json:"time"`
}

// MonthFailure records a month excluded because its fetch failed.
type MonthFailure struct {
	Month MonthKey `json:"month"`
	Error string   `json:"error"`
}

// PlanSelection echoes the inputs a plan was computed for.
type PlanSelection struct {
	Target           MonthKey       `json:"target"`
	Terminal         TerminalFilter `json:"terminal"`
	DayType          string         `json:"day_type"`
	HistoricalMonths int            `json:"historical_months"`
	Strategy         string         `json:"strategy"`
	UseLargeTrucks   bool           `json:"use_large_trucks"`
	RegularCapacity  int            `json:"regular_capacity"`
	LargeCapacityMin int            `json:"large_capacity_min"`
	LargeCapacityMax int            `json:"large_capacity_max"`
}

// Plan is the complete output of one planning run.
type Plan struct {
	ID          string             `json:"id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Status      PlanStatus         `json:"status"`
	Selection   PlanSelection      `json:"selection"`
	Included    []MonthKey         `json:"included_months"`
	Empty       []MonthKey         `json:"empty_months,omitempty"`
	Failed      []MonthFailure     `json:"failed_months,omitempty"`
	Trend       float64            `json:"trend"`
	Forecast    []ForecastPoint    `json:"forecast"`
	Fleet       []FleetRequirement `json:"fleet"`
	Summary     FleetSummary       `json:"summary"`
}

// ForecastTotal sums the daily forecasts.
func (p *Plan) ForecastTotal() int {
	sum := 0
	for _, f := range p.Forecast {
		sum += f.Forecast
	}
	return sum
}
