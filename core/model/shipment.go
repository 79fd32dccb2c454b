package model

import (
	"fmt"
	"time"
)

// DailyObservation is the package count recorded for one calendar day.
type DailyObservation struct {
	Day   int       `json:"day"`
	Value int       `json:"value"`
	Date  time.Time `json:"date"`
}

// MonthBatch groups the observations of a single month.
type MonthBatch struct {
	Key          MonthKey           `json:"key"`
	Observations []DailyObservation `json:"observations"`
}

// HasData reports whether at least one observation is positive. All-zero
// months are excluded from history.
func (b MonthBatch) HasData() bool {
	for _, o := range b.Observations {
		if o.Value > 0 {
			return true
		}
	}
	return false
}

// Total returns the sum of all observations.
func (b MonthBatch) Total() int {
	sum := 0
	for _, o := range b.Observations {
		sum += o.Value
	}
	return sum
}

// HistoricalWindow is an ordered list of month batches, oldest first.
type HistoricalWindow []MonthBatch

// TerminalSide selects which end of a shipment a terminal filter applies to.
type TerminalSide int

const (
	SideAny TerminalSide = iota
	SideSender
	SideReceiver
)

func (s TerminalSide) String() string {
	switch s {
	case SideSender:
		return "sender"
	case SideReceiver:
		return "receiver"
	default:
		return "any"
	}
}

func (s TerminalSide) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *TerminalSide) UnmarshalText(b []byte) error {
	v, err := ParseTerminalSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseTerminalSide converts "any", "sender" or "receiver". Empty means any.
func ParseTerminalSide(s string) (TerminalSide, error) {
	switch s {
	case "", "any", "both":
		return SideAny, nil
	case "sender":
		return SideSender, nil
	case "receiver":
		return SideReceiver, nil
	default:
		return SideAny, fmt.Errorf("%w: unknown terminal side %q", ErrInvalidConfiguration, s)
	}
}

// TerminalFilter optionally restricts counts to one terminal. The zero value
// matches every shipment.
type TerminalFilter struct {
	Name string       `json:"name,omitempty"`
	Side TerminalSide `json:"side"`
}

// IsEmpty reports whether the filter matches everything.
func (f TerminalFilter) IsEmpty() bool { return f.Name == "" }

// Label returns a short identifier used in cache keys and topics.
func (f TerminalFilter) Label() string {
	if f.IsEmpty() {
		return "all"
	}
	return f.Name
}
