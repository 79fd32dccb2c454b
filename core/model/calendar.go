package model

import (
	"fmt"
	"time"
)

// MonthKey identifies a calendar month. It encodes as "YYYY-MM".
type MonthKey struct {
	Year  int
	Month time.Month
}

// NewMonthKey returns the month containing t, in t's location.
func NewMonthKey(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidConfiguration, s)
	}
	k := NewMonthKey(t)
	return k, k.Validate()
}

func (k MonthKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *MonthKey) UnmarshalText(b []byte) error {
	v, err := ParseMonthKey(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Validate checks the month is a real proleptic Gregorian month.
func (k MonthKey) Validate() error {
	if k.Month < time.January || k.Month > time.December {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidConfiguration, k.Month)
	}
	if k.Year < 1 || k.Year > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidConfiguration, k.Year)
	}
	return nil
}

// First returns midnight UTC of the first day of the month.
func (k MonthKey) First() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Date returns midnight UTC of the given day in the month.
func (k MonthKey) Date(day int) time.Time {
	return time.Date(k.Year, k.Month, day, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the month.
func (k MonthKey) DaysIn() int {
	return k.First().AddDate(0, 1, -1).Day()
}

// Weekday returns the weekday of the given day in the month.
func (k MonthKey) Weekday(day int) time.Weekday {
	return k.Date(day).Weekday()
}

// Next returns the following month.
func (k MonthKey) Next() MonthKey { return NewMonthKey(k.First().AddDate(0, 1, 0)) }

// Prev returns the preceding month.
func (k MonthKey) Prev() MonthKey { return NewMonthKey(k.First().AddDate(0, -1, 0)) }

// Before reports whether k is strictly earlier than o.
func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// DayType restricts a series to weekdays, weekends or all days.
type DayType int

const (
	DayTypeAll DayType = iota
	DayTypeWeekday
	DayTypeWeekend
)

func (d DayType) String() string {
	switch d {
	case DayTypeAll:
		return "all"
	case DayTypeWeekday:
		return "weekday"
	case DayTypeWeekend:
		return "weekend"
	default:
		return "unknown"
	}
}

// Valid reports whether d is a known day type.
func (d DayType) Valid() bool {
	return d >= DayTypeAll && d <= DayTypeWeekend
}

// Matches reports whether a day falling on wd passes the filter.
// Saturday and Sunday are weekend days.
func (d DayType) Matches(wd time.Weekday) bool {
	weekend := wd == time.Saturday || wd == time.Sunday
	switch d {
	case DayTypeWeekday:
		return !weekend
	case DayTypeWeekend:
		return weekend
	default:
		return true
	}
}

// ParseDayType converts "all", "weekday" or "weekend". Empty means all.
func ParseDayType(s string) (DayType, error) {
	switch s {
	case "", "all":
		return DayTypeAll, nil
	case "weekday", "weekdays":
		return DayTypeWeekday, nil
	case "weekend", "weekends":
		return DayTypeWeekend, nil
	default:
		return DayTypeAll, fmt.Errorf("%w: unknown day type %q", ErrInvalidConfiguration, s)
	}
}
