package fleet

import (
	"fmt"
	"slices"
	"sync"

	"github.com/kilianp07/fleetcast/core/model"
)

// Session holds the manual truck overrides of one planning session. It is
// safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	overrides model.Overrides
	days      []int
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{overrides: make(model.Overrides)}
}

// Set records an override for day.
func (s *Session) Set(day int, c model.TruckCount) error {
	if day < 1 || day > 31 {
		return fmt.Errorf("%w: override day %d", model.ErrInvalidConfiguration, day)
	}
	if c.Regular < 0 || c.Large < 0 {
		return fmt.Errorf("%w: negative override for day %d", model.ErrInvalidConfiguration, day)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[day] = c
	return nil
}

// Merge records every override of o.
func (s *Session) Merge(o model.Overrides) error {
	for day, c := range o {
		if err := s.Set(day, c); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes the override of day, if any.
func (s *Session) Clear(day int) {
	s.mu.Lock()
	delete(s.overrides, day)
	s.mu.Unlock()
}

// Reset drops every override.
func (s *Session) Reset() {
	s.mu.Lock()
	s.overrides = make(model.Overrides)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current overrides.
func (s *Session) Snapshot() model.Overrides {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.Overrides, len(s.overrides))
	for d, c := range s.overrides {
		out[d] = c
	}
	return out
}

// Bind associates the session with the forecast days currently displayed.
// When the day set differs from the previous binding, overrides are dropped
// since they referred to another forecast. It reports whether a reset
// happened.
func (s *Session) Bind(points []model.ForecastPoint) bool {
	days := make([]int, 0, len(points))
	for _, p := range points {
		days = append(days, p.Day)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.days != nil && slices.Equal(s.days, days) {
		return false
	}
	first := s.days == nil
	s.days = days
	if first {
		return false
	}
	s.overrides = make(model.Overrides)
	return true
}
