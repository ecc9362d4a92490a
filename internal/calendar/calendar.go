package calendar

import (
	"fmt"
	"time"
)

const (
	DefaultTimezone  = "America/New_York"
	DefaultOpenHour  = 9
	DefaultCloseHour = 16
)

// Calendar answers trading-hours questions in an exchange's local time.
// Holidays are not modelled; a holiday weekday counts as a trading day.
type Calendar struct {
	loc       *time.Location
	openHour  int
	closeHour int
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithHours overrides the session's [open, close) local hours.
func WithHours(open, close int) Option {
	return func(c *Calendar) {
		c.openHour = open
		c.closeHour = close
	}
}

// New loads the exchange time zone. A zone missing from the host's tz
// database is a construction error, never a silent fallback to UTC.
func New(tz string, opts ...Option) (*Calendar, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", tz, err)
	}
	c := &Calendar{loc: loc, openHour: DefaultOpenHour, closeHour: DefaultCloseHour}
	for _, opt := range opts {
		opt(c)
	}
	if c.openHour < 0 || c.closeHour > 24 || c.openHour >= c.closeHour {
		return nil, fmt.Errorf("invalid trading hours [%d, %d)", c.openHour, c.closeHour)
	}
	return c, nil
}

// Location returns the exchange time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// IsDuringTradingHours reports whether t falls on a weekday within [open, close).
func (c *Calendar) IsDuringTradingHours(t time.Time) bool {
	local := t.In(c.loc)
	if isWeekend(local) {
		return false
	}
	h := local.Hour()
	return h >= c.openHour && h < c.closeHour
}

// NextMarketOpen returns the first weekday open at or after t.
// Days are advanced on the calendar, not by 24h, so DST shifts keep the
// result at the open hour.
func (c *Calendar) NextMarketOpen(t time.Time) time.Time {
	local := t.In(c.loc)
	y, m, d := local.Date()
	candidate := time.Date(y, m, d, c.openHour, 0, 0, 0, c.loc)
	for candidate.Before(t) || isWeekend(candidate) {
		d++
		candidate = time.Date(y, m, d, c.openHour, 0, 0, 0, c.loc)
	}
	return candidate
}

// Status is a snapshot of the calendar at one instant.
type Status struct {
	Open     bool      `json:"open"`
	NextOpen time.Time `json:"next_open"`
}

func (c *Calendar) Status(t time.Time) Status {
	return Status{Open: c.IsDuringTradingHours(t), NextOpen: c.NextMarketOpen(t)}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
