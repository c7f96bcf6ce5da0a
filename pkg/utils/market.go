package utils

import (
	"fmt"
	"time"

	"nifty-trader/internal/models"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Session is a trading session in IST. The pre-open window is the
// fifteen minutes before the open. Weekends are always closed.
type Session struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// DefaultSession returns the NSE equity session, 9:15 to 15:30 IST.
func DefaultSession() Session {
	return Session{OpenHour: 9, OpenMinute: 15, CloseHour: 15, CloseMinute: 30}
}

// ParseSession builds a session from "HH:MM" open and close strings.
func ParseSession(open, close string) (Session, error) {
	openHour, openMin, err := parseClock(open)
	if err != nil {
		return Session{}, fmt.Errorf("market open: %w", err)
	}
	closeHour, closeMin, err := parseClock(close)
	if err != nil {
		return Session{}, fmt.Errorf("market close: %w", err)
	}
	s := Session{OpenHour: openHour, OpenMinute: openMin, CloseHour: closeHour, CloseMinute: closeMin}
	if s.openMinutes() >= s.closeMinutes() {
		return Session{}, fmt.Errorf("market open %s must precede close %s", open, close)
	}
	return s, nil
}

func parseClock(v string) (int, int, error) {
	var hour, min int
	if _, err := fmt.Sscanf(v, "%d:%d", &hour, &min); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", v)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", v)
	}
	return hour, min, nil
}

func (s Session) openMinutes() int  { return s.OpenHour*60 + s.OpenMinute }
func (s Session) closeMinutes() int { return s.CloseHour*60 + s.CloseMinute }

// StatusAt returns the market status at the given instant.
func (s Session) StatusAt(t time.Time) models.MarketStatus {
	now := t.In(IndiaLocation)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return models.MarketClosed
	}

	minutes := now.Hour()*60 + now.Minute()
	switch {
	case minutes >= s.openMinutes()-15 && minutes < s.openMinutes():
		return models.MarketPreOpen
	case minutes >= s.openMinutes() && minutes < s.closeMinutes():
		return models.MarketOpen
	default:
		return models.MarketClosed
	}
}

// IsOpenAt reports whether the session is trading at the instant.
func (s Session) IsOpenAt(t time.Time) bool {
	return s.StatusAt(t) == models.MarketOpen
}

// IsOpenMinute reports whether the instant falls in the session's
// opening minute.
func (s Session) IsOpenMinute(t time.Time) bool {
	now := t.In(IndiaLocation)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}
	return now.Hour() == s.OpenHour && now.Minute() == s.OpenMinute
}

// NextOpen returns the first session open at or after the instant.
func (s Session) NextOpen(t time.Time) time.Time {
	now := t.In(IndiaLocation)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.OpenHour, s.OpenMinute, 0, 0, IndiaLocation)
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// IsWithinSession reports whether the instant falls inside default NSE
// trading hours on a trading day.
func IsWithinSession(t time.Time) bool {
	return DefaultSession().IsOpenAt(t)
}

// IsMarketOpen reports whether the default NSE session is open now.
func IsMarketOpen() bool {
	return DefaultSession().IsOpenAt(time.Now())
}

// IsMarketOpenMinute reports whether the instant is the default
// session's opening minute (9:15 IST).
func IsMarketOpenMinute(t time.Time) bool {
	return DefaultSession().IsOpenMinute(t)
}
