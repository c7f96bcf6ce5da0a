package utils

import (
	"testing"
	"time"

	"nifty-trader/internal/models"
)

// ist builds a Monday (15 Jan 2024) timestamp at the given IST clock.
func ist(hour, min int) time.Time {
	return time.Date(2024, 1, 15, hour, min, 0, 0, IndiaLocation)
}

func TestParseSession(t *testing.T) {
	s, err := ParseSession("09:15", "15:30")
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if s != DefaultSession() {
		t.Errorf("ParseSession(09:15, 15:30) = %+v, want the default session", s)
	}

	invalid := [][2]string{
		{"9:75", "15:30"},  // bad minutes
		{"25:00", "15:30"}, // bad hour
		{"open", "15:30"},  // not a clock
		{"15:30", "09:15"}, // close before open
		{"10:00", "10:00"}, // zero-length session
	}
	for _, pair := range invalid {
		if _, err := ParseSession(pair[0], pair[1]); err == nil {
			t.Errorf("ParseSession(%q, %q) accepted invalid input", pair[0], pair[1])
		}
	}
}

func TestSessionStatusAt(t *testing.T) {
	s := DefaultSession()

	cases := []struct {
		at   time.Time
		want models.MarketStatus
	}{
		{ist(9, 0), models.MarketPreOpen},
		{ist(9, 14), models.MarketPreOpen},
		{ist(9, 15), models.MarketOpen},
		{ist(12, 0), models.MarketOpen},
		{ist(15, 29), models.MarketOpen},
		{ist(15, 30), models.MarketClosed},
		{ist(8, 0), models.MarketClosed},
		{ist(20, 0), models.MarketClosed},
	}
	for _, tc := range cases {
		if got := s.StatusAt(tc.at); got != tc.want {
			t.Errorf("StatusAt(%s) = %s, want %s", tc.at.Format("15:04"), got, tc.want)
		}
	}

	// Saturday 13 Jan 2024, mid-session clock.
	saturday := time.Date(2024, 1, 13, 12, 0, 0, 0, IndiaLocation)
	if got := s.StatusAt(saturday); got != models.MarketClosed {
		t.Errorf("StatusAt(saturday noon) = %s, want CLOSED", got)
	}
}

func TestSessionIsOpenMinute(t *testing.T) {
	s := Session{OpenHour: 10, OpenMinute: 30, CloseHour: 14, CloseMinute: 0}

	if !s.IsOpenMinute(ist(10, 30)) {
		t.Error("configured open minute not recognized")
	}
	if s.IsOpenMinute(ist(9, 15)) {
		t.Error("default open minute recognized by a custom session")
	}
	saturdayOpen := time.Date(2024, 1, 13, 10, 30, 0, 0, IndiaLocation)
	if s.IsOpenMinute(saturdayOpen) {
		t.Error("open minute recognized on a weekend")
	}
}

func TestSessionNextOpen(t *testing.T) {
	s := DefaultSession()

	// Before today's open: today.
	next := s.NextOpen(ist(8, 0))
	if !next.Equal(ist(9, 15)) {
		t.Errorf("NextOpen(monday 8:00) = %s, want monday 9:15", next)
	}

	// After the open: tomorrow.
	next = s.NextOpen(ist(10, 0))
	if !next.Equal(ist(9, 15).AddDate(0, 0, 1)) {
		t.Errorf("NextOpen(monday 10:00) = %s, want tuesday 9:15", next)
	}

	// Friday evening skips the weekend.
	friday := time.Date(2024, 1, 12, 18, 0, 0, 0, IndiaLocation)
	next = s.NextOpen(friday)
	if next.Weekday() != time.Monday {
		t.Errorf("NextOpen(friday evening) lands on %s, want Monday", next.Weekday())
	}
}
