package config

import (
	"testing"
)

func TestApplyDefaultsFillsScoringWeights(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	w := cfg.Scoring.Weights
	if w.EMACrossover != 20 || w.SuperTrend != 20 || w.Pattern != 15 || w.FibBelow != 5 {
		t.Errorf("default weights not applied: %+v", w)
	}
	if cfg.Trading.MarketOpen != "09:15" || cfg.Trading.MarketClose != "15:30" {
		t.Errorf("default session not applied: %s-%s", cfg.Trading.MarketOpen, cfg.Trading.MarketClose)
	}
}

func TestApplyDefaultsKeepsConfiguredWeights(t *testing.T) {
	cfg := &Config{}
	cfg.Scoring.Weights.EMACrossover = 35
	cfg.Scoring.Weights.Pattern = 2
	applyDefaults(cfg)

	if cfg.Scoring.Weights.EMACrossover != 35 {
		t.Errorf("EMACrossover = %v, configured value overwritten", cfg.Scoring.Weights.EMACrossover)
	}
	if cfg.Scoring.Weights.Pattern != 2 {
		t.Errorf("Pattern = %v, configured value overwritten", cfg.Scoring.Weights.Pattern)
	}
	// Unset fields still get defaults.
	if cfg.Scoring.Weights.VWAP != 10 {
		t.Errorf("VWAP = %v, want default 10", cfg.Scoring.Weights.VWAP)
	}
}

func TestValidateRejectsBadSession(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	cfg.Trading.MarketOpen = "16:00"
	cfg.Trading.MarketClose = "15:30"
	if err := cfg.Validate(); err == nil {
		t.Error("inverted session passed validation")
	}

	cfg.Trading.MarketOpen = "not-a-time"
	if err := cfg.Validate(); err == nil {
		t.Error("unparseable open time passed validation")
	}
}

func TestTradingSessionHelper(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	s := cfg.Trading.Session()
	if s.OpenHour != 9 || s.OpenMinute != 15 || s.CloseHour != 15 || s.CloseMinute != 30 {
		t.Errorf("Session() = %+v, want 9:15-15:30", s)
	}

	cfg.Trading.MarketOpen = "10:00"
	cfg.Trading.MarketClose = "14:45"
	s = cfg.Trading.Session()
	if s.OpenHour != 10 || s.CloseMinute != 45 {
		t.Errorf("Session() = %+v, want 10:00-14:45", s)
	}
}
