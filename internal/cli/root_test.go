package cli

import (
	"testing"

	"nifty-trader/internal/analysis/scoring"
	"nifty-trader/internal/config"
)

func TestScorerWeightsMapping(t *testing.T) {
	w := scorerWeights(config.ScoringWeights{
		EMACrossover: 30,
		EMATrend:     8,
		RSIExtreme:   12,
		RSINeutral:   4,
		MACD:         14,
		MACDMomentum: 6,
		SuperTrend:   25,
		VWAP:         9,
		Pattern:      11,
		CPR:          13,
		FibAbove:     7,
		FibBelow:     3,
	})

	if w.EMACrossover != 30 || w.SuperTrend != 25 || w.FibBelow != 3 {
		t.Errorf("configured weights not mapped: %+v", w)
	}
}

func TestScorerWeightsZeroFallsBackToDefaults(t *testing.T) {
	if got := scorerWeights(config.ScoringWeights{}); got != scoring.DefaultWeights() {
		t.Errorf("zero weights config = %+v, want defaults", got)
	}
}

func TestScorerThresholdsKeepRSIBands(t *testing.T) {
	th := scorerThresholds(config.ScoringConfig{
		StrongBuyThreshold:  60,
		BuyThreshold:        30,
		SellThreshold:       -30,
		StrongSellThreshold: -60,
		StopATRMultiplier:   2,
		TargetATRMultiplier: 3,
		MinCandles:          40,
	})

	if th.StrongBuy != 60 || th.Buy != 30 || th.Sell != -30 || th.StrongSell != -60 {
		t.Errorf("classification thresholds not mapped: %+v", th)
	}
	if th.MinCandles != 40 || th.StopATRMult != 2 || th.TargetATRMult != 3 {
		t.Errorf("risk thresholds not mapped: %+v", th)
	}

	def := scoring.DefaultThresholds()
	if th.RSIOversold != def.RSIOversold || th.RSIOverbought != def.RSIOverbought {
		t.Errorf("RSI bands changed: %+v", th)
	}
}

func TestEngineConfigMapsFieldNames(t *testing.T) {
	ec := engineConfig(config.IndicatorConfig{
		EMAFastPeriod:    9,
		EMASlowPeriod:    21,
		SuperTrendPeriod: 10,
		SuperTrendFactor: 3.5,
		SRClusterGap:     25,
	})

	if ec.SuperTrendMult != 3.5 {
		t.Errorf("SuperTrendMult = %v, want 3.5", ec.SuperTrendMult)
	}
	if ec.SRThreshold != 25 {
		t.Errorf("SRThreshold = %v, want 25", ec.SRThreshold)
	}
}
