// Package scoring combines indicator outputs into directional trading
// signals with risk parameters.
package scoring

import (
	"fmt"

	"nifty-trader/internal/analysis/indicators"
	"nifty-trader/internal/models"
)

// Weights defines the signed point contribution of each indicator.
type Weights struct {
	EMACrossover float64
	EMATrend     float64
	RSIExtreme   float64
	RSINeutral   float64
	MACD         float64
	MACDMomentum float64
	SuperTrend   float64
	VWAP         float64
	Pattern      float64
	CPR          float64
	FibAbove     float64
	FibBelow     float64
}

// DefaultWeights returns the default indicator weights.
func DefaultWeights() Weights {
	return Weights{
		EMACrossover: 20,
		EMATrend:     10,
		RSIExtreme:   15,
		RSINeutral:   5,
		MACD:         15,
		MACDMomentum: 5,
		SuperTrend:   20,
		VWAP:         10,
		Pattern:      15,
		CPR:          15,
		FibAbove:     10,
		FibBelow:     5,
	}
}

// Thresholds defines the score-to-class boundaries, oscillator bands
// and ATR multiples for stop and target placement.
type Thresholds struct {
	StrongBuy      float64
	Buy            float64
	Sell           float64
	StrongSell     float64
	RSIOversold    float64
	RSIOverbought  float64
	RSINeutralLow  float64
	RSINeutralHigh float64
	StopATRMult    float64
	TargetATRMult  float64
	MinCandles     int
}

// DefaultThresholds returns the default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongBuy:      50,
		Buy:            25,
		Sell:           -25,
		StrongSell:     -50,
		RSIOversold:    30,
		RSIOverbought:  70,
		RSINeutralLow:  40,
		RSINeutralHigh: 60,
		StopATRMult:    1.5,
		TargetATRMult:  2.5,
		MinCandles:     30,
	}
}

// OutcomeKind tags an evaluation result.
type OutcomeKind int

const (
	// OutcomeOK carries a scored signal.
	OutcomeOK OutcomeKind = iota
	// OutcomeInsufficientData means the series is too short to score.
	OutcomeInsufficientData
)

// Outcome is the tagged result of a signal evaluation. Callers branch
// on Kind; Signal is set only for OutcomeOK.
type Outcome struct {
	Kind   OutcomeKind
	Signal *models.Signal
}

// Ok wraps a signal in a successful outcome.
func Ok(signal *models.Signal) Outcome {
	return Outcome{Kind: OutcomeOK, Signal: signal}
}

// InsufficientData returns the short-series outcome.
func InsufficientData() Outcome {
	return Outcome{Kind: OutcomeInsufficientData}
}

// SignalScorer combines indicator values into a single additive score
// and maps it onto a discrete signal class.
type SignalScorer struct {
	engine     *indicators.Engine
	weights    Weights
	thresholds Thresholds
}

// NewSignalScorer creates a scorer with default weights and thresholds.
func NewSignalScorer(engine *indicators.Engine) *SignalScorer {
	return NewSignalScorerWith(engine, DefaultWeights(), DefaultThresholds())
}

// NewSignalScorerWith creates a scorer with custom weights and thresholds.
func NewSignalScorerWith(engine *indicators.Engine, weights Weights, thresholds Thresholds) *SignalScorer {
	return &SignalScorer{
		engine:     engine,
		weights:    weights,
		thresholds: thresholds,
	}
}

// Evaluate scores the candle series and returns a tagged outcome. The
// input is never mutated.
func (s *SignalScorer) Evaluate(symbol string, candles []models.Candle) Outcome {
	if len(candles) < s.thresholds.MinCandles {
		return InsufficientData()
	}

	snap := s.engine.Snapshot(candles)
	price := candles[len(candles)-1].Close

	var score float64
	var reasons []string

	add := func(points float64, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	emaScore, emaReason := s.scoreEMA(candles)
	add(emaScore, emaReason)

	if rsiScore, rsiReason, ok := s.scoreRSI(snap.RSI); ok {
		add(rsiScore, rsiReason)
	}

	if snap.MACD > snap.MACDSignal && snap.MACDHistogram > 0 {
		add(s.weights.MACD, "MACD bullish")
	} else if snap.MACD < snap.MACDSignal && snap.MACDHistogram < 0 {
		add(-s.weights.MACD, "MACD bearish")
	}

	if momScore, momReason, ok := s.scoreMACDMomentum(candles); ok {
		add(momScore, momReason)
	}

	if snap.SuperTrendUp {
		add(s.weights.SuperTrend, fmt.Sprintf("SuperTrend bullish (support %.2f)", snap.SuperTrend))
	} else {
		add(-s.weights.SuperTrend, fmt.Sprintf("SuperTrend bearish (resistance %.2f)", snap.SuperTrend))
	}

	if price > snap.VWAP {
		add(s.weights.VWAP, fmt.Sprintf("price above VWAP (%.2f)", snap.VWAP))
	} else {
		add(-s.weights.VWAP, fmt.Sprintf("price below VWAP (%.2f)", snap.VWAP))
	}

	if name := bullishPatternName(snap.Patterns); name != "" {
		add(s.weights.Pattern, name+" pattern detected")
	}
	if name := bearishPatternName(snap.Patterns); name != "" {
		add(-s.weights.Pattern, name+" pattern detected")
	}

	if snap.Pivots.Pivot != 0 {
		switch {
		case price > snap.Pivots.TopC:
			add(s.weights.CPR, fmt.Sprintf("above CPR (bullish), %s range", snap.Pivots.WidthClass))
		case price < snap.Pivots.BottomC:
			add(-s.weights.CPR, fmt.Sprintf("below CPR (bearish), %s range", snap.Pivots.WidthClass))
		default:
			reasons = append(reasons, fmt.Sprintf("inside CPR (neutral), %s range", snap.Pivots.WidthClass))
		}
	}

	if snap.Fib.Level618 != 0 {
		switch {
		case price > snap.Fib.Level618:
			add(s.weights.FibAbove, fmt.Sprintf("above Fib 0.618 golden ratio (%.2f)", snap.Fib.Level618))
		case price > snap.Fib.Level500:
			reasons = append(reasons, "between Fib 0.50 and 0.618")
		default:
			add(-s.weights.FibBelow, "below Fib 0.618 golden ratio")
		}
	}

	sigType := s.classify(score)
	stopLoss, target := s.riskLevels(sigType, price, snap.ATR)

	risk := abs(price - stopLoss)
	reward := abs(target - price)
	riskReward := 0.0
	if risk > 0 {
		riskReward = reward / risk
	}

	return Ok(&models.Signal{
		Symbol:     symbol,
		Price:      price,
		Type:       sigType,
		Strength:   min(100, abs(score)),
		Score:      score,
		StopLoss:   stopLoss,
		Target:     target,
		RiskReward: riskReward,
		Reasons:    reasons,
		Snapshot:   snap,
		Timestamp:  candles[len(candles)-1].Timestamp,
	})
}

// scoreEMA scores the fast/slow EMA relationship, distinguishing a
// fresh crossover from an established trend.
func (s *SignalScorer) scoreEMA(candles []models.Candle) (float64, string) {
	cfg := s.engine.Config()
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fast := indicators.CalculateEMA(closes, cfg.EMAFastPeriod)
	slow := indicators.CalculateEMA(closes, cfg.EMASlowPeriod)

	n := len(candles)
	fastCurr, fastPrev := fast[n-1], fast[n-2]
	slowCurr, slowPrev := slow[n-1], slow[n-2]

	label := fmt.Sprintf("EMA %d/%d", cfg.EMAFastPeriod, cfg.EMASlowPeriod)

	switch {
	case fastCurr > slowCurr && fastPrev <= slowPrev:
		return s.weights.EMACrossover, label + " bullish crossover"
	case fastCurr < slowCurr && fastPrev >= slowPrev:
		return -s.weights.EMACrossover, label + " bearish crossover"
	case fastCurr > slowCurr:
		return s.weights.EMATrend, label + " uptrend"
	default:
		return -s.weights.EMATrend, label + " downtrend"
	}
}

// scoreRSI scores oscillator extremes; values between the neutral band
// and the extremes contribute nothing.
func (s *SignalScorer) scoreRSI(rsi float64) (float64, string, bool) {
	switch {
	case rsi < s.thresholds.RSIOversold:
		return s.weights.RSIExtreme, fmt.Sprintf("RSI oversold (%.1f)", rsi), true
	case rsi > s.thresholds.RSIOverbought:
		return -s.weights.RSIExtreme, fmt.Sprintf("RSI overbought (%.1f)", rsi), true
	case rsi > s.thresholds.RSINeutralLow && rsi < s.thresholds.RSINeutralHigh:
		return s.weights.RSINeutral, fmt.Sprintf("RSI neutral (%.1f)", rsi), true
	default:
		return 0, "", false
	}
}

// scoreMACDMomentum compares the last two histogram bars.
func (s *SignalScorer) scoreMACDMomentum(candles []models.Candle) (float64, string, bool) {
	cfg := s.engine.Config()
	macd := indicators.NewMACD(cfg.MACDFastPeriod, cfg.MACDSlowPeriod, cfg.MACDSignalPeriod)
	values, err := macd.Calculate(candles)
	if err != nil {
		return 0, "", false
	}

	histogram := values["histogram"]
	n := len(histogram)
	if histogram[n-1] > histogram[n-2] {
		return s.weights.MACDMomentum, "MACD momentum increasing", true
	}
	return -s.weights.MACDMomentum, "MACD momentum decreasing", true
}

// classify maps a score onto a signal class. The mapping is a
// monotonic step function with inclusive boundaries.
func (s *SignalScorer) classify(score float64) models.SignalType {
	switch {
	case score >= s.thresholds.StrongBuy:
		return models.SignalStrongBuy
	case score >= s.thresholds.Buy:
		return models.SignalBuy
	case score <= s.thresholds.StrongSell:
		return models.SignalStrongSell
	case score <= s.thresholds.Sell:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}

// riskLevels derives stop and target from ATR multiples, mirrored for
// short bias and symmetric for a neutral signal.
func (s *SignalScorer) riskLevels(sigType models.SignalType, price, atr float64) (stopLoss, target float64) {
	switch {
	case sigType.IsBullish():
		return price - atr*s.thresholds.StopATRMult, price + atr*s.thresholds.TargetATRMult
	case sigType.IsBearish():
		return price + atr*s.thresholds.StopATRMult, price - atr*s.thresholds.TargetATRMult
	default:
		return price - atr*s.thresholds.StopATRMult, price + atr*s.thresholds.StopATRMult
	}
}

func bullishPatternName(p models.PatternFlags) string {
	switch {
	case p.Hammer:
		return "hammer"
	case p.BullishEngulfing:
		return "bullish engulfing"
	case p.MorningStar:
		return "morning star"
	}
	return ""
}

func bearishPatternName(p models.PatternFlags) string {
	switch {
	case p.ShootingStar:
		return "shooting star"
	case p.BearishEngulfing:
		return "bearish engulfing"
	case p.EveningStar:
		return "evening star"
	}
	return ""
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
