package models

import (
	"fmt"
	"time"
)

// SignalType classifies the directional strength of a signal.
type SignalType string

const (
	SignalStrongBuy  SignalType = "STRONG_BUY"
	SignalBuy        SignalType = "BUY"
	SignalHold       SignalType = "HOLD"
	SignalSell       SignalType = "SELL"
	SignalStrongSell SignalType = "STRONG_SELL"
)

// IsBullish reports whether the signal type calls for a long position.
func (s SignalType) IsBullish() bool {
	return s == SignalBuy || s == SignalStrongBuy
}

// IsBearish reports whether the signal type calls for a short position.
func (s SignalType) IsBearish() bool {
	return s == SignalSell || s == SignalStrongSell
}

// PivotRangeWidth classifies the width of the central pivot range.
type PivotRangeWidth string

const (
	PivotRangeNarrow  PivotRangeWidth = "NARROW"
	PivotRangeAverage PivotRangeWidth = "AVERAGE"
	PivotRangeWide    PivotRangeWidth = "WIDE"
)

// PivotLevels holds central pivot range levels computed from the
// previous session's high, low and close.
type PivotLevels struct {
	Pivot        float64
	BottomC      float64
	TopC         float64
	R1           float64
	R2           float64
	R3           float64
	S1           float64
	S2           float64
	S3           float64
	Width        float64
	WidthPercent float64
	WidthClass   PivotRangeWidth
}

// FibLevels holds retracement levels computed from the current
// session's high-low range.
type FibLevels struct {
	High     float64
	Low      float64
	Level236 float64
	Level382 float64
	Level500 float64
	Level618 float64
	Level786 float64
}

// PatternFlags holds boolean candlestick pattern detections over the
// last three candles of a series.
type PatternFlags struct {
	Doji             bool
	Hammer           bool
	ShootingStar     bool
	BullishEngulfing bool
	BearishEngulfing bool
	MorningStar      bool
	EveningStar      bool
}

// AnyBullish reports whether any bullish reversal pattern is present.
func (p PatternFlags) AnyBullish() bool {
	return p.Hammer || p.BullishEngulfing || p.MorningStar
}

// AnyBearish reports whether any bearish reversal pattern is present.
func (p PatternFlags) AnyBearish() bool {
	return p.ShootingStar || p.BearishEngulfing || p.EveningStar
}

// IndicatorSnapshot holds every derived value for a candle series at
// the most recent candle.
type IndicatorSnapshot struct {
	EMAFast          float64
	EMASlow          float64
	RSI              float64
	MACD             float64
	MACDSignal       float64
	MACDHistogram    float64
	SuperTrend       float64
	SuperTrendUp     bool
	VWAP             float64
	ATR              float64
	Pivots           PivotLevels
	Fib              FibLevels
	Patterns         PatternFlags
	SupportLevels    []float64
	ResistanceLevels []float64
}

// Signal is a scored trading signal with risk parameters.
type Signal struct {
	Symbol     string
	Price      float64
	Type       SignalType
	Strength   float64
	Score      float64
	StopLoss   float64
	Target     float64
	RiskReward float64
	Reasons    []string
	Snapshot   IndicatorSnapshot
	Timestamp  time.Time
}

// Fingerprint identifies a signal by class and score, used to avoid
// acting twice on the same signal.
func (s *Signal) Fingerprint() string {
	return fmt.Sprintf("%s_%.1f", s.Type, s.Score)
}
