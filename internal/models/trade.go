package models

import "time"

// TradeStatus represents the lifecycle state of a paper trade.
type TradeStatus string

const (
	TradeOpen       TradeStatus = "OPEN"
	TradeClosed     TradeStatus = "CLOSED"
	TradeStoppedOut TradeStatus = "STOPPED_OUT"
	TradeTargetHit  TradeStatus = "TARGET_HIT"
)

// IsTerminal reports whether the status is final. Terminal trades are
// immutable.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeClosed || s == TradeStoppedOut || s == TradeTargetHit
}

// PaperTrade represents a simulated position opened against a signal.
type PaperTrade struct {
	ID             string
	Symbol         string
	Side           OrderSide
	Quantity       int
	EntryPrice     float64
	StopLoss       float64
	Target         float64
	EntryTime      time.Time
	ExitPrice      *float64
	ExitTime       *time.Time
	PnL            *float64
	Status         TradeStatus
	SignalStrength float64
	Snapshot       IndicatorSnapshot
}

// LedgerState is the durable form of the paper trade ledger: capital
// plus the full trade history in insertion order. The open-trade view
// is derived by filtering on status, never stored separately.
type LedgerState struct {
	InitialCapital float64
	Capital        float64
	Trades         []PaperTrade
}

// LedgerStats summarizes terminal trades in a ledger.
type LedgerStats struct {
	TotalTrades    int
	OpenTrades     int
	ClosedTrades   int
	Wins           int
	Losses         int
	WinRate        float64
	AvgWin         float64
	AvgLoss        float64
	TargetsHit     int
	StoppedOut     int
	TotalPnL       float64
	Capital        float64
	InitialCapital float64
	ReturnPercent  float64
}
