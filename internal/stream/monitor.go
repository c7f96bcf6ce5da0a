package stream

import (
	"github.com/rs/zerolog"

	"nifty-trader/internal/models"
	"nifty-trader/internal/paper"
)

// LedgerMonitor feeds hub ticks into the paper trade ledger so open
// positions get stopped out or closed at target as prices move.
type LedgerMonitor struct {
	ledger  *paper.Ledger
	symbols []string
	logger  zerolog.Logger
}

// NewLedgerMonitor creates a monitor for the given symbols. An empty
// symbol list watches every tick.
func NewLedgerMonitor(ledger *paper.Ledger, symbols []string, logger zerolog.Logger) *LedgerMonitor {
	return &LedgerMonitor{
		ledger:  ledger,
		symbols: symbols,
		logger:  logger,
	}
}

// OnTick implements Consumer.
func (m *LedgerMonitor) OnTick(tick models.Tick) {
	closed := m.ledger.CheckAndUpdate(tick.LTP)
	for _, trade := range closed {
		event := m.logger.Info().
			Str("trade_id", trade.ID).
			Str("symbol", trade.Symbol).
			Str("status", string(trade.Status)).
			Float64("price", tick.LTP)
		if trade.PnL != nil {
			event = event.Float64("pnl", *trade.PnL)
		}
		event.Msg("Trade auto-closed")
	}
}

// Symbols implements Consumer.
func (m *LedgerMonitor) Symbols() []string {
	return m.symbols
}

var _ Consumer = (*LedgerMonitor)(nil)
