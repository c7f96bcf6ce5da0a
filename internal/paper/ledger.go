// Package paper implements the simulated trade ledger: it opens trades
// against signals, auto-closes them on stop or target breach and
// tracks capital and performance statistics.
package paper

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "nifty-trader/internal/errors"
	"nifty-trader/internal/models"
)

// Repository abstracts durable storage for the ledger. Load returns
// nil state when no ledger has been saved yet.
type Repository interface {
	Load() (*models.LedgerState, error)
	Save(state *models.LedgerState) error
}

// Ledger owns the paper trading state: capital, the full trade history
// and the derived open-trade view. All methods are safe for concurrent
// use. Every mutation is persisted through the repository; persistence
// failures are logged and in-memory state wins.
type Ledger struct {
	mu     sync.RWMutex
	state  models.LedgerState
	repo   Repository
	logger zerolog.Logger

	now    func() time.Time
	lastID string
	seq    int
}

// NewLedger creates a ledger with the given starting capital, loading
// any previously saved state from the repository. A nil repository
// keeps the ledger memory-only.
func NewLedger(initialCapital float64, repo Repository, logger zerolog.Logger) (*Ledger, error) {
	l := &Ledger{
		state: models.LedgerState{
			InitialCapital: initialCapital,
			Capital:        initialCapital,
		},
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}

	if repo != nil {
		saved, err := repo.Load()
		if err != nil {
			return nil, apperrors.Wrap(err, "loading ledger")
		}
		if saved != nil {
			l.state = *saved
		}
	}

	return l, nil
}

// OpenTrade opens a simulated trade against a signal. The direction is
// derived from the signal's bias: long for bullish classes, short
// otherwise.
func (l *Ledger) OpenTrade(signal *models.Signal, quantity int) (*models.PaperTrade, error) {
	if quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity", quantity, "must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	side := models.OrderSideSell
	if signal.Type.IsBullish() {
		side = models.OrderSideBuy
	}

	trade := models.PaperTrade{
		ID:             l.nextID(),
		Symbol:         signal.Symbol,
		Side:           side,
		Quantity:       quantity,
		EntryPrice:     signal.Price,
		StopLoss:       signal.StopLoss,
		Target:         signal.Target,
		EntryTime:      l.now(),
		Status:         models.TradeOpen,
		SignalStrength: signal.Strength,
		Snapshot:       signal.Snapshot,
	}

	l.state.Trades = append(l.state.Trades, trade)
	l.persist()

	l.logger.Info().
		Str("trade_id", trade.ID).
		Str("symbol", trade.Symbol).
		Str("side", string(trade.Side)).
		Int("quantity", trade.Quantity).
		Float64("entry", trade.EntryPrice).
		Float64("stop_loss", trade.StopLoss).
		Float64("target", trade.Target).
		Msg("Paper trade opened")

	return &trade, nil
}

// CloseTrade closes an open trade at the given price with an explicit
// CLOSED status.
func (l *Ledger) CloseTrade(id string, price float64) (*models.PaperTrade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.state.Trades {
		if l.state.Trades[i].ID != id {
			continue
		}
		if l.state.Trades[i].Status != models.TradeOpen {
			return nil, apperrors.ErrTradeClosed
		}
		l.closeLocked(&l.state.Trades[i], price, models.TradeClosed)
		l.persist()
		closed := l.state.Trades[i]
		return &closed, nil
	}

	return nil, apperrors.ErrTradeNotFound
}

// CheckAndUpdate re-evaluates every open trade against the current
// price and closes any whose stop or target has been breached. The
// stop is checked before the target. Closed trades are returned.
func (l *Ledger) CheckAndUpdate(price float64) []models.PaperTrade {
	l.mu.Lock()
	defer l.mu.Unlock()

	var closed []models.PaperTrade
	mutated := false

	for i := range l.state.Trades {
		t := &l.state.Trades[i]
		if t.Status != models.TradeOpen {
			continue
		}

		var status models.TradeStatus
		if t.Side == models.OrderSideBuy {
			switch {
			case price <= t.StopLoss:
				status = models.TradeStoppedOut
			case price >= t.Target:
				status = models.TradeTargetHit
			}
		} else {
			switch {
			case price >= t.StopLoss:
				status = models.TradeStoppedOut
			case price <= t.Target:
				status = models.TradeTargetHit
			}
		}

		if status == "" {
			continue
		}

		l.closeLocked(t, price, status)
		closed = append(closed, *t)
		mutated = true
	}

	if mutated {
		l.persist()
	}

	return closed
}

// closeLocked finalizes a trade: realized P&L, exit fields, capital.
// Callers hold the write lock.
func (l *Ledger) closeLocked(t *models.PaperTrade, price float64, status models.TradeStatus) {
	pnl := (price - t.EntryPrice) * float64(t.Quantity)
	if t.Side == models.OrderSideSell {
		pnl = -pnl
	}

	exitTime := l.now()
	t.ExitPrice = &price
	t.ExitTime = &exitTime
	t.PnL = &pnl
	t.Status = status

	l.state.Capital += pnl

	l.logger.Info().
		Str("trade_id", t.ID).
		Str("status", string(status)).
		Float64("exit", price).
		Float64("pnl", pnl).
		Float64("capital", l.state.Capital).
		Msg("Paper trade closed")
}

// OpenTrades returns copies of all currently open trades in insertion
// order.
func (l *Ledger) OpenTrades() []models.PaperTrade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var open []models.PaperTrade
	for _, t := range l.state.Trades {
		if t.Status == models.TradeOpen {
			open = append(open, t)
		}
	}
	return open
}

// History returns up to limit trades, most recent first. A limit of 0
// returns the full history.
func (l *Ledger) History(limit int) []models.PaperTrade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.state.Trades)
	if limit <= 0 || limit > n {
		limit = n
	}

	history := make([]models.PaperTrade, limit)
	for i := 0; i < limit; i++ {
		history[i] = l.state.Trades[n-1-i]
	}
	return history
}

// Capital returns the current capital.
func (l *Ledger) Capital() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Capital
}

// Stats computes performance statistics from terminal trades. Nothing
// is cached; every call reflects the current history.
func (l *Ledger) Stats() models.LedgerStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := models.LedgerStats{
		TotalTrades:    len(l.state.Trades),
		Capital:        l.state.Capital,
		InitialCapital: l.state.InitialCapital,
	}

	var winSum, lossSum float64

	for _, t := range l.state.Trades {
		if t.Status == models.TradeOpen {
			stats.OpenTrades++
			continue
		}

		stats.ClosedTrades++
		switch t.Status {
		case models.TradeTargetHit:
			stats.TargetsHit++
		case models.TradeStoppedOut:
			stats.StoppedOut++
		}

		if t.PnL == nil {
			continue
		}
		stats.TotalPnL += *t.PnL
		if *t.PnL > 0 {
			stats.Wins++
			winSum += *t.PnL
		} else if *t.PnL < 0 {
			stats.Losses++
			lossSum += *t.PnL
		}
	}

	if stats.ClosedTrades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.ClosedTrades) * 100
	}
	if stats.Wins > 0 {
		stats.AvgWin = winSum / float64(stats.Wins)
	}
	if stats.Losses > 0 {
		stats.AvgLoss = lossSum / float64(stats.Losses)
	}
	if l.state.InitialCapital != 0 {
		stats.ReturnPercent = (l.state.Capital - l.state.InitialCapital) / l.state.InitialCapital * 100
	}

	return stats
}

// Reset discards the history and restores the initial capital.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.Trades = nil
	l.state.Capital = l.state.InitialCapital
	l.persist()

	l.logger.Info().Float64("capital", l.state.Capital).Msg("Paper ledger reset")
}

// State returns a deep-enough copy of the ledger state for
// serialization.
func (l *Ledger) State() models.LedgerState {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state := l.state
	state.Trades = make([]models.PaperTrade, len(l.state.Trades))
	copy(state.Trades, l.state.Trades)
	return state
}

// nextID generates a time-derived trade ID, unique within a second via
// a sequence suffix. Callers hold the write lock.
func (l *Ledger) nextID() string {
	id := "PT_" + l.now().Format("20060102150405")
	if id == l.lastID {
		l.seq++
		return fmt.Sprintf("%s_%d", id, l.seq)
	}
	l.lastID = id
	l.seq = 0
	return id
}

// persist saves the current state. Failures are logged and the
// in-memory state stays authoritative. Callers hold the write lock.
func (l *Ledger) persist() {
	if l.repo == nil {
		return
	}

	state := l.state
	state.Trades = make([]models.PaperTrade, len(l.state.Trades))
	copy(state.Trades, l.state.Trades)

	if err := l.repo.Save(&state); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to persist ledger")
	}
}
