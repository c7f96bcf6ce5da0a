package autotrader

import (
	"fmt"
	"time"

	"nifty-trader/internal/models"
)

// AdmissionResult reports whether a signal may be acted on. Rejection
// is a normal outcome carrying the first failed rule's reason, not an
// error.
type AdmissionResult struct {
	Admitted bool
	Reason   string
}

func rejected(reason string) AdmissionResult {
	return AdmissionResult{Reason: reason}
}

// admit runs the admission rules in order and returns the first
// failure, or an admitted result when all rules pass.
func (t *AutoTrader) admit(signal *models.Signal, now time.Time) AdmissionResult {
	if signal.Type == models.SignalHold {
		return rejected("signal is HOLD")
	}

	t.mu.RLock()
	tradesToday := t.tradesToday
	lastTradeAt := t.lastTradeAt
	lastFingerprint := t.lastFingerprint
	t.mu.RUnlock()

	if signal.Strength < t.opts.MinStrength {
		return rejected(fmt.Sprintf("strength %.0f below minimum %.0f", signal.Strength, t.opts.MinStrength))
	}

	if tradesToday >= t.opts.MaxDailyTrades {
		return rejected(fmt.Sprintf("daily trade limit reached (%d)", t.opts.MaxDailyTrades))
	}

	side := models.OrderSideSell
	if signal.Type.IsBullish() {
		side = models.OrderSideBuy
	}
	for _, open := range t.ledger.OpenTrades() {
		if open.Side == side {
			return rejected(fmt.Sprintf("open %s trade %s already holds this bias", open.Side, open.ID))
		}
	}

	if !lastTradeAt.IsZero() && now.Sub(lastTradeAt) < t.opts.Cooldown {
		return rejected(fmt.Sprintf("cooldown active, last trade at %s", lastTradeAt.Format("15:04:05")))
	}

	if fp := signal.Fingerprint(); fp == lastFingerprint {
		return rejected(fmt.Sprintf("duplicate signal %s", fp))
	}

	return AdmissionResult{Admitted: true}
}
