package paper

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	apperrors "nifty-trader/internal/errors"
	"nifty-trader/internal/models"
)

// memRepo is an in-memory Repository for persistence assertions.
type memRepo struct {
	saved   *models.LedgerState
	saves   int
	loadErr error
}

func (r *memRepo) Load() (*models.LedgerState, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.saved, nil
}

func (r *memRepo) Save(state *models.LedgerState) error {
	r.saved = state
	r.saves++
	return nil
}

func newTestLedger(t *testing.T, capital float64) *Ledger {
	t.Helper()
	l, err := NewLedger(capital, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l
}

func buySignal(price, stop, target float64) *models.Signal {
	return &models.Signal{
		Symbol:   "NIFTY 50",
		Price:    price,
		Type:     models.SignalBuy,
		Score:    55,
		Strength: 80,
		StopLoss: stop,
		Target:   target,
	}
}

func sellSignal(price, stop, target float64) *models.Signal {
	return &models.Signal{
		Symbol:   "NIFTY 50",
		Price:    price,
		Type:     models.SignalSell,
		Score:    -55,
		Strength: 80,
		StopLoss: stop,
		Target:   target,
	}
}

func TestOpenTradeDerivesSideFromBias(t *testing.T) {
	l := newTestLedger(t, 500000)

	long, err := l.OpenTrade(buySignal(110, 99, 121), 10)
	if err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}
	if long.Side != models.OrderSideBuy {
		t.Errorf("bullish signal opened %s, want BUY", long.Side)
	}
	if long.Status != models.TradeOpen {
		t.Errorf("Status = %s, want OPEN", long.Status)
	}

	short, err := l.OpenTrade(sellSignal(110, 121, 99), 10)
	if err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}
	if short.Side != models.OrderSideSell {
		t.Errorf("bearish signal opened %s, want SELL", short.Side)
	}
}

func TestOpenTradeRejectsNonPositiveQuantity(t *testing.T) {
	l := newTestLedger(t, 500000)

	var vErr *apperrors.ValidationError
	if _, err := l.OpenTrade(buySignal(110, 99, 121), 0); !errors.As(err, &vErr) {
		t.Errorf("quantity 0 error = %v, want ValidationError", err)
	}
	if _, err := l.OpenTrade(buySignal(110, 99, 121), -5); err == nil {
		t.Error("negative quantity accepted")
	}
}

func TestCheckAndUpdateStopsOutLong(t *testing.T) {
	l := newTestLedger(t, 500000)
	if _, err := l.OpenTrade(buySignal(110, 99, 121), 10); err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}

	// Price above stop and below target: nothing closes.
	if closed := l.CheckAndUpdate(105); len(closed) != 0 {
		t.Fatalf("closed %d trades inside the band", len(closed))
	}

	closed := l.CheckAndUpdate(99)
	if len(closed) != 1 {
		t.Fatalf("closed %d trades at stop, want 1", len(closed))
	}

	trade := closed[0]
	if trade.Status != models.TradeStoppedOut {
		t.Errorf("Status = %s, want STOPPED_OUT", trade.Status)
	}
	wantPnL := (99.0 - 110.0) * 10
	if trade.PnL == nil || *trade.PnL != wantPnL {
		t.Errorf("PnL = %v, want %.1f", trade.PnL, wantPnL)
	}
	if got := l.Capital(); got != 500000+wantPnL {
		t.Errorf("Capital = %.1f, want %.1f", got, 500000+wantPnL)
	}
}

func TestCheckAndUpdateHitsTargetLong(t *testing.T) {
	l := newTestLedger(t, 500000)
	if _, err := l.OpenTrade(buySignal(110, 99, 121), 10); err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}

	closed := l.CheckAndUpdate(121)
	if len(closed) != 1 {
		t.Fatalf("closed %d trades at target, want 1", len(closed))
	}

	trade := closed[0]
	if trade.Status != models.TradeTargetHit {
		t.Errorf("Status = %s, want TARGET_HIT", trade.Status)
	}
	wantPnL := (121.0 - 110.0) * 10
	if trade.PnL == nil || *trade.PnL != wantPnL {
		t.Errorf("PnL = %v, want %.1f", trade.PnL, wantPnL)
	}
}

func TestCheckAndUpdateShortSideInverted(t *testing.T) {
	l := newTestLedger(t, 500000)
	if _, err := l.OpenTrade(sellSignal(110, 121, 99), 10); err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}

	// For a short the stop sits above entry.
	closed := l.CheckAndUpdate(121)
	if len(closed) != 1 || closed[0].Status != models.TradeStoppedOut {
		t.Fatalf("short stop breach: closed=%v", closed)
	}
	wantPnL := -(121.0 - 110.0) * 10
	if closed[0].PnL == nil || *closed[0].PnL != wantPnL {
		t.Errorf("PnL = %v, want %.1f", closed[0].PnL, wantPnL)
	}
}

func TestCheckAndUpdateStopWinsOverTarget(t *testing.T) {
	// Degenerate band where one price breaches both levels.
	l := newTestLedger(t, 500000)
	if _, err := l.OpenTrade(buySignal(110, 100, 100), 10); err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}

	closed := l.CheckAndUpdate(100)
	if len(closed) != 1 {
		t.Fatalf("closed %d trades, want 1", len(closed))
	}
	if closed[0].Status != models.TradeStoppedOut {
		t.Errorf("Status = %s, stop must be checked before target", closed[0].Status)
	}
}

func TestCloseTradeManually(t *testing.T) {
	l := newTestLedger(t, 500000)
	opened, err := l.OpenTrade(buySignal(110, 99, 121), 10)
	if err != nil {
		t.Fatalf("OpenTrade: %v", err)
	}

	closed, err := l.CloseTrade(opened.ID, 115)
	if err != nil {
		t.Fatalf("CloseTrade: %v", err)
	}
	if closed.Status != models.TradeClosed {
		t.Errorf("Status = %s, want CLOSED", closed.Status)
	}
	if closed.PnL == nil || *closed.PnL != 50 {
		t.Errorf("PnL = %v, want 50", closed.PnL)
	}

	if _, err := l.CloseTrade(opened.ID, 115); !errors.Is(err, apperrors.ErrTradeClosed) {
		t.Errorf("closing a closed trade = %v, want ErrTradeClosed", err)
	}
	if _, err := l.CloseTrade("PT_NOPE", 115); !errors.Is(err, apperrors.ErrTradeNotFound) {
		t.Errorf("unknown id = %v, want ErrTradeNotFound", err)
	}
}

func TestStatsAggregation(t *testing.T) {
	l := newTestLedger(t, 500000)

	// One winner at target, one loser at stop, one still open.
	if _, err := l.OpenTrade(buySignal(110, 99, 121), 10); err != nil {
		t.Fatal(err)
	}
	l.CheckAndUpdate(121)

	if _, err := l.OpenTrade(buySignal(110, 99, 121), 10); err != nil {
		t.Fatal(err)
	}
	l.CheckAndUpdate(99)

	if _, err := l.OpenTrade(buySignal(110, 99, 121), 10); err != nil {
		t.Fatal(err)
	}

	stats := l.Stats()
	if stats.TotalTrades != 3 || stats.OpenTrades != 1 || stats.ClosedTrades != 2 {
		t.Errorf("counts = %d/%d/%d, want 3/1/2", stats.TotalTrades, stats.OpenTrades, stats.ClosedTrades)
	}
	if stats.Wins != 1 || stats.Losses != 1 {
		t.Errorf("wins/losses = %d/%d, want 1/1", stats.Wins, stats.Losses)
	}
	if stats.WinRate != 50 {
		t.Errorf("WinRate = %.1f, want 50", stats.WinRate)
	}
	if stats.TargetsHit != 1 || stats.StoppedOut != 1 {
		t.Errorf("targets/stops = %d/%d, want 1/1", stats.TargetsHit, stats.StoppedOut)
	}
	if stats.AvgWin != 110 {
		t.Errorf("AvgWin = %.1f, want 110", stats.AvgWin)
	}
	if stats.AvgLoss != -110 {
		t.Errorf("AvgLoss = %.1f, want -110", stats.AvgLoss)
	}
	if stats.TotalPnL != 0 {
		t.Errorf("TotalPnL = %.1f, want 0", stats.TotalPnL)
	}
}

func TestHistoryMostRecentFirst(t *testing.T) {
	l := newTestLedger(t, 500000)
	for i := 0; i < 5; i++ {
		if _, err := l.OpenTrade(buySignal(110, 99, 121), 1); err != nil {
			t.Fatal(err)
		}
	}

	history := l.History(3)
	if len(history) != 3 {
		t.Fatalf("History(3) returned %d trades", len(history))
	}

	all := l.History(0)
	if len(all) != 5 {
		t.Fatalf("History(0) returned %d trades, want 5", len(all))
	}
	if all[0].ID != history[0].ID {
		t.Error("History(0) and History(3) disagree on the most recent trade")
	}
}

func TestResetRestoresInitialCapital(t *testing.T) {
	l := newTestLedger(t, 500000)
	if _, err := l.OpenTrade(buySignal(110, 99, 121), 10); err != nil {
		t.Fatal(err)
	}
	l.CheckAndUpdate(99)

	l.Reset()

	if got := l.Capital(); got != 500000 {
		t.Errorf("Capital after reset = %.1f, want 500000", got)
	}
	if stats := l.Stats(); stats.TotalTrades != 0 {
		t.Errorf("TotalTrades after reset = %d, want 0", stats.TotalTrades)
	}
}

func TestLedgerLoadsSavedState(t *testing.T) {
	repo := &memRepo{}

	first, err := NewLedger(500000, repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	if _, err := first.OpenTrade(buySignal(110, 99, 121), 10); err != nil {
		t.Fatal(err)
	}
	first.CheckAndUpdate(121)

	second, err := NewLedger(500000, repo, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLedger reload: %v", err)
	}
	if got := second.Capital(); got != first.Capital() {
		t.Errorf("reloaded capital = %.1f, want %.1f", got, first.Capital())
	}
	if stats := second.Stats(); stats.TotalTrades != 1 || stats.TargetsHit != 1 {
		t.Errorf("reloaded stats = %+v", stats)
	}
}

func TestLedgerLoadFailureSurfaces(t *testing.T) {
	repo := &memRepo{loadErr: errors.New("disk gone")}
	if _, err := NewLedger(500000, repo, zerolog.Nop()); err == nil {
		t.Fatal("NewLedger succeeded with a failing repository")
	}
}

func TestTradeIDsAreUniqueWithinSecond(t *testing.T) {
	l := newTestLedger(t, 500000)
	fixed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		trade, err := l.OpenTrade(buySignal(110, 99, 121), 1)
		if err != nil {
			t.Fatal(err)
		}
		if seen[trade.ID] {
			t.Fatalf("duplicate trade ID %s", trade.ID)
		}
		seen[trade.ID] = true
	}
}

// Property: capital always equals initial capital plus the sum of
// realized P&L, whatever sequence of trades and prices runs through
// the ledger.
func TestProperty_CapitalMatchesRealizedPnL(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("capital = initial + realized P&L", prop.ForAll(
		func(tradeCount int, quantity int, prices []float64) bool {
			l, err := NewLedger(1000000, nil, zerolog.Nop())
			if err != nil {
				return false
			}

			for i := 0; i < tradeCount; i++ {
				entry := 20000.0 + float64(i*10)
				if i%2 == 0 {
					if _, err := l.OpenTrade(buySignal(entry, entry-50, entry+100), quantity); err != nil {
						return false
					}
				} else {
					if _, err := l.OpenTrade(sellSignal(entry, entry+50, entry-100), quantity); err != nil {
						return false
					}
				}
			}

			for _, p := range prices {
				l.CheckAndUpdate(p)
			}

			var realized float64
			for _, trade := range l.History(0) {
				if trade.PnL != nil {
					realized += *trade.PnL
				}
			}

			const eps = 1e-6
			diff := l.Capital() - (1000000 + realized)
			return diff < eps && diff > -eps
		},
		gen.IntRange(0, 8).WithLabel("tradeCount"),
		gen.IntRange(1, 100).WithLabel("quantity"),
		gen.SliceOfN(10, gen.Float64Range(19000, 21000)).WithLabel("prices"),
	))

	properties.TestingRun(t)
}
