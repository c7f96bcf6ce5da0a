// Package autotrader runs the autonomous trading loop: it polls for
// candles, scores them, admits or rejects the resulting signal and
// executes admitted signals in paper or live mode.
package autotrader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nifty-trader/internal/analysis/scoring"
	"nifty-trader/internal/broker"
	apperrors "nifty-trader/internal/errors"
	"nifty-trader/internal/models"
	"nifty-trader/internal/notify"
	"nifty-trader/internal/paper"
	"nifty-trader/internal/store"
	"nifty-trader/internal/stream"
	"nifty-trader/pkg/utils"
)

// State represents the trader lifecycle state.
type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
)

// maxErrorLog bounds the rolling error log.
const maxErrorLog = 50

// EventType classifies trader events.
type EventType string

const (
	EventStarted       EventType = "started"
	EventStopped       EventType = "stopped"
	EventSignal        EventType = "signal"
	EventTradeExecuted EventType = "trade_executed"
	EventTradeClosed   EventType = "trade_closed"
	EventError         EventType = "error"
)

// Event is delivered to subscribers as the trader acts.
type Event struct {
	Type      EventType
	Message   string
	Signal    *models.Signal
	Trade     *models.PaperTrade
	Timestamp time.Time
}

// Subscriber receives trader events. Subscribers run synchronously on
// the trading goroutine; a panicking subscriber is isolated and does
// not take the loop down.
type Subscriber func(Event)

// Options configures the auto-trader.
type Options struct {
	Mode            models.TradingMode
	Symbol          string
	Interval        string
	Quantity        int
	PollInterval    time.Duration
	Cooldown        time.Duration
	StopTimeout     time.Duration
	MaxDailyTrades  int
	MinStrength     float64
	LookbackCandles int
	Session         utils.Session
}

// AutoTrader owns the decision loop. All exported methods are safe for
// concurrent use.
type AutoTrader struct {
	opts     Options
	source   broker.CandleSource
	gateway  broker.Gateway
	scorer   *scoring.SignalScorer
	ledger   *paper.Ledger
	hub      *stream.Hub
	events   store.DataStore
	notifier notify.Notifier
	logger   zerolog.Logger

	mu              sync.RWMutex
	state           State
	tradesToday     int
	lastTradeAt     time.Time
	lastFingerprint string
	lastResetDay    string
	errLog          []string
	subscribers     []Subscriber
	stopChan        chan struct{}
	doneChan        chan struct{}

	now func() time.Time
}

// New creates a stopped auto-trader. The gateway may be nil in paper
// mode; hub, events store and notifier are optional.
func New(
	opts Options,
	source broker.CandleSource,
	gateway broker.Gateway,
	scorer *scoring.SignalScorer,
	ledger *paper.Ledger,
	hub *stream.Hub,
	events store.DataStore,
	notifier notify.Notifier,
	logger zerolog.Logger,
) *AutoTrader {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Minute
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Minute
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 10 * time.Second
	}
	if opts.LookbackCandles <= 0 {
		opts.LookbackCandles = 100
	}
	if opts.Session == (utils.Session{}) {
		opts.Session = utils.DefaultSession()
	}
	return &AutoTrader{
		opts:     opts,
		source:   source,
		gateway:  gateway,
		scorer:   scorer,
		ledger:   ledger,
		hub:      hub,
		events:   events,
		notifier: notifier,
		logger:   logger,
		state:    StateStopped,
		now:      time.Now,
	}
}

// Subscribe registers a subscriber for trader events.
func (t *AutoTrader) Subscribe(sub Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, sub)
}

// Start launches the trading loop. Returns ErrAlreadyRunning if the
// trader is already running.
func (t *AutoTrader) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateRunning {
		t.mu.Unlock()
		return apperrors.ErrAlreadyRunning
	}
	t.state = StateRunning
	t.stopChan = make(chan struct{})
	t.doneChan = make(chan struct{})
	stop, done := t.stopChan, t.doneChan
	t.mu.Unlock()

	t.logger.Info().
		Str("symbol", t.opts.Symbol).
		Str("mode", string(t.opts.Mode)).
		Dur("interval", t.opts.PollInterval).
		Msg("Auto-trader started")

	t.emit(Event{Type: EventStarted, Message: "auto-trader started", Timestamp: t.now()})
	t.logEvent(ctx, string(EventStarted), "auto-trader started")

	go t.run(ctx, stop, done)
	return nil
}

// Stop halts the trading loop and waits for it to exit, bounded by the
// configured stop timeout. Returns ErrNotRunning if already stopped.
func (t *AutoTrader) Stop() error {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return apperrors.ErrNotRunning
	}
	t.state = StateStopped
	close(t.stopChan)
	done := t.doneChan
	t.mu.Unlock()

	select {
	case <-done:
	case <-time.After(t.opts.StopTimeout):
		t.logger.Warn().Msg("Trading loop did not exit before stop timeout")
	}

	t.logger.Info().Msg("Auto-trader stopped")
	t.emit(Event{Type: EventStopped, Message: "auto-trader stopped", Timestamp: t.now()})
	t.logEvent(context.Background(), string(EventStopped), "auto-trader stopped")
	return nil
}

// run is the trading loop. A cycle error switches the next sleep to
// the fallback interval, capped at one minute.
func (t *AutoTrader) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		sleep := t.opts.PollInterval
		if err := t.cycle(ctx); err != nil {
			t.recordError(err)
			fallback := time.Minute
			if t.opts.PollInterval < fallback {
				fallback = t.opts.PollInterval
			}
			sleep = fallback
		}

		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(sleep):
		}
	}
}

// cycle runs one evaluation pass.
func (t *AutoTrader) cycle(ctx context.Context) error {
	now := t.now()

	t.maybeResetDailyCounter(now)

	candles, err := t.fetchCandles(ctx, now)
	if err != nil {
		return &apperrors.ExecutionError{Operation: "fetch candles", Symbol: t.opts.Symbol, Err: err}
	}
	if len(candles) == 0 {
		t.logger.Debug().Str("symbol", t.opts.Symbol).Msg("No candles available")
		return nil
	}

	price := candles[len(candles)-1].Close
	t.feedPrice(ctx, price, now)

	// Live mode only trades during market hours; paper mode always
	// evaluates so synthetic data works off-hours.
	if t.opts.Mode != models.ModePaper && !t.opts.Session.IsOpenAt(now) {
		return nil
	}

	outcome := t.scorer.Evaluate(t.opts.Symbol, candles)
	if outcome.Kind == scoring.OutcomeInsufficientData {
		t.logger.Debug().
			Str("symbol", t.opts.Symbol).
			Int("candles", len(candles)).
			Msg("Not enough candles to score")
		return nil
	}

	signal := outcome.Signal
	t.emit(Event{Type: EventSignal, Signal: signal, Timestamp: now})

	admission := t.admit(signal, now)
	if !admission.Admitted {
		t.logger.Debug().
			Str("symbol", signal.Symbol).
			Str("signal", string(signal.Type)).
			Str("reason", admission.Reason).
			Msg("Signal rejected")
		return nil
	}

	t.notifySignal(ctx, signal)
	return t.execute(ctx, signal, now)
}

// maybeResetDailyCounter zeroes the daily trade count once per day at
// the market open minute.
func (t *AutoTrader) maybeResetDailyCounter(now time.Time) {
	if !t.opts.Session.IsOpenMinute(now) {
		return
	}
	day := now.In(utils.IndiaLocation).Format("2006-01-02")

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastResetDay == day {
		return
	}
	t.lastResetDay = day
	t.tradesToday = 0
	t.logger.Info().Str("day", day).Msg("Daily trade counter reset")
}

// fetchCandles pulls the lookback window ending now.
func (t *AutoTrader) fetchCandles(ctx context.Context, now time.Time) ([]models.Candle, error) {
	step := broker.IntervalDuration(t.opts.Interval)
	from := now.Add(-time.Duration(t.opts.LookbackCandles) * step)
	return t.source.Fetch(ctx, t.opts.Symbol, t.opts.Interval, from, now)
}

// feedPrice pushes the latest price into the ledger and the hub.
func (t *AutoTrader) feedPrice(ctx context.Context, price float64, now time.Time) {
	closed := t.ledger.CheckAndUpdate(price)
	for i := range closed {
		trade := closed[i]
		t.emit(Event{Type: EventTradeClosed, Trade: &trade, Timestamp: now})
		t.logEvent(ctx, string(EventTradeClosed), fmt.Sprintf("%s %s at %.2f", trade.ID, trade.Status, price))
		t.notifyTradeClosed(ctx, &trade)
	}

	if t.hub != nil {
		t.hub.Publish(models.Tick{
			Symbol:    t.opts.Symbol,
			LTP:       price,
			Timestamp: now,
		})
	}
}

// execute opens a paper trade or places a live market order.
func (t *AutoTrader) execute(ctx context.Context, signal *models.Signal, now time.Time) error {
	var trade *models.PaperTrade

	if t.opts.Mode == models.ModeLive {
		side := models.OrderSideSell
		if signal.Type.IsBullish() {
			side = models.OrderSideBuy
		}
		orderID, err := t.gateway.PlaceMarketOrder(ctx, signal.Symbol, side, t.opts.Quantity)
		if err != nil {
			return &apperrors.ExecutionError{Operation: "place order", Symbol: signal.Symbol, Err: err}
		}
		t.logger.Info().
			Str("order_id", orderID).
			Str("symbol", signal.Symbol).
			Str("side", string(side)).
			Msg("Live order placed")
	} else {
		var err error
		trade, err = t.ledger.OpenTrade(signal, t.opts.Quantity)
		if err != nil {
			return &apperrors.ExecutionError{Operation: "open paper trade", Symbol: signal.Symbol, Err: err}
		}
	}

	t.mu.Lock()
	t.tradesToday++
	t.lastTradeAt = now
	t.lastFingerprint = signal.Fingerprint()
	t.mu.Unlock()

	t.emit(Event{Type: EventTradeExecuted, Signal: signal, Trade: trade, Timestamp: now})
	t.logEvent(ctx, string(EventTradeExecuted),
		fmt.Sprintf("%s %s score %.1f", signal.Symbol, signal.Type, signal.Score))
	if trade != nil {
		t.notifyTradeOpened(ctx, trade)
	}
	return nil
}

// notifySignal is fire-and-forget: notifier failures never reach the
// trading loop.
func (t *AutoTrader) notifySignal(ctx context.Context, signal *models.Signal) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.SendSignal(ctx, signal); err != nil {
		t.logger.Warn().Err(err).Msg("Signal notification failed")
	}
}

func (t *AutoTrader) notifyTradeOpened(ctx context.Context, trade *models.PaperTrade) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.SendTradeOpened(ctx, trade); err != nil {
		t.logger.Warn().Err(err).Msg("Trade opened notification failed")
	}
}

func (t *AutoTrader) notifyTradeClosed(ctx context.Context, trade *models.PaperTrade) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.SendTradeClosed(ctx, trade); err != nil {
		t.logger.Warn().Err(err).Msg("Trade closed notification failed")
	}
}

// recordError appends to the bounded rolling error log.
func (t *AutoTrader) recordError(err error) {
	t.logger.Error().Err(err).Msg("Trading cycle failed")

	t.mu.Lock()
	t.errLog = append(t.errLog, fmt.Sprintf("%s: %v", t.now().Format(time.RFC3339), err))
	if len(t.errLog) > maxErrorLog {
		t.errLog = t.errLog[len(t.errLog)-maxErrorLog:]
	}
	t.mu.Unlock()

	t.emit(Event{Type: EventError, Message: err.Error(), Timestamp: t.now()})
}

// emit delivers an event to all subscribers synchronously, isolating
// panics per subscriber.
func (t *AutoTrader) emit(event Event) {
	t.mu.RLock()
	subs := make([]Subscriber, len(t.subscribers))
	copy(subs, t.subscribers)
	t.mu.RUnlock()

	for _, sub := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error().Interface("panic", r).Msg("Subscriber panicked")
				}
			}()
			sub(event)
		}()
	}
}

// logEvent records an event in the audit store when one is configured.
func (t *AutoTrader) logEvent(ctx context.Context, kind, message string) {
	if t.events == nil {
		return
	}
	err := t.events.LogEvent(ctx, store.TraderEvent{
		Timestamp: t.now(),
		Kind:      kind,
		Symbol:    t.opts.Symbol,
		Message:   message,
	})
	if err != nil {
		t.logger.Warn().Err(err).Msg("Event log write failed")
	}
}

// Status is an immutable snapshot of the trader.
type Status struct {
	State       State
	Mode        models.TradingMode
	Symbol      string
	TradesToday int
	LastTradeAt time.Time
	MarketOpen  bool
	OpenTrades  []models.PaperTrade
	Stats       models.LedgerStats
	Errors      []string
}

// Status returns a snapshot safe to read while the loop runs.
func (t *AutoTrader) Status() Status {
	t.mu.RLock()
	status := Status{
		State:       t.state,
		Mode:        t.opts.Mode,
		Symbol:      t.opts.Symbol,
		TradesToday: t.tradesToday,
		LastTradeAt: t.lastTradeAt,
		Errors:      append([]string(nil), t.errLog...),
	}
	t.mu.RUnlock()

	status.MarketOpen = t.opts.Session.IsOpenAt(t.now())
	status.OpenTrades = t.ledger.OpenTrades()
	status.Stats = t.ledger.Stats()
	return status
}
