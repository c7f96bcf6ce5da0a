package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	kitemodels "github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"nifty-trader/internal/models"
)

// LiveTicker streams index ticks over the Kite websocket and hands
// them to a callback. Reconnection and resubscription are handled by
// the underlying kiteticker client.
type LiveTicker struct {
	ticker      *kiteticker.Ticker
	apiKey      string
	accessToken string

	onTick  func(models.Tick)
	onError func(error)

	mu        sync.RWMutex
	connected bool
	tokens    []uint32
	symbols   map[uint32]string
}

// LiveTickerConfig holds configuration for the live ticker.
type LiveTickerConfig struct {
	APIKey      string
	AccessToken string
	Symbols     []string
	OnTick      func(models.Tick)
	OnError     func(error)
}

// NewLiveTicker creates a ticker for the given index symbols. Symbols
// without a known instrument token are ignored.
func NewLiveTicker(cfg LiveTickerConfig) *LiveTicker {
	t := &LiveTicker{
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		onTick:      cfg.OnTick,
		onError:     cfg.OnError,
		symbols:     make(map[uint32]string),
	}
	for _, symbol := range cfg.Symbols {
		if token, ok := indexTokens[symbol]; ok {
			t.tokens = append(t.tokens, token)
			t.symbols[token] = symbol
		}
	}
	return t
}

// Connect opens the websocket and subscribes to the configured
// symbols. It blocks until connected, the context is done or the
// connection attempt times out.
func (t *LiveTicker) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return nil
	}
	t.ticker = kiteticker.New(t.apiKey, t.accessToken)
	t.mu.Unlock()

	connectedCh := make(chan struct{}, 1)

	t.ticker.OnConnect(func() {
		t.mu.Lock()
		t.connected = true
		t.mu.Unlock()

		if err := t.subscribe(); err != nil && t.onError != nil {
			t.onError(err)
		}

		select {
		case connectedCh <- struct{}{}:
		default:
		}
	})

	t.ticker.OnClose(func(code int, reason string) {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
	})

	t.ticker.OnError(func(err error) {
		if t.onError != nil {
			t.onError(err)
		}
	})

	t.ticker.OnTick(func(tick kitemodels.Tick) {
		if t.onTick == nil {
			return
		}
		t.mu.RLock()
		symbol, ok := t.symbols[tick.InstrumentToken]
		t.mu.RUnlock()
		if !ok {
			return
		}
		t.onTick(models.Tick{
			Symbol:    symbol,
			LTP:       tick.LastPrice,
			Volume:    int64(tick.VolumeTraded),
			Timestamp: tick.Timestamp.Time,
		})
	})

	go t.ticker.Serve()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-connectedCh:
		return nil
	case <-time.After(30 * time.Second):
		return fmt.Errorf("ticker connection timeout")
	}
}

func (t *LiveTicker) subscribe() error {
	t.mu.RLock()
	tokens := append([]uint32(nil), t.tokens...)
	t.mu.RUnlock()

	if len(tokens) == 0 {
		return nil
	}
	if err := t.ticker.Subscribe(tokens); err != nil {
		return fmt.Errorf("subscribing ticker tokens: %w", err)
	}
	if err := t.ticker.SetMode(kiteticker.ModeQuote, tokens); err != nil {
		return fmt.Errorf("setting ticker mode: %w", err)
	}
	return nil
}

// Close shuts the websocket down.
func (t *LiveTicker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ticker != nil {
		t.ticker.Close()
		t.connected = false
	}
}

// IsConnected reports whether the websocket is up.
func (t *LiveTicker) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}
