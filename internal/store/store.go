// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"nifty-trader/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error)
	GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error)

	// Paper trade ledger
	Load() (*models.LedgerState, error)
	Save(state *models.LedgerState) error

	// Trader events
	LogEvent(ctx context.Context, event TraderEvent) error
	GetEvents(ctx context.Context, filter EventFilter) ([]TraderEvent, error)

	// Lifecycle
	Close() error
}

// TraderEvent is a row in the trader audit log. Every lifecycle change
// and executed trade gets one.
type TraderEvent struct {
	ID        int64
	Timestamp time.Time
	Kind      string
	Symbol    string
	Message   string
}

// EventFilter represents filters for querying trader events.
type EventFilter struct {
	Kind      string
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
