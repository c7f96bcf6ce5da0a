// Package broker provides market data sources and order gateways.
package broker

import (
	"context"
	"time"

	"nifty-trader/internal/models"
)

// CandleSource supplies OHLCV candles for a symbol, interval and date
// range. An empty result means insufficient data, not an error.
type CandleSource interface {
	Fetch(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.Candle, error)
}

// Gateway places real orders with a broker. Failures surface as
// errors, never silently.
type Gateway interface {
	PlaceMarketOrder(ctx context.Context, symbol string, side models.OrderSide, quantity int) (string, error)
}

// Intervals understood by candle sources.
const (
	Interval1Min  = "1min"
	Interval5Min  = "5min"
	Interval15Min = "15min"
	Interval1Day  = "1day"
)
