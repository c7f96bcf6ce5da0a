package broker

import (
	"context"
	"math"
	"math/rand"
	"time"

	"nifty-trader/internal/models"

	"nifty-trader/pkg/utils"
)

// Synthetic generates a deterministic random-walk candle series
// confined to market hours. It stands in for a live feed when no
// broker session is configured.
type Synthetic struct {
	seed      int64
	basePrice float64
}

// NewSynthetic creates a synthetic candle source. The same seed always
// produces the same series.
func NewSynthetic(seed int64, basePrice float64) *Synthetic {
	return &Synthetic{
		seed:      seed,
		basePrice: basePrice,
	}
}

// Fetch generates candles at the given interval between from and to,
// skipping weekends and hours outside the trading session.
func (s *Synthetic) Fetch(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.Candle, error) {
	step := IntervalDuration(interval)
	rng := rand.New(rand.NewSource(s.seed))

	var candles []models.Candle
	price := s.basePrice
	prevClose := s.basePrice

	for ts := from.Truncate(step); !ts.After(to); ts = ts.Add(step) {
		if !utils.IsWithinSession(ts) {
			continue
		}

		ret := rng.NormFloat64() * 0.0015
		price *= 1 + ret

		volatility := 0.001 + rng.Float64()*0.002
		high := price * (1 + volatility)
		low := price * (1 - volatility)
		open := prevClose

		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      round2(open),
			High:      round2(math.Max(high, math.Max(open, price))),
			Low:       round2(math.Min(low, math.Min(open, price))),
			Close:     round2(price),
			Volume:    int64(100000 + rng.Intn(400000)),
		})
		prevClose = price
	}

	return candles, nil
}

// IntervalDuration maps an interval name to its candle duration.
// Unknown intervals fall back to five minutes.
func IntervalDuration(interval string) time.Duration {
	switch interval {
	case Interval1Min:
		return time.Minute
	case Interval15Min:
		return 15 * time.Minute
	case Interval1Day:
		return 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var _ CandleSource = (*Synthetic)(nil)
