package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"nifty-trader/internal/models"
)

// seriesGen generates a random-walk candle series with valid OHLC
// ordering, parameterized by length.
func seriesGen(minLen, maxLen int) gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(minLen, maxLen),
		gen.Float64Range(15000, 25000),
		gen.Int64Range(1, 1<<31),
	).Map(func(values []interface{}) []models.Candle {
		length := values[0].(int)
		base := values[1].(float64)
		seed := values[2].(int64)
		return makeCandles(length, base, seed)
	})
}

// makeCandles builds a deterministic random-walk series from a seed.
func makeCandles(length int, base float64, seed int64) []models.Candle {
	candles := make([]models.Candle, length)
	price := base
	state := seed
	next := func() float64 {
		// xorshift, mapped to [-1, 1)
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return float64(state%2000)/1000.0 - 1.0
	}

	start := time.Date(2024, 1, 15, 9, 15, 0, 0, time.UTC)
	for i := 0; i < length; i++ {
		open := price
		move := next() * base * 0.002
		close := open + move
		high := math.Max(open, close) + math.Abs(next())*base*0.0005
		low := math.Min(open, close) - math.Abs(next())*base*0.0005
		candles[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1000 + int64(math.Abs(next())*100000),
		}
		price = close
	}
	return candles
}

func TestProperty_RSIWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("RSI stays within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			rsi := NewRSI(14)
			values, err := rsi.Calculate(candles)
			if err != nil {
				return false
			}
			for i := rsi.period; i < len(values); i++ {
				if values[i] < 0 || values[i] > 100 {
					return false
				}
			}
			return true
		},
		seriesGen(20, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_EMAWithinSeriesRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("EMA never escapes the close range", prop.ForAll(
		func(candles []models.Candle) bool {
			ema := NewEMA(9)
			values, err := ema.Calculate(candles)
			if err != nil {
				return false
			}

			closes := closePrices(candles)
			lo, hi := lowest(closes), highest(closes)
			const eps = 1e-9
			for _, v := range values {
				if v < lo-eps || v > hi+eps {
					return false
				}
			}
			return true
		},
		seriesGen(10, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_ATRNonNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("ATR is never negative", prop.ForAll(
		func(candles []models.Candle) bool {
			atr := NewATR(10)
			values, err := atr.Calculate(candles)
			if err != nil {
				return false
			}
			for _, v := range values {
				if v < 0 {
					return false
				}
			}
			return true
		},
		seriesGen(15, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_MACDHistogramConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("histogram equals MACD minus signal", prop.ForAll(
		func(candles []models.Candle) bool {
			macd := NewMACD(12, 26, 9)
			result, err := macd.Calculate(candles)
			if err != nil {
				return false
			}

			line := result["macd"]
			signal := result["signal"]
			hist := result["histogram"]
			if len(line) != len(signal) || len(line) != len(hist) {
				return false
			}

			const eps = 1e-9
			for i := range line {
				if math.Abs(hist[i]-(line[i]-signal[i])) > eps {
					return false
				}
			}
			return true
		},
		seriesGen(40, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_VWAPWithinSessionRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("VWAP stays between the running low and high", prop.ForAll(
		func(candles []models.Candle) bool {
			vwap := NewVWAP()
			values, err := vwap.Calculate(candles)
			if err != nil {
				return false
			}

			const eps = 1e-9
			lo, hi := math.Inf(1), math.Inf(-1)
			for i, c := range candles {
				lo = math.Min(lo, c.Low)
				hi = math.Max(hi, c.High)
				if values[i] < lo-eps || values[i] > hi+eps {
					return false
				}
			}
			return true
		},
		seriesGen(1, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_SuperTrendDirectionMatchesLine(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("bullish line sits below price, bearish above", prop.ForAll(
		func(candles []models.Candle) bool {
			st := NewSuperTrend(10, 3.0)
			result, err := st.Calculate(candles)
			if err != nil {
				return false
			}

			line := result["supertrend"]
			direction := result["direction"]
			for i := st.atrPeriod + 1; i < len(candles); i++ {
				if direction[i] == 1 && line[i] > candles[i].Close {
					return false
				}
				if direction[i] == -1 && line[i] < candles[i].Close {
					return false
				}
			}
			return true
		},
		seriesGen(15, 150),
	))

	properties.TestingRun(t)
}

func TestProperty_SuperTrendLineMonotoneWithinRun(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	// While the direction holds, the stop line only ratchets with the
	// trend: up in a bullish run, down in a bearish one.
	properties.Property("line never moves against the direction within a run", prop.ForAll(
		func(candles []models.Candle) bool {
			const eps = 1e-9
			st := NewSuperTrend(10, 3.0)
			result, err := st.Calculate(candles)
			if err != nil {
				return false
			}

			line := result["supertrend"]
			direction := result["direction"]
			for i := st.atrPeriod + 2; i < len(candles); i++ {
				if direction[i] != direction[i-1] {
					continue
				}
				if direction[i] == 1 && line[i] < line[i-1]-eps {
					return false
				}
				if direction[i] == -1 && line[i] > line[i-1]+eps {
					return false
				}
			}
			return true
		},
		seriesGen(15, 300),
	))

	properties.TestingRun(t)
}

func TestProperty_SnapshotNeverPanics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	engine := NewEngine(DefaultConfig())

	properties.Property("snapshot of any series, however short, is well formed", prop.ForAll(
		func(candles []models.Candle) bool {
			snap := engine.Snapshot(candles)
			return snap.RSI >= 0 && snap.RSI <= 100 && snap.ATR >= 0
		},
		seriesGen(0, 60),
	))

	properties.TestingRun(t)
}

func TestShortSeriesSnapshotDefaultsNeutral(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	snap := engine.Snapshot(nil)
	if snap.RSI != 50 {
		t.Errorf("empty snapshot RSI = %.1f, want neutral 50", snap.RSI)
	}

	snap = engine.Snapshot(makeCandles(3, 22000, 42))
	if snap.RSI < 0 || snap.RSI > 100 {
		t.Errorf("short snapshot RSI = %.1f out of bounds", snap.RSI)
	}
}
