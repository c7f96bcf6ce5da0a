package store

import (
	"context"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"nifty-trader/internal/models"
)

// Property: For any valid candle data, saving candles to the database and then
// retrieving them should produce equivalent candle data (round-trip consistency).
func TestProperty_CandleRoundTripConsistency(t *testing.T) {
	dbPath := "test_candles_property.db"
	defer os.Remove(dbPath)

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"NIFTY 50", "NIFTY BANK", "RELIANCE", "TCS", "INFY", "HDFCBANK", "SBIN"}

	timeframeGen := gen.OneConstOf("1min", "5min", "15min", "1day")
	countGen := gen.IntRange(1, 20)
	priceGen := gen.Float64Range(100.0, 30000.0)
	volumeGen := gen.Int64Range(1000, 1000000)

	properties.Property("Candle round-trip: save then retrieve produces equivalent data", prop.ForAll(
		func(symbolIdx int, timeframe string, count int, basePrice float64, baseVolume int64) bool {
			ctx := context.Background()
			symbol := symbols[symbolIdx%len(symbols)]

			// Unique symbol+timeframe combo to avoid conflicts between runs
			uniqueSymbol := fmt.Sprintf("%s_%d", symbol, time.Now().UnixNano()%10000)

			candles := generateTestCandles(count, basePrice, baseVolume)

			err := store.SaveCandles(ctx, uniqueSymbol, timeframe, candles)
			if err != nil {
				t.Logf("Failed to save candles: %v", err)
				return false
			}

			from := candles[0].Timestamp.Add(-time.Second)
			to := candles[len(candles)-1].Timestamp.Add(time.Second)
			retrieved, err := store.GetCandles(ctx, uniqueSymbol, timeframe, from, to)
			if err != nil {
				t.Logf("Failed to get candles: %v", err)
				return false
			}

			if len(retrieved) != len(candles) {
				t.Logf("Count mismatch: expected %d, got %d", len(candles), len(retrieved))
				return false
			}

			for i, orig := range candles {
				if !candlesEqual(orig, retrieved[i]) {
					t.Logf("Candle mismatch at index %d: original=%+v, retrieved=%+v", i, orig, retrieved[i])
					return false
				}
			}

			return true
		},
		gen.IntRange(0, len(symbols)-1),
		timeframeGen,
		countGen,
		priceGen,
		volumeGen,
	))

	properties.Property("Empty candles: saving empty slice should succeed", prop.ForAll(
		func(symbolIdx int, timeframe string) bool {
			ctx := context.Background()
			symbol := symbols[symbolIdx%len(symbols)]
			uniqueSymbol := fmt.Sprintf("%s_empty_%d", symbol, time.Now().UnixNano()%10000)

			err := store.SaveCandles(ctx, uniqueSymbol, timeframe, []models.Candle{})
			return err == nil
		},
		gen.IntRange(0, len(symbols)-1),
		timeframeGen,
	))

	properties.TestingRun(t)
}

// Property: Saving a ledger state and loading it back produces an
// equivalent state, including nullable exit fields on open trades.
func TestProperty_LedgerRoundTripConsistency(t *testing.T) {
	dbPath := "test_ledger_property.db"
	defer os.Remove(dbPath)

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Ledger round-trip: save then load produces equivalent state", prop.ForAll(
		func(capital float64, tradeCount int, closedMask int) bool {
			state := &models.LedgerState{
				InitialCapital: 100000,
				Capital:        capital,
			}
			for i := 0; i < tradeCount; i++ {
				state.Trades = append(state.Trades, generateTestTrade(i, closedMask&(1<<uint(i)) != 0))
			}

			if err := store.Save(state); err != nil {
				t.Logf("Failed to save ledger: %v", err)
				return false
			}

			loaded, err := store.Load()
			if err != nil {
				t.Logf("Failed to load ledger: %v", err)
				return false
			}
			if loaded == nil {
				t.Log("Loaded nil state after save")
				return false
			}

			if !floatEqual(loaded.InitialCapital, state.InitialCapital, 0.01) ||
				!floatEqual(loaded.Capital, state.Capital, 0.01) {
				t.Logf("Capital mismatch: expected %.2f/%.2f, got %.2f/%.2f",
					state.InitialCapital, state.Capital, loaded.InitialCapital, loaded.Capital)
				return false
			}

			if len(loaded.Trades) != len(state.Trades) {
				t.Logf("Trade count mismatch: expected %d, got %d", len(state.Trades), len(loaded.Trades))
				return false
			}

			for i, orig := range state.Trades {
				if !tradesEqual(orig, loaded.Trades[i]) {
					t.Logf("Trade mismatch at index %d: original=%+v, loaded=%+v", i, orig, loaded.Trades[i])
					return false
				}
			}

			return true
		},
		gen.Float64Range(0, 500000),
		gen.IntRange(0, 10),
		gen.IntRange(0, 1023),
	))

	properties.Property("Load on fresh database returns nil state", prop.ForAll(
		func(n int) bool {
			freshPath := fmt.Sprintf("test_ledger_fresh_%d.db", n)
			defer os.Remove(freshPath)

			fresh, err := NewSQLiteStore(freshPath)
			if err != nil {
				return false
			}
			defer fresh.Close()

			loaded, err := fresh.Load()
			return err == nil && loaded == nil
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

// generateTestTrade builds a trade with deterministic fields. Closed
// trades carry the full set of exit fields, open trades none.
func generateTestTrade(i int, closed bool) models.PaperTrade {
	entryTime := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
	trade := models.PaperTrade{
		ID:             fmt.Sprintf("PT_%s_%d", entryTime.Format("20060102150405"), i),
		Symbol:         "NIFTY 50",
		Side:           models.OrderSideBuy,
		Quantity:       25 + i,
		EntryPrice:     24500.50 + float64(i),
		StopLoss:       24450.25,
		Target:         24600.75,
		EntryTime:      entryTime,
		Status:         models.TradeOpen,
		SignalStrength: 55 + float64(i),
	}
	if i%2 == 1 {
		trade.Side = models.OrderSideSell
	}
	if closed {
		exitPrice := trade.Target
		exitTime := entryTime.Add(30 * time.Minute)
		pnl := (exitPrice - trade.EntryPrice) * float64(trade.Quantity)
		if trade.Side == models.OrderSideSell {
			pnl = -pnl
		}
		trade.ExitPrice = &exitPrice
		trade.ExitTime = &exitTime
		trade.PnL = &pnl
		trade.Status = models.TradeTargetHit
	}
	return trade
}

func tradesEqual(a, b models.PaperTrade) bool {
	const tolerance = 0.01

	if a.ID != b.ID || a.Symbol != b.Symbol || a.Side != b.Side ||
		a.Quantity != b.Quantity || a.Status != b.Status {
		return false
	}
	if !floatEqual(a.EntryPrice, b.EntryPrice, tolerance) ||
		!floatEqual(a.StopLoss, b.StopLoss, tolerance) ||
		!floatEqual(a.Target, b.Target, tolerance) ||
		!floatEqual(a.SignalStrength, b.SignalStrength, tolerance) {
		return false
	}
	if !a.EntryTime.Equal(b.EntryTime) {
		return false
	}
	if (a.ExitPrice == nil) != (b.ExitPrice == nil) ||
		(a.ExitTime == nil) != (b.ExitTime == nil) ||
		(a.PnL == nil) != (b.PnL == nil) {
		return false
	}
	if a.ExitPrice != nil && !floatEqual(*a.ExitPrice, *b.ExitPrice, tolerance) {
		return false
	}
	if a.ExitTime != nil && !a.ExitTime.Equal(*b.ExitTime) {
		return false
	}
	if a.PnL != nil && !floatEqual(*a.PnL, *b.PnL, tolerance) {
		return false
	}
	return true
}

// generateTestCandles creates valid candles for testing
func generateTestCandles(count int, basePrice float64, baseVolume int64) []models.Candle {
	candles := make([]models.Candle, count)
	baseTime := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		variation := float64(i%10) * 0.01 * basePrice
		open := basePrice + variation
		close := basePrice + variation*0.5

		high := math.Max(open, close) * 1.01
		low := math.Min(open, close) * 0.99

		candles[i] = models.Candle{
			Timestamp: baseTime.Add(time.Duration(i) * time.Minute),
			Open:      roundToDecimal(open, 2),
			High:      roundToDecimal(high, 2),
			Low:       roundToDecimal(low, 2),
			Close:     roundToDecimal(close, 2),
			Volume:    baseVolume + int64(i*1000),
		}
	}

	return candles
}

// roundToDecimal rounds a float to specified decimal places
func roundToDecimal(val float64, places int) float64 {
	multiplier := math.Pow(10, float64(places))
	return math.Round(val*multiplier) / multiplier
}

// candlesEqual compares two candles for equality with floating point tolerance.
func candlesEqual(a, b models.Candle) bool {
	const tolerance = 0.01

	if !a.Timestamp.Equal(b.Timestamp) {
		return false
	}
	if !floatEqual(a.Open, b.Open, tolerance) {
		return false
	}
	if !floatEqual(a.High, b.High, tolerance) {
		return false
	}
	if !floatEqual(a.Low, b.Low, tolerance) {
		return false
	}
	if !floatEqual(a.Close, b.Close, tolerance) {
		return false
	}
	if a.Volume != b.Volume {
		return false
	}
	return true
}

// floatEqual compares two floats with a tolerance.
func floatEqual(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
