// Package patterns provides candlestick pattern detection.
package patterns

import (
	"nifty-trader/internal/models"
)

// Detect evaluates the last three candles of the series for reversal
// and indecision patterns. It returns no flags when fewer than three
// candles are supplied or when the current candle has zero range.
func Detect(candles []models.Candle) models.PatternFlags {
	var flags models.PatternFlags
	if len(candles) < 3 {
		return flags
	}

	c1 := candles[len(candles)-3]
	c2 := candles[len(candles)-2]
	c3 := candles[len(candles)-1]

	body := abs(c3.Close - c3.Open)
	upperShadow := c3.High - max(c3.Open, c3.Close)
	lowerShadow := min(c3.Open, c3.Close) - c3.Low
	totalRange := c3.High - c3.Low

	if totalRange == 0 {
		return flags
	}

	// Small body relative to range signals indecision.
	flags.Doji = body < totalRange*0.1

	// Long lower shadow with a green close.
	flags.Hammer = lowerShadow > body*2 &&
		upperShadow < body &&
		c3.Close > c3.Open

	// Long upper shadow with a red close.
	flags.ShootingStar = upperShadow > body*2 &&
		lowerShadow < body &&
		c3.Close < c3.Open

	// Current green body swallows the previous red body.
	flags.BullishEngulfing = c2.Close < c2.Open &&
		c3.Close > c3.Open &&
		c3.Open < c2.Close &&
		c3.Close > c2.Open

	// Current red body swallows the previous green body.
	flags.BearishEngulfing = c2.Close > c2.Open &&
		c3.Close < c3.Open &&
		c3.Open > c2.Close &&
		c3.Close < c2.Open

	// Bearish candle, small middle body, bullish close above the
	// first candle's midpoint.
	flags.MorningStar = c1.Close < c1.Open &&
		abs(c2.Close-c2.Open) < (c1.High-c1.Low)*0.3 &&
		c3.Close > c3.Open &&
		c3.Close > (c1.Open+c1.Close)/2

	// Mirror of the morning star.
	flags.EveningStar = c1.Close > c1.Open &&
		abs(c2.Close-c2.Open) < (c1.High-c1.Low)*0.3 &&
		c3.Close < c3.Open &&
		c3.Close < (c1.Open+c1.Close)/2

	return flags
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
