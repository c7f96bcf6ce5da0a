package indicators

import (
	"fmt"

	"nifty-trader/internal/models"
)

// RSI calculates the Relative Strength Index over a rolling mean of
// gains and losses.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period + 1
}

func (r *RSI) Calculate(candles []models.Candle) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < r.period+1 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)
	closes := closePrices(candles)

	gains := make([]float64, n)
	losses := make([]float64, n)

	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGains := rollingMean(gains[1:], r.period)
	avgLosses := rollingMean(losses[1:], r.period)

	for i := r.period; i < n; i++ {
		avgGain := avgGains[i-1]
		avgLoss := avgLosses[i-1]

		// Zero average loss means every move in the window was up;
		// the ratio is unbounded, so saturate at the overbought extreme.
		if avgLoss == 0 {
			result[i] = 100
			continue
		}

		rs := avgGain / avgLoss
		result[i] = 100 - (100 / (1 + rs))
	}

	return result, nil
}
