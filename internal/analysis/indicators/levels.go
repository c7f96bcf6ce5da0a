package indicators

import (
	"sort"

	"nifty-trader/internal/models"
)

// CPR calculates the Central Pivot Range and its support/resistance
// tiers from the previous session's high, low and close.
type CPR struct {
	narrowPercent float64
	widePercent   float64
}

// NewCPR creates a new CPR calculator with the given width thresholds
// (percent of pivot).
func NewCPR(narrowPercent, widePercent float64) *CPR {
	return &CPR{
		narrowPercent: narrowPercent,
		widePercent:   widePercent,
	}
}

func (c *CPR) Name() string {
	return "CPR"
}

// Calculate computes pivot levels from a prior session's high, low and close.
func (c *CPR) Calculate(high, low, close float64) models.PivotLevels {
	pivot := (high + low + close) / 3
	bc := (high + low) / 2
	tc := 2*pivot - bc

	if bc > tc {
		bc, tc = tc, bc
	}

	levels := models.PivotLevels{
		Pivot:   pivot,
		BottomC: bc,
		TopC:    tc,
		R1:      2*pivot - low,
		R2:      pivot + (high - low),
		R3:      high + 2*(pivot-low),
		S1:      2*pivot - high,
		S2:      pivot - (high - low),
		S3:      low - 2*(high-pivot),
		Width:   tc - bc,
	}

	if pivot != 0 {
		levels.WidthPercent = levels.Width / pivot * 100
	}

	switch {
	case levels.WidthPercent < c.narrowPercent:
		levels.WidthClass = models.PivotRangeNarrow
	case levels.WidthPercent > c.widePercent:
		levels.WidthClass = models.PivotRangeWide
	default:
		levels.WidthClass = models.PivotRangeAverage
	}

	return levels
}

// FromPreviousSession computes pivot levels from the session preceding
// the one the last candle belongs to. Sessions are calendar days.
func (c *CPR) FromPreviousSession(candles []models.Candle) (models.PivotLevels, error) {
	prev := previousSessionCandles(candles)
	if len(prev) == 0 {
		return models.PivotLevels{}, ErrInsufficientData
	}

	high := highest(highPrices(prev))
	low := lowest(lowPrices(prev))
	close := prev[len(prev)-1].Close

	return c.Calculate(high, low, close), nil
}

// SessionFib calculates Fibonacci retracement levels from the current
// session's high-low range.
type SessionFib struct{}

// NewSessionFib creates a new session Fibonacci calculator.
func NewSessionFib() *SessionFib {
	return &SessionFib{}
}

func (f *SessionFib) Name() string {
	return "SessionFib"
}

// Calculate computes the five standard ratios subtracted from the
// session high. A zero high-low range yields empty levels.
func (f *SessionFib) Calculate(high, low float64) models.FibLevels {
	diff := high - low
	if diff <= 0 {
		return models.FibLevels{}
	}

	return models.FibLevels{
		High:     high,
		Low:      low,
		Level236: high - diff*0.236,
		Level382: high - diff*0.382,
		Level500: high - diff*0.500,
		Level618: high - diff*0.618,
		Level786: high - diff*0.786,
	}
}

// FromCurrentSession computes retracement levels from the candles of
// the session the last candle belongs to.
func (f *SessionFib) FromCurrentSession(candles []models.Candle) (models.FibLevels, error) {
	current := currentSessionCandles(candles)
	if len(current) == 0 {
		return models.FibLevels{}, ErrInsufficientData
	}

	high := highest(highPrices(current))
	low := lowest(lowPrices(current))

	return f.Calculate(high, low), nil
}

// SupportResistance detects support and resistance levels by finding
// local extrema and clustering nearby ones into representative levels.
type SupportResistance struct {
	lookback  int
	window    int
	threshold float64
}

// NewSupportResistance creates a new support/resistance detector.
// Extrema are confirmed against `window` candles on each side and
// clustered when within `threshold` price points of a cluster's mean.
func NewSupportResistance(lookback, window int, threshold float64) *SupportResistance {
	return &SupportResistance{
		lookback:  lookback,
		window:    window,
		threshold: threshold,
	}
}

func (s *SupportResistance) Name() string {
	return "SupportResistance"
}

func (s *SupportResistance) Period() int {
	return 2*s.window + 1
}

// Calculate returns clustered support and resistance levels in
// ascending order.
func (s *SupportResistance) Calculate(candles []models.Candle) (support, resistance []float64, err error) {
	if s.window <= 0 || s.lookback <= 0 {
		return nil, nil, ErrInvalidPeriod
	}
	if len(candles) < s.Period() {
		return nil, nil, ErrInsufficientData
	}

	if len(candles) > s.lookback {
		candles = candles[len(candles)-s.lookback:]
	}

	var rawSupport, rawResistance []float64

	for i := s.window; i < len(candles)-s.window; i++ {
		isHigh := true
		isLow := true
		for j := 1; j <= s.window; j++ {
			if candles[i].High <= candles[i-j].High || candles[i].High <= candles[i+j].High {
				isHigh = false
			}
			if candles[i].Low >= candles[i-j].Low || candles[i].Low >= candles[i+j].Low {
				isLow = false
			}
		}
		if isHigh {
			rawResistance = append(rawResistance, candles[i].High)
		}
		if isLow {
			rawSupport = append(rawSupport, candles[i].Low)
		}
	}

	return s.cluster(rawSupport), s.cluster(rawResistance), nil
}

// cluster groups nearby levels in detection order and averages each
// group into a representative level.
func (s *SupportResistance) cluster(levels []float64) []float64 {
	if len(levels) == 0 {
		return nil
	}

	var clusters [][]float64
	for _, level := range levels {
		placed := false
		for i := range clusters {
			if abs(level-mean(clusters[i])) <= s.threshold {
				clusters[i] = append(clusters[i], level)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []float64{level})
		}
	}

	result := make([]float64, len(clusters))
	for i, c := range clusters {
		result[i] = mean(c)
	}
	sort.Float64s(result)

	return result
}

// sessionDay truncates a timestamp to its calendar day in the
// timestamp's own location.
func sessionDay(t models.Candle) (year int, month int, day int) {
	y, m, d := t.Timestamp.Date()
	return y, int(m), d
}

// currentSessionCandles returns the candles sharing the last candle's
// calendar day.
func currentSessionCandles(candles []models.Candle) []models.Candle {
	if len(candles) == 0 {
		return nil
	}
	ly, lm, ld := sessionDay(candles[len(candles)-1])
	start := len(candles)
	for i := len(candles) - 1; i >= 0; i-- {
		y, m, d := sessionDay(candles[i])
		if y != ly || m != lm || d != ld {
			break
		}
		start = i
	}
	return candles[start:]
}

// previousSessionCandles returns the candles of the session
// immediately before the last candle's calendar day.
func previousSessionCandles(candles []models.Candle) []models.Candle {
	if len(candles) == 0 {
		return nil
	}
	current := currentSessionCandles(candles)
	rest := candles[:len(candles)-len(current)]
	if len(rest) == 0 {
		return nil
	}
	return currentSessionCandles(rest)
}
