// Package indicators provides technical indicator calculations over
// candle series.
package indicators

import (
	"sync"

	"nifty-trader/internal/analysis/patterns"
	"nifty-trader/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
type Indicator interface {
	Name() string
	Calculate(candles []models.Candle) ([]float64, error)
	Period() int
}

// MultiValueIndicator defines the interface for indicators that return multiple values.
type MultiValueIndicator interface {
	Name() string
	Calculate(candles []models.Candle) (map[string][]float64, error)
	Period() int
}

// Config holds lookback periods and thresholds for the engine's
// indicator set.
type Config struct {
	EMAFastPeriod    int
	EMASlowPeriod    int
	RSIPeriod        int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
	SuperTrendPeriod int
	SuperTrendMult   float64
	ATRPeriod        int
	SRLookback       int
	SRWindow         int
	SRThreshold      float64
	CPRNarrowPercent float64
	CPRWidePercent   float64
}

// DefaultConfig returns the standard intraday parameter set.
func DefaultConfig() Config {
	return Config{
		EMAFastPeriod:    9,
		EMASlowPeriod:    21,
		RSIPeriod:        14,
		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,
		SuperTrendPeriod: 10,
		SuperTrendMult:   3.0,
		ATRPeriod:        10,
		SRLookback:       50,
		SRWindow:         2,
		SRThreshold:      20,
		CPRNarrowPercent: 0.1,
		CPRWidePercent:   0.25,
	}
}

// Engine assembles indicator snapshots from candle series. All
// calculations are pure functions of the input; the engine itself
// carries only configuration and is safe for concurrent use.
type Engine struct {
	cfg Config

	emaFast    *EMA
	emaSlow    *EMA
	rsi        *RSI
	macd       *MACD
	superTrend *SuperTrend
	atr        *ATR
	vwap       *VWAP
	cpr        *CPR
	fib        *SessionFib
	sr         *SupportResistance
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// NewEngine creates a new indicator engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg,
		emaFast:    NewEMA(cfg.EMAFastPeriod),
		emaSlow:    NewEMA(cfg.EMASlowPeriod),
		rsi:        NewRSI(cfg.RSIPeriod),
		macd:       NewMACD(cfg.MACDFastPeriod, cfg.MACDSlowPeriod, cfg.MACDSignalPeriod),
		superTrend: NewSuperTrend(cfg.SuperTrendPeriod, cfg.SuperTrendMult),
		atr:        NewATR(cfg.ATRPeriod),
		vwap:       NewVWAP(),
		cpr:        NewCPR(cfg.CPRNarrowPercent, cfg.CPRWidePercent),
		fib:        NewSessionFib(),
		sr:         NewSupportResistance(cfg.SRLookback, cfg.SRWindow, cfg.SRThreshold),
	}
}

// Snapshot computes every configured indicator at the last candle of
// the series. Indicators whose lookback exceeds the series length
// contribute their neutral default instead of failing the snapshot.
func (e *Engine) Snapshot(candles []models.Candle) models.IndicatorSnapshot {
	snap := models.IndicatorSnapshot{RSI: 50}
	if len(candles) == 0 {
		return snap
	}

	last := func(values []float64) float64 {
		if len(values) == 0 {
			return 0
		}
		return values[len(values)-1]
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	calc := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	calc(func() {
		fast, errFast := e.emaFast.Calculate(candles)
		slow, errSlow := e.emaSlow.Calculate(candles)
		mu.Lock()
		defer mu.Unlock()
		if errFast == nil {
			snap.EMAFast = last(fast)
		}
		if errSlow == nil {
			snap.EMASlow = last(slow)
		}
	})

	calc(func() {
		values, err := e.rsi.Calculate(candles)
		if err != nil {
			return
		}
		mu.Lock()
		snap.RSI = last(values)
		mu.Unlock()
	})

	calc(func() {
		values, err := e.macd.Calculate(candles)
		if err != nil {
			return
		}
		mu.Lock()
		snap.MACD = last(values["macd"])
		snap.MACDSignal = last(values["signal"])
		snap.MACDHistogram = last(values["histogram"])
		mu.Unlock()
	})

	calc(func() {
		values, err := e.superTrend.Calculate(candles)
		if err != nil {
			return
		}
		mu.Lock()
		snap.SuperTrend = last(values["supertrend"])
		snap.SuperTrendUp = last(values["direction"]) > 0
		mu.Unlock()
	})

	calc(func() {
		values, err := e.atr.Calculate(candles)
		if err != nil {
			return
		}
		mu.Lock()
		snap.ATR = last(values)
		mu.Unlock()
	})

	calc(func() {
		values, err := e.vwap.Calculate(candles)
		if err != nil {
			return
		}
		mu.Lock()
		snap.VWAP = last(values)
		mu.Unlock()
	})

	calc(func() {
		levels, err := e.cpr.FromPreviousSession(candles)
		if err != nil {
			return
		}
		mu.Lock()
		snap.Pivots = levels
		mu.Unlock()
	})

	calc(func() {
		levels, err := e.fib.FromCurrentSession(candles)
		if err != nil {
			return
		}
		mu.Lock()
		snap.Fib = levels
		mu.Unlock()
	})

	calc(func() {
		support, resistance, err := e.sr.Calculate(candles)
		if err != nil {
			return
		}
		mu.Lock()
		snap.SupportLevels = support
		snap.ResistanceLevels = resistance
		mu.Unlock()
	})

	wg.Wait()

	snap.Patterns = patterns.Detect(candles)

	return snap
}
