package scoring

import (
	"context"
	"sort"
	"sync"

	"nifty-trader/internal/models"
)

// CandleProvider supplies the candle series to screen a symbol with.
type CandleProvider func(ctx context.Context, symbol string) ([]models.Candle, error)

// ScreenResult is the outcome of scoring one symbol. Err is set when
// the candles could not be fetched; Skipped when the series was too
// short to score.
type ScreenResult struct {
	Symbol  string
	Signal  *models.Signal
	Skipped bool
	Err     error
}

// Screener evaluates many symbols concurrently with a shared scorer.
type Screener struct {
	scorer      *SignalScorer
	provider    CandleProvider
	concurrency int
}

// NewScreener creates a screener. Concurrency defaults to 4.
func NewScreener(scorer *SignalScorer, provider CandleProvider, concurrency int) *Screener {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Screener{
		scorer:      scorer,
		provider:    provider,
		concurrency: concurrency,
	}
}

// Scan scores every symbol and returns results ordered by absolute
// score, strongest first. Fetch failures are reported per symbol and
// never abort the scan.
func (s *Screener) Scan(ctx context.Context, symbols []string) []ScreenResult {
	jobs := make(chan string)
	results := make([]ScreenResult, 0, len(symbols))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				result := s.screenOne(ctx, symbol)
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
		}()
	}

	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
		case jobs <- symbol:
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return absScore(results[i]) > absScore(results[j])
	})
	return results
}

func (s *Screener) screenOne(ctx context.Context, symbol string) ScreenResult {
	candles, err := s.provider(ctx, symbol)
	if err != nil {
		return ScreenResult{Symbol: symbol, Err: err}
	}

	outcome := s.scorer.Evaluate(symbol, candles)
	if outcome.Kind == OutcomeInsufficientData {
		return ScreenResult{Symbol: symbol, Skipped: true}
	}
	return ScreenResult{Symbol: symbol, Signal: outcome.Signal}
}

func absScore(r ScreenResult) float64 {
	if r.Signal == nil {
		return -1
	}
	return abs(r.Signal.Score)
}
