package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"nifty-trader/internal/models"
)

// Property: For any number of subscribers and any tick, all subscribers should
// receive the tick within a reasonable timeout, unless they are slow consumers
// (in which case the tick may be dropped to prevent blocking).
func TestProperty_AllSubscribersReceiveTicksWithinTimeout(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"NIFTY 50", "NIFTY BANK", "RELIANCE", "TCS", "INFY"}

	subscriberCountGen := gen.IntRange(1, 5)
	tickCountGen := gen.IntRange(1, 20)
	symbolIdxGen := gen.IntRange(0, len(symbols)-1)
	priceGen := gen.Float64Range(100.0, 30000.0)

	properties.Property("All fast subscribers receive all ticks within timeout", prop.ForAll(
		func(subscriberCount int, tickCount int, symbolIdx int, basePrice float64) bool {
			symbol := symbols[symbolIdx]

			// Large buffers to avoid drops
			config := HubConfig{
				BufferSize:           1000,
				SubscriberBufferSize: 100,
			}
			hub := NewHubWithConfig(config)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			hub.Start(ctx)
			defer hub.Stop()

			var wg sync.WaitGroup
			receivedCounts := make([]int64, subscriberCount)

			channels := make([]<-chan models.Tick, subscriberCount)
			for i := 0; i < subscriberCount; i++ {
				channels[i] = hub.Subscribe(symbol)
			}

			for i := 0; i < subscriberCount; i++ {
				wg.Add(1)
				go func(idx int, ch <-chan models.Tick) {
					defer wg.Done()
					timeout := time.After(5 * time.Second)
					for {
						select {
						case _, ok := <-ch:
							if !ok {
								return
							}
							atomic.AddInt64(&receivedCounts[idx], 1)
							if atomic.LoadInt64(&receivedCounts[idx]) >= int64(tickCount) {
								return
							}
						case <-timeout:
							return
						}
					}
				}(i, channels[i])
			}

			// Give subscribers time to set up
			time.Sleep(10 * time.Millisecond)

			for i := 0; i < tickCount; i++ {
				tick := models.Tick{
					Symbol:    symbol,
					LTP:       basePrice + float64(i)*0.05,
					Volume:    10000,
					Timestamp: time.Now(),
				}
				hub.Publish(tick)
				time.Sleep(1 * time.Millisecond)
			}

			wg.Wait()

			for i := 0; i < subscriberCount; i++ {
				received := atomic.LoadInt64(&receivedCounts[i])
				if received != int64(tickCount) {
					// Allow for some dropped ticks due to timing
					if float64(received)/float64(tickCount) < 0.9 {
						return false
					}
				}
			}

			return true
		},
		subscriberCountGen,
		tickCountGen,
		symbolIdxGen,
		priceGen,
	))

	properties.TestingRun(t)
}

// TestProperty_SlowConsumersDoNotBlockOthers tests that slow consumers don't block fast ones.
func TestProperty_SlowConsumersDoNotBlockOthers(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"NIFTY 50", "RELIANCE", "TCS"}

	properties.Property("Slow consumers do not block fast consumers", prop.ForAll(
		func(symbolIdx int, basePrice float64) bool {
			symbol := symbols[symbolIdx%len(symbols)]

			// Small subscriber buffer to trigger slow consumer drops
			config := HubConfig{
				BufferSize:           100,
				SubscriberBufferSize: 5,
			}
			hub := NewHubWithConfig(config)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			hub.Start(ctx)
			defer hub.Stop()

			fastCh := hub.Subscribe(symbol)
			var fastReceived int64

			// Slow subscriber never reads from its channel
			_ = hub.Subscribe(symbol)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				timeout := time.After(2 * time.Second)
				for {
					select {
					case _, ok := <-fastCh:
						if !ok {
							return
						}
						atomic.AddInt64(&fastReceived, 1)
						if atomic.LoadInt64(&fastReceived) >= 10 {
							return
						}
					case <-timeout:
						return
					}
				}
			}()

			time.Sleep(10 * time.Millisecond)

			for i := 0; i < 20; i++ {
				tick := models.Tick{
					Symbol:    symbol,
					LTP:       basePrice + float64(i)*0.05,
					Timestamp: time.Now(),
				}
				hub.Publish(tick)
			}

			wg.Wait()

			return atomic.LoadInt64(&fastReceived) > 0
		},
		gen.IntRange(0, 2),
		gen.Float64Range(100.0, 30000.0),
	))

	properties.TestingRun(t)
}

// TestProperty_ConsumersReceiveCorrectSymbolTicks tests that subscribers only
// receive ticks for their subscribed symbols.
func TestProperty_ConsumersReceiveCorrectSymbolTicks(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"NIFTY 50", "NIFTY BANK", "RELIANCE", "TCS", "INFY"}

	properties.Property("Subscribers only receive ticks for their subscribed symbol", prop.ForAll(
		func(subscribedSymbolIdx int, publishedSymbolIdx int) bool {
			subscribedSymbol := symbols[subscribedSymbolIdx%len(symbols)]
			publishedSymbol := symbols[publishedSymbolIdx%len(symbols)]

			hub := NewHub()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			hub.Start(ctx)
			defer hub.Stop()

			ch := hub.Subscribe(subscribedSymbol)

			var received int64
			var receivedSymbol string
			var mu sync.Mutex

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				timeout := time.After(500 * time.Millisecond)
				select {
				case tick, ok := <-ch:
					if ok {
						atomic.AddInt64(&received, 1)
						mu.Lock()
						receivedSymbol = tick.Symbol
						mu.Unlock()
					}
				case <-timeout:
				}
			}()

			time.Sleep(10 * time.Millisecond)

			tick := models.Tick{
				Symbol:    publishedSymbol,
				LTP:       1000.0,
				Timestamp: time.Now(),
			}
			hub.Publish(tick)

			wg.Wait()

			if atomic.LoadInt64(&received) > 0 {
				mu.Lock()
				defer mu.Unlock()
				return receivedSymbol == subscribedSymbol
			}

			return subscribedSymbol != publishedSymbol
		},
		gen.IntRange(0, 4),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
