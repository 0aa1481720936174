package collector

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"time"

	"MarketPulse/internal/model"
	"MarketPulse/internal/projector"

	"golang.org/x/sync/errgroup"
)

var symbolCodeRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Prices  map[string]float64
	Candles map[string][]model.Candle
	Errs    map[string]error
	ListErr error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) ListSymbols(_ context.Context) (map[string]float64, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make(map[string]float64, len(m.Prices))
	for k, v := range m.Prices {
		out[k] = v
	}
	return out, nil
}

func (m *MockFetcher) FetchCandles(_ context.Context, symbol, interval string, start, end int64) ([]model.Candle, error) {
	if err := m.Errs[symbol]; err != nil {
		return nil, err
	}
	if candles, ok := m.Candles[symbol]; ok {
		return candles, nil
	}
	step := projector.IntervalMillis(interval)
	return generateMockBars(m.Prices[symbol], start, end, step), nil
}

func generateMockBars(basePrice float64, start, end, step int64) []model.Candle {
	if basePrice <= 0 {
		basePrice = 100
	}
	count := int((end - start) / step)
	bars := make([]model.Candle, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Candle{
			Timestamp: start + int64(i)*step,
			Open:      p * 0.999,
			High:      p * 1.005,
			Low:       p * 0.995,
			Close:     p,
			Volume:    1000000,
		}
	}
	return bars
}

// Result is the outcome of fetching one symbol.
type Result struct {
	Symbol  string
	Candles []model.Candle
	Err     error
}

// Collector orchestrates symbol discovery and candle fetching.
type Collector struct {
	Source      Source
	Concurrency int
	// Now is the clock used for fetch windows.
	Now func() time.Time
}

// NewCollector creates a new Collector. concurrency < 1 means sequential fetching.
func NewCollector(source Source, concurrency int) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{Source: source, Concurrency: concurrency, Now: time.Now}
}

// Discover lists tradable symbols, keeps alphanumeric codes, sorts them and
// caps the result at limit (limit <= 0 means no cap).
func (c *Collector) Discover(ctx context.Context, limit int) ([]string, error) {
	prices, err := c.Source.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover symbols via %s: %w", c.Source.Name(), err)
	}
	symbols := make([]string, 0, len(prices))
	for sym := range prices {
		if symbolCodeRe.MatchString(sym) {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	if limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}
	return symbols, nil
}

// Window returns the [start, end] range in epoch ms covering count intervals up to now.
func (c *Collector) Window(interval string, count int) (int64, int64) {
	end := c.Now().UnixMilli()
	return end - projector.IntervalMillis(interval)*int64(count), end
}

// FetchAll fetches candles for every symbol. Failures are reported per symbol
// in the results, which keep the order of symbols.
func (c *Collector) FetchAll(ctx context.Context, symbols []string, interval string, count int) []Result {
	start, end := c.Window(interval, count)
	results := make([]Result, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			candles, err := c.Source.FetchCandles(gctx, sym, interval, start, end)
			if err != nil {
				log.Printf("[WARN] fetch %s from %s: %v", sym, c.Source.Name(), err)
			}
			results[i] = Result{Symbol: sym, Candles: candles, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
