package collector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"MarketPulse/internal/model"

	"github.com/adshao/go-binance/v2"
)

// binanceMaxKlines is the per-request kline cap of the spot API.
const binanceMaxKlines = 1000

// BinanceFetcher implements Source using Binance spot klines and ticker prices.
type BinanceFetcher struct {
	client *binance.Client
}

// NewBinanceFetcher creates a public (unauthenticated) Binance fetcher.
func NewBinanceFetcher(baseURL, proxyURL string, timeout time.Duration) *BinanceFetcher {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	client.HTTPClient = newHTTPClient(proxyURL, timeout)
	return &BinanceFetcher{client: client}
}

func (f *BinanceFetcher) Name() string { return "binance" }

func (f *BinanceFetcher) ListSymbols(ctx context.Context) (map[string]float64, error) {
	prices, err := f.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: binance prices: %v", ErrSourceUnavailable, err)
	}
	out := make(map[string]float64, len(prices))
	for _, p := range prices {
		px, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			continue
		}
		out[p.Symbol] = px
	}
	return out, nil
}

func (f *BinanceFetcher) FetchCandles(ctx context.Context, symbol, interval string, start, end int64) ([]model.Candle, error) {
	klines, err := f.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(start).
		EndTime(end).
		Limit(binanceMaxKlines).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: binance klines %s: %v", ErrSourceUnavailable, symbol, err)
	}
	candles := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := klineToCandle(k)
		if err != nil {
			return nil, fmt.Errorf("binance kline %s@%d: %w", symbol, k.OpenTime, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func klineToCandle(k *binance.Kline) (model.Candle, error) {
	var vals [5]float64
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Candle{}, err
		}
		vals[i] = v
	}
	return model.Candle{
		Timestamp: k.OpenTime,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}
