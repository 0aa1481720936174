package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"MarketPulse/internal/model"
)

// ErrSourceUnavailable marks a failed candle or symbol-discovery fetch.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source defines the interface for fetching market data.
type Source interface {
	// ListSymbols returns tradable symbols mapped to a reference price.
	ListSymbols(ctx context.Context) (map[string]float64, error)
	// FetchCandles returns candles for [start, end] in epoch milliseconds.
	FetchCandles(ctx context.Context, symbol, interval string, start, end int64) ([]model.Candle, error)
	Name() string
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
