package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"MarketPulse/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultHyperliquidURL is the public info endpoint host.
const DefaultHyperliquidURL = "https://api.hyperliquid.xyz"

// HyperliquidFetcher implements Source using the Hyperliquid info API.
type HyperliquidFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHyperliquidFetcher creates a new fetcher with optional proxy support.
func NewHyperliquidFetcher(baseURL, proxyURL string, timeout time.Duration) *HyperliquidFetcher {
	if baseURL == "" {
		baseURL = DefaultHyperliquidURL
	}
	return &HyperliquidFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *HyperliquidFetcher) Name() string { return "hyperliquid" }

// hlCandle is the candleSnapshot element; prices arrive as decimal strings.
type hlCandle struct {
	OpenTime  int64           `json:"t"`
	CloseTime int64           `json:"T"`
	Symbol    string          `json:"s"`
	Interval  string          `json:"i"`
	Open      decimal.Decimal `json:"o"`
	Close     decimal.Decimal `json:"c"`
	High      decimal.Decimal `json:"h"`
	Low       decimal.Decimal `json:"l"`
	Volume    decimal.Decimal `json:"v"`
	Trades    int64           `json:"n"`
}

type hlCandleRequest struct {
	Type string `json:"type"`
	Req  struct {
		Coin      string `json:"coin"`
		Interval  string `json:"interval"`
		StartTime int64  `json:"startTime"`
		EndTime   int64  `json:"endTime"`
	} `json:"req"`
}

func (f *HyperliquidFetcher) ListSymbols(ctx context.Context) (map[string]float64, error) {
	var mids map[string]decimal.Decimal
	if err := f.post(ctx, map[string]string{"type": "allMids"}, &mids); err != nil {
		return nil, fmt.Errorf("hyperliquid mids: %w", err)
	}
	out := make(map[string]float64, len(mids))
	for sym, px := range mids {
		out[sym] = px.InexactFloat64()
	}
	return out, nil
}

func (f *HyperliquidFetcher) FetchCandles(ctx context.Context, symbol, interval string, start, end int64) ([]model.Candle, error) {
	body := hlCandleRequest{Type: "candleSnapshot"}
	body.Req.Coin = symbol
	body.Req.Interval = interval
	body.Req.StartTime = start
	body.Req.EndTime = end

	var raw []hlCandle
	if err := f.post(ctx, body, &raw); err != nil {
		return nil, fmt.Errorf("hyperliquid candles %s: %w", symbol, err)
	}
	candles := make([]model.Candle, len(raw))
	for i, c := range raw {
		candles[i] = model.Candle{
			Timestamp: c.OpenTime,
			Open:      c.Open.InexactFloat64(),
			High:      c.High.InexactFloat64(),
			Low:       c.Low.InexactFloat64(),
			Close:     c.Close.InexactFloat64(),
			Volume:    c.Volume.InexactFloat64(),
		}
	}
	return candles, nil
}

func (f *HyperliquidFetcher) post(ctx context.Context, payload, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+"/info", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d, body: %s", ErrSourceUnavailable, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrSourceUnavailable, err)
	}
	return nil
}
