package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketPulse/internal/model"
)

func TestHyperliquidFetcher_ListSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/info" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["type"] != "allMids" {
			t.Errorf("expected allMids request, got %v", body)
		}
		w.Write([]byte(`{"BTC":"64250.5","ETH":"3120.25","@107":"1.2"}`))
	}))
	defer srv.Close()

	f := NewHyperliquidFetcher(srv.URL, "", time.Second)
	mids, err := f.ListSymbols(context.Background())
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(mids) != 3 || mids["BTC"] != 64250.5 || mids["ETH"] != 3120.25 {
		t.Errorf("unexpected mids: %v", mids)
	}
}

func TestHyperliquidFetcher_FetchCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body hlCandleRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Type != "candleSnapshot" || body.Req.Coin != "BTC" || body.Req.Interval != "4h" ||
			body.Req.StartTime != 1000 || body.Req.EndTime != 2000 {
			t.Errorf("unexpected request body: %+v", body)
		}
		w.Write([]byte(`[
			{"t":1700000000000,"T":1700014399999,"s":"BTC","i":"4h","o":"100.5","c":"101.25","h":"102","l":"99.75","v":"12.5","n":42}
		]`))
	}))
	defer srv.Close()

	f := NewHyperliquidFetcher(srv.URL+"/", "", time.Second)
	candles, err := f.FetchCandles(context.Background(), "BTC", "4h", 1000, 2000)
	if err != nil {
		t.Fatalf("FetchCandles: %v", err)
	}
	want := model.Candle{Timestamp: 1700000000000, Open: 100.5, High: 102, Low: 99.75, Close: 101.25, Volume: 12.5}
	if len(candles) != 1 || candles[0] != want {
		t.Errorf("got %+v, want %+v", candles, want)
	}
}

func TestHyperliquidFetcher_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewHyperliquidFetcher(srv.URL, "", time.Second)
	_, err := f.FetchCandles(context.Background(), "BTC", "4h", 0, 1)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestBinanceFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/ticker/price":
			w.Write([]byte(`[{"symbol":"BTCUSDT","price":"64000.10"},{"symbol":"ETHUSDT","price":"3100.00"}]`))
		case "/api/v3/klines":
			q := r.URL.Query()
			if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" || q.Get("startTime") != "1000" {
				t.Errorf("unexpected query: %v", q)
			}
			w.Write([]byte(`[[1700000000000,"1.0","2.0","0.5","1.5","100.0",1700003599999,"150.0",10,"50.0","75.0","0"]]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewBinanceFetcher(srv.URL, "", time.Second)
	prices, err := f.ListSymbols(context.Background())
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if prices["BTCUSDT"] != 64000.10 || len(prices) != 2 {
		t.Errorf("unexpected prices: %v", prices)
	}
	candles, err := f.FetchCandles(context.Background(), "BTCUSDT", "1h", 1000, 2000)
	if err != nil {
		t.Fatalf("FetchCandles: %v", err)
	}
	want := model.Candle{Timestamp: 1700000000000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100}
	if len(candles) != 1 || candles[0] != want {
		t.Errorf("got %+v, want %+v", candles, want)
	}
}

func TestCollector_Discover(t *testing.T) {
	src := &MockFetcher{Prices: map[string]float64{
		"SOL": 1, "BTC": 2, "@142": 3, "ETH": 4, "kPEPE": 5, "PURR/USDC": 6,
	}}
	c := NewCollector(src, 1)

	got, err := c.Discover(context.Background(), 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if strings.Join(got, ",") != "BTC,ETH,SOL,kPEPE" {
		t.Errorf("unexpected symbols: %v", got)
	}

	got, _ = c.Discover(context.Background(), 2)
	if strings.Join(got, ",") != "BTC,ETH" {
		t.Errorf("expected capped symbols, got %v", got)
	}
}

func TestCollector_DiscoverFailure(t *testing.T) {
	c := NewCollector(&MockFetcher{ListErr: ErrSourceUnavailable}, 1)
	if _, err := c.Discover(context.Background(), 10); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected wrapped ErrSourceUnavailable, got %v", err)
	}
}

func TestCollector_FetchAll(t *testing.T) {
	boom := errors.New("boom")
	src := &MockFetcher{
		Prices:  map[string]float64{"BTC": 100, "ETH": 50, "SOL": 10},
		Candles: map[string][]model.Candle{"SOL": {}},
		Errs:    map[string]error{"ETH": boom},
	}
	for _, conc := range []int{1, 3} {
		c := NewCollector(src, conc)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c.Now = func() time.Time { return now }

		results := c.FetchAll(context.Background(), []string{"BTC", "ETH", "SOL"}, "4h", 10)
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[0].Symbol != "BTC" || results[0].Err != nil || len(results[0].Candles) != 10 {
			t.Errorf("unexpected BTC result: %+v", results[0])
		}
		first := now.UnixMilli() - 10*4*3600*1000
		if results[0].Candles[0].Timestamp != first {
			t.Errorf("expected window to start at %d, got %d", first, results[0].Candles[0].Timestamp)
		}
		if results[1].Symbol != "ETH" || !errors.Is(results[1].Err, boom) {
			t.Errorf("unexpected ETH result: %+v", results[1])
		}
		if results[2].Symbol != "SOL" || results[2].Err != nil || len(results[2].Candles) != 0 {
			t.Errorf("unexpected SOL result: %+v", results[2])
		}
	}
}

func TestCollector_Window(t *testing.T) {
	c := NewCollector(&MockFetcher{}, 0)
	c.Now = func() time.Time { return time.UnixMilli(100_000_000) }
	start, end := c.Window("15m", 4)
	if end != 100_000_000 || start != 100_000_000-4*15*60*1000 {
		t.Errorf("unexpected window [%d, %d]", start, end)
	}
	if c.Concurrency != 1 {
		t.Errorf("expected concurrency floor of 1, got %d", c.Concurrency)
	}
}
