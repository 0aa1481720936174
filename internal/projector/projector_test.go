package projector

import (
	"testing"
	"time"

	"MarketPulse/internal/model"
)

func TestEncodeTime_Modes(t *testing.T) {
	const ms = int64(1700000123456)
	tests := []struct {
		mode string
		want any
	}{
		{"ms", ms},
		{"epoch_ms", ms},
		{"BIGINT", ms},
		{"s", int64(1700000123)},
		{"sec", int64(1700000123)},
		{"seconds", int64(1700000123)},
		{"epoch_s", int64(1700000123)},
		{"timestamp", "2023-11-14T22:15:23.456Z"},
		{"timestamptz", "2023-11-14T22:15:23.456Z"},
		{"", "2023-11-14T22:15:23.456Z"},
	}
	for _, tt := range tests {
		if got := EncodeTime(ms, tt.mode); got != tt.want {
			t.Errorf("mode %q: expected %v (%T), got %v (%T)", tt.mode, tt.want, tt.want, got, got)
		}
	}
}

func TestEncodeTime_SecondsFloorNegative(t *testing.T) {
	if got := EncodeTime(-1500, "s"); got != int64(-2) {
		t.Errorf("expected -2, got %v", got)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	values := []int64{0, 1, 999, 1700000000000, 1700000123456, 1725148800000}
	for _, mode := range []string{"ms", "s", "timestamp"} {
		for _, ms := range values {
			got, err := DecodeTime(EncodeTime(ms, mode), mode)
			if err != nil {
				t.Fatalf("mode %s value %d: %v", mode, ms, err)
			}
			want := ms
			if mode == "s" {
				want = ms - ms%1000
			}
			if got != want {
				t.Errorf("mode %s: expected %d, got %d", mode, want, got)
			}
		}
	}
}

func TestTimeToMillis(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{int64(42), 42},
		{7, 7},
		{float64(1000), 1000},
		{"1970-01-01T00:00:01.000Z", 1000},
		{time.UnixMilli(5000), 5000},
	}
	for _, tt := range tests {
		got, err := TimeToMillis(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("TimeToMillis(%v): expected %d, got %d (%v)", tt.in, tt.want, got, err)
		}
	}
	if _, err := TimeToMillis("not a time"); err == nil {
		t.Error("expected error for unparsable string")
	}
}

func TestIntervalDuration(t *testing.T) {
	tests := []struct {
		code string
		want time.Duration
	}{
		{"1m", time.Minute},
		{"15m", 15 * time.Minute},
		{"4h", 4 * time.Hour},
		{"1H", time.Hour},
		{"1d", 24 * time.Hour},
		{"3d", 72 * time.Hour},
		{"1w", 4 * time.Hour},
		{"xh", 4 * time.Hour},
		{"0h", 4 * time.Hour},
		{"", 4 * time.Hour},
		{"h", 4 * time.Hour},
	}
	for _, tt := range tests {
		if got := IntervalDuration(tt.code); got != tt.want {
			t.Errorf("IntervalDuration(%q): expected %v, got %v", tt.code, tt.want, got)
		}
	}
}

func TestCandleRow(t *testing.T) {
	p := New("4h", "ms", "")
	c := model.Candle{Timestamp: 1700000000000, Open: 1, High: 3, Low: 0.5, Close: 2, Volume: 10}
	row := p.CandleRow("BTC", c)
	if row[ColSymbol] != "BTC" || row[ColInterval] != "4h" {
		t.Errorf("unexpected identity columns: %v", row)
	}
	if row[ColStart] != int64(1700000000000) {
		t.Errorf("expected start in ms, got %v", row[ColStart])
	}
	if row[ColEnd] != int64(1700000000000+4*3600*1000) {
		t.Errorf("expected end = start + 4h, got %v", row[ColEnd])
	}
	if row[ColOpen] != 1.0 || row[ColHigh] != 3.0 || row[ColLow] != 0.5 || row[ColClose] != 2.0 || row[ColVolume] != 10.0 {
		t.Errorf("unexpected OHLCV: %v", row)
	}
	if p.IndicatorTimeMode != "ms" {
		t.Errorf("expected indicator mode to inherit ms, got %q", p.IndicatorTimeMode)
	}
}

func TestIndicatorRow(t *testing.T) {
	p := New("1h", "ms", "timestamp")
	ema50 := 101.5
	rsi := 55.0
	snap := &model.Snapshot{EMA50: &ema50, RSI14: &rsi, Score: 20, Label: model.LabelNeutral, LastTs: 0}
	row := p.IndicatorRow("ETH", snap)
	if row[ColEMA50] != 101.5 || row[ColRSI14] != 55.0 {
		t.Errorf("unexpected values: %v", row)
	}
	if row[ColEMA200] != nil || row[ColMACD] != nil || row[ColMACDSignal] != nil {
		t.Errorf("expected nil for warming-up indicators: %v", row)
	}
	if row[ColLastTs] != "1970-01-01T00:00:00.000Z" {
		t.Errorf("expected ISO lastTs, got %v", row[ColLastTs])
	}
	if row[ColScore] != 20 || row[ColLabel] != "Neutral" {
		t.Errorf("unexpected score/label: %v", row)
	}
}
