package metrics

import (
	"testing"
	"time"

	"MarketPulse/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testReport() *model.Report {
	return &model.Report{
		OK:                 true,
		StartedAt:          time.Unix(1700000000, 0),
		DurationMs:         1500,
		Symbols:            []string{"BTC", "ETH", "SOL"},
		CandlesPrepared:    2,
		IndicatorsPrepared: 2,
		CandlesWritten:     2,
		IndicatorsWritten:  1,
		Skipped:            []model.SkippedSymbol{{Symbol: "SOL", Reason: "no candles"}},
		Errors: model.TableErrors{
			Indicators: []model.WriteError{
				{Table: "indicators", Operation: "upsert", Code: "42P10"},
				{Table: "indicators", Operation: "insert", Code: "23505"},
			},
		},
		Fallbacks: model.TableFallbacks{
			Indicators: []model.Fallback{{Table: "indicators", Strategy: "upsert-on-symbol"}},
		},
		Debug: model.ReportDebug{Tables: map[string]string{"candles": "candles", "indicators": "indicators"}},
	}
}

func TestObserveReport(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveReport("postgres", testReport())

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues(ResultOK)); got != 1 {
		t.Errorf("runs ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SymbolsTotal); got != 3 {
		t.Errorf("symbols = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.SkippedSymbols); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RowsWritten.WithLabelValues("postgres", "indicators")); got != 1 {
		t.Errorf("indicators written = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.WriteErrors.WithLabelValues("postgres", "indicators", "insert")); got != 1 {
		t.Errorf("insert errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues("indicators", "upsert-on-symbol")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LastRunTime); got != 1700000001 {
		t.Errorf("last run = %v, want 1700000001", got)
	}
}

func TestObserveFatalAndMirror(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveFatal()
	m.ObserveMirror("redis", "candles", model.Outcome{
		Written: 4,
		Errors:  []model.WriteError{{Table: "candles", Operation: "hset"}},
	})
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues(ResultFatal)); got != 1 {
		t.Errorf("runs fatal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RowsWritten.WithLabelValues("redis", "candles")); got != 4 {
		t.Errorf("mirror written = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.WriteErrors.WithLabelValues("redis", "candles", "hset")); got != 1 {
		t.Errorf("mirror errors = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveReport("store", testReport())
	m.ObserveFatal()
	m.ObserveMirror("redis", "candles", model.Outcome{})
}
