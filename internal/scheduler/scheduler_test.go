package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/ingest"
	"MarketPulse/internal/recorder"
)

func newTestScheduler(t *testing.T, src collector.Source) *Scheduler {
	t.Helper()
	tables := ingest.Tables{
		Candles:    recorder.Table{Name: "candles", ConflictKey: []string{"symbol"}, TimeColumn: "start"},
		Indicators: recorder.Table{Name: "indicators", ConflictKey: []string{"symbol"}, TimeColumn: "lastTs", KeyedBySymbol: true},
	}
	runner := ingest.NewRunner(collector.NewCollector(src, 1), recorder.NewNoopDestination(), tables, ingest.Params{Interval: "4h", Count: 60, Limit: 5})
	return NewScheduler(context.Background(), runner, nil, filepath.Join(t.TempDir(), "state", "last_run.json"))
}

func TestRunNowPersistsReport(t *testing.T) {
	s := newTestScheduler(t, &collector.MockFetcher{Prices: map[string]float64{"BTC": 100, "ETH": 50}})
	if s.LastReport() != nil {
		t.Fatal("expected no report before the first run")
	}
	report, err := s.RunNow(context.Background(), ingest.Params{})
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if s.LastReport() != report {
		t.Error("expected LastReport to return the new report")
	}

	restored := newTestScheduler(t, &collector.MockFetcher{})
	restored.StateFile = s.StateFile
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := restored.LastReport(); got == nil || got.RunID != report.RunID || got.IndicatorsPrepared != 2 {
		t.Errorf("unexpected restored report: %+v", got)
	}
}

func TestRunNowFatalKeepsPreviousReport(t *testing.T) {
	src := &collector.MockFetcher{Prices: map[string]float64{"BTC": 100}}
	s := newTestScheduler(t, src)
	first, err := s.RunNow(context.Background(), ingest.Params{})
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	src.ListErr = collector.ErrSourceUnavailable
	if _, err := s.RunNow(context.Background(), ingest.Params{}); !errors.Is(err, ingest.ErrRunFatal) {
		t.Fatalf("expected ErrRunFatal, got %v", err)
	}
	if s.LastReport() != first {
		t.Error("expected the previous report to be kept")
	}
}

func TestHandleCommand(t *testing.T) {
	s := newTestScheduler(t, &collector.MockFetcher{Prices: map[string]float64{"BTC": 100}})
	if got := s.HandleCommand("/status"); !strings.Contains(got, "No ingestion run") {
		t.Errorf("unexpected /status before run: %s", got)
	}
	if got := s.HandleCommand("/run"); !strings.Contains(got, "Symbols: 1") {
		t.Errorf("unexpected /run reply: %s", got)
	}
	if got := s.HandleCommand("/status"); !strings.Contains(got, "Last run") {
		t.Errorf("unexpected /status after run: %s", got)
	}
	if got := s.HandleCommand("hello"); !strings.Contains(got, "/run") {
		t.Errorf("expected help text, got %s", got)
	}
}

func TestRegisterIngest(t *testing.T) {
	s := newTestScheduler(t, &collector.MockFetcher{})
	if err := s.RegisterIngest("0 5 */4 * * *"); err != nil {
		t.Errorf("expected valid cron expression, got %v", err)
	}
	if err := s.RegisterIngest("not a cron"); err == nil {
		t.Error("expected error for invalid cron expression")
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(s.Cron.Entries()))
	}
}
