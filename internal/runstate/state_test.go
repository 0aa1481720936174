package runstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"MarketPulse/internal/model"
)

func TestLoadReport_Missing(t *testing.T) {
	report, err := LoadReport(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil || report != nil {
		t.Errorf("expected nil report and no error, got %v, %v", report, err)
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "last_run.json")
	in := &model.Report{
		OK:             true,
		RunID:          "run-1",
		Interval:       "4h",
		StartedAt:      time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Symbols:        []string{"BTC", "ETH"},
		CandlesWritten: 2,
		Skipped:        []model.SkippedSymbol{{Symbol: "SOL", Reason: "no candles"}},
		Fallbacks: model.TableFallbacks{
			Candles: []model.Fallback{{Table: "candles", Strategy: "latest-per-symbol"}},
		},
	}
	if err := SaveReport(path, in); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	out, err := LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if out.RunID != "run-1" || !out.StartedAt.Equal(in.StartedAt) || out.CandlesWritten != 2 {
		t.Errorf("unexpected report: %+v", out)
	}
	if len(out.Skipped) != 1 || len(out.Fallbacks.Candles) != 1 {
		t.Errorf("expected skipped and fallbacks to survive, got %+v", out)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temp file to be renamed away")
	}
}

func TestLoadReport_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := LoadReport(path); err == nil {
		t.Error("expected decode error")
	}
}
