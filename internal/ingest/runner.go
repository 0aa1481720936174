package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/model"
	"MarketPulse/internal/projector"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/strategy"

	"github.com/google/uuid"
)

// ErrRunFatal marks a failure before any row-level work started.
var ErrRunFatal = errors.New("ingestion run failed")

// StrategyLatestOnly describes the persisted projection in the report.
const StrategyLatestOnly = "last-only-per-symbol"

// Params are the per-run knobs. Zero values fall back to the runner defaults.
type Params struct {
	Interval string
	Count    int
	Limit    int
}

// Tables holds the destination table settings.
type Tables struct {
	Candles           recorder.Table
	Indicators        recorder.Table
	CandleTimeMode    string
	IndicatorTimeMode string
}

// Runner executes ingestion runs: discover, fetch, compute, project, write.
type Runner struct {
	Collector   *collector.Collector
	Destination recorder.Destination
	Mirrors     []recorder.Destination
	Tables      Tables
	Defaults    Params
	Metrics     *metrics.Metrics

	mu sync.Mutex // one run at a time
}

// NewRunner creates a Runner.
func NewRunner(col *collector.Collector, dest recorder.Destination, tables Tables, defaults Params) *Runner {
	return &Runner{
		Collector:   col,
		Destination: dest,
		Tables:      tables,
		Defaults:    defaults,
	}
}

func (r *Runner) resolve(p Params) Params {
	if p.Interval == "" {
		p.Interval = r.Defaults.Interval
	}
	if p.Interval == "" {
		p.Interval = "4h"
	}
	if p.Count <= 0 {
		p.Count = r.Defaults.Count
	}
	if p.Limit <= 0 {
		p.Limit = r.Defaults.Limit
	}
	return p
}

// Run performs one ingestion. Row and chunk failures are carried in the
// report; only pre-flight failures are returned, wrapping ErrRunFatal.
func (r *Runner) Run(ctx context.Context, p Params) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	p = r.resolve(p)
	runID := uuid.NewString()

	if r.Destination == nil {
		r.Metrics.ObserveFatal()
		return nil, fmt.Errorf("%w: no destination configured", ErrRunFatal)
	}
	if r.Collector == nil {
		r.Metrics.ObserveFatal()
		return nil, fmt.Errorf("%w: no market data source configured", ErrRunFatal)
	}

	log.Printf("[INFO] run %s: interval=%s n=%d limit=%d", runID, p.Interval, p.Count, p.Limit)
	symbols, err := r.Collector.Discover(ctx, p.Limit)
	if err != nil {
		r.Metrics.ObserveFatal()
		return nil, fmt.Errorf("%w: %v", ErrRunFatal, err)
	}

	report := &model.Report{
		OK:        true,
		RunID:     runID,
		Interval:  p.Interval,
		StartedAt: started.UTC(),
		Symbols:   symbols,
		Skipped:   []model.SkippedSymbol{},
		Debug: model.ReportDebug{
			Tables: map[string]string{
				"candles":    r.Tables.Candles.Name,
				"indicators": r.Tables.Indicators.Name,
			},
			TimeType: map[string]string{
				"candles":    r.Tables.CandleTimeMode,
				"indicators": r.indicatorTimeMode(),
			},
			Strategy: StrategyLatestOnly,
		},
	}

	proj := projector.New(p.Interval, r.Tables.CandleTimeMode, r.Tables.IndicatorTimeMode)
	var candleRows, indicatorRows []model.Row
	for _, res := range r.Collector.FetchAll(ctx, symbols, p.Interval, p.Count) {
		candleRow, indicatorRow, reason := buildRows(proj, res)
		if reason != "" {
			report.Skipped = append(report.Skipped, model.SkippedSymbol{Symbol: res.Symbol, Reason: reason})
			continue
		}
		candleRows = append(candleRows, candleRow)
		indicatorRows = append(indicatorRows, indicatorRow)
	}
	report.CandlesPrepared = len(candleRows)
	report.IndicatorsPrepared = len(indicatorRows)

	candles := r.Destination.Write(ctx, r.Tables.Candles, candleRows)
	indicators := r.Destination.Write(ctx, r.Tables.Indicators, indicatorRows)
	report.CandlesWritten = candles.Written
	report.IndicatorsWritten = indicators.Written
	report.Errors = model.TableErrors{Candles: orEmpty(candles.Errors), Indicators: orEmpty(indicators.Errors)}
	report.Fallbacks = model.TableFallbacks{Candles: orEmptyFb(candles.Fallbacks), Indicators: orEmptyFb(indicators.Fallbacks)}

	r.mirror(ctx, r.Tables.Candles, candleRows)
	r.mirror(ctx, r.Tables.Indicators, indicatorRows)

	report.DurationMs = time.Since(started).Milliseconds()
	r.Metrics.ObserveReport(r.Destination.Name(), report)
	log.Printf("[INFO] run %s done in %dms: symbols=%d candles=%d/%d indicators=%d/%d skipped=%d errors=%d",
		runID, report.DurationMs, len(symbols),
		report.CandlesWritten, report.CandlesPrepared,
		report.IndicatorsWritten, report.IndicatorsPrepared,
		len(report.Skipped), len(report.Errors.Candles)+len(report.Errors.Indicators))
	return report, nil
}

// buildRows computes one symbol's rows, or the reason it is skipped.
func buildRows(proj *projector.Projector, res collector.Result) (model.Row, model.Row, string) {
	if res.Err != nil {
		return nil, nil, res.Err.Error()
	}
	snap, err := strategy.ComputeSnapshot(res.Candles)
	if err != nil {
		var inputErr *strategy.InputError
		if !errors.As(err, &inputErr) {
			log.Printf("[ERROR] compute %s: %v", res.Symbol, err)
		}
		return nil, nil, err.Error()
	}
	sorted := model.SortCandles(res.Candles)
	latest := sorted[len(sorted)-1]
	return proj.CandleRow(res.Symbol, latest), proj.IndicatorRow(res.Symbol, snap), ""
}

func (r *Runner) mirror(ctx context.Context, t recorder.Table, rows []model.Row) {
	for _, m := range r.Mirrors {
		out := m.Write(ctx, t, rows)
		r.Metrics.ObserveMirror(m.Name(), t.Name, out)
		if len(out.Errors) > 0 {
			log.Printf("[WARN] mirror %s on %s: %d written, %d errors (first: %s)",
				m.Name(), t.Name, out.Written, len(out.Errors), out.Errors[0].Message)
		}
	}
}

func (r *Runner) indicatorTimeMode() string {
	if r.Tables.IndicatorTimeMode == "" {
		return r.Tables.CandleTimeMode
	}
	return r.Tables.IndicatorTimeMode
}

func orEmpty(errs []model.WriteError) []model.WriteError {
	if errs == nil {
		return []model.WriteError{}
	}
	return errs
}

func orEmptyFb(fbs []model.Fallback) []model.Fallback {
	if fbs == nil {
		return []model.Fallback{}
	}
	return fbs
}
