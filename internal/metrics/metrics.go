package metrics

import (
	"time"

	"MarketPulse/internal/model"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values for RunsTotal.
const (
	ResultOK    = "ok"
	ResultFatal = "fatal"
)

// Metrics holds all Prometheus metrics for the ingestion runs.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec // labels: result
	RunDuration    prometheus.Histogram
	LastRunTime    prometheus.Gauge
	SymbolsTotal   prometheus.Gauge
	SkippedSymbols prometheus.Counter

	RowsPrepared *prometheus.GaugeVec   // labels: table
	RowsWritten  *prometheus.CounterVec // labels: destination, table
	WriteErrors  *prometheus.CounterVec // labels: destination, table, operation
	Fallbacks    *prometheus.CounterVec // labels: table, strategy
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_runs_total",
			Help: "Ingestion runs by result",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_run_duration_seconds",
			Help:    "Wall time of a completed ingestion run",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
		SymbolsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_symbols",
			Help: "Symbols selected in the last run",
		}),
		SkippedSymbols: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_skipped_symbols_total",
			Help: "Symbols skipped because of fetch or input errors",
		}),
		RowsPrepared: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pulse_rows_prepared",
			Help: "Rows prepared in the last run",
		}, []string{"table"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_rows_written_total",
			Help: "Rows written per destination and table",
		}, []string{"destination", "table"}),
		WriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_write_errors_total",
			Help: "Failed write steps per destination, table and operation",
		}, []string{"destination", "table", "operation"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_write_fallbacks_total",
			Help: "Successful fallback strategies per table",
		}, []string{"table", "strategy"}),
	}
	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.LastRunTime,
		m.SymbolsTotal,
		m.SkippedSymbols,
		m.RowsPrepared,
		m.RowsWritten,
		m.WriteErrors,
		m.Fallbacks,
	)
	return m
}

// ObserveReport records a completed run against the primary destination.
func (m *Metrics) ObserveReport(destination string, r *model.Report) {
	if m == nil || r == nil {
		return
	}
	m.RunsTotal.WithLabelValues(ResultOK).Inc()
	m.RunDuration.Observe((time.Duration(r.DurationMs) * time.Millisecond).Seconds())
	m.LastRunTime.Set(float64(r.StartedAt.Add(time.Duration(r.DurationMs) * time.Millisecond).Unix()))
	m.SymbolsTotal.Set(float64(len(r.Symbols)))
	m.SkippedSymbols.Add(float64(len(r.Skipped)))

	m.RowsPrepared.WithLabelValues(r.Debug.Tables["candles"]).Set(float64(r.CandlesPrepared))
	m.RowsPrepared.WithLabelValues(r.Debug.Tables["indicators"]).Set(float64(r.IndicatorsPrepared))
	m.RowsWritten.WithLabelValues(destination, r.Debug.Tables["candles"]).Add(float64(r.CandlesWritten))
	m.RowsWritten.WithLabelValues(destination, r.Debug.Tables["indicators"]).Add(float64(r.IndicatorsWritten))

	for _, errs := range [][]model.WriteError{r.Errors.Candles, r.Errors.Indicators} {
		for _, e := range errs {
			m.WriteErrors.WithLabelValues(destination, e.Table, e.Operation).Inc()
		}
	}
	for _, fbs := range [][]model.Fallback{r.Fallbacks.Candles, r.Fallbacks.Indicators} {
		for _, f := range fbs {
			m.Fallbacks.WithLabelValues(f.Table, f.Strategy).Inc()
		}
	}
}

// ObserveFatal records a run that failed before writing.
func (m *Metrics) ObserveFatal() {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(ResultFatal).Inc()
}

// ObserveMirror records a mirror destination's outcome for one table.
func (m *Metrics) ObserveMirror(destination, table string, out model.Outcome) {
	if m == nil {
		return
	}
	m.RowsWritten.WithLabelValues(destination, table).Add(float64(out.Written))
	for _, e := range out.Errors {
		m.WriteErrors.WithLabelValues(destination, table, e.Operation).Inc()
	}
}
