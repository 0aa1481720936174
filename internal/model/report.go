package model

import "time"

// Row is one flat persistence-ready record keyed by column name.
type Row map[string]any

// WriteError describes one failed write step against a destination table.
type WriteError struct {
	Table     string `json:"table"`
	Operation string `json:"operation"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
}

// Fallback records a recovery strategy that succeeded for a chunk.
type Fallback struct {
	Table    string `json:"table"`
	Strategy string `json:"strategy"`
}

// Outcome accumulates the result of writing rows to one table.
type Outcome struct {
	Written   int          `json:"written"`
	Errors    []WriteError `json:"errors"`
	Fallbacks []Fallback   `json:"fallbacks"`
}

// SkippedSymbol records why a symbol produced no rows in a run.
type SkippedSymbol struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// TableErrors groups write errors per destination table.
type TableErrors struct {
	Candles    []WriteError `json:"candles"`
	Indicators []WriteError `json:"indicators"`
}

// TableFallbacks groups fallbacks per destination table.
type TableFallbacks struct {
	Candles    []Fallback `json:"candles"`
	Indicators []Fallback `json:"indicators"`
}

// ReportDebug echoes the effective destination settings of a run.
type ReportDebug struct {
	Tables   map[string]string `json:"tables"`
	TimeType map[string]string `json:"timeType"`
	Strategy string            `json:"strategy"`
}

// Report is the structured result of one ingestion run.
type Report struct {
	OK                 bool            `json:"ok"`
	RunID              string          `json:"runId"`
	Interval           string          `json:"interval"`
	StartedAt          time.Time       `json:"startedAt"`
	DurationMs         int64           `json:"durationMs"`
	Symbols            []string        `json:"symbols"`
	CandlesPrepared    int             `json:"candlesPrepared"`
	IndicatorsPrepared int             `json:"indicatorsPrepared"`
	CandlesWritten     int             `json:"candlesWritten"`
	IndicatorsWritten  int             `json:"indicatorsWritten"`
	Skipped            []SkippedSymbol `json:"skipped"`
	Errors             TableErrors     `json:"errors"`
	Fallbacks          TableFallbacks  `json:"fallbacks"`
	Debug              ReportDebug     `json:"debug"`
}
