package recorder

import (
	"context"
	"fmt"
	"log"

	"MarketPulse/internal/model"
	"MarketPulse/internal/projector"
)

// DefaultChunkSize bounds rows per write to respect payload limits.
const DefaultChunkSize = 500

// Write operations recorded in model.WriteError.Operation.
const (
	OpUpsert         = "upsert"
	OpInsert         = "insert"
	OpSymbolFallback = "upsert(symbol)-fallback"
	OpFatal          = "fatal"
)

// Fallback strategies recorded in model.Fallback.Strategy.
const (
	StrategyLatestPerSymbol = "latest-per-symbol"
	StrategyUpsertOnSymbol  = "upsert-on-symbol"
)

// Table describes a destination table and what the caller assumes about its keys.
type Table struct {
	Name string
	// ConflictKey is the preferred upsert key.
	ConflictKey []string
	// TimeColumn orders rows of the same symbol when collapsing to the latest.
	TimeColumn string
	// KeyedBySymbol marks tables expected to be unique on symbol already.
	KeyedBySymbol bool
}

// Writer is the resilient upsert pipeline over a Store. It never fails a
// batch: each chunk's errors are classified, recovered where possible and
// recorded in the returned Outcome.
type Writer struct {
	store     Store
	chunkSize int
}

// NewWriter creates a Writer. A non-positive chunkSize selects DefaultChunkSize.
func NewWriter(store Store, chunkSize int) *Writer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Writer{store: store, chunkSize: chunkSize}
}

func (w *Writer) Name() string { return "store" }

// Write implements Destination.
func (w *Writer) Write(ctx context.Context, t Table, rows []model.Row) model.Outcome {
	return w.UpsertAll(ctx, t, rows)
}

func (w *Writer) Close() error { return w.store.Close() }

// UpsertAll writes rows chunk by chunk. Per chunk it tries, in order: upsert on
// the preferred key, plain insert, then a symbol-keyed fallback chosen from
// the classified errors. Failures never cross chunk boundaries.
func (w *Writer) UpsertAll(ctx context.Context, t Table, rows []model.Row) model.Outcome {
	out := model.Outcome{}
	for i := 0; i < len(rows); i += w.chunkSize {
		end := i + w.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		w.writeChunk(ctx, t, rows[i:end], &out)
	}
	return out
}

func (w *Writer) writeChunk(ctx context.Context, t Table, chunk []model.Row, out *model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			log.Printf("[ERROR] chunk write on %s aborted: %s", t.Name, msg)
			out.Errors = append(out.Errors, model.WriteError{Table: t.Name, Operation: OpFatal, Message: msg})
		}
	}()

	n, err := w.store.Upsert(ctx, t.Name, chunk, t.ConflictKey)
	if err == nil {
		out.Written += n
		return
	}
	upsertErr := Classify(err)
	log.Printf("[WARN] upsert on %s failed: %v", t.Name, upsertErr)
	out.Errors = append(out.Errors, writeError(t.Name, OpUpsert, upsertErr))

	n, err = w.store.Insert(ctx, t.Name, chunk)
	if err == nil {
		out.Written += n
		return
	}
	insertErr := Classify(err)
	log.Printf("[WARN] insert fallback on %s failed: %v", t.Name, insertErr)
	out.Errors = append(out.Errors, writeError(t.Name, OpInsert, insertErr))

	if upsertErr.Kind != KindNoMatchingConstraint {
		return
	}
	switch {
	case insertErr.Kind == KindDuplicateKey && insertErr.Column == projector.ColSymbol && t.TimeColumn != "":
		// The real constraint is on symbol alone: keep one row per symbol.
		w.symbolFallback(ctx, t, LatestPerSymbol(chunk, t.TimeColumn), StrategyLatestPerSymbol, out)
	case t.KeyedBySymbol:
		w.symbolFallback(ctx, t, chunk, StrategyUpsertOnSymbol, out)
	}
}

func (w *Writer) symbolFallback(ctx context.Context, t Table, rows []model.Row, strategy string, out *model.Outcome) {
	n, err := w.store.Upsert(ctx, t.Name, rows, []string{projector.ColSymbol})
	if err != nil {
		se := Classify(err)
		log.Printf("[WARN] %s fallback on %s failed: %v", strategy, t.Name, se)
		out.Errors = append(out.Errors, writeError(t.Name, OpSymbolFallback, se))
		return
	}
	log.Printf("[INFO] %s fallback on %s wrote %d rows", strategy, t.Name, n)
	out.Written += n
	out.Fallbacks = append(out.Fallbacks, model.Fallback{Table: t.Name, Strategy: strategy})
}

// LatestPerSymbol keeps, for each symbol, the row with the greatest value in
// timeColumn. Symbols keep their first-seen order. On equal times the earlier
// row wins, and a row with an unreadable time never displaces another.
func LatestPerSymbol(rows []model.Row, timeColumn string) []model.Row {
	index := make(map[string]int)
	times := make(map[string]int64)
	var out []model.Row
	for _, r := range rows {
		sym := fmt.Sprint(r[projector.ColSymbol])
		ts, err := projector.TimeToMillis(r[timeColumn])
		i, seen := index[sym]
		if !seen {
			index[sym] = len(out)
			out = append(out, r)
			if err == nil {
				times[sym] = ts
			}
			continue
		}
		if prev, ok := times[sym]; err == nil && (!ok || ts > prev) {
			out[i] = r
			times[sym] = ts
		}
	}
	return out
}

func writeError(table, op string, se *StoreError) model.WriteError {
	return model.WriteError{Table: table, Operation: op, Message: se.Message, Code: se.Code}
}
