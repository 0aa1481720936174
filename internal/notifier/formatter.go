package notifier

import (
	"fmt"
	"strings"

	"MarketPulse/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
)

// FormatRunReport formats a run report into a Telegram message.
func FormatRunReport(r *model.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>MarketPulse ingest</b> | %s | %s\n\n", r.Interval, r.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Symbols: %d (skipped %d)\n", len(r.Symbols), len(r.Skipped)))
	b.WriteString(fmt.Sprintf("Candles: %d/%d written\n", r.CandlesWritten, r.CandlesPrepared))
	b.WriteString(fmt.Sprintf("Indicators: %d/%d written\n", r.IndicatorsWritten, r.IndicatorsPrepared))
	b.WriteString(fmt.Sprintf("Duration: %dms\n", r.DurationMs))

	fallbacks := append(append([]model.Fallback{}, r.Fallbacks.Candles...), r.Fallbacks.Indicators...)
	if len(fallbacks) > 0 {
		b.WriteString("\n🔁 <b>Fallbacks:</b>\n")
		for _, f := range fallbacks {
			b.WriteString(fmt.Sprintf("  %s: %s\n", f.Table, f.Strategy))
		}
	}

	errs := append(append([]model.WriteError{}, r.Errors.Candles...), r.Errors.Indicators...)
	if len(errs) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ <b>Write errors:</b> %d\n", len(errs)))
		for i, e := range errs {
			if i == 3 {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(errs)-3))
				break
			}
			b.WriteString(fmt.Sprintf("  %s/%s: %s\n", e.Table, e.Operation, escapeHTML(e.Message)))
		}
	}
	return b.String()
}

// FormatRunFailure formats a run-fatal error.
func FormatRunFailure(err error) string {
	return fmt.Sprintf("❌ <b>Ingest failed</b>\n\n%s", escapeHTML(err.Error()))
}

// FormatStatus formats the last report for the /status command.
func FormatStatus(r *model.Report) string {
	if r == nil {
		return "No ingestion run recorded yet."
	}
	return fmt.Sprintf("🕒 Last run %s (id %s)\n\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.RunID) + FormatRunReport(r)
}

// RenderTable renders a plain-text summary of a run for terminals.
func RenderTable(r *model.Report) string {
	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("Run %s | interval %s | %d symbols", r.RunID, r.Interval, len(r.Symbols)))
	tw.AppendHeader(table.Row{"Table", "Prepared", "Written", "Errors", "Fallbacks"})
	tw.AppendRow(table.Row{r.Debug.Tables["candles"], r.CandlesPrepared, r.CandlesWritten, len(r.Errors.Candles), strategies(r.Fallbacks.Candles)})
	tw.AppendRow(table.Row{r.Debug.Tables["indicators"], r.IndicatorsPrepared, r.IndicatorsWritten, len(r.Errors.Indicators), strategies(r.Fallbacks.Indicators)})
	if len(r.Skipped) > 0 {
		tw.AppendFooter(table.Row{"Skipped", len(r.Skipped), "", "", skippedSymbols(r.Skipped)})
	}
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}

func strategies(fbs []model.Fallback) string {
	names := make([]string, len(fbs))
	for i, f := range fbs {
		names[i] = f.Strategy
	}
	return strings.Join(names, ", ")
}

func skippedSymbols(skipped []model.SkippedSymbol) string {
	names := make([]string, len(skipped))
	for i, s := range skipped {
		names[i] = s.Symbol
	}
	return strings.Join(names, ", ")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
