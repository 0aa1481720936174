package projector

import "MarketPulse/internal/model"

// Column names shared with the recorder's fallback logic.
const (
	ColSymbol     = "symbol"
	ColStart      = "start"
	ColLastTs     = "lastTs"
	ColInterval   = "interval"
	ColEnd        = "end"
	ColOpen       = "open"
	ColClose      = "close"
	ColHigh       = "high"
	ColLow        = "low"
	ColVolume     = "volume"
	ColEMA50      = "ema50"
	ColEMA200     = "ema200"
	ColRSI14      = "rsi14"
	ColMACD       = "macd"
	ColMACDSignal = "macdSignal"
	ColScore      = "score"
	ColLabel      = "label"
)

// Projector flattens a symbol's latest candle and snapshot into rows.
// Candle and indicator rows carry independently configured time encodings.
type Projector struct {
	Interval          string
	CandleTimeMode    string
	IndicatorTimeMode string
}

// New creates a Projector. An empty indicator mode inherits the candle mode.
func New(interval, candleTimeMode, indicatorTimeMode string) *Projector {
	if indicatorTimeMode == "" {
		indicatorTimeMode = candleTimeMode
	}
	return &Projector{
		Interval:          interval,
		CandleTimeMode:    candleTimeMode,
		IndicatorTimeMode: indicatorTimeMode,
	}
}

// CandleRow projects the latest candle. end is start plus the interval length.
func (p *Projector) CandleRow(symbol string, c model.Candle) model.Row {
	return model.Row{
		ColSymbol:   symbol,
		ColInterval: p.Interval,
		ColStart:    EncodeTime(c.Timestamp, p.CandleTimeMode),
		ColEnd:      EncodeTime(c.Timestamp+IntervalMillis(p.Interval), p.CandleTimeMode),
		ColOpen:     c.Open,
		ColClose:    c.Close,
		ColHigh:     c.High,
		ColLow:      c.Low,
		ColVolume:   c.Volume,
	}
}

// IndicatorRow projects a snapshot. Indicators still warming up become nil.
func (p *Projector) IndicatorRow(symbol string, s *model.Snapshot) model.Row {
	return model.Row{
		ColSymbol:     symbol,
		ColEMA50:      nullable(s.EMA50),
		ColEMA200:     nullable(s.EMA200),
		ColRSI14:      nullable(s.RSI14),
		ColMACD:       nullable(s.MACD),
		ColMACDSignal: nullable(s.MACDSignal),
		ColScore:      s.Score,
		ColLabel:      string(s.Label),
		ColLastTs:     EncodeTime(s.LastTs, p.IndicatorTimeMode),
	}
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
