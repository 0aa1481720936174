package strategy

import (
	"fmt"
	"math"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
)

// Indicator periods used by the engine.
const (
	EMAFastPeriod = 50
	EMASlowPeriod = 200
)

// Score bounds and label thresholds.
const (
	MaxScore     = 100
	MinScore     = -100
	bullishAbove = 20
	bearishBelow = -20
)

// InputError reports a candle series the engine cannot evaluate.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return "invalid candle input: " + e.Reason }

// ComputeSnapshot sorts candles by timestamp, computes EMA50, EMA200, RSI14
// and MACD(12,26,9) over the closes and scores the latest reading.
// It does not modify its input.
func ComputeSnapshot(candles []model.Candle) (*model.Snapshot, error) {
	if len(candles) == 0 {
		return nil, &InputError{Reason: "no candles"}
	}
	sorted := model.SortCandles(candles)
	closes := model.Closes(sorted)
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, &InputError{Reason: fmt.Sprintf("non-finite close at ts %d", sorted[i].Timestamp)}
		}
	}

	ema50 := calculator.EMA(closes, EMAFastPeriod)
	ema200 := calculator.EMA(closes, EMASlowPeriod)
	rsi14 := calculator.RSI(closes, calculator.DefaultRSIPeriod)
	macd := calculator.MACD(closes, calculator.DefaultMACDFast, calculator.DefaultMACDSlow, calculator.DefaultMACDSignal)

	last := len(closes) - 1
	snap := &model.Snapshot{
		EMA50:      ema50.Last(),
		EMA200:     ema200.Last(),
		RSI14:      rsi14.Last(),
		MACD:       macd.Line.Last(),
		MACDSignal: macd.Signal.Last(),
		Close:      closes[last],
		LastTs:     sorted[last].Timestamp,
	}
	snap.Score = compositeScore(snap)
	snap.Label = labelFor(snap.Score)
	return snap, nil
}

func compositeScore(s *model.Snapshot) int {
	score := scoreTrend(s.Close, s.EMA50, s.EMA200) +
		scoreMomentum(s.RSI14) +
		scoreMACD(s.MACD, s.MACDSignal)
	return clampScore(score)
}

func clampScore(score int) int {
	if score > MaxScore {
		return MaxScore
	}
	if score < MinScore {
		return MinScore
	}
	return score
}

// labelFor maps a score to its label; both thresholds are strict.
func labelFor(score int) model.Label {
	switch {
	case score > bullishAbove:
		return model.LabelBullish
	case score < bearishBelow:
		return model.LabelBearish
	default:
		return model.LabelNeutral
	}
}
