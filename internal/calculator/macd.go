package calculator

import "MarketPulse/internal/model"

// Default MACD periods.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACDResult holds the MACD line and its signal line, both aligned with the input.
type MACDResult struct {
	Line   model.Series
	Signal model.Series
}

// MACD computes the fast/slow EMA difference and its signal EMA.
//
// The signal EMA runs over the non-empty part of the MACD line only, so its
// output position j maps back to firstValid+signal-1+j in the input index space.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	line := model.NullSeries(len(closes))
	for i := range closes {
		if fastEMA.Valid(i) && slowEMA.Valid(i) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}

	sig := model.NullSeries(len(closes))
	first := line.FirstValid()
	if first < 0 {
		return MACDResult{Line: line, Signal: sig}
	}

	valid := make([]float64, 0, len(closes)-first)
	for i := first; i < len(line); i++ {
		if line.Valid(i) {
			valid = append(valid, line[i])
		}
	}
	sigValid := EMA(valid, signal)
	for j := signal - 1; j < len(sigValid); j++ {
		if !sigValid.Valid(j) {
			continue
		}
		// sigValid[j] is the (j-signal+1)-th signal value after its own warm-up.
		idx := first + j
		if idx < len(sig) {
			sig[idx] = sigValid[j]
		}
	}
	return MACDResult{Line: line, Signal: sig}
}
