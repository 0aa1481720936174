package calculator

import "MarketPulse/internal/model"

// DefaultRSIPeriod is the conventional Wilder lookback.
const DefaultRSIPeriod = 14

// zeroLossEpsilon stands in for a zero average loss so the ratio stays finite.
const zeroLossEpsilon = 1e-10

// RSI computes the Wilder-smoothed relative strength index over closes.
// Requires at least period+1 closes; otherwise every position is empty.
// The first value lands at index period, seeded from the simple mean of the
// first period gains and losses.
func RSI(closes []float64, period int) model.Series {
	out := model.NullSeries(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = relativeStrength(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		avgGain = (avgGain*(p-1) + gains[i-1]) / p
		avgLoss = (avgLoss*(p-1) + losses[i-1]) / p
		out[i] = relativeStrength(avgGain, avgLoss)
	}
	return out
}

func relativeStrength(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		avgLoss = zeroLossEpsilon
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
