package calculator

import "MarketPulse/internal/model"

// EMA computes the exponential moving average of series over period.
// Position period-1 is seeded with the simple average of the first period
// values; earlier positions are empty. A series shorter than period (or a
// non-positive period) yields an all-empty result of the same length.
func EMA(series []float64, period int) model.Series {
	out := model.NullSeries(len(series))
	if period <= 0 || len(series) < period {
		return out
	}
	k := 2.0 / float64(period+1)

	out[period-1], _ = CalculateSMA(series[:period], period)

	for i := period; i < len(series); i++ {
		out[i] = series[i]*k + out[i-1]*(1-k)
	}
	return out
}

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), true
}
