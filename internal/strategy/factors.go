package strategy

// Component weights of the composite score.
const (
	WeightTrend    = 40
	WeightMomentum = 30
	WeightMACD     = 30
)

// RSI thresholds for the momentum component.
const (
	rsiOverbought = 60.0
	rsiOversold   = 40.0
)

// scoreTrend compares the close with EMA50/EMA200 alignment.
// With only EMA50 available the component is worth half its weight.
func scoreTrend(close float64, ema50, ema200 *float64) int {
	switch {
	case ema50 != nil && ema200 != nil:
		if close > *ema50 && *ema50 > *ema200 {
			return WeightTrend
		}
		if close < *ema50 && *ema50 < *ema200 {
			return -WeightTrend
		}
	case ema50 != nil:
		if close > *ema50 {
			return WeightTrend / 2
		}
		if close < *ema50 {
			return -WeightTrend / 2
		}
	}
	return 0
}

// scoreMomentum scores RSI14 against fixed overbought/oversold bands.
func scoreMomentum(rsi *float64) int {
	if rsi == nil {
		return 0
	}
	switch {
	case *rsi >= rsiOverbought:
		return WeightMomentum
	case *rsi <= rsiOversold:
		return -WeightMomentum
	}
	return 0
}

// scoreMACD requires the MACD line to agree with both its signal and the zero line.
func scoreMACD(macd, signal *float64) int {
	if macd == nil || signal == nil {
		return 0
	}
	switch {
	case *macd > *signal && *macd > 0:
		return WeightMACD
	case *macd < *signal && *macd < 0:
		return -WeightMACD
	}
	return 0
}
