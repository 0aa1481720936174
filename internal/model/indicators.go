package model

import "math"

// Series is an indicator series aligned index-for-index with its input.
// NaN marks positions inside the warm-up window where no value exists yet.
type Series []float64

// NullSeries returns a series of length n with every position empty.
func NullSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Valid reports whether position i holds a value.
func (s Series) Valid(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// At returns the value at i, or nil when the position is empty.
func (s Series) At(i int) *float64 {
	if !s.Valid(i) {
		return nil
	}
	v := s[i]
	return &v
}

// Last returns the value at the final position, or nil.
func (s Series) Last() *float64 {
	return s.At(len(s) - 1)
}

// FirstValid returns the index of the first non-empty position, or -1.
func (s Series) FirstValid() int {
	for i := range s {
		if s.Valid(i) {
			return i
		}
	}
	return -1
}

// Label is the discrete direction derived from a composite score.
type Label string

const (
	LabelBullish Label = "Bullish"
	LabelNeutral Label = "Neutral"
	LabelBearish Label = "Bearish"
)

// Snapshot holds the latest indicator reading for one symbol.
// Nil pointers mean the indicator had not finished warming up.
type Snapshot struct {
	EMA50      *float64 `json:"ema50"`
	EMA200     *float64 `json:"ema200"`
	RSI14      *float64 `json:"rsi14"`
	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macdSignal"`
	Close      float64  `json:"close"`
	Score      int      `json:"score"`
	Label      Label    `json:"label"`
	LastTs     int64    `json:"lastTs"`
}
