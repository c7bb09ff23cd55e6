package marketdata

import (
	"errors"
	"time"
)

// ErrNoData reports that a provider returned no usable candles for a symbol.
// Callers skip the symbol for the tick and continue the batch.
var ErrNoData = errors.New("no OHLCV data for symbol")

// Candle is one bar of an ordered OHLCV series, oldest first.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series is an ordered candle sequence with column extractors for the
// indicator functions, which want raw float64 slices.
type Series []Candle

func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Latest returns the most recent candle. Callers must check len(s) > 0 first.
func (s Series) Latest() Candle {
	return s[len(s)-1]
}

// Provider fetches an ordered OHLCV series for one symbol. Implementations
// return ErrNoData (possibly wrapped) when the response is empty or cannot
// be cleaned into valid bars.
type Provider interface {
	FetchOHLCV(symbol string, interval string, limit int) (Series, error)
}
