package core

import (
	"math"
	"time"
)

// Candle is one OHLCV bar of a pair.
type Candle struct {
	Pair   string
	Time   time.Time
	Open   float64
	Close  float64
	Low    float64
	High   float64
	Volume float64

	// Extra numeric CSV columns, keyed by header name
	Metadata map[string]float64
}

// Before orders candles by time, then by pair.
func (c Candle) Before(other Candle) bool {
	if !c.Time.Equal(other.Time) {
		return c.Time.Before(other.Time)
	}
	return c.Pair < other.Pair
}

// Merge folds a later candle of the same pair into c: the range widens,
// volume adds up and the close moves forward. Metadata is not carried over.
func (c Candle) Merge(next Candle) Candle {
	c.High = math.Max(c.High, next.High)
	c.Low = math.Min(c.Low, next.Low)
	c.Volume += next.Volume
	c.Close = next.Close
	c.Metadata = nil
	return c
}
