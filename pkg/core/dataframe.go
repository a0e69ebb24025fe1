package core

import (
	"sort"
	"time"
)

// Dataframe is a time series container for OHLCV and custom indicator data
type Dataframe struct {
	Pair string

	Close  Series[float64]
	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Volume Series[float64]

	Time       []time.Time
	LastUpdate time.Time

	// Custom user metadata for indicators
	Metadata map[string]Series[float64]
}

// NewDataframe builds a dataframe from candles sorted by time.
func NewDataframe(pair string, candles []Candle) *Dataframe {
	df := &Dataframe{
		Pair:     pair,
		Close:    make(Series[float64], 0, len(candles)),
		Open:     make(Series[float64], 0, len(candles)),
		High:     make(Series[float64], 0, len(candles)),
		Low:      make(Series[float64], 0, len(candles)),
		Volume:   make(Series[float64], 0, len(candles)),
		Time:     make([]time.Time, 0, len(candles)),
		Metadata: make(map[string]Series[float64]),
	}
	for _, c := range candles {
		df.Append(c)
	}
	return df
}

// Append adds a candle at the end of the dataframe.
func (df *Dataframe) Append(c Candle) {
	df.Close = append(df.Close, c.Close)
	df.Open = append(df.Open, c.Open)
	df.High = append(df.High, c.High)
	df.Low = append(df.Low, c.Low)
	df.Volume = append(df.Volume, c.Volume)
	df.Time = append(df.Time, c.Time)
	df.LastUpdate = c.Time

	if df.Metadata == nil {
		df.Metadata = make(map[string]Series[float64])
	}
	for key, value := range c.Metadata {
		df.Metadata[key] = append(df.Metadata[key], value)
	}
}

// Len returns the number of rows.
func (df *Dataframe) Len() int {
	return len(df.Time)
}

// Slice returns a copy of rows [start, end).
func (df *Dataframe) Slice(start, end int) *Dataframe {
	start = max(start, 0)
	end = min(end, len(df.Time))
	if start > end {
		start = end
	}

	times := make([]time.Time, end-start)
	copy(times, df.Time[start:end])

	sample := &Dataframe{
		Pair:     df.Pair,
		Close:    df.Close.Slice(start, end),
		Open:     df.Open.Slice(start, end),
		High:     df.High.Slice(start, end),
		Low:      df.Low.Slice(start, end),
		Volume:   df.Volume.Slice(start, end),
		Time:     times,
		Metadata: make(map[string]Series[float64], len(df.Metadata)),
	}
	if len(times) > 0 {
		sample.LastUpdate = times[len(times)-1]
	}

	// Also copy metadata series
	for key := range df.Metadata {
		sample.Metadata[key] = df.Metadata[key].Slice(start, end)
	}

	return sample
}

// Between returns the rows whose time lies in [first, last], both included.
func (df *Dataframe) Between(first, last time.Time) *Dataframe {
	start := sort.Search(len(df.Time), func(i int) bool { return !df.Time[i].Before(first) })
	end := sort.Search(len(df.Time), func(i int) bool { return df.Time[i].After(last) })
	return df.Slice(start, end)
}

// Sample returns a subset of the dataframe with the last 'positions' elements
// Used for windowing operations on a dataframe
func (df *Dataframe) Sample(positions int) *Dataframe {
	return df.Slice(len(df.Time)-positions, len(df.Time))
}
