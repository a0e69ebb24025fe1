// Package dataset turns CSV candle files into the dated, range sliceable
// input of a walk-forward validation.
package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/StudioSol/set"
	"github.com/raykavin/paramwalk/pkg/core"
	"github.com/raykavin/paramwalk/pkg/walkforward"
)

// NormalizeDates returns the distinct instants of dates in increasing order.
func NormalizeDates(dates []time.Time) []time.Time {
	seen := set.NewLinkedHashSetINT64()
	for _, date := range dates {
		seen.Add(date.UnixNano())
	}

	normalized := make([]time.Time, 0, len(dates))
	for nanos := range seen.Iter() {
		normalized = append(normalized, time.Unix(0, nanos).UTC())
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Before(normalized[j]) })
	return normalized
}

// Options controls how feeds are prepared by Load
type Options struct {
	// Timeframe feeds are resampled to, empty keeps the source timeframe
	Timeframe string
	// Limit keeps only the trailing period of each feed, e.g. "180d"
	Limit string
}

// Load reads every feed into a dataframe keyed by pair and returns the
// union of their dates, de-duplicated and sorted.
func Load(options Options, feeds ...Feed) (walkforward.Dataset, []time.Time, error) {
	if len(feeds) == 0 {
		return nil, nil, fmt.Errorf("%w: no feeds", ErrInsufficientData)
	}

	data := make(walkforward.Dataset, len(feeds))
	var dates []time.Time

	for _, feed := range feeds {
		if _, ok := data[feed.Pair]; ok {
			return nil, nil, fmt.Errorf("duplicate feed for pair %s", feed.Pair)
		}

		candles, err := LoadCSV(feed)
		if err != nil {
			return nil, nil, err
		}
		if options.Timeframe != "" && feed.Timeframe != "" {
			if candles, err = Resample(candles, feed.Timeframe, options.Timeframe); err != nil {
				return nil, nil, fmt.Errorf("feed %s: %w", feed.Pair, err)
			}
		}
		if options.Limit != "" {
			if candles, err = Limit(candles, options.Limit); err != nil {
				return nil, nil, fmt.Errorf("feed %s: %w", feed.Pair, err)
			}
		}
		candles = uniqueCandles(candles)

		df := core.NewDataframe(feed.Pair, candles)
		data[feed.Pair] = walkforward.Frame(df)
		dates = append(dates, df.Time...)
	}

	return data, NormalizeDates(dates), nil
}

// uniqueCandles drops candles whose time repeats the previous one.
func uniqueCandles(candles []core.Candle) []core.Candle {
	out := candles[:0:0]
	for i, candle := range candles {
		if i > 0 && candle.Time.Equal(candles[i-1].Time) {
			continue
		}
		out = append(out, candle)
	}
	return out
}
