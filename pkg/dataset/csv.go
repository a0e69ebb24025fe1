package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/raykavin/paramwalk/pkg/core"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	defaultHeaderMap    = map[string]int{
		"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
	}
)

// Feed describes one CSV file of candles
type Feed struct {
	Pair      string
	File      string
	Timeframe string
}

// parseHeaders maps column names to indexes. Files without a header row use
// the default time, open, close, low, high, volume layout.
func parseHeaders(headers []string) (headerMap map[string]int, additional []string, hasCustomHeaders bool) {
	if _, err := strconv.ParseInt(headers[0], 10, 64); err == nil {
		return defaultHeaderMap, nil, false
	}

	headerMap = make(map[string]int)
	for index, header := range headers {
		headerMap[header] = index

		// Extra columns become candle metadata
		if _, exists := defaultHeaderMap[header]; !exists {
			additional = append(additional, header)
		}
	}

	for column := range defaultHeaderMap {
		if _, ok := headerMap[column]; !ok {
			return nil, nil, true
		}
	}

	return headerMap, additional, true
}

// LoadCSV reads the candles of feed, sorted by time.
func LoadCSV(feed Feed) ([]core.Candle, error) {
	if feed.Timeframe != "" {
		if _, err := str2duration.ParseDuration(feed.Timeframe); err != nil {
			return nil, fmt.Errorf("feed %s: invalid timeframe %q: %w", feed.Pair, feed.Timeframe, err)
		}
	}

	csvFile, err := os.Open(feed.File)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	csvLines, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", feed.File, err)
	}
	if len(csvLines) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInsufficientData, feed.File)
	}

	headerMap, additionalHeaders, hasCustomHeaders := parseHeaders(csvLines[0])
	if headerMap == nil {
		return nil, fmt.Errorf("%s: header must name time, open, close, low, high and volume", feed.File)
	}
	if hasCustomHeaders {
		csvLines = csvLines[1:]
	}

	candles := make([]core.Candle, 0, len(csvLines))
	for i, line := range csvLines {
		candle, err := parseCandleFromLine(line, headerMap, additionalHeaders, feed.Pair)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", feed.File, i+1, err)
		}
		candles = append(candles, candle)
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Before(candles[j]) })
	return candles, nil
}

// parseCandleFromLine builds a candle from one CSV record
func parseCandleFromLine(line []string, headerMap map[string]int, additionalHeaders []string, pair string) (core.Candle, error) {
	timestamp, err := parseTime(line[headerMap["time"]])
	if err != nil {
		return core.Candle{}, err
	}

	candle := core.Candle{Time: timestamp, Pair: pair}

	if candle.Open, err = strconv.ParseFloat(line[headerMap["open"]], 64); err != nil {
		return core.Candle{}, err
	}

	if candle.Close, err = strconv.ParseFloat(line[headerMap["close"]], 64); err != nil {
		return core.Candle{}, err
	}

	if candle.Low, err = strconv.ParseFloat(line[headerMap["low"]], 64); err != nil {
		return core.Candle{}, err
	}

	if candle.High, err = strconv.ParseFloat(line[headerMap["high"]], 64); err != nil {
		return core.Candle{}, err
	}

	if candle.Volume, err = strconv.ParseFloat(line[headerMap["volume"]], 64); err != nil {
		return core.Candle{}, err
	}

	if len(additionalHeaders) > 0 {
		candle.Metadata = make(map[string]float64, len(additionalHeaders))
		for _, header := range additionalHeaders {
			value, err := strconv.ParseFloat(line[headerMap[header]], 64)
			if err != nil {
				return core.Candle{}, err
			}
			candle.Metadata[header] = value
		}
	}

	return candle, nil
}

// parseTime accepts unix seconds or RFC 3339.
func parseTime(value string) (time.Time, error) {
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", value)
	}
	return t.UTC(), nil
}

// Limit keeps the candles of the trailing period, e.g. "90d".
func Limit(candles []core.Candle, period string) ([]core.Candle, error) {
	if len(candles) == 0 {
		return candles, nil
	}
	duration, err := str2duration.ParseDuration(period)
	if err != nil {
		return nil, err
	}

	start := candles[len(candles)-1].Time.Add(-duration)
	return lo.Filter(candles, func(candle core.Candle, _ int) bool {
		return candle.Time.After(start)
	}), nil
}

// Resample aggregates sorted candles into buckets of the target timeframe.
// The trailing bucket is dropped when it is not complete.
func Resample(candles []core.Candle, sourceTimeframe, targetTimeframe string) ([]core.Candle, error) {
	if sourceTimeframe == targetTimeframe || len(candles) == 0 {
		return candles, nil
	}

	source, err := str2duration.ParseDuration(sourceTimeframe)
	if err != nil {
		return nil, err
	}
	target, err := str2duration.ParseDuration(targetTimeframe)
	if err != nil {
		return nil, err
	}
	if target < source || target%source != 0 {
		return nil, fmt.Errorf("cannot resample %s candles to %s", sourceTimeframe, targetTimeframe)
	}

	buckets := lo.GroupBy(candles, func(candle core.Candle) time.Time {
		return candle.Time.Truncate(target)
	})
	starts := lo.Keys(buckets)
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	perBucket := int(target / source)
	targetCandles := make([]core.Candle, 0, len(starts))
	for i, start := range starts {
		group := buckets[start]
		if i == len(starts)-1 && len(group) < perBucket {
			break
		}

		candle := lo.Reduce(group[1:], func(acc core.Candle, c core.Candle, _ int) core.Candle {
			return acc.Merge(c)
		}, group[0])
		candle.Time = start
		candle.Metadata = nil
		targetCandles = append(targetCandles, candle)
	}

	return targetCandles, nil
}
