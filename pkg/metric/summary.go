package metric

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a sample of scores.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64 // sample standard deviation, 0 for fewer than two values
	Min    float64
	Max    float64
}

// Summarize computes a Summary. NaN values are ignored; an empty input yields
// a zero Count and NaN statistics.
func Summarize(values []float64) Summary {
	clean := lo.Filter(values, func(v float64, _ int) bool { return !math.IsNaN(v) })
	if len(clean) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, StdDev: nan, Min: nan, Max: nan}
	}

	mean, std := stat.MeanStdDev(clean, nil)
	if len(clean) < 2 {
		std = 0
	}

	return Summary{
		Count:  len(clean),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(clean),
		Max:    floats.Max(clean),
	}
}

// RunningBest returns the cumulative maximum (or minimum) of values. NaN
// entries repeat the previous best and leading NaNs stay NaN.
func RunningBest(values []float64, maximize bool) []float64 {
	out := make([]float64, len(values))
	best := math.NaN()
	for i, v := range values {
		if !math.IsNaN(v) {
			switch {
			case math.IsNaN(best):
				best = v
			case maximize && v > best:
				best = v
			case !maximize && v < best:
				best = v
			}
		}
		out[i] = best
	}
	return out
}
