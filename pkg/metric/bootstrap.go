package metric

import (
	"math/rand"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Statistic reduces a sample to a single number.
type Statistic func(values []float64) float64

// BootstrapInterval is a percentile bootstrap confidence interval of a
// statistic. The zero value means no interval was computed.
type BootstrapInterval struct {
	Lower float64
	Upper float64
	// Mean and StdDev of the resampled statistic
	Mean   float64
	StdDev float64
}

// Contains reports whether value lies inside the interval.
func (b BootstrapInterval) Contains(value float64) bool {
	return value >= b.Lower && value <= b.Upper
}

// Bootstrap resamples values with replacement resamples times, applies
// statistic to every draw and returns the central confidence interval of the
// results. A nil rng uses a fixed seed so the interval is reproducible.
func Bootstrap(values []float64, statistic Statistic, resamples int, confidence float64, rng *rand.Rand) BootstrapInterval {
	if len(values) == 0 || resamples <= 0 {
		return BootstrapInterval{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	estimates := lo.Times(resamples, func(int) float64 {
		return statistic(draw(values, rng))
	})
	sort.Float64s(estimates)

	alpha := (1 - confidence) / 2
	mean, std := stat.MeanStdDev(estimates, nil)
	return BootstrapInterval{
		Lower:  stat.Quantile(alpha, stat.LinInterp, estimates, nil),
		Upper:  stat.Quantile(1-alpha, stat.LinInterp, estimates, nil),
		Mean:   mean,
		StdDev: std,
	}
}

// Mean is the arithmetic mean, NaN for an empty sample.
func Mean(values []float64) float64 {
	return lo.Sum(values) / float64(len(values))
}

func draw(values []float64, rng *rand.Rand) []float64 {
	return lo.Times(len(values), func(int) float64 {
		return values[rng.Intn(len(values))]
	})
}
