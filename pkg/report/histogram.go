package report

import (
	"fmt"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/raykavin/paramwalk/pkg/optimizer"
	"github.com/raykavin/paramwalk/pkg/walkforward"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
)

// Histogram draws the distribution of values, ignoring NaN.
func Histogram(w io.Writer, title string, values []float64, bins int) error {
	clean := lo.Filter(values, func(v float64, _ int) bool { return !math.IsNaN(v) })
	if _, err := fmt.Fprintf(w, "------ %s -------\n", title); err != nil {
		return err
	}

	switch {
	case len(clean) == 0:
		_, err := fmt.Fprintln(w, "no values")
		return err
	case floats.Min(clean) == floats.Max(clean):
		// a single bucket of zero width
		_, err := fmt.Fprintf(w, "%.4f: %d\n", clean[0], len(clean))
		return err
	}

	hist := histogram.Hist(bins, clean)
	return histogram.Fprint(w, hist, histogram.Linear(10))
}

// Scores draws the score distribution of the successful trials of result.
func Scores(w io.Writer, result *optimizer.OptimizationResult) error {
	scores := lo.FilterMap(result.Trials, func(trial optimizer.Trial, _ int) (float64, bool) {
		return trial.Score, !trial.Missing()
	})
	return Histogram(w, "SCORES", scores, 15)
}

// WindowScores draws the out-of-sample score distribution of a walk-forward run.
func WindowScores(w io.Writer, report *walkforward.Report) error {
	return Histogram(w, "OUT-OF-SAMPLE SCORES", report.TestScores(), 10)
}
