package walkforward

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/raykavin/paramwalk/pkg/metric"
	"github.com/samber/lo"
)

// Report aggregates the windows of one validation run. Statistics cover
// completed windows only.
type Report struct {
	Windows   []Window
	Completed int
	Skipped   int

	TestScore      metric.Summary
	MeanOverfitGap float64
	Overfitting    int
	Threshold      float64

	// Bootstrap interval of the mean test score, zero when disabled
	Interval   metric.BootstrapInterval
	Confidence float64
}

// WindowRecord is the tabular form of a window.
type WindowRecord struct {
	Index       int
	TrainFrom   time.Time
	TrainTo     time.Time
	TestFrom    time.Time
	TestTo      time.Time
	TrainSize   int
	TestSize    int
	Parameters  string
	TrainScore  float64
	TestScore   float64
	OverfitGap  float64
	Overfitting bool
	Status      string
	Error       string
}

func newReport(windows []Window, config *Config) *Report {
	report := &Report{
		Windows:        windows,
		Threshold:      config.OverfitThreshold,
		MeanOverfitGap: math.NaN(),
		TestScore:      metric.Summarize(nil),
	}

	completed := report.CompletedWindows()
	report.Completed = len(completed)
	report.Skipped = len(windows) - len(completed)
	if report.Empty() {
		return report
	}

	scores := lo.Map(completed, func(w Window, _ int) float64 { return w.TestScore })
	gaps := lo.Map(completed, func(w Window, _ int) float64 { return w.OverfitGap })

	report.TestScore = metric.Summarize(scores)
	report.MeanOverfitGap = metric.Mean(gaps)
	report.Overfitting = lo.CountBy(completed, func(w Window) bool { return w.Overfitting(config.OverfitThreshold) })

	if config.BootstrapSamples > 0 {
		report.Interval = metric.Bootstrap(scores, metric.Mean, config.BootstrapSamples, config.Confidence, nil)
		report.Confidence = config.Confidence
	}

	return report
}

// Empty reports whether no window completed.
func (r *Report) Empty() bool {
	return r.Completed == 0
}

// CompletedWindows returns the windows that produced a test score.
func (r *Report) CompletedWindows() []Window {
	return lo.Filter(r.Windows, func(w Window, _ int) bool { return w.Completed() })
}

// TestScores returns the out-of-sample score of every completed window.
func (r *Report) TestScores() []float64 {
	return lo.Map(r.CompletedWindows(), func(w Window, _ int) float64 { return w.TestScore })
}

// Summary renders the aggregate statistics as text.
func (r *Report) Summary() string {
	if r.Empty() {
		return fmt.Sprintf("No completed walk-forward windows (%d generated, %d skipped): no statistics available",
			len(r.Windows), r.Skipped)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Windows: %d completed, %d skipped\n", r.Completed, r.Skipped)
	fmt.Fprintf(&sb, "Test score: mean=%.4f std=%.4f min=%.4f max=%.4f\n",
		r.TestScore.Mean, r.TestScore.StdDev, r.TestScore.Min, r.TestScore.Max)
	fmt.Fprintf(&sb, "Mean overfit gap: %.4f\n", r.MeanOverfitGap)
	fmt.Fprintf(&sb, "Overfitting windows (gap > %.2f): %d/%d", r.Threshold, r.Overfitting, r.Completed)
	if r.Confidence > 0 {
		fmt.Fprintf(&sb, "\nMean test score %.0f%% CI: [%.4f, %.4f]", r.Confidence*100, r.Interval.Lower, r.Interval.Upper)
		if r.Interval.Contains(0) {
			sb.WriteString(" (includes zero)")
		}
	}
	return sb.String()
}

// Records returns one row per window, skipped windows included.
func (r *Report) Records() []WindowRecord {
	return lo.Map(r.Windows, func(w Window, _ int) WindowRecord {
		record := WindowRecord{
			Index:      w.Index,
			TrainFrom:  w.Train.From,
			TrainTo:    w.Train.To,
			TestFrom:   w.Test.From,
			TestTo:     w.Test.To,
			TrainSize:  w.Train.Len(),
			TestSize:   w.Test.Len(),
			TrainScore: w.TrainScore,
			TestScore:  w.TestScore,
			OverfitGap: w.OverfitGap,
			Status:     "completed",
		}
		if w.Completed() {
			record.Parameters = w.OptimalParameters.String()
			record.Overfitting = w.Overfitting(r.Threshold)
		} else {
			record.Status = "skipped"
			record.Error = w.Err.Error()
		}
		return record
	})
}
