package walkforward

import (
	"fmt"
	"time"

	"github.com/raykavin/paramwalk/pkg/optimizer"
)

// Range is a half open span [Start, End) of date indices. From and To are
// the first and last dates it covers.
type Range struct {
	Start int
	End   int
	From  time.Time
	To    time.Time
}

// Len returns the number of dates in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	if r.From.IsZero() {
		return fmt.Sprintf("[%d, %d)", r.Start, r.End)
	}
	return fmt.Sprintf("%s..%s", r.From.Format(time.DateOnly), r.To.Format(time.DateOnly))
}

func (r Range) bind(dates []time.Time) Range {
	if r.Len() > 0 && r.End <= len(dates) {
		r.From = dates[r.Start]
		r.To = dates[r.End-1]
	}
	return r
}

// Window is one train/test split and, once validated, its outcome.
type Window struct {
	Index int
	Train Range
	Test  Range

	OptimalParameters optimizer.ParameterSet
	TrainScore        float64
	TestScore         float64
	OverfitGap        float64

	// Err is set when the window was skipped
	Err error
}

// Completed reports whether the window produced a test score.
func (w Window) Completed() bool {
	return w.Err == nil
}

// Overfitting reports whether the in-sample score beats the out-of-sample
// score by more than threshold.
func (w Window) Overfitting(threshold float64) bool {
	return w.Completed() && w.OverfitGap > threshold
}

// GenerateWindows lays out the windows over n ordered dates. Rolling windows
// slide the training start by StepSize; anchored windows keep it at 0 and
// grow the training end instead. The test range always starts where the
// training range ends. The config must be valid.
func (c *Config) GenerateWindows(n int) []Window {
	var windows []Window
	minTrain := c.minTrainSize()

	for i := 0; ; i++ {
		var train Range
		if c.Anchored {
			train = Range{Start: 0, End: c.TrainPeriod + i*c.StepSize}
		} else {
			start := i * c.StepSize
			train = Range{Start: start, End: start + c.TrainPeriod}
		}
		test := Range{Start: train.End, End: train.End + c.TestPeriod}

		if test.End > n {
			break
		}
		if !c.Anchored && train.Len() < minTrain {
			break
		}

		windows = append(windows, Window{Index: i, Train: train, Test: test})
	}

	return windows
}
