package walkforward

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/raykavin/paramwalk/pkg/core"
	"github.com/raykavin/paramwalk/pkg/optimizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// series is a minimal Sliceable: value i is observed at dates[i].
type series struct {
	dates  []time.Time
	values []float64
}

func (s series) Between(first, last time.Time) Sliceable {
	start := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(first) })
	end := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(last) })
	return series{dates: s.dates[start:end], values: s.values[start:end]}
}

func (s series) Len() int { return len(s.dates) }

func dailyDates(n int) []time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func linearDataset(dates []time.Time) Dataset {
	values := make([]float64, len(dates))
	for i := range values {
		values[i] = float64(i)
	}
	return Dataset{"BTCUSDT": series{dates: dates, values: values}}
}

// meanFactory scores mean(values) - (x-2)^2 on the slice it is bound to.
func meanFactory(data Dataset) (optimizer.Objective, error) {
	s := data["BTCUSDT"].(series)
	if s.Len() == 0 {
		return nil, errors.New("empty slice")
	}
	var sum float64
	for _, v := range s.values {
		sum += v
	}
	mean := sum / float64(len(s.values))

	return optimizer.ObjectiveFunc(func(_ context.Context, params optimizer.ParameterSet) (float64, error) {
		x, err := params.Int("x")
		if err != nil {
			return 0, err
		}
		return mean - float64((x-2)*(x-2)), nil
	}), nil
}

func gridOptimizer(t *testing.T) optimizer.Optimizer {
	t.Helper()
	opt, err := optimizer.NewParallelOptimizer(optimizer.MethodGrid, optimizer.NewConfig().WithWorkers(2))
	require.NoError(t, err)
	return opt
}

var xSpace = optimizer.MustParameterSpace(optimizer.Param("x", optimizer.Values(1, 2, 3)))

func TestGenerateWindowsRollingCount(t *testing.T) {
	tt := []struct {
		n, train, test, step int
		want                 int
	}{
		{n: 100, train: 50, test: 10, step: 10, want: 5},
		{n: 59, train: 50, test: 10, step: 10, want: 0},
		{n: 60, train: 50, test: 10, step: 10, want: 1},
		{n: 100, train: 20, test: 5, step: 7, want: 11},
		{n: 10, train: 5, test: 5, step: 1, want: 1},
		{n: 0, train: 5, test: 5, step: 1, want: 0},
	}

	for _, tc := range tt {
		config := NewConfig(tc.train, tc.test, tc.step)
		require.NoError(t, config.Validate())

		windows := config.GenerateWindows(tc.n)
		require.Len(t, windows, tc.want, "n=%d T=%d V=%d S=%d", tc.n, tc.train, tc.test, tc.step)

		for i, w := range windows {
			assert.Equal(t, w.Train.End, w.Test.Start)
			assert.Equal(t, tc.train, w.Train.Len())
			assert.Equal(t, tc.test, w.Test.Len())
			assert.LessOrEqual(t, w.Test.End, tc.n)
			if i > 0 {
				assert.Greater(t, w.Train.Start, windows[i-1].Train.Start)
			}
		}
	}
}

func TestGenerateWindowsAnchored(t *testing.T) {
	windows := NewConfig(50, 10, 10).WithAnchored(true).GenerateWindows(100)
	require.Len(t, windows, 5)

	for i, w := range windows {
		assert.Equal(t, 0, w.Train.Start)
		assert.Equal(t, 50+i*10, w.Train.End)
		assert.Equal(t, w.Train.End, w.Test.Start)
		assert.Equal(t, 10, w.Test.Len())
		if i > 0 {
			assert.Greater(t, w.Train.Len(), windows[i-1].Train.Len())
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tt := []struct {
		name   string
		config *Config
	}{
		{"zero train", NewConfig(0, 10, 10)},
		{"zero test", NewConfig(50, 0, 10)},
		{"zero step", NewConfig(50, 10, 0)},
		{"negative min train", NewConfig(50, 10, 10).WithMinTrainSize(-1)},
		{"min train above train", NewConfig(50, 10, 10).WithMinTrainSize(51)},
		{"nan threshold", NewConfig(50, 10, 10).WithOverfitThreshold(math.NaN())},
		{"bad confidence", NewConfig(50, 10, 10).WithBootstrap(100, 1)},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.config.Validate(), ErrInvalidConfig)
		})
	}

	config := NewConfig(50, 10, 10)
	require.NoError(t, config.Validate())
	assert.Equal(t, 25, config.minTrainSize())
	assert.Equal(t, 0.1, config.OverfitThreshold)
}

func TestValidateRollingWindows(t *testing.T) {
	dates := dailyDates(100)
	validator, err := NewValidator(NewConfig(50, 10, 10))
	require.NoError(t, err)

	report, err := validator.Validate(context.Background(), meanFactory, gridOptimizer(t), xSpace, linearDataset(dates), dates)
	require.NoError(t, err)

	require.Len(t, report.Windows, 5)
	assert.Equal(t, 5, report.Completed)
	assert.Zero(t, report.Skipped)
	assert.False(t, report.Empty())

	for i, w := range report.Windows {
		require.NoError(t, w.Err)
		assert.Equal(t, optimizer.ParameterSet{"x": 2}, w.OptimalParameters)
		assert.Equal(t, dates[10*i], w.Train.From)
		assert.Equal(t, dates[10*i+49], w.Train.To)
		assert.Equal(t, dates[10*i+50], w.Test.From)
		assert.InDelta(t, float64(10*i)+24.5, w.TrainScore, 1e-9)
		assert.InDelta(t, float64(10*i)+54.5, w.TestScore, 1e-9)
		assert.InDelta(t, -30, w.OverfitGap, 1e-9)
	}

	assert.InDelta(t, 74.5, report.TestScore.Mean, 1e-9)
	assert.InDelta(t, 54.5, report.TestScore.Min, 1e-9)
	assert.InDelta(t, 94.5, report.TestScore.Max, 1e-9)
	assert.InDelta(t, -30, report.MeanOverfitGap, 1e-9)
	assert.Zero(t, report.Overfitting)
	assert.LessOrEqual(t, report.Interval.Lower, report.Interval.Upper)
	assert.Contains(t, report.Summary(), "5 completed, 0 skipped")
	assert.NotContains(t, report.Summary(), "includes zero")
}

func TestValidateSkipsFailingWindow(t *testing.T) {
	dates := dailyDates(100)
	validator, err := NewValidator(NewConfig(50, 10, 10))
	require.NoError(t, err)

	// every trial fails on the training slice that starts at index 20
	factory := func(data Dataset) (optimizer.Objective, error) {
		s := data["BTCUSDT"].(series)
		if s.values[0] == 20 && s.Len() == 50 {
			return optimizer.ObjectiveFunc(func(context.Context, optimizer.ParameterSet) (float64, error) {
				return 0, errors.New("backtest crashed")
			}), nil
		}
		return meanFactory(data)
	}

	report, err := validator.Validate(context.Background(), factory, gridOptimizer(t), xSpace, linearDataset(dates), dates)
	require.NoError(t, err)

	require.Len(t, report.Windows, 5)
	assert.Equal(t, 4, report.Completed)
	assert.Equal(t, 1, report.Skipped)

	skipped := report.Windows[2]
	assert.False(t, skipped.Completed())
	assert.ErrorIs(t, skipped.Err, optimizer.ErrAllTrialsFailed)
	assert.True(t, math.IsNaN(skipped.TestScore))

	// windows 0, 1, 3, 4
	assert.InDelta(t, (54.5+64.5+84.5+94.5)/4, report.TestScore.Mean, 1e-9)

	records := report.Records()
	require.Len(t, records, 5)
	assert.Equal(t, "skipped", records[2].Status)
	assert.Contains(t, records[2].Error, "all trials failed")
	assert.Equal(t, "completed", records[3].Status)
	assert.Equal(t, "{x: 2}", records[3].Parameters)
}

type fixedOptimizer struct {
	score float64
	err   error
}

func (f fixedOptimizer) Optimize(context.Context, optimizer.Objective, optimizer.ParameterSpace, ...optimizer.OptimizeOption) (*optimizer.OptimizationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &optimizer.OptimizationResult{
		Method:         optimizer.MethodGrid,
		BestParameters: optimizer.ParameterSet{"x": 1},
		BestScore:      f.score,
		TrialCount:     1,
	}, nil
}

func TestValidateOverfittingCount(t *testing.T) {
	dates := dailyDates(100)
	validator, err := NewValidator(NewConfig(50, 10, 10))
	require.NoError(t, err)

	// test score is 0.5 when the slice starts at 50, 70 or 90 and 0.95 otherwise
	factory := func(data Dataset) (optimizer.Objective, error) {
		s := data["BTCUSDT"].(series)
		score := 0.95
		if (int(s.values[0])/10)%2 == 1 {
			score = 0.5
		}
		return optimizer.ObjectiveFunc(func(context.Context, optimizer.ParameterSet) (float64, error) {
			return score, nil
		}), nil
	}

	report, err := validator.Validate(context.Background(), factory, fixedOptimizer{score: 1}, xSpace, linearDataset(dates), dates)
	require.NoError(t, err)

	// test windows start at 50, 60, 70, 80, 90
	gaps := []float64{0.5, 0.05, 0.5, 0.05, 0.5}
	for i, w := range report.Windows {
		assert.InDelta(t, gaps[i], w.OverfitGap, 1e-9)
	}
	assert.Equal(t, 3, report.Overfitting)
	assert.InDelta(t, 0.32, report.MeanOverfitGap, 1e-9)
}

func TestValidateEmptyReport(t *testing.T) {
	dates := dailyDates(30)
	validator, err := NewValidator(NewConfig(50, 10, 10))
	require.NoError(t, err)

	report, err := validator.Validate(context.Background(), meanFactory, gridOptimizer(t), xSpace, linearDataset(dates), dates)
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Empty(t, report.Windows)
	assert.Contains(t, report.Summary(), "No completed walk-forward windows")
	assert.True(t, math.IsNaN(report.TestScore.Mean))

	// every window failing also yields an empty report
	dates = dailyDates(100)
	report, err = validator.Validate(context.Background(), meanFactory,
		fixedOptimizer{err: errors.New("no data")}, xSpace, linearDataset(dates), dates)
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Equal(t, 5, report.Skipped)
	assert.Contains(t, report.Summary(), "5 skipped")
}

func TestValidateRejectsBadInput(t *testing.T) {
	validator, err := NewValidator(NewConfig(5, 2, 2))
	require.NoError(t, err)

	dates := dailyDates(10)
	dates[4] = dates[3]
	_, err = validator.Validate(context.Background(), meanFactory, gridOptimizer(t), xSpace, linearDataset(dates), dates)
	assert.ErrorIs(t, err, ErrInvalidDates)

	_, err = validator.Validate(context.Background(), nil, gridOptimizer(t), xSpace, nil, dailyDates(10))
	assert.Error(t, err)

	_, err = validator.Validate(context.Background(), meanFactory, gridOptimizer(t), optimizer.ParameterSpace{}, nil, dailyDates(10))
	assert.ErrorIs(t, err, optimizer.ErrInvalidParameterSpace)

	_, err = NewValidator(NewConfig(0, 1, 1))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidateStopsOnCancel(t *testing.T) {
	dates := dailyDates(100)
	validator, err := NewValidator(NewConfig(50, 10, 10))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := validator.Validate(ctx, meanFactory, gridOptimizer(t), xSpace, linearDataset(dates), dates)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.True(t, report.Empty())
}

func TestFrameWrapsDataframe(t *testing.T) {
	dates := dailyDates(10)
	candles := make([]core.Candle, len(dates))
	for i, d := range dates {
		candles[i] = core.Candle{Pair: "ETHUSDT", Time: d, Close: float64(i)}
	}
	data := Dataset{"ETHUSDT": Frame(core.NewDataframe("ETHUSDT", candles))}

	slice := data.Between(dates[3], dates[6])
	assert.Equal(t, 4, slice.Len())

	df, ok := Value[*core.Dataframe](slice["ETHUSDT"])
	require.True(t, ok)
	assert.Equal(t, core.Series[float64]{3, 4, 5, 6}, df.Close)

	_, ok = Value[series](slice["ETHUSDT"])
	assert.False(t, ok)
}
