package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/raykavin/paramwalk/internal/telemetry"
	"github.com/raykavin/paramwalk/pkg/surrogate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parabola peaks at x=2 with score 0
var parabola = ObjectiveFunc(func(_ context.Context, params ParameterSet) (float64, error) {
	x, err := params.Float("x")
	if err != nil {
		return 0, err
	}
	return -(x - 2) * (x - 2), nil
})

// crossScore mimics a strategy whose profit grows with emaLength and shrinks
// with smaLength
var crossScore = ObjectiveFunc(func(_ context.Context, params ParameterSet) (float64, error) {
	ema, err := params.Int("emaLength")
	if err != nil {
		return 0, err
	}
	sma, err := params.Int("smaLength")
	if err != nil {
		return 0, err
	}
	return float64(ema)*10 - float64(sma)*5, nil
})

var alwaysFailing = ObjectiveFunc(func(context.Context, ParameterSet) (float64, error) {
	return 0, errors.New("backtest crashed")
})

func TestGridSearchScenarioA(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(1, 2, 3)))

	result, err := NewGridSearch(NewConfig()).Search(context.Background(), parabola, space)
	require.NoError(t, err)

	assert.Equal(t, ParameterSet{"x": 2}, result.BestParameters)
	assert.Equal(t, 0.0, result.BestScore)
	assert.Equal(t, 3, result.TrialCount)
	assert.Equal(t, 3, result.GridSize)
	assert.Equal(t, []float64{-1, 0, 0}, result.History)
}

func TestGridSearch(t *testing.T) {
	space := MustParameterSpace(
		Param("emaLength", Values(9, 14, 21)),
		Param("smaLength", Values(21, 28)),
	)

	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			config := NewConfig().WithWorkers(workers)
			result, err := NewGridSearch(config).Search(context.Background(), crossScore, space)
			require.NoError(t, err)

			assert.Equal(t, 6, result.TrialCount)
			assert.Equal(t, ParameterSet{"emaLength": 21, "smaLength": 21}, result.BestParameters)
			assert.Equal(t, 105.0, result.BestScore)
			for i, trial := range result.Trials {
				assert.Equal(t, i, trial.Index)
			}
		})
	}
}

func TestGridSearchMinimize(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(-1, 2, 4)))

	config := NewConfig().WithMaximize(false)
	result, err := NewGridSearch(config).Search(context.Background(), parabola, space)
	require.NoError(t, err)
	assert.Equal(t, ParameterSet{"x": -1}, result.BestParameters)
	assert.Equal(t, -9.0, result.BestScore)
}

func TestGridSearchTieKeepsFirst(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(1, 3, 2)))

	result, err := NewGridSearch(NewConfig().WithWorkers(2)).Search(context.Background(), parabola, space)
	require.NoError(t, err)
	assert.Equal(t, ParameterSet{"x": 2}, result.BestParameters)

	tie := MustParameterSpace(Param("x", Values(1, 3)))
	result, err = NewGridSearch(NewConfig()).Search(context.Background(), parabola, tie)
	require.NoError(t, err)
	assert.Equal(t, ParameterSet{"x": 1}, result.BestParameters)
}

func TestGridSearchIdempotent(t *testing.T) {
	space := MustParameterSpace(
		Param("emaLength", Values(9, 14)),
		Param("smaLength", Values(21, 28, 35)),
	)
	search := NewGridSearch(NewConfig().WithWorkers(4))

	first, err := search.Search(context.Background(), crossScore, space)
	require.NoError(t, err)
	second, err := search.Search(context.Background(), crossScore, space)
	require.NoError(t, err)

	assert.Equal(t, first.BestParameters, second.BestParameters)
	assert.Equal(t, first.BestScore, second.BestScore)
}

func TestGridSearchKeepsFailedTrials(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(1, 2, 3, 4)))
	obj := ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		if params["x"] == 2 {
			return 0, errors.New("no trades")
		}
		return parabola(ctx, params)
	})

	result, err := NewGridSearch(NewConfig()).Search(context.Background(), obj, space)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TrialCount)
	assert.Equal(t, 1, result.FailedTrials())
	assert.True(t, result.Trials[1].Missing())
	assert.True(t, math.IsNaN(result.Trials[1].Score))
	assert.ErrorIs(t, result.Trials[1].Err, ErrObjectiveEvaluation)
	assert.Equal(t, -1.0, result.BestScore)
}

func TestGridSearchScenarioD(t *testing.T) {
	space := MustParameterSpace(Param("a", Values(1, 2, 3)), Param("b", Values("x", "y")))

	for _, workers := range []int{1, 2} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			result, err := NewGridSearch(NewConfig().WithWorkers(workers)).
				Search(context.Background(), alwaysFailing, space)
			require.ErrorIs(t, err, ErrAllTrialsFailed)
			assert.Nil(t, result)

			var failed *AllTrialsFailedError
			require.ErrorAs(t, err, &failed)
			assert.Equal(t, MethodGrid, failed.Method)
			require.Len(t, failed.Trials, 6)
			for _, trial := range failed.Trials {
				assert.True(t, trial.Missing())
			}
		})
	}
}

func TestGridSearchInvalidSpace(t *testing.T) {
	search := NewGridSearch(NewConfig())

	_, err := search.Search(context.Background(), parabola, ParameterSpace{})
	require.ErrorIs(t, err, ErrInvalidParameterSpace)

	ranged := MustParameterSpace(Param("x", IntRange(1, 3)))
	_, err = search.Search(context.Background(), parabola, ranged)
	require.ErrorIs(t, err, ErrInvalidParameterSpace)

	_, err = search.Search(context.Background(), nil, MustParameterSpace(Param("x", Values(1))))
	require.Error(t, err)
}

func TestGridSearchFallsBackOnWorkerPanic(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(1, 2, 3, 4, 5, 6)))

	var crashed atomic.Bool
	obj := ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		if params["x"] == 4 && crashed.CompareAndSwap(false, true) {
			panic("segfault in backtest")
		}
		return parabola(ctx, params)
	})

	recorder := telemetry.NewRecorder()
	config := NewConfig().WithWorkers(3).WithTelemetry(recorder)
	result, err := NewGridSearch(config).Search(context.Background(), obj, space)
	require.NoError(t, err)

	// the serial re-run evaluates every combination once more
	assert.Equal(t, 6, result.TrialCount)
	assert.Zero(t, result.FailedTrials())
	assert.Equal(t, ParameterSet{"x": 2}, result.BestParameters)
}

func TestGridSearchFallsBackOnSerialObjective(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(1, 2, 3)))

	var mu sync.Mutex
	var order []any
	obj := SerialObjective(ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		mu.Lock()
		order = append(order, params["x"])
		mu.Unlock()
		return parabola(ctx, params)
	}))

	result, err := NewGridSearch(NewConfig().WithWorkers(4)).Search(context.Background(), obj, space)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.BestScore)
	assert.Equal(t, []any{1, 2, 3}, order)
}

func TestGridSearchSerialPanicIsTrialError(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(1, 2, 3)))
	obj := ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		if params["x"] == 3 {
			panic("index out of range")
		}
		return parabola(ctx, params)
	})

	result, err := NewGridSearch(NewConfig()).Search(context.Background(), obj, space)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FailedTrials())
	assert.ErrorContains(t, result.Trials[2].Err, "index out of range")
}

func TestGridSearchCancelledKeepsOnlyEvaluatedTrials(t *testing.T) {
	values := make([]int, 10)
	for i := range values {
		values[i] = i + 1
	}
	space := MustParameterSpace(Param("x", Values(values...)))

	for _, workers := range []int{1, 2} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var calls atomic.Int32
			obj := ObjectiveFunc(func(_ context.Context, params ParameterSet) (float64, error) {
				if calls.Add(1) == 2 {
					cancel()
				}
				x, err := params.Float("x")
				if err != nil {
					return 0, err
				}
				return -x - 10, nil
			})

			result, err := NewGridSearch(NewConfig().WithWorkers(workers)).Search(ctx, obj, space)
			require.NoError(t, err)
			require.Len(t, result.Trials, 10)

			best := math.Inf(-1)
			for i, trial := range result.Trials {
				assert.Equal(t, i, trial.Index)
				assert.Equal(t, i+1, trial.Parameters["x"])
				if trial.Missing() {
					assert.ErrorIs(t, trial.Err, context.Canceled)
					continue
				}
				assert.Equal(t, -float64(i+1)-10, trial.Score)
				best = math.Max(best, trial.Score)
			}

			assert.Equal(t, best, result.BestScore)
			assert.NotEmpty(t, result.BestParameters)
			assert.GreaterOrEqual(t, result.FailedTrials(), 5)
			assert.Equal(t, 10-int(calls.Load()), result.FailedTrials())
		})
	}
}

func TestGridSearchImportance(t *testing.T) {
	space := MustParameterSpace(
		Param("emaLength", Values(9, 14, 21)),
		Param("smaLength", Values(21, 28)),
		Param("flag", Values(true, false)),
	)

	result, err := NewGridSearch(NewConfig()).Search(context.Background(), crossScore, space)
	require.NoError(t, err)

	importance := result.Importance()
	require.Len(t, importance, 3)
	for name, value := range importance {
		assert.GreaterOrEqual(t, value, 0.0, name)
		assert.LessOrEqual(t, value, 1.0, name)
	}

	// ema spread is 120, sma spread is 35
	assert.Equal(t, 1.0, importance["emaLength"])
	assert.InDelta(t, 35.0/120.0, importance["smaLength"], 1e-12)
	assert.Equal(t, 0.0, importance["flag"])
}

func TestGridSearchImportanceGroupsByTypedValue(t *testing.T) {
	// "1" and 1 are different levels of the same parameter
	space := MustParameterSpace(Param("level", Values[any](1, "1")))
	obj := ObjectiveFunc(func(_ context.Context, params ParameterSet) (float64, error) {
		if _, ok := params["level"].(string); ok {
			return 10, nil
		}
		return 0, nil
	})

	result, err := NewGridSearch(NewConfig()).Search(context.Background(), obj, space)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"level": 1}, result.Importance())
}

func TestGridSearchImportanceFlatScores(t *testing.T) {
	space := MustParameterSpace(Param("a", Values(1, 2)), Param("b", Values(3, 4)))
	flat := ObjectiveFunc(func(context.Context, ParameterSet) (float64, error) { return 7, nil })

	result, err := NewGridSearch(NewConfig()).Search(context.Background(), flat, space)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 0, "b": 0}, result.Importance())
}

func TestRandomSearch(t *testing.T) {
	space := MustParameterSpace(
		Param("x", RealRange(-5.0, 5.0)),
		Param("n", IntRange(1, 4)),
	)

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			p, err := NewParallelOptimizer(MethodRandom, NewConfig().WithWorkers(workers).WithIterations(200).WithSeed(3))
			require.NoError(t, err)

			result, err := p.Optimize(context.Background(), parabola, space)
			require.NoError(t, err)

			assert.Equal(t, MethodRandom, result.Method)
			assert.Equal(t, 200, result.TrialCount)
			assert.Greater(t, result.BestScore, -0.05)
			for _, trial := range result.Trials {
				require.NoError(t, space.Contains(trial.Parameters))
				assert.LessOrEqual(t, trial.Score, result.BestScore)
			}
		})
	}
}

func TestRandomSearchScenarioC(t *testing.T) {
	space := MustParameterSpace(Param("x", IntRange(0, 10)))
	p, err := NewParallelOptimizer(MethodRandom, NewConfig())
	require.NoError(t, err)

	result, err := p.Optimize(context.Background(), parabola, space, WithIterations(0))
	require.ErrorIs(t, err, ErrAllTrialsFailed)
	assert.Nil(t, result)
}

func TestRandomSearchFallbackReusesSamples(t *testing.T) {
	space := MustParameterSpace(Param("x", RealRange(0.0, 4.0)), Param("mode", Values("a", "b", "c")))
	const seed, n = 99, 25

	var crashed atomic.Bool
	obj := ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		if crashed.CompareAndSwap(false, true) {
			panic("worker lost")
		}
		return parabola(ctx, params)
	})

	p, err := NewParallelOptimizer(MethodRandom, NewConfig().WithWorkers(4))
	require.NoError(t, err)

	result, err := p.Optimize(context.Background(), obj, space, WithIterations(n), WithSeed(seed))
	require.NoError(t, err)

	expected := space.SampleN(n, rand.New(rand.NewSource(seed)))
	require.Len(t, result.Trials, n)
	for i, trial := range result.Trials {
		assert.Equal(t, expected[i], trial.Parameters)
		assert.False(t, trial.Missing())
	}
}

func TestRandomSearchAllFailing(t *testing.T) {
	space := MustParameterSpace(Param("x", IntRange(0, 10)))
	p, err := NewParallelOptimizer(MethodRandom, NewConfig().WithWorkers(2).WithIterations(8))
	require.NoError(t, err)

	_, err = p.Optimize(context.Background(), alwaysFailing, space)
	var failed *AllTrialsFailedError
	require.ErrorAs(t, err, &failed)
	assert.Len(t, failed.Trials, 8)
}

// scriptedSurrogate evaluates a fixed list of points and records what it saw.
type scriptedSurrogate struct {
	points  [][]any
	seen    []float64
	history []surrogate.Observation
}

func (s *scriptedSurrogate) Run(ctx context.Context, req surrogate.Request) (*surrogate.Response, error) {
	s.history = req.History
	resp := &surrogate.Response{}
	for i := 0; i < req.Calls && i < len(s.points); i++ {
		score, err := req.Evaluate(ctx, s.points[i])
		if err != nil {
			return resp, &surrogate.EvaluationError{Call: i, Point: s.points[i], Err: err}
		}
		s.seen = append(s.seen, score)
		resp.Points = append(resp.Points, s.points[i])
		resp.Scores = append(resp.Scores, score)
	}
	return resp, nil
}

func TestBayesianSignCorrection(t *testing.T) {
	script := &scriptedSurrogate{points: [][]any{{0}, {3}, {2}, {5}}}
	config := NewConfig().
		WithTotalCalls(4, 2).
		WithSurrogateFactory(func() (surrogate.Optimizer, error) { return script, nil })

	b, err := NewBayesianOptimizer(config)
	require.NoError(t, err)

	space := MustParameterSpace(Param("x", IntRange(0, 5)))
	result, err := b.Optimize(context.Background(), parabola, space, true)
	require.NoError(t, err)

	// the surrogate minimizes the negated score
	assert.Equal(t, []float64{4, 1, 0, 9}, script.seen)
	assert.Equal(t, []float64{-4, -1, 0, -9}, result.Trace)
	assert.Equal(t, []float64{-4, -1, 0, 0}, result.History)
	assert.Equal(t, ParameterSet{"x": 2}, result.BestParameters)
	assert.Equal(t, 0.0, result.BestScore)
	assert.Equal(t, 4, result.TrialCount)

	script.seen = nil
	result, err = b.Optimize(context.Background(), parabola, space, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{-4, -1, 0, -9}, script.seen)
	assert.Equal(t, []float64{-4, -4, -4, -9}, result.History)
	assert.Equal(t, ParameterSet{"x": 5}, result.BestParameters)
}

func TestBayesianWithGaussianProcess(t *testing.T) {
	space := MustParameterSpace(Param("x", RealRange(-3.0, 5.0)))
	b, err := NewBayesianOptimizer(NewConfig().WithTotalCalls(20, 5).WithSeed(17))
	require.NoError(t, err)

	result, err := b.Optimize(context.Background(), parabola, space, true)
	require.NoError(t, err)

	assert.Equal(t, 20, result.TrialCount)
	assert.Greater(t, result.BestScore, -0.1)
	for i := 1; i < len(result.History); i++ {
		assert.GreaterOrEqual(t, result.History[i], result.History[i-1])
	}
}

func TestBayesianSurrogateUnavailable(t *testing.T) {
	space := MustParameterSpace(Param("x", IntRange(0, 5)))

	b, err := NewBayesianOptimizer(NewConfig().WithSurrogateFactory(nil))
	require.NoError(t, err)
	_, err = b.Optimize(context.Background(), parabola, space, true)
	require.ErrorIs(t, err, ErrSurrogateUnavailable)

	broken := func() (surrogate.Optimizer, error) { return nil, errors.New("library missing") }
	b, err = NewBayesianOptimizer(NewConfig().WithSurrogateFactory(broken))
	require.NoError(t, err)
	_, err = b.Optimize(context.Background(), parabola, space, true)
	require.ErrorIs(t, err, ErrSurrogateUnavailable)
}

func TestBayesianObjectiveFailures(t *testing.T) {
	space := MustParameterSpace(Param("x", IntRange(0, 5)))
	script := &scriptedSurrogate{points: [][]any{{1}, {2}, {3}}}
	config := NewConfig().
		WithTotalCalls(3, 1).
		WithSurrogateFactory(func() (surrogate.Optimizer, error) { return script, nil })

	b, err := NewBayesianOptimizer(config)
	require.NoError(t, err)

	_, err = b.Optimize(context.Background(), alwaysFailing, space, true)
	require.ErrorIs(t, err, ErrObjectiveAlwaysFailing)

	failLate := ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		if params["x"] == 3 {
			return 0, errors.New("data gap")
		}
		return parabola(ctx, params)
	})
	_, err = b.Optimize(context.Background(), failLate, space, true)
	require.ErrorIs(t, err, ErrObjectiveEvaluation)
	require.NotErrorIs(t, err, ErrObjectiveAlwaysFailing)

	var objErr *ObjectiveError
	require.ErrorAs(t, err, &objErr)
	assert.Equal(t, ParameterSet{"x": 3}, objErr.Parameters)
}

func TestBayesianConfigValidation(t *testing.T) {
	_, err := NewBayesianOptimizer(NewConfig().WithTotalCalls(0, 0))
	require.Error(t, err)
	_, err = NewBayesianOptimizer(NewConfig().WithTotalCalls(5, 6))
	require.Error(t, err)
}

func TestParallelOptimizerBayesianWarmUp(t *testing.T) {
	space := MustParameterSpace(Param("x", IntRange(0, 5)))

	var calls atomic.Int32
	obj := ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		calls.Add(1)
		return parabola(ctx, params)
	})

	p, err := NewParallelOptimizer(MethodBayesian, NewConfig().WithWorkers(2).WithTotalCalls(6, 3).WithSeed(5))
	require.NoError(t, err)

	result, err := p.Optimize(context.Background(), obj, space)
	require.NoError(t, err)

	// warm-up points are evaluated but not counted
	assert.Equal(t, 6, result.TrialCount)
	assert.Equal(t, int32(9), calls.Load())
	assert.Len(t, result.History, 6)
}

func TestParallelOptimizerWarmUpNotFedToSurrogate(t *testing.T) {
	space := MustParameterSpace(Param("x", IntRange(0, 5)))
	script := &scriptedSurrogate{points: [][]any{{0}, {3}, {2}, {5}}}

	var calls atomic.Int32
	obj := ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		calls.Add(1)
		return parabola(ctx, params)
	})

	config := NewConfig().
		WithWorkers(2).
		WithTotalCalls(4, 3).
		WithSurrogateFactory(func() (surrogate.Optimizer, error) { return script, nil })
	p, err := NewParallelOptimizer(MethodBayesian, config)
	require.NoError(t, err)

	result, err := p.Optimize(context.Background(), obj, space)
	require.NoError(t, err)

	assert.Empty(t, script.history)
	assert.Equal(t, int32(7), calls.Load())
	assert.Equal(t, 4, result.TrialCount)
	assert.Equal(t, []float64{4, 1, 0, 9}, script.seen)
}

func TestParallelOptimizerMethodPerCall(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(1, 2, 3)))
	p, err := NewParallelOptimizer(MethodRandom, NewConfig().WithWorkers(2))
	require.NoError(t, err)

	result, err := p.OptimizeMethod(context.Background(), MethodGrid, parabola, space)
	require.NoError(t, err)
	assert.Equal(t, MethodGrid, result.Method)
	assert.Equal(t, 3, result.TrialCount)
	assert.Equal(t, MethodRandom, p.Method())

	_, err = p.OptimizeMethod(context.Background(), Method("annealing"), parabola, space)
	require.Error(t, err)

	_, err = NewParallelOptimizer(Method("annealing"), nil)
	require.Error(t, err)
}

func TestCompareMethodsExcludesFailures(t *testing.T) {
	// grid search rejects the real range, the others succeed
	space := MustParameterSpace(Param("x", RealRange(0.0, 4.0)))
	p, err := NewParallelOptimizer(MethodGrid, NewConfig().WithIterations(30).WithTotalCalls(10, 4).WithSeed(1))
	require.NoError(t, err)

	records := p.CompareMethods(context.Background(), parabola, space, Methods)
	require.Len(t, records, 2)
	assert.Equal(t, MethodRandom, records[0].Method)
	assert.Equal(t, 30, records[0].TrialCount)
	assert.Equal(t, MethodBayesian, records[1].Method)
	assert.Equal(t, 10, records[1].TrialCount)
	assert.Equal(t, MethodGrid, p.Method())
}

func TestCompareMethodsConcurrentCallers(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(0, 1, 2, 3, 4)))
	p, err := NewParallelOptimizer(MethodGrid, NewConfig().WithIterations(10).WithTotalCalls(5, 2).WithSeed(8))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records := p.CompareMethods(context.Background(), parabola, space, []Method{MethodGrid, MethodRandom})
			assert.Len(t, records, 2)
			assert.Equal(t, MethodGrid, records[0].Method)
			assert.Equal(t, 5, records[0].TrialCount)
		}()
	}
	wg.Wait()
}

func TestRecords(t *testing.T) {
	space := MustParameterSpace(Param("x", Values(1, 2, 3, 4)))
	obj := ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		if params["x"] == 1 {
			return 0, errors.New("no data")
		}
		return parabola(ctx, params)
	})

	result, err := NewGridSearch(NewConfig()).Search(context.Background(), obj, space)
	require.NoError(t, err)

	records := result.Records()
	require.Len(t, records, 4)
	assert.Equal(t, 1, records[0].Rank)
	assert.Equal(t, ParameterSet{"x": 2}, records[0].Parameters)
	assert.Equal(t, 2, records[1].Index)
	assert.True(t, records[3].Failed)
	assert.Zero(t, records[3].Rank)
	assert.Contains(t, records[3].Error, "no data")

	assert.Len(t, result.Top(2), 2)
	assert.Equal(t, []string{"x"}, result.ParameterNames())
}

type mapCache struct {
	mu     sync.Mutex
	scores map[string]float64
}

func (c *mapCache) Get(key string) (float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	score, ok := c.scores[key]
	return score, ok, nil
}

func (c *mapCache) Put(key string, score float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores[key] = score
	return nil
}

func TestMemoize(t *testing.T) {
	var calls atomic.Int32
	obj := ObjectiveFunc(func(ctx context.Context, params ParameterSet) (float64, error) {
		calls.Add(1)
		if params["x"] == 0 {
			return 0, errors.New("bad")
		}
		return parabola(ctx, params)
	})

	cache := &mapCache{scores: make(map[string]float64)}
	memo := Memoize(obj, cache, nil)

	for i := 0; i < 3; i++ {
		score, err := memo.Evaluate(context.Background(), ParameterSet{"x": 3})
		require.NoError(t, err)
		assert.Equal(t, -1.0, score)
	}
	assert.Equal(t, int32(1), calls.Load())

	for i := 0; i < 2; i++ {
		_, err := memo.Evaluate(context.Background(), ParameterSet{"x": 0})
		require.Error(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())

	assert.True(t, isConcurrencySafe(memo))
	assert.False(t, isConcurrencySafe(Memoize(SerialObjective(obj), cache, nil)))
}
