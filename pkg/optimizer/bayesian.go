package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/paramwalk/internal/telemetry"
	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/raykavin/paramwalk/pkg/surrogate"
)

// BayesianOptimizer delegates a sequential model based search to a surrogate
// primitive. The primitive always minimizes; scores are negated around it
// when maximizing.
type BayesianOptimizer struct {
	totalCalls    int
	initialPoints int
	acquisition   surrogate.Acquisition
	seed          int64
	factory       surrogate.Factory
	log           logger.Logger
	telemetry     *telemetry.Recorder
}

// BayesianResult extends OptimizationResult with the raw per call trace.
type BayesianResult struct {
	OptimizationResult
	// Trace holds the score of every call in call order, in the caller's
	// orientation.
	Trace []float64
}

// NewBayesianOptimizer creates a bayesian optimizer
func NewBayesianOptimizer(config *Config) (*BayesianOptimizer, error) {
	if config == nil {
		config = NewConfig()
	}
	if config.TotalCalls < 1 {
		return nil, fmt.Errorf("total calls must be positive, got %d", config.TotalCalls)
	}
	if config.InitialPoints < 0 || config.InitialPoints > config.TotalCalls {
		return nil, fmt.Errorf("initial points must be within [0, %d], got %d", config.TotalCalls, config.InitialPoints)
	}

	return &BayesianOptimizer{
		totalCalls:    config.TotalCalls,
		initialPoints: config.InitialPoints,
		acquisition:   config.Acquisition,
		seed:          config.seed(),
		factory:       config.SurrogateFactory,
		log:           logger.OrNop(config.Logger).WithField("method", string(MethodBayesian)),
		telemetry:     config.Telemetry,
	}, nil
}

// Optimize runs the full surrogate loop. Any objective failure ends the run:
// ErrObjectiveAlwaysFailing when no call had succeeded yet, otherwise the
// wrapped *ObjectiveError.
func (b *BayesianOptimizer) Optimize(ctx context.Context, objective Objective, space ParameterSpace, maximize bool) (*BayesianResult, error) {
	if objective == nil {
		return nil, errors.New("objective cannot be nil")
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}

	primitive, err := b.buildSurrogate()
	if err != nil {
		return nil, err
	}

	dims := space.Dimensions()
	sign := 1.0
	if maximize {
		sign = -1.0
	}

	var (
		trials    []Trial
		lastError error
	)
	evaluateFn := func(ctx context.Context, point []any) (float64, error) {
		params := make(ParameterSet, len(dims))
		for i, d := range dims {
			params[d.Name] = point[i]
		}

		trial := evaluateRecovered(ctx, objective, len(trials), params)
		b.telemetry.ObserveTrial(string(MethodBayesian), !trial.Missing(), trial.Duration)
		if trial.Missing() {
			lastError = trial.Err
			return 0, trial.Err
		}

		trials = append(trials, trial)
		b.log.Debugf("Call %d/%d %s score=%.6f", len(trials), b.totalCalls, params, trial.Score)
		return sign * trial.Score, nil
	}

	b.log.Infof("Starting bayesian search with %d calls (%d initial, %s)", b.totalCalls, b.initialPoints, b.acquisition)
	start := time.Now()

	// History stays empty: every point the model learns from is a call of
	// this run, so trials and the trace hold all of them. Warm-up scores from
	// ParallelOptimizer are never fed back.
	_, err = primitive.Run(ctx, surrogate.Request{
		Dimensions:    toSurrogateDimensions(dims),
		Calls:         b.totalCalls,
		InitialPoints: b.initialPoints,
		Acquisition:   b.acquisition,
		Seed:          b.seed,
		Evaluate:      evaluateFn,
	})
	elapsed := time.Since(start)

	if err != nil {
		if lastError == nil {
			return nil, fmt.Errorf("surrogate run failed: %w", err)
		}
		if len(trials) == 0 {
			return nil, fmt.Errorf("%w: %w", ErrObjectiveAlwaysFailing, lastError)
		}
		return nil, fmt.Errorf("bayesian search aborted after %d calls: %w", len(trials), lastError)
	}

	result, err := NewOptimizationResult(MethodBayesian, trials, maximize, elapsed)
	if err != nil {
		return nil, err
	}

	trace := make([]float64, len(trials))
	for i, trial := range trials {
		trace[i] = trial.Score
	}

	b.log.WithField("best_score", result.BestScore).
		Infof("Bayesian search completed with %d calls in %s", result.TrialCount, elapsed.Round(time.Millisecond))

	return &BayesianResult{OptimizationResult: *result, Trace: trace}, nil
}

func (b *BayesianOptimizer) buildSurrogate() (surrogate.Optimizer, error) {
	if b.factory == nil {
		return nil, fmt.Errorf("%w: no surrogate factory configured", ErrSurrogateUnavailable)
	}
	primitive, err := b.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSurrogateUnavailable, err)
	}
	if primitive == nil {
		return nil, fmt.Errorf("%w: factory returned nil", ErrSurrogateUnavailable)
	}
	return primitive, nil
}

func toSurrogateDimensions(dims []Dimension) []surrogate.Dimension {
	out := make([]surrogate.Dimension, len(dims))
	for i, d := range dims {
		switch domain := d.Domain.(type) {
		case Enumerated:
			out[i] = surrogate.Dimension{Name: d.Name, Kind: surrogate.Categorical, Categories: domain.Values}
		case Range:
			kind := surrogate.Real
			if domain.Kind == KindInteger {
				kind = surrogate.Integer
			}
			out[i] = surrogate.Dimension{Name: d.Name, Kind: kind, Low: domain.Low, High: domain.High}
		}
	}
	return out
}
