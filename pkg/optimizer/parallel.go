package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/raykavin/paramwalk/pkg/surrogate"
)

// OptimizeOption overrides a configured default for a single call.
type OptimizeOption func(*callOptions)

type callOptions struct {
	maximize      bool
	iterations    int
	totalCalls    int
	initialPoints int
	seed          int64
	acquisition   surrogate.Acquisition
}

// WithMaximize sets the optimization direction
func WithMaximize(maximize bool) OptimizeOption {
	return func(o *callOptions) { o.maximize = maximize }
}

// WithIterations sets the number of random search samples
func WithIterations(n int) OptimizeOption {
	return func(o *callOptions) { o.iterations = n }
}

// WithTotalCalls sets the number of bayesian evaluations
func WithTotalCalls(n int) OptimizeOption {
	return func(o *callOptions) { o.totalCalls = n }
}

// WithInitialPoints sets the number of bayesian space filling points
func WithInitialPoints(n int) OptimizeOption {
	return func(o *callOptions) { o.initialPoints = n }
}

// WithSeed sets the random seed
func WithSeed(seed int64) OptimizeOption {
	return func(o *callOptions) { o.seed = seed }
}

// WithAcquisition sets the bayesian acquisition function
func WithAcquisition(acquisition surrogate.Acquisition) OptimizeOption {
	return func(o *callOptions) { o.acquisition = acquisition }
}

// ParallelOptimizer runs grid, random or bayesian search on a shared worker
// pool. It holds no per call state, so one instance may serve concurrent
// callers.
type ParallelOptimizer struct {
	method Method
	config Config
	exec   *Executor
	log    logger.Logger
}

// NewParallelOptimizer creates the facade for the given default method.
func NewParallelOptimizer(method Method, config *Config) (*ParallelOptimizer, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	if config == nil {
		config = NewConfig()
	}

	log := logger.OrNop(config.Logger)
	return &ParallelOptimizer{
		method: method,
		config: *config,
		exec:   NewExecutor(config.Workers, log),
		log:    log,
	}, nil
}

// Method returns the default method.
func (p *ParallelOptimizer) Method() Method { return p.method }

// Optimize runs the default method.
func (p *ParallelOptimizer) Optimize(ctx context.Context, objective Objective, space ParameterSpace, opts ...OptimizeOption) (*OptimizationResult, error) {
	return p.OptimizeMethod(ctx, p.method, objective, space, opts...)
}

// OptimizeMethod runs the given method.
func (p *ParallelOptimizer) OptimizeMethod(ctx context.Context, method Method, objective Objective, space ParameterSpace, opts ...OptimizeOption) (*OptimizationResult, error) {
	if objective == nil {
		return nil, errors.New("objective cannot be nil")
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}

	o := p.callOptions(opts)

	switch method {
	case MethodGrid:
		result, err := NewGridSearch(p.configFor(o)).Search(ctx, objective, space)
		if err != nil {
			return nil, err
		}
		return &result.OptimizationResult, nil

	case MethodRandom:
		return p.randomSearch(ctx, objective, space, o)

	case MethodBayesian:
		return p.bayesianSearch(ctx, objective, space, o)

	default:
		return nil, fmt.Errorf("unknown optimization method %q", method)
	}
}

func (p *ParallelOptimizer) bayesianSearch(ctx context.Context, objective Objective, space ParameterSpace, o callOptions) (*OptimizationResult, error) {
	config := p.configFor(o)
	bayesian, err := NewBayesianOptimizer(config)
	if err != nil {
		return nil, err
	}

	if o.initialPoints > 1 && p.exec.Parallel() {
		p.warmUp(ctx, objective, space, o)
	}

	result, err := bayesian.Optimize(ctx, objective, space, o.maximize)
	if err != nil {
		return nil, err
	}
	return &result.OptimizationResult, nil
}

// warmUp evaluates the initial points on the pool so that a broken objective
// shows up before the sequential loop starts. Its scores are discarded.
func (p *ParallelOptimizer) warmUp(ctx context.Context, objective Objective, space ParameterSpace, o callOptions) {
	rng := rand.New(rand.NewSource(o.seed))
	samples := space.SampleN(o.initialPoints, rng)

	trials, err := dispatchTrials(ctx, p.exec, objective, samples)
	if err != nil {
		p.log.WithError(err).Warn("Bayesian warm-up could not run in parallel")
		return
	}

	failed := 0
	for _, trial := range trials {
		if trial.Missing() {
			failed++
			p.log.WithError(trial.Err).Debugf("Warm-up point %s failed", trial.Parameters)
		}
	}
	if failed > 0 {
		p.log.Warnf("Bayesian warm-up: %d/%d initial points failed", failed, len(trials))
	}
}

// ComparisonRecord is one row of a method comparison.
type ComparisonRecord struct {
	Method         Method
	BestScore      float64
	TrialCount     int
	Elapsed        time.Duration
	BestParameters ParameterSet
}

// CompareMethods runs every method on the same problem. A method that fails
// is logged and left out of the table.
func (p *ParallelOptimizer) CompareMethods(ctx context.Context, objective Objective, space ParameterSpace, methods []Method, opts ...OptimizeOption) []ComparisonRecord {
	records := make([]ComparisonRecord, 0, len(methods))
	for _, method := range methods {
		p.log.Infof("Comparing method %s", method)

		result, err := p.OptimizeMethod(ctx, method, objective, space, opts...)
		if err != nil {
			p.log.WithError(err).WithField("method", string(method)).Error("Method failed during comparison")
			continue
		}

		records = append(records, ComparisonRecord{
			Method:         method,
			BestScore:      result.BestScore,
			TrialCount:     result.TrialCount,
			Elapsed:        result.Elapsed,
			BestParameters: result.BestParameters,
		})
	}
	return records
}

func (p *ParallelOptimizer) callOptions(opts []OptimizeOption) callOptions {
	o := callOptions{
		maximize:      p.config.Maximize,
		iterations:    p.config.Iterations,
		totalCalls:    p.config.TotalCalls,
		initialPoints: p.config.InitialPoints,
		seed:          p.config.seed(),
		acquisition:   p.config.Acquisition,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// configFor returns a copy of the facade config with per call overrides.
func (p *ParallelOptimizer) configFor(o callOptions) *Config {
	config := p.config
	config.Maximize = o.maximize
	config.Iterations = o.iterations
	config.TotalCalls = o.totalCalls
	config.InitialPoints = o.initialPoints
	config.Seed = o.seed
	config.Acquisition = o.acquisition
	config.Logger = p.log
	return &config
}
