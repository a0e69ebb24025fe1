package optimizer

import (
	"context"
	"math/rand"
	"time"
)

// randomSearch draws n samples up front and evaluates them as one batch. A
// serial fallback re-evaluates the very same samples; they are never redrawn.
func (p *ParallelOptimizer) randomSearch(ctx context.Context, objective Objective, space ParameterSpace, o callOptions) (*OptimizationResult, error) {
	rng := rand.New(rand.NewSource(o.seed))
	samples := space.SampleN(o.iterations, rng)

	p.log.Infof("Starting random search with %d iterations", len(samples))
	start := time.Now()

	runner := newTrialRunner(MethodRandom, p.exec, p.configFor(o))
	trials := runner.run(ctx, objective, samples)

	result, err := NewOptimizationResult(MethodRandom, trials, o.maximize, time.Since(start))
	if err != nil {
		return nil, err
	}

	p.log.Infof("Random search completed with %d results", result.TrialCount)
	return result, nil
}
