package optimizer

import (
	"context"
	"errors"
	"time"

	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GridSearchOptimizer evaluates every combination of an enumerated space.
type GridSearchOptimizer struct {
	maximize bool
	runner   *trialRunner
	log      logger.Logger
}

// GridSearchResult extends OptimizationResult with grid diagnostics.
type GridSearchResult struct {
	OptimizationResult
	GridSize int

	names []string
}

// NewGridSearch creates a grid search optimizer
func NewGridSearch(config *Config) *GridSearchOptimizer {
	if config == nil {
		config = NewConfig()
	}
	exec := NewExecutor(config.Workers, config.Logger)
	return &GridSearchOptimizer{
		maximize: config.Maximize,
		runner:   newTrialRunner(MethodGrid, exec, config),
		log:      logger.OrNop(config.Logger),
	}
}

// Search evaluates the objective on the full cartesian product of space.
// Failed trials are kept in the result with a missing score.
func (g *GridSearchOptimizer) Search(ctx context.Context, objective Objective, space ParameterSpace) (*GridSearchResult, error) {
	if objective == nil {
		return nil, errors.New("objective cannot be nil")
	}

	sets, err := space.Grid()
	if err != nil {
		return nil, err
	}

	g.log.Infof("Starting grid search over %d combinations", len(sets))
	start := time.Now()

	trials := g.runner.run(ctx, objective, sets)
	result, err := NewOptimizationResult(MethodGrid, trials, g.maximize, time.Since(start))
	if err != nil {
		return nil, err
	}

	g.log.WithFields(map[string]any{
		"best_score": result.BestScore,
		"failed":     result.FailedTrials(),
	}).Infof("Grid search completed with %d trials in %s", result.TrialCount, result.Elapsed.Round(time.Millisecond))

	return &GridSearchResult{
		OptimizationResult: *result,
		GridSize:           len(sets),
		names:              space.Names(),
	}, nil
}

// Importance estimates how much each parameter moves the score. For every
// parameter, trials are grouped by its value and the spread between the best
// and worst group mean is normalised by the largest spread, so the most
// influential parameter scores 1. All values are 0 when no parameter moves
// the score.
func (r *GridSearchResult) Importance() map[string]float64 {
	scored := lo.Filter(r.Trials, func(t Trial, _ int) bool { return !t.Missing() })

	spreads := make(map[string]float64, len(r.names))
	for _, name := range r.names {
		groups := lo.GroupBy(scored, func(t Trial) string {
			return valueKey(t.Parameters[name])
		})
		if len(groups) == 0 {
			spreads[name] = 0
			continue
		}

		means := lo.MapToSlice(groups, func(_ string, trials []Trial) float64 {
			return stat.Mean(lo.Map(trials, func(t Trial, _ int) float64 { return t.Score }), nil)
		})
		spreads[name] = floats.Max(means) - floats.Min(means)
	}

	largest := lo.Max(lo.Values(spreads))
	importance := make(map[string]float64, len(spreads))
	for name, spread := range spreads {
		if largest > 0 {
			importance[name] = spread / largest
		} else {
			importance[name] = 0
		}
	}
	return importance
}
