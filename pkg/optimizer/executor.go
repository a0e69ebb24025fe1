package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/raykavin/paramwalk/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Executor runs batches of independent tasks on a bounded pool of goroutines.
// With one worker or fewer every task runs inline on the caller goroutine.
type Executor struct {
	workers int
	log     logger.Logger
}

// NewExecutor creates an executor with the given pool size.
func NewExecutor(workers int, log logger.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{workers: workers, log: logger.OrNop(log)}
}

// Workers returns the pool size.
func (e *Executor) Workers() int { return e.workers }

// Parallel reports whether tasks are dispatched to worker goroutines.
func (e *Executor) Parallel() bool { return e.workers > 1 }

// Inline returns an executor with the same logger that runs every task on the
// caller goroutine.
func (e *Executor) Inline() *Executor {
	return &Executor{workers: 1, log: e.log}
}

// Outcome is the result of one task. Err is set when the task failed.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Map applies fn to every input and returns outcomes in input order.
//
// With ignoreErrors a failing task only sets its Outcome.Err; otherwise the
// first failure is returned and tasks not yet started are skipped. Tasks that
// never run because ctx was cancelled get the context error as their
// Outcome.Err. A panic in a worker goroutine aborts the batch with a
// DispatchError, while inline execution turns it into the task error.
func Map[In, Out any](
	ctx context.Context,
	exec *Executor,
	fn func(ctx context.Context, input In) (Out, error),
	inputs []In,
	ignoreErrors bool,
) ([]Outcome[Out], error) {
	if exec == nil {
		exec = NewExecutor(1, nil)
	}

	if !exec.Parallel() {
		return mapInline(ctx, fn, inputs, ignoreErrors)
	}

	outcomes := make([]Outcome[Out], len(inputs))
	ran := make([]bool, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exec.workers)

	for i, input := range inputs {
		i, input := i, input
		if gctx.Err() != nil {
			break
		}

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &DispatchError{Cause: fmt.Errorf("worker crashed on task %d: %v", i, r)}
				}
			}()

			if gctx.Err() != nil {
				return nil
			}
			ran[i] = true

			value, taskErr := fn(gctx, input)
			outcomes[i] = Outcome[Out]{Value: value, Err: taskErr}
			if taskErr != nil && !ignoreErrors {
				return taskErr
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrParallelDispatch) {
			exec.log.WithError(err).Warn("Parallel batch aborted")
		}
		return nil, err
	}

	for i := range outcomes {
		if ran[i] {
			continue
		}
		if !ignoreErrors {
			return nil, cancelCause(ctx)
		}
		outcomes[i] = Outcome[Out]{Err: cancelCause(ctx)}
	}
	return outcomes, nil
}

// cancelCause is the error recorded for tasks skipped after cancellation.
func cancelCause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}

func mapInline[In, Out any](
	ctx context.Context,
	fn func(ctx context.Context, input In) (Out, error),
	inputs []In,
	ignoreErrors bool,
) ([]Outcome[Out], error) {
	outcomes := make([]Outcome[Out], len(inputs))
	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			outcomes[i] = Outcome[Out]{Err: err}
			if !ignoreErrors {
				return nil, err
			}
			continue
		}

		value, err := callRecovered(ctx, fn, input)
		outcomes[i] = Outcome[Out]{Value: value, Err: err}
		if err != nil && !ignoreErrors {
			return nil, err
		}
	}
	return outcomes, nil
}

func callRecovered[In, Out any](
	ctx context.Context,
	fn func(ctx context.Context, input In) (Out, error),
	input In,
) (value Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx, input)
}

// evaluate runs the objective once and records the outcome as a Trial.
// Panics propagate so that the executor can classify them. The objective is
// not called once ctx is done.
func evaluate(ctx context.Context, objective Objective, index int, params ParameterSet) Trial {
	if err := ctx.Err(); err != nil {
		return Trial{
			Index:      index,
			Parameters: params,
			Score:      math.NaN(),
			Err:        &ObjectiveError{Parameters: params, Err: err},
		}
	}

	start := time.Now()
	score, err := objective.Evaluate(ctx, params.Clone())
	trial := Trial{
		Index:      index,
		Parameters: params,
		Score:      score,
		Duration:   time.Since(start),
	}

	if err == nil && math.IsNaN(score) {
		err = errors.New("objective returned NaN")
	}
	if err != nil {
		trial.Score = math.NaN()
		trial.Err = &ObjectiveError{Parameters: params, Err: err}
	}
	return trial
}

// evaluateRecovered is evaluate with objective panics recorded as trial errors.
func evaluateRecovered(ctx context.Context, objective Objective, index int, params ParameterSet) (trial Trial) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			trial = Trial{
				Index:      index,
				Parameters: params,
				Score:      math.NaN(),
				Err:        &ObjectiveError{Parameters: params, Err: fmt.Errorf("objective panicked: %v", r)},
				Duration:   time.Since(start),
			}
		}
	}()
	return evaluate(ctx, objective, index, params)
}

// dispatchTrials evaluates every parameter set on the worker pool. Objective
// failures are recorded on their trials; the only error returned is a
// DispatchError, after which no partial result is kept.
func dispatchTrials(ctx context.Context, exec *Executor, objective Objective, sets []ParameterSet) ([]Trial, error) {
	if !isConcurrencySafe(objective) {
		return nil, &DispatchError{Cause: errors.New("objective is not safe for concurrent dispatch")}
	}

	type task struct {
		index  int
		params ParameterSet
	}
	tasks := make([]task, len(sets))
	for i, params := range sets {
		tasks[i] = task{index: i, params: params}
	}

	outcomes, err := Map(ctx, exec, func(ctx context.Context, t task) (Trial, error) {
		return evaluate(ctx, objective, t.index, t.params), nil
	}, tasks, true)
	if err != nil {
		return nil, err
	}

	trials := make([]Trial, len(outcomes))
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			trials[i] = Trial{
				Index:      i,
				Parameters: sets[i],
				Score:      math.NaN(),
				Err:        &ObjectiveError{Parameters: sets[i], Err: outcome.Err},
			}
			continue
		}
		trials[i] = outcome.Value
	}
	return trials, nil
}
