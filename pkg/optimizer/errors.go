package optimizer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameterSpace is returned before any evaluation when the space
	// is empty or malformed.
	ErrInvalidParameterSpace = errors.New("invalid parameter space")

	// ErrObjectiveEvaluation marks a single failed objective call.
	ErrObjectiveEvaluation = errors.New("objective evaluation failed")

	// ErrAllTrialsFailed is returned when a batch produced no usable score.
	ErrAllTrialsFailed = errors.New("all trials failed")

	// ErrParallelDispatch reports that a batch could not be run on the worker
	// pool. Grid and random search recover from it by re-running serially.
	ErrParallelDispatch = errors.New("parallel dispatch failed")

	// ErrSurrogateUnavailable is returned when the bayesian surrogate cannot be built.
	ErrSurrogateUnavailable = errors.New("surrogate optimizer unavailable")

	// ErrObjectiveAlwaysFailing is returned by the bayesian optimizer when the
	// objective never produced a score.
	ErrObjectiveAlwaysFailing = errors.New("objective failed on every evaluation")
)

// ObjectiveError wraps the failure of one objective call.
type ObjectiveError struct {
	Parameters ParameterSet
	Err        error
}

func (e *ObjectiveError) Error() string {
	return fmt.Sprintf("%s at %s: %v", ErrObjectiveEvaluation, e.Parameters, e.Err)
}

func (e *ObjectiveError) Is(target error) bool {
	return target == ErrObjectiveEvaluation
}

func (e *ObjectiveError) Unwrap() error {
	return e.Err
}

// AllTrialsFailedError carries the trial log of a batch in which every trial
// failed.
type AllTrialsFailedError struct {
	Method Method
	Trials []Trial
}

func (e *AllTrialsFailedError) Error() string {
	return fmt.Sprintf("%s search: %s (%d trials)", e.Method, ErrAllTrialsFailed, len(e.Trials))
}

func (e *AllTrialsFailedError) Unwrap() error {
	return ErrAllTrialsFailed
}

// DispatchError describes why a batch could not run in parallel.
type DispatchError struct {
	Cause error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %v", ErrParallelDispatch, e.Cause)
}

func (e *DispatchError) Is(target error) bool {
	return target == ErrParallelDispatch
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}
