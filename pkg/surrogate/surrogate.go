// Package surrogate provides the model-based search primitive used by the
// bayesian optimizer. A caller hands over the whole problem in one Request and
// the primitive runs its propose, evaluate, update loop to completion,
// minimizing the score.
package surrogate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind is the type of a search dimension.
type Kind int

const (
	Categorical Kind = iota
	Integer
	Real
)

func (k Kind) String() string {
	switch k {
	case Categorical:
		return "categorical"
	case Integer:
		return "integer"
	default:
		return "real"
	}
}

// Acquisition selects the rule used to pick the next point.
type Acquisition string

const (
	ExpectedImprovement      Acquisition = "EI"
	ProbabilityOfImprovement Acquisition = "PI"
	LowerConfidenceBound     Acquisition = "LCB"
)

// ParseAcquisition accepts the short names (EI, PI, LCB) case-insensitively.
func ParseAcquisition(name string) (Acquisition, error) {
	switch a := Acquisition(strings.ToUpper(strings.TrimSpace(name))); a {
	case ExpectedImprovement, ProbabilityOfImprovement, LowerConfidenceBound:
		return a, nil
	case "":
		return ExpectedImprovement, nil
	default:
		return "", fmt.Errorf("unknown acquisition function %q", name)
	}
}

// Dimension describes one coordinate of the search space. Low and High bound
// Integer and Real dimensions; Categories lists Categorical values.
type Dimension struct {
	Name       string
	Kind       Kind
	Low        float64
	High       float64
	Categories []any
}

// Observation is a previously evaluated point and its minimized score.
type Observation struct {
	Point []any
	Score float64
}

// Request describes a complete minimization run.
type Request struct {
	Dimensions []Dimension
	// History seeds the model with points evaluated elsewhere.
	History []Observation
	// Calls is the number of Evaluate calls to perform.
	Calls int
	// InitialPoints are chosen by space filling sampling before the model
	// is consulted.
	InitialPoints int
	Acquisition   Acquisition
	Seed          int64
	// Evaluate scores a point; lower is better. Values are int for Integer
	// dimensions, float64 for Real dimensions and the category itself for
	// Categorical ones.
	Evaluate func(ctx context.Context, point []any) (float64, error)
}

// Response holds every evaluated point in call order.
type Response struct {
	Points [][]any
	Scores []float64
}

// Best returns the index of the lowest score, or -1 for an empty response.
func (r *Response) Best() int {
	best := -1
	for i, score := range r.Scores {
		if best < 0 || score < r.Scores[best] {
			best = i
		}
	}
	return best
}

// EvaluationError reports the Evaluate failure that ended a run.
type EvaluationError struct {
	Call  int
	Point []any
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation %d at %v failed: %v", e.Call, e.Point, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Optimizer runs a Request to completion. When Evaluate fails the run stops
// and the points evaluated so far are returned along with an
// *EvaluationError.
type Optimizer interface {
	Run(ctx context.Context, req Request) (*Response, error)
}

// Factory builds an Optimizer.
type Factory func() (Optimizer, error)

// DefaultFactory builds a Gaussian process optimizer with default options.
func DefaultFactory() (Optimizer, error) {
	return NewGaussianProcess(DefaultOptions()), nil
}

func (r Request) validate() error {
	if len(r.Dimensions) == 0 {
		return errors.New("no dimensions")
	}
	if r.Calls < 1 {
		return fmt.Errorf("calls must be positive, got %d", r.Calls)
	}
	if r.InitialPoints < 0 || r.InitialPoints > r.Calls {
		return fmt.Errorf("initial points must be within [0, %d], got %d", r.Calls, r.InitialPoints)
	}
	if r.Evaluate == nil {
		return errors.New("evaluate function is nil")
	}
	for _, d := range r.Dimensions {
		switch d.Kind {
		case Categorical:
			if len(d.Categories) == 0 {
				return fmt.Errorf("dimension %q has no categories", d.Name)
			}
		case Integer, Real:
			if math.IsNaN(d.Low) || math.IsNaN(d.High) || d.Low > d.High {
				return fmt.Errorf("dimension %q has invalid bounds [%g, %g]", d.Name, d.Low, d.High)
			}
		default:
			return fmt.Errorf("dimension %q has unknown kind %d", d.Name, d.Kind)
		}
	}
	for i, obs := range r.History {
		if len(obs.Point) != len(r.Dimensions) {
			return fmt.Errorf("history entry %d has %d coordinates, want %d", i, len(obs.Point), len(r.Dimensions))
		}
	}
	return nil
}
