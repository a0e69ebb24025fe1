package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/paramwalk/internal/telemetry"
	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/raykavin/paramwalk/pkg/metric"
	"github.com/raykavin/paramwalk/pkg/surrogate"
)

// Method names a search algorithm.
type Method string

const (
	MethodGrid     Method = "grid"
	MethodRandom   Method = "random"
	MethodBayesian Method = "bayesian"
)

// Methods lists every supported method.
var Methods = []Method{MethodGrid, MethodRandom, MethodBayesian}

// ParseMethod converts a method name into a Method.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case MethodGrid, MethodRandom, MethodBayesian:
		return m, nil
	default:
		return "", fmt.Errorf("unknown optimization method %q", name)
	}
}

// ParameterSet represents a collection of parameters with specific values
type ParameterSet map[string]any

// Clone returns a shallow copy of the set.
func (ps ParameterSet) Clone() ParameterSet {
	clone := make(ParameterSet, len(ps))
	for name, value := range ps {
		clone[name] = value
	}
	return clone
}

// Names returns the parameter names sorted alphabetically.
func (ps ParameterSet) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Key renders the set in a stable form suitable for grouping and caching.
// Values of different types never share a key, so "1" and 1 stay apart.
func (ps ParameterSet) Key() string {
	var sb strings.Builder
	for i, name := range ps.Names() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(valueKey(ps[name]))
	}
	return sb.String()
}

func (ps ParameterSet) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range ps.Names() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", name, ps[name])
	}
	sb.WriteByte('}')
	return sb.String()
}

// valueKey renders one parameter value with its type. Strings are quoted.
func valueKey(value any) string {
	if text, ok := value.(string); ok {
		return strconv.Quote(text)
	}
	return fmt.Sprintf("%T(%v)", value, value)
}

// Int returns an integer parameter. Integral floats are accepted.
func (ps ParameterSet) Int(name string) (int, error) {
	value, ok := ps[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter: %s", name)
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("parameter %s must be an integer, got %T", name, value)
}

// Float returns a numeric parameter as float64.
func (ps ParameterSet) Float(name string) (float64, error) {
	value, ok := ps[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter: %s", name)
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("parameter %s must be numeric, got %T", name, value)
}

// Text returns a string parameter.
func (ps ParameterSet) Text(name string) (string, error) {
	value, ok := ps[name]
	if !ok {
		return "", fmt.Errorf("missing parameter: %s", name)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string, got %T", name, value)
	}
	return s, nil
}

// Objective scores one parameter set. Implementations are called from
// several goroutines at once unless they report otherwise through
// ConcurrencySafe.
type Objective interface {
	Evaluate(ctx context.Context, params ParameterSet) (float64, error)
}

// ObjectiveFunc adapts a plain function to Objective.
type ObjectiveFunc func(ctx context.Context, params ParameterSet) (float64, error)

func (f ObjectiveFunc) Evaluate(ctx context.Context, params ParameterSet) (float64, error) {
	return f(ctx, params)
}

type concurrencySafe interface {
	ConcurrencySafe() bool
}

// SerialObjective marks obj as unsafe for concurrent use. The executor refuses
// to dispatch it to parallel workers and callers fall back to serial runs.
func SerialObjective(obj Objective) Objective {
	return serialObjective{obj}
}

type serialObjective struct {
	Objective
}

func (serialObjective) ConcurrencySafe() bool { return false }

func isConcurrencySafe(obj Objective) bool {
	if cs, ok := obj.(concurrencySafe); ok {
		return cs.ConcurrencySafe()
	}
	return true
}

// Trial is one evaluation of the objective.
type Trial struct {
	Index      int
	Parameters ParameterSet
	Score      float64 // NaN when the evaluation failed
	Err        error
	Duration   time.Duration
}

// Missing reports whether the trial has no score.
func (t Trial) Missing() bool {
	return t.Err != nil || math.IsNaN(t.Score)
}

// OptimizationResult is the outcome of one optimization call. It is never
// modified after being returned.
type OptimizationResult struct {
	Method         Method
	BestParameters ParameterSet
	BestScore      float64
	TrialCount     int
	Elapsed        time.Duration
	Trials         []Trial
	History        []float64 // running best score, one entry per trial
	Maximize       bool
}

// NewOptimizationResult selects the best trial. The first extremal trial wins
// ties. It fails with ErrAllTrialsFailed when no trial has a score.
func NewOptimizationResult(method Method, trials []Trial, maximize bool, elapsed time.Duration) (*OptimizationResult, error) {
	best := -1
	for i, trial := range trials {
		if trial.Missing() {
			continue
		}
		if best < 0 || better(trial.Score, trials[best].Score, maximize) {
			best = i
		}
	}
	if best < 0 {
		return nil, &AllTrialsFailedError{Method: method, Trials: trials}
	}

	scores := make([]float64, len(trials))
	for i, trial := range trials {
		scores[i] = trial.Score
	}

	return &OptimizationResult{
		Method:         method,
		BestParameters: trials[best].Parameters.Clone(),
		BestScore:      trials[best].Score,
		TrialCount:     len(trials),
		Elapsed:        elapsed,
		Trials:         trials,
		History:        metric.RunningBest(scores, maximize),
		Maximize:       maximize,
	}, nil
}

// FailedTrials returns the number of trials without a score.
func (r *OptimizationResult) FailedTrials() int {
	failed := 0
	for _, trial := range r.Trials {
		if trial.Missing() {
			failed++
		}
	}
	return failed
}

func better(candidate, current float64, maximize bool) bool {
	if maximize {
		return candidate > current
	}
	return candidate < current
}

// Optimizer finds the best parameter set for an objective. The walk-forward
// validator accepts any implementation.
type Optimizer interface {
	Optimize(ctx context.Context, objective Objective, space ParameterSpace, opts ...OptimizeOption) (*OptimizationResult, error)
}

// Config holds configuration shared by every search method
type Config struct {
	// Number of parallel evaluations, values <= 1 run inline
	Workers int
	// Number of random samples
	Iterations int
	// Number of bayesian objective calls
	TotalCalls int
	// Number of space filling points before the surrogate is used
	InitialPoints int
	// Acquisition function used by the surrogate
	Acquisition surrogate.Acquisition
	// Random seed, 0 picks a time based seed
	Seed int64
	// Whether to maximize (true) or minimize (false) the score
	Maximize bool
	// Log every trial at debug level
	Debug bool
	// Render a progress bar during serial grid search
	ShowProgress bool
	// Builds the surrogate used by bayesian search
	SurrogateFactory surrogate.Factory
	// Logger instance
	Logger logger.Logger
	// Metrics recorder, nil disables metrics
	Telemetry *telemetry.Recorder
}

// NewConfig creates a default configuration
func NewConfig() *Config {
	return &Config{
		Workers:          1,
		Iterations:       100,
		TotalCalls:       50,
		InitialPoints:    10,
		Acquisition:      surrogate.ExpectedImprovement,
		Maximize:         true,
		SurrogateFactory: surrogate.DefaultFactory,
	}
}

// WithWorkers sets the number of parallel evaluations
func (c *Config) WithWorkers(n int) *Config {
	c.Workers = n
	return c
}

// WithIterations sets the number of random search samples
func (c *Config) WithIterations(n int) *Config {
	c.Iterations = n
	return c
}

// WithTotalCalls sets the number of bayesian evaluations and initial points
func (c *Config) WithTotalCalls(calls, initialPoints int) *Config {
	c.TotalCalls = calls
	c.InitialPoints = initialPoints
	return c
}

// WithAcquisition sets the bayesian acquisition function
func (c *Config) WithAcquisition(acquisition surrogate.Acquisition) *Config {
	c.Acquisition = acquisition
	return c
}

// WithSeed sets the random seed
func (c *Config) WithSeed(seed int64) *Config {
	c.Seed = seed
	return c
}

// WithMaximize sets the default optimization direction
func (c *Config) WithMaximize(maximize bool) *Config {
	c.Maximize = maximize
	return c
}

// WithDebug enables per trial logging
func (c *Config) WithDebug(debug bool) *Config {
	c.Debug = debug
	return c
}

// WithProgress enables the serial progress bar
func (c *Config) WithProgress(show bool) *Config {
	c.ShowProgress = show
	return c
}

// WithSurrogateFactory sets the surrogate used by bayesian search
func (c *Config) WithSurrogateFactory(factory surrogate.Factory) *Config {
	c.SurrogateFactory = factory
	return c
}

// WithLogger sets the logger
func (c *Config) WithLogger(log logger.Logger) *Config {
	c.Logger = log
	return c
}

// WithTelemetry sets the metrics recorder
func (c *Config) WithTelemetry(recorder *telemetry.Recorder) *Config {
	c.Telemetry = recorder
	return c
}

func (c *Config) seed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}
