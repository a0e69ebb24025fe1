package surrogate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Options tunes the Gaussian process optimizer.
type Options struct {
	// LengthScale of the RBF kernel, in unit hypercube coordinates.
	LengthScale float64
	// Noise added to the kernel diagonal.
	Noise float64
	// Candidates is the number of random points scored by the acquisition
	// function at each step.
	Candidates int
	// Xi is the minimum improvement used by EI and PI.
	Xi float64
	// Kappa weights the standard deviation in LCB.
	Kappa float64
}

// DefaultOptions returns options suited to a handful of dimensions.
func DefaultOptions() Options {
	return Options{
		LengthScale: 0.25,
		Noise:       1e-6,
		Candidates:  512,
		Xi:          0.01,
		Kappa:       1.96,
	}
}

// GaussianProcess is an Optimizer backed by a Gaussian process regression
// with an RBF kernel.
type GaussianProcess struct {
	opts Options
}

// NewGaussianProcess creates a Gaussian process optimizer.
func NewGaussianProcess(opts Options) *GaussianProcess {
	def := DefaultOptions()
	if opts.LengthScale <= 0 {
		opts.LengthScale = def.LengthScale
	}
	if opts.Noise <= 0 {
		opts.Noise = def.Noise
	}
	if opts.Candidates <= 0 {
		opts.Candidates = def.Candidates
	}
	if opts.Kappa <= 0 {
		opts.Kappa = def.Kappa
	}
	return &GaussianProcess{opts: opts}
}

// Run implements Optimizer.
func (g *GaussianProcess) Run(ctx context.Context, req Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid surrogate request: %w", err)
	}

	rng := rand.New(rand.NewSource(req.Seed))
	model := &gaussianProcess{lengthScale: g.opts.LengthScale, noise: g.opts.Noise}

	for _, obs := range req.History {
		u, err := encode(req.Dimensions, obs.Point)
		if err != nil {
			return nil, fmt.Errorf("invalid surrogate history: %w", err)
		}
		model.add(u, obs.Score)
	}

	initial := latinHypercube(req.InitialPoints, len(req.Dimensions), rng)
	resp := &Response{
		Points: make([][]any, 0, req.Calls),
		Scores: make([]float64, 0, req.Calls),
	}

	for call := 0; call < req.Calls; call++ {
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		var u []float64
		if call < len(initial) {
			u = initial[call]
		} else {
			u = g.propose(model, len(req.Dimensions), req.Acquisition, rng)
		}

		point := decode(req.Dimensions, u)
		score, err := req.Evaluate(ctx, point)
		if err == nil && math.IsNaN(score) {
			err = errors.New("score is NaN")
		}
		if err != nil {
			return resp, &EvaluationError{Call: call, Point: point, Err: err}
		}

		resp.Points = append(resp.Points, point)
		resp.Scores = append(resp.Scores, score)

		// Re-encode so rounded integer and categorical values match what was evaluated.
		encoded, _ := encode(req.Dimensions, point)
		model.add(encoded, score)
	}

	return resp, nil
}

// propose returns the candidate with the best acquisition value.
func (g *GaussianProcess) propose(model *gaussianProcess, dims int, acquisition Acquisition, rng *rand.Rand) []float64 {
	if len(model.x) == 0 || !model.fit() {
		return randomPoint(dims, rng)
	}

	best := model.bestY()
	var (
		chosen    []float64
		bestValue = math.Inf(-1)
	)
	for i := 0; i < g.opts.Candidates; i++ {
		candidate := randomPoint(dims, rng)
		mean, variance := model.predict(candidate)
		value := g.acquire(acquisition, mean, variance, best)
		if value > bestValue {
			bestValue = value
			chosen = candidate
		}
	}
	if chosen == nil {
		return randomPoint(dims, rng)
	}
	return chosen
}

// acquire scores a candidate; higher is better for every acquisition kind.
func (g *GaussianProcess) acquire(acquisition Acquisition, mean, variance, best float64) float64 {
	sigma := math.Sqrt(variance)
	improvement := best - mean - g.opts.Xi

	switch acquisition {
	case ProbabilityOfImprovement:
		if sigma == 0 {
			if improvement > 0 {
				return 1
			}
			return 0
		}
		return distuv.UnitNormal.CDF(improvement / sigma)
	case LowerConfidenceBound:
		return -(mean - g.opts.Kappa*sigma)
	default:
		if sigma == 0 {
			return math.Max(improvement, 0)
		}
		z := improvement / sigma
		return improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
	}
}

// gaussianProcess is a zero mean GP over standardized observations.
type gaussianProcess struct {
	lengthScale float64
	noise       float64

	x [][]float64
	y []float64

	yMean, yStd float64
	chol        mat.Cholesky
	alpha       *mat.VecDense
}

func (gp *gaussianProcess) add(x []float64, y float64) {
	gp.x = append(gp.x, x)
	gp.y = append(gp.y, y)
}

func (gp *gaussianProcess) bestY() float64 {
	best := math.Inf(1)
	for _, y := range gp.y {
		best = math.Min(best, y)
	}
	return best
}

func (gp *gaussianProcess) kernel(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Exp(-sum / (2 * gp.lengthScale * gp.lengthScale))
}

// fit factorizes the kernel matrix, adding jitter until it is positive
// definite. It reports false if that never happens.
func (gp *gaussianProcess) fit() bool {
	n := len(gp.x)
	gp.yMean, gp.yStd = stat.MeanStdDev(gp.y, nil)
	if n < 2 || gp.yStd == 0 || math.IsNaN(gp.yStd) {
		gp.yStd = 1
	}

	normalized := make([]float64, n)
	for i, y := range gp.y {
		normalized[i] = (y - gp.yMean) / gp.yStd
	}

	jitter := gp.noise
	for attempt := 0; attempt < 6; attempt++ {
		k := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := gp.kernel(gp.x[i], gp.x[j])
				if i == j {
					v += jitter
				}
				k.SetSym(i, j, v)
			}
		}

		if gp.chol.Factorize(k) {
			gp.alpha = mat.NewVecDense(n, nil)
			if err := gp.chol.SolveVecTo(gp.alpha, mat.NewVecDense(n, normalized)); usable(err) {
				return true
			}
		}
		jitter *= 10
	}
	return false
}

// predict returns the posterior mean and variance at x in score units.
func (gp *gaussianProcess) predict(x []float64) (float64, float64) {
	n := len(gp.x)
	k := mat.NewVecDense(n, nil)
	for i := range gp.x {
		k.SetVec(i, gp.kernel(x, gp.x[i]))
	}

	mean := mat.Dot(k, gp.alpha)

	v := mat.NewVecDense(n, nil)
	variance := 1.0
	if err := gp.chol.SolveVecTo(v, k); usable(err) {
		variance -= mat.Dot(k, v)
	}
	variance = math.Max(variance, 1e-12)

	return mean*gp.yStd + gp.yMean, variance * gp.yStd * gp.yStd
}

// usable accepts results of ill-conditioned solves, which gonum still computes.
func usable(err error) bool {
	var cond mat.Condition
	return err == nil || errors.As(err, &cond)
}
