package surrogate

import (
	"fmt"
	"math"
	"math/rand"
)

// encode maps a point onto the unit hypercube.
func encode(dims []Dimension, point []any) ([]float64, error) {
	u := make([]float64, len(dims))
	for i, d := range dims {
		switch d.Kind {
		case Categorical:
			idx := -1
			for j, c := range d.Categories {
				if c == point[i] {
					idx = j
					break
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("value %v is not a category of %q", point[i], d.Name)
			}
			if len(d.Categories) > 1 {
				u[i] = float64(idx) / float64(len(d.Categories)-1)
			}
		default:
			v, err := toFloat(point[i])
			if err != nil {
				return nil, fmt.Errorf("dimension %q: %w", d.Name, err)
			}
			if d.High > d.Low {
				u[i] = clamp01((v - d.Low) / (d.High - d.Low))
			}
		}
	}
	return u, nil
}

// decode maps a unit hypercube coordinate back to a point.
func decode(dims []Dimension, u []float64) []any {
	point := make([]any, len(dims))
	for i, d := range dims {
		x := clamp01(u[i])
		switch d.Kind {
		case Categorical:
			idx := int(math.Round(x * float64(len(d.Categories)-1)))
			point[i] = d.Categories[idx]
		case Integer:
			v := int(math.Round(d.Low + x*(d.High-d.Low)))
			point[i] = min(max(v, int(d.Low)), int(d.High))
		default:
			point[i] = d.Low + x*(d.High-d.Low)
		}
	}
	return point
}

// latinHypercube draws n points so that every dimension has exactly one
// point in each of n equal strata.
func latinHypercube(n, dims int, rng *rand.Rand) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, dims)
	}
	for d := 0; d < dims; d++ {
		perm := rng.Perm(n)
		for i := range points {
			points[i][d] = (float64(perm[i]) + rng.Float64()) / float64(n)
		}
	}
	return points
}

func randomPoint(dims int, rng *rand.Rand) []float64 {
	u := make([]float64, dims)
	for i := range u {
		u[i] = rng.Float64()
	}
	return u
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("value %v of type %T is not numeric", v, v)
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
