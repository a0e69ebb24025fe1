package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/exp/constraints"
)

// Kind distinguishes integer ranges from continuous ones.
type Kind int

const (
	// KindInteger ranges are sampled over whole numbers, both bounds included
	KindInteger Kind = iota
	// KindReal ranges are sampled continuously
	KindReal
)

func (k Kind) String() string {
	if k == KindInteger {
		return "integer"
	}
	return "real"
}

// Domain is the set of values a single parameter may take. It is either an
// Enumerated list or a bounded Range; the variant is fixed when the space is
// declared.
type Domain interface {
	fmt.Stringer
	domain()
}

// Enumerated lists every admissible value of a parameter, in order.
type Enumerated struct {
	Values []any
}

func (Enumerated) domain() {}

func (e Enumerated) String() string {
	return fmt.Sprintf("enum%v", e.Values)
}

// Range is a closed numeric interval.
type Range struct {
	Low  float64
	High float64
	Kind Kind
}

func (Range) domain() {}

func (r Range) String() string {
	if r.Kind == KindInteger {
		return fmt.Sprintf("int[%d, %d]", int(r.Low), int(r.High))
	}
	return fmt.Sprintf("real[%g, %g]", r.Low, r.High)
}

// Values builds an Enumerated domain from typed values.
func Values[T any](values ...T) Enumerated {
	return Enumerated{Values: lo.Map(values, func(v T, _ int) any { return v })}
}

// IntRange builds an integer Range with both bounds included.
func IntRange[T constraints.Integer](low, high T) Range {
	return Range{Low: float64(low), High: float64(high), Kind: KindInteger}
}

// RealRange builds a continuous Range.
func RealRange[T constraints.Float](low, high T) Range {
	return Range{Low: float64(low), High: float64(high), Kind: KindReal}
}

// Dimension is a named entry of a ParameterSpace.
type Dimension struct {
	Name   string
	Domain Domain
}

// Param is shorthand for declaring a Dimension.
func Param(name string, domain Domain) Dimension {
	return Dimension{Name: name, Domain: domain}
}

// ParameterSpace is an ordered list of parameter domains. Declaration order
// determines the grid enumeration order.
type ParameterSpace struct {
	dims []Dimension
}

// NewParameterSpace validates and returns a space over the given dimensions.
func NewParameterSpace(dims ...Dimension) (ParameterSpace, error) {
	space := ParameterSpace{dims: append([]Dimension(nil), dims...)}
	if err := space.Validate(); err != nil {
		return ParameterSpace{}, err
	}
	return space, nil
}

// MustParameterSpace is like NewParameterSpace but panics on an invalid space.
func MustParameterSpace(dims ...Dimension) ParameterSpace {
	space, err := NewParameterSpace(dims...)
	if err != nil {
		panic(err)
	}
	return space
}

// Dimensions returns a copy of the declared dimensions.
func (s ParameterSpace) Dimensions() []Dimension {
	return append([]Dimension(nil), s.dims...)
}

// Names returns parameter names in declaration order.
func (s ParameterSpace) Names() []string {
	return lo.Map(s.dims, func(d Dimension, _ int) string { return d.Name })
}

// Len returns the number of parameters.
func (s ParameterSpace) Len() int { return len(s.dims) }

// IsEnumerated reports whether every parameter is Enumerated, which grid
// search requires.
func (s ParameterSpace) IsEnumerated() bool {
	if len(s.dims) == 0 {
		return false
	}
	return lo.EveryBy(s.dims, func(d Dimension) bool {
		_, ok := d.Domain.(Enumerated)
		return ok
	})
}

// Size returns the cartesian product cardinality of an enumerated space, or 0
// if any parameter is a Range.
func (s ParameterSpace) Size() int {
	if !s.IsEnumerated() {
		return 0
	}
	size := 1
	for _, d := range s.dims {
		size *= len(d.Domain.(Enumerated).Values)
	}
	return size
}

// Validate checks that the space is well formed.
func (s ParameterSpace) Validate() error {
	if len(s.dims) == 0 {
		return fmt.Errorf("%w: no parameters declared", ErrInvalidParameterSpace)
	}

	seen := make(map[string]bool, len(s.dims))
	for _, d := range s.dims {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("%w: parameter with empty name", ErrInvalidParameterSpace)
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate parameter %q", ErrInvalidParameterSpace, d.Name)
		}
		seen[d.Name] = true

		switch domain := d.Domain.(type) {
		case Enumerated:
			if len(domain.Values) == 0 {
				return fmt.Errorf("%w: parameter %q has no values", ErrInvalidParameterSpace, d.Name)
			}
		case Range:
			if math.IsNaN(domain.Low) || math.IsNaN(domain.High) ||
				math.IsInf(domain.Low, 0) || math.IsInf(domain.High, 0) {
				return fmt.Errorf("%w: parameter %q has non-finite bounds", ErrInvalidParameterSpace, d.Name)
			}
			if domain.Low > domain.High {
				return fmt.Errorf("%w: parameter %q has low %g above high %g",
					ErrInvalidParameterSpace, d.Name, domain.Low, domain.High)
			}
			if domain.Kind == KindInteger && (domain.Low != math.Trunc(domain.Low) || domain.High != math.Trunc(domain.High)) {
				return fmt.Errorf("%w: integer parameter %q has fractional bounds", ErrInvalidParameterSpace, d.Name)
			}
		case nil:
			return fmt.Errorf("%w: parameter %q has no domain", ErrInvalidParameterSpace, d.Name)
		default:
			return fmt.Errorf("%w: parameter %q has unsupported domain %T", ErrInvalidParameterSpace, d.Name, d.Domain)
		}
	}
	return nil
}

// Contains checks that params assigns every parameter a value inside its domain.
func (s ParameterSpace) Contains(params ParameterSet) error {
	for _, d := range s.dims {
		value, ok := params[d.Name]
		if !ok {
			return fmt.Errorf("missing parameter: %s", d.Name)
		}

		switch domain := d.Domain.(type) {
		case Enumerated:
			if !lo.Contains(domain.Values, value) {
				return fmt.Errorf("parameter %s has invalid value %v", d.Name, value)
			}
		case Range:
			f, err := params.Float(d.Name)
			if err != nil {
				return err
			}
			if f < domain.Low || f > domain.High {
				return fmt.Errorf("parameter %s value %v outside %s", d.Name, value, domain)
			}
		}
	}
	return nil
}

// Grid returns the cartesian product of an enumerated space. The first
// parameter varies slowest.
func (s ParameterSpace) Grid() ([]ParameterSet, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !s.IsEnumerated() {
		return nil, fmt.Errorf("%w: grid search requires enumerated values for every parameter", ErrInvalidParameterSpace)
	}

	sets := []ParameterSet{{}}
	for _, d := range s.dims {
		values := d.Domain.(Enumerated).Values
		next := make([]ParameterSet, 0, len(sets)*len(values))
		for _, partial := range sets {
			for _, value := range values {
				set := partial.Clone()
				set[d.Name] = value
				next = append(next, set)
			}
		}
		sets = next
	}
	return sets, nil
}

// Sample draws one parameter set uniformly from the space.
func (s ParameterSpace) Sample(rng *rand.Rand) ParameterSet {
	params := make(ParameterSet, len(s.dims))
	for _, d := range s.dims {
		params[d.Name] = sampleDomain(d.Domain, rng)
	}
	return params
}

// SampleN draws n independent parameter sets.
func (s ParameterSpace) SampleN(n int, rng *rand.Rand) []ParameterSet {
	if n <= 0 {
		return nil
	}
	sets := make([]ParameterSet, n)
	for i := range sets {
		sets[i] = s.Sample(rng)
	}
	return sets
}

func sampleDomain(domain Domain, rng *rand.Rand) any {
	switch d := domain.(type) {
	case Enumerated:
		return d.Values[rng.Intn(len(d.Values))]
	case Range:
		if d.Kind == KindInteger {
			low, high := int(d.Low), int(d.High)
			return low + rng.Intn(high-low+1)
		}
		return d.Low + rng.Float64()*(d.High-d.Low)
	}
	return nil
}
