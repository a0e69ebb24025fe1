package walkforward

import (
	"time"

	"github.com/raykavin/paramwalk/pkg/optimizer"
)

// Sliceable is a time indexed container that can be cut to a date range.
type Sliceable interface {
	// Between returns the rows dated in [first, last], both included.
	Between(first, last time.Time) Sliceable
	Len() int
}

// Dataset maps a key (usually a pair) to its data.
type Dataset map[string]Sliceable

// Between slices every entry to [first, last].
func (d Dataset) Between(first, last time.Time) Dataset {
	out := make(Dataset, len(d))
	for key, data := range d {
		out[key] = data.Between(first, last)
	}
	return out
}

// Len returns the size of the smallest entry.
func (d Dataset) Len() int {
	n, first := 0, true
	for _, data := range d {
		if l := data.Len(); first || l < n {
			n, first = l, false
		}
	}
	return n
}

// ObjectiveFactory builds the raw objective bound to a data slice.
type ObjectiveFactory func(data Dataset) (optimizer.Objective, error)

// Rangeable is implemented by containers whose Between returns their own
// type, such as *core.Dataframe.
type Rangeable[T any] interface {
	Between(first, last time.Time) T
	Len() int
}

// Frame adapts a Rangeable value to Sliceable.
func Frame[T Rangeable[T]](value T) Sliceable {
	return frame[T]{value: value}
}

type frame[T Rangeable[T]] struct {
	value T
}

func (f frame[T]) Between(first, last time.Time) Sliceable {
	return frame[T]{value: f.value.Between(first, last)}
}

func (f frame[T]) Len() int { return f.value.Len() }

func (f frame[T]) unwrap() any { return f.value }

// Value extracts the container behind a Sliceable, looking through Frame.
func Value[T any](data Sliceable) (T, bool) {
	if f, ok := data.(interface{ unwrap() any }); ok {
		value, ok := f.unwrap().(T)
		return value, ok
	}
	value, ok := data.(T)
	return value, ok
}
