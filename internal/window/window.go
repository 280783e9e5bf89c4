package window

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// DefaultCapacity is the number of samples kept per plotted channel
const DefaultCapacity = 100

// Number is the set of sample types a Window can hold
type Number interface {
	constraints.Integer | constraints.Float
}

// Window is a fixed capacity sliding window over numeric samples. It is
// pre-filled with the zero value, so it always holds exactly Capacity samples:
// every Append discards the oldest one.
//
// Window is not safe for concurrent use; callers sharing a Window between
// goroutines must synchronize access themselves.
type Window[T Number] struct {
	samples []T
	head    int // index of the oldest sample
}

// New creates a new Window holding capacity zero samples.
// Returns an error if capacity is not positive.
func New[T Number](capacity int) (*Window[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid window capacity: %d", capacity)
	}
	return &Window[T]{samples: make([]T, capacity)}, nil
}

// Append discards the oldest sample and stores v as the newest one.
// Any value is accepted, including NaN.
func (w *Window[T]) Append(v T) {
	w.samples[w.head] = v
	w.head++
	if w.head == len(w.samples) {
		w.head = 0
	}
}

// Values returns a copy of the samples ordered oldest-first
func (w *Window[T]) Values() []T {
	out := make([]T, 0, len(w.samples))
	out = append(out, w.samples[w.head:]...)
	return append(out, w.samples[:w.head]...)
}

// Last returns the newest sample
func (w *Window[T]) Last() T {
	if w.head == 0 {
		return w.samples[len(w.samples)-1]
	}
	return w.samples[w.head-1]
}

// Capacity returns the fixed number of samples held by the window
func (w *Window[T]) Capacity() int {
	return len(w.samples)
}

// Reset refills the window with zero samples
func (w *Window[T]) Reset() {
	clear(w.samples)
	w.head = 0
}
