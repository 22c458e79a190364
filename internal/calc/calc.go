// internal/calc/calc.go
package calc

import (
	"errors"
	"math"
	"time"
)

// ErrEmpty is returned by Get on a window that has not seen a sample yet.
var ErrEmpty = errors.New("calc: no samples")

// Kind selects the calculator implementation.
type Kind int

const (
	Average Kind = iota + 1
	Maximum
	Delta
	Above
)

func (k Kind) String() string {
	switch k {
	case Average:
		return "average"
	case Maximum:
		return "maximum"
	case Delta:
		return "delta"
	case Above:
		return "above"
	default:
		return "unknown"
	}
}

// Spec is the immutable part of a calculator as declared in a schema row.
// Multiplier and Floor are only used by Above.
type Spec struct {
	Kind       Kind
	Multiplier float64
	Floor      float64
}

// Stateful reports whether the calculator keeps samples between polls.
func (s Spec) Stateful() bool {
	return s.Kind == Average || s.Kind == Maximum || s.Kind == Delta
}

// Threshold returns the pure function configured by an Above spec.
func (s Spec) Threshold() Threshold {
	return Threshold{Multiplier: s.Multiplier, Floor: s.Floor}
}

// Calculator aggregates scaled samples across polls.
type Calculator interface {
	Update(raw float64, exp int)
	Get() (float64, error)
}

// Scale returns raw * 10^exp. Negative exponents divide so that
// decimal fixed-point values come out exact (150, -1 -> 15).
func Scale(raw float64, exp int) float64 {
	if exp < 0 {
		return raw / math.Pow10(-exp)
	}
	return raw * math.Pow10(exp)
}

// CapacityFor sizes sliding windows to cover five minutes of polls.
func CapacityFor(interval time.Duration) int {
	if interval <= 0 {
		return 1
	}
	n := int((300 * time.Second) / interval)
	if n < 1 {
		return 1
	}
	return n
}

// ---- WINDOW (Average / Maximum) ----

// Window is a bounded buffer of scaled samples.
type Window struct {
	kind     Kind
	capacity int
	samples  []float64
}

// NewWindow builds an Average or Maximum window. Capacity below 1 is raised to 1.
func NewWindow(kind Kind, capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		kind:     kind,
		capacity: capacity,
		samples:  make([]float64, 0, capacity),
	}
}

func (w *Window) Update(raw float64, exp int) {
	w.samples = append(w.samples, Scale(raw, exp))
	for len(w.samples) > w.capacity {
		w.samples = w.samples[1:]
	}
}

func (w *Window) Get() (float64, error) {
	if len(w.samples) == 0 {
		return 0, ErrEmpty
	}

	if w.kind == Maximum {
		max := w.samples[0]
		for _, v := range w.samples[1:] {
			if v > max {
				max = v
			}
		}
		return max, nil
	}

	var sum float64
	for _, v := range w.samples {
		sum += v
	}
	return sum / float64(len(w.samples)), nil
}

// Samples returns a copy of the buffered samples, oldest first.
func (w *Window) Samples() []float64 {
	out := make([]float64, len(w.samples))
	copy(out, w.samples)
	return out
}

// Capacity returns the configured window size.
func (w *Window) Capacity() int { return w.capacity }

// ---- DELTA ----

// Difference tracks the change between two consecutive samples.
// The first update is measured against an implicit zero.
type Difference struct {
	prev  float64
	delta float64
}

func (d *Difference) Update(raw float64, exp int) {
	v := Scale(raw, exp)
	d.delta = v - d.prev
	d.prev = v
}

func (d *Difference) Get() (float64, error) {
	return d.delta, nil
}

// ---- ABOVE ----

// Threshold passes value*Multiplier through when it reaches Floor and yields zero otherwise.
type Threshold struct {
	Multiplier float64
	Floor      float64
}

func (t Threshold) Resolve(v float64) float64 {
	p := v * t.Multiplier
	if p >= t.Floor {
		return p
	}
	return 0
}
