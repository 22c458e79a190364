// internal/calc/store.go
package calc

import "fmt"

// Slot separates the calculators that can hang off one registry id.
type Slot int

const (
	SlotPrimary Slot = iota
	SlotCompose
)

type key struct {
	id   int
	slot Slot
}

// Store owns calculator state for the process, keyed by registry id.
// Schemas only carry Specs; the samples live here.
type Store struct {
	capacity int
	calcs    map[key]Calculator
}

// NewStore creates an empty store. Capacity is fixed for the store lifetime.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		calcs:    make(map[key]Calculator),
	}
}

// Capacity returns the window size applied to Average and Maximum calculators.
func (s *Store) Capacity() int { return s.capacity }

// For returns the calculator for (id, slot), creating it from spec on first use.
func (s *Store) For(id int, slot Slot, spec Spec) (Calculator, error) {
	k := key{id: id, slot: slot}
	if c, ok := s.calcs[k]; ok {
		return c, nil
	}

	var c Calculator
	switch spec.Kind {
	case Average, Maximum:
		c = NewWindow(spec.Kind, s.capacity)
	case Delta:
		c = &Difference{}
	default:
		return nil, fmt.Errorf("calc: %s calculator keeps no state", spec.Kind)
	}

	s.calcs[k] = c
	return c, nil
}

// Len reports how many calculators have been materialized.
func (s *Store) Len() int { return len(s.calcs) }
