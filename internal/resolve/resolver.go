// internal/resolve/resolver.go
package resolve

import (
	"errors"
	"fmt"

	"github.com/tamzrod/solaredge-bridge/internal/calc"
	"github.com/tamzrod/solaredge-bridge/internal/schema"
)

// ErrMissingField means the value map lacks a key the schema expects.
// It points at a schema/protocol mismatch, not a transient fault.
var ErrMissingField = errors.New("resolve: missing field")

// Result is the resolved value of one row.
type Result struct {
	// Value is the primary value: float64, or string for lookups.
	Value any
	// Stored is the formatted string written to the registry.
	Stored string
}

// Resolver turns schema rows and raw value maps into registry values.
// Calculator state lives in the store, keyed by registry id.
type Resolver struct {
	store *calc.Store
	math  bool
}

// New creates a resolver. When math is false, row calculators are ignored
// and values fall through to scaling or raw copy.
func New(store *calc.Store, math bool) *Resolver {
	return &Resolver{store: store, math: math}
}

// Resolve resolves a single row against values.
func (r *Resolver) Resolve(s *schema.Schema, offset int, row schema.Row, values schema.Values) (Result, error) {
	return r.Begin(s, offset, values).Resolve(row)
}

// Begin starts resolving one unit's rows for one poll.
func (r *Resolver) Begin(s *schema.Schema, offset int, values schema.Values) *Pass {
	return &Pass{
		r:      r,
		schema: s,
		offset: offset,
		values: values,
		done:   make(map[int]Result),
		busy:   make(map[int]bool),
	}
}

// Pass memoizes resolved rows by field id, so a row referenced by a
// composition is resolved (and its calculator fed) once per poll.
type Pass struct {
	r      *Resolver
	schema *schema.Schema
	offset int
	values schema.Values

	done map[int]Result
	busy map[int]bool
}

// Resolve returns the value of row, resolving composition references first.
func (p *Pass) Resolve(row schema.Row) (Result, error) {
	if res, ok := p.done[row.FieldID]; ok {
		return res, nil
	}
	if p.busy[row.FieldID] {
		return Result{}, fmt.Errorf("resolve: field %d composes with itself", row.FieldID)
	}
	p.busy[row.FieldID] = true
	defer delete(p.busy, row.FieldID)

	raw, ok := p.values[row.Source]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q (field %d)", ErrMissingField, row.Source, row.FieldID)
	}

	exp := 0
	if row.Scale != "" {
		v, ok := p.values[row.Scale]
		if !ok {
			return Result{}, fmt.Errorf("%w: %q (scale of field %d)", ErrMissingField, row.Scale, row.FieldID)
		}
		exp = int(v)
	}

	primary, err := p.primary(row, raw, exp)
	if err != nil {
		return Result{}, err
	}

	stored, err := p.compose(row, primary, raw, exp)
	if err != nil {
		return Result{}, err
	}

	res := Result{Value: primary, Stored: stored}
	p.done[row.FieldID] = res
	return res, nil
}

// primary applies lookup, calculator, scaling or raw copy, in that order.
func (p *Pass) primary(row schema.Row, raw float64, exp int) (any, error) {
	if row.Lookup != nil {
		idx := int(raw)
		if idx >= 0 && idx < len(row.Lookup) {
			return row.Lookup[idx], nil
		}
		return fmt.Sprintf("Key not found in lookup table: %d", idx), nil
	}

	if row.Calc != nil && p.r.math {
		return p.calculate(row.FieldID, calc.SlotPrimary, *row.Calc, raw, exp)
	}

	if row.Scale != "" {
		return calc.Scale(raw, exp), nil
	}

	return raw, nil
}

func (p *Pass) compose(row schema.Row, primary any, raw float64, exp int) (string, error) {
	switch row.Compose.Kind {
	case schema.ComposeNone:
		return render(row.Format, primary), nil

	case schema.ComposePrependRow:
		other, ok := p.schema.Row(row.Compose.FieldID)
		if !ok {
			return "", fmt.Errorf(
				"resolve: field %d prepends field %d which is not in schema %s",
				row.FieldID,
				row.Compose.FieldID,
				p.schema.Name,
			)
		}
		res, err := p.Resolve(other)
		if err != nil {
			return "", err
		}
		return render(row.Format, res.Stored, primary), nil

	case schema.ComposePrependCalc, schema.ComposeAppendCalc:
		second, err := p.calculate(row.FieldID, calc.SlotCompose, row.Compose.Calc, raw, exp)
		if err != nil {
			return "", err
		}
		if row.Compose.Kind == schema.ComposePrependCalc {
			return render(row.Format, second, primary), nil
		}
		return render(row.Format, primary, second), nil

	default:
		return "", fmt.Errorf("resolve: field %d has unknown compose kind %d", row.FieldID, row.Compose.Kind)
	}
}

func (p *Pass) calculate(fieldID int, slot calc.Slot, spec calc.Spec, raw float64, exp int) (float64, error) {
	if !spec.Stateful() {
		return spec.Threshold().Resolve(calc.Scale(raw, exp)), nil
	}

	c, err := p.r.store.For(fieldID+p.offset, slot, spec)
	if err != nil {
		return 0, err
	}
	c.Update(raw, exp)
	return c.Get()
}
