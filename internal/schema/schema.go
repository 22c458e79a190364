// internal/schema/schema.go
package schema

import (
	"fmt"
	"strings"
)

// Schema is the ordered set of rows for one physical unit variant.
// Schemas are built at package init and never mutated.
type Schema struct {
	Name string
	Rows []Row
}

// Row returns the row with the given field id.
func (s *Schema) Row(fieldID int) (Row, bool) {
	for _, r := range s.Rows {
		if r.FieldID == fieldID {
			return r, true
		}
	}
	return Row{}, false
}

// MaxFieldID returns the highest field id in the schema.
func (s *Schema) MaxFieldID() int {
	max := 0
	for _, r := range s.Rows {
		if r.FieldID > max {
			max = r.FieldID
		}
	}
	return max
}

// Check verifies table consistency: unique positive field ids and
// prepend references that point at an earlier row.
func (s *Schema) Check() error {
	seen := make(map[int]bool, len(s.Rows))

	for _, r := range s.Rows {
		if r.FieldID <= 0 {
			return fmt.Errorf("schema %s: row %q has field id %d", s.Name, r.Name, r.FieldID)
		}
		if seen[r.FieldID] {
			return fmt.Errorf("schema %s: duplicate field id %d", s.Name, r.FieldID)
		}
		if r.Source == "" {
			return fmt.Errorf("schema %s: field %d has no source", s.Name, r.FieldID)
		}
		want := 1
		if r.Compose.Kind != ComposeNone {
			want = 2
		}
		if got := verbs(r.Format); got != want {
			return fmt.Errorf("schema %s: field %d format %q takes %d values, want %d", s.Name, r.FieldID, r.Format, got, want)
		}
		if r.Compose.Kind == ComposePrependRow && !seen[r.Compose.FieldID] {
			return fmt.Errorf(
				"schema %s: field %d prepends field %d which is not an earlier row",
				s.Name,
				r.FieldID,
				r.Compose.FieldID,
			)
		}
		seen[r.FieldID] = true
	}

	return nil
}

// MaxFieldID returns the highest field id across several schemas.
func MaxFieldID(schemas ...*Schema) int {
	max := 0
	for _, s := range schemas {
		if m := s.MaxFieldID(); m > max {
			max = m
		}
	}
	return max
}

func verbs(f Format) int {
	return strings.Count(string(f), "%") - 2*strings.Count(string(f), "%%")
}

func pick(name string, rows []Row, ids ...int) *Schema {
	s := &Schema{Name: name, Rows: make([]Row, 0, len(ids))}
	for _, id := range ids {
		for _, r := range rows {
			if r.FieldID == id {
				s.Rows = append(s.Rows, r)
				break
			}
		}
	}
	return s
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
