// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"

	"github.com/tamzrod/solaredge-bridge/internal/registry"
	"github.com/tamzrod/solaredge-bridge/internal/resolve"
	"github.com/tamzrod/solaredge-bridge/internal/schema"
)

// Writer keeps the registry in line with schemas and resolved values.
// It writes only what changed.
type Writer struct {
	reg        registry.Registry
	res        *resolve.Resolver
	addMissing bool
}

// New creates a writer. addMissing allows Reconcile to create entries.
func New(reg registry.Registry, res *resolve.Resolver, addMissing bool) *Writer {
	return &Writer{
		reg:        reg,
		res:        res,
		addMissing: addMissing,
	}
}

// Reconcile walks a schema against the registry.
// Missing entries are created when allowed. Entries whose descriptor drifted
// from the schema get the new descriptor and keep their stored value.
// label prefixes the display name of created entries when not empty.
func (w *Writer) Reconcile(label string, s *schema.Schema, offset int) (ReconcileStats, error) {
	var stats ReconcileStats
	var errs []error

	for _, row := range s.Rows {
		id := row.FieldID + offset

		e, err := w.reg.Get(id)
		switch {
		case errors.Is(err, registry.ErrNotFound):
			if !w.addMissing {
				stats.Missing++
				continue
			}
			if err := w.reg.Create(id, displayName(label, row.Name), row.Descriptor); err != nil {
				errs = append(errs, fmt.Errorf("writer: create %d: %w", id, err))
				continue
			}
			stats.Created++

		case err != nil:
			errs = append(errs, fmt.Errorf("writer: get %d: %w", id, err))

		case !e.Descriptor.Equal(row.Descriptor):
			if err := w.reg.Update(id, row.Descriptor, e.Value); err != nil {
				errs = append(errs, fmt.Errorf("writer: update descriptor %d: %w", id, err))
				continue
			}
			stats.Updated++
		}
	}

	return stats, errors.Join(errs...)
}

// Publish resolves every row that has a registry entry and writes the
// stored string when it differs from the current one. Rows without an
// entry are skipped and never recreated here.
// A resolve error aborts the walk: it means the schema does not fit the values.
func (w *Writer) Publish(s *schema.Schema, offset int, values schema.Values) (Stats, error) {
	var stats Stats
	pass := w.res.Begin(s, offset, values)

	for _, row := range s.Rows {
		id := row.FieldID + offset

		e, err := w.reg.Get(id)
		if errors.Is(err, registry.ErrNotFound) {
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("writer: get %d: %w", id, err)
		}

		res, err := pass.Resolve(row)
		if err != nil {
			return stats, err
		}
		stats.Considered++

		if res.Stored == e.Value {
			continue
		}

		err = w.reg.Update(id, e.Descriptor, res.Stored)
		if errors.Is(err, registry.ErrNotFound) {
			// deleted since the Get
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("writer: update %d: %w", id, err)
		}
		stats.Updated++
	}

	return stats, nil
}

func displayName(label, name string) string {
	if label == "" {
		return name
	}
	return label + " " + name
}
