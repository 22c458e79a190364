// internal/writer/types.go
package writer

// Stats counts the outcome of one Publish.
type Stats struct {
	Considered int
	Updated    int
}

// Add accumulates s into a running total.
func (s *Stats) Add(o Stats) {
	s.Considered += o.Considered
	s.Updated += o.Updated
}

// ReconcileStats counts the outcome of one Reconcile.
type ReconcileStats struct {
	Created int
	Updated int
	// Missing counts absent entries left alone because creation is disabled.
	Missing int
}
