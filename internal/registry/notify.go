// internal/registry/notify.go
package registry

import "fmt"

// Listener is told about every successful structural or value write.
type Listener interface {
	EntryCreated(id int, name string, d Descriptor)
	EntryUpdated(id int, d Descriptor, value string)
}

// Notify wraps reg so that listeners see successful writes.
// Failed writes are not reported.
func Notify(reg Registry, listeners ...Listener) *Notifying {
	return &Notifying{Registry: reg, listeners: listeners}
}

// Notifying is the Registry returned by Notify.
type Notifying struct {
	Registry
	listeners []Listener
}

func (n *Notifying) Create(id int, name string, d Descriptor) error {
	if err := n.Registry.Create(id, name, d); err != nil {
		return err
	}
	for _, l := range n.listeners {
		l.EntryCreated(id, name, d)
	}
	return nil
}

func (n *Notifying) Update(id int, d Descriptor, value string) error {
	if err := n.Registry.Update(id, d, value); err != nil {
		return err
	}
	for _, l := range n.listeners {
		l.EntryUpdated(id, d, value)
	}
	return nil
}

// List forwards to the wrapped registry when it can enumerate.
func (n *Notifying) List() ([]Entry, error) {
	if l, ok := n.Registry.(Lister); ok {
		return l.List()
	}
	return nil, fmt.Errorf("%w: list", ErrUnsupported)
}

// Delete forwards to the wrapped registry when it supports removal.
func (n *Notifying) Delete(id int) error {
	if d, ok := n.Registry.(Deleter); ok {
		return d.Delete(id)
	}
	return fmt.Errorf("%w: delete %d", ErrUnsupported, id)
}
