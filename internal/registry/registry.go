// internal/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"maps"
)

// ErrNotFound is returned for ids that have no entry (never created, or deleted by the user).
var ErrNotFound = errors.New("registry: entry not found")

// ErrUnsupported is returned when the backing registry lacks an optional capability.
var ErrUnsupported = fmt.Errorf("registry: %w", errors.ErrUnsupported)

// Descriptor is the structural part of an entry.
// It is opaque to the engine and passed through to the host.
type Descriptor struct {
	Type       uint8             `json:"type"`
	Subtype    uint8             `json:"subtype"`
	Switchtype uint8             `json:"switchtype"`
	Options    map[string]string `json:"options,omitempty"`
}

// Equal compares descriptors. Nil and empty options are the same.
func (d Descriptor) Equal(o Descriptor) bool {
	if d.Type != o.Type || d.Subtype != o.Subtype || d.Switchtype != o.Switchtype {
		return false
	}
	if len(d.Options) == 0 && len(o.Options) == 0 {
		return true
	}
	return maps.Equal(d.Options, o.Options)
}

// Entry is the host's record for one registry id.
type Entry struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Descriptor Descriptor `json:"descriptor"`
	Value      string     `json:"value"`
}

// Registry is the narrow reconcile-by-id contract the writer uses.
type Registry interface {
	Exists(id int) (bool, error)
	Get(id int) (Entry, error)
	Create(id int, name string, d Descriptor) error
	Update(id int, d Descriptor, value string) error
}

// Lister is implemented by registries that can enumerate their entries.
type Lister interface {
	List() ([]Entry, error)
}

// Deleter is implemented by registries that allow entries to be removed.
// Removal models a user deleting the device on the host.
type Deleter interface {
	Delete(id int) error
}
