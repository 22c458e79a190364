// internal/schema/row.go
package schema

import (
	"github.com/tamzrod/solaredge-bridge/internal/calc"
	"github.com/tamzrod/solaredge-bridge/internal/registry"
)

// DeviceTypeKey carries the raw SunSpec device type in every value map.
const DeviceTypeKey = "c_sunspec_did"

// Values is one raw value map read from one physical unit.
type Values map[string]float64

// Reader produces a fresh value map for one physical unit.
type Reader interface {
	ReadAll() (Values, error)
}

// Format is a fmt template rendering one or two resolved values into the stored string.
type Format string

const (
	FormatValue   Format = "%v"
	FormatFixed2  Format = "%.2f"
	FormatPair    Format = "%v;%v"
	FormatCounter Format = "0;%v"
)

// ComposeKind selects how a second value joins the primary one.
type ComposeKind int

const (
	ComposeNone ComposeKind = iota
	// ComposePrependRow puts another row's stored value in front (FieldID).
	ComposePrependRow
	// ComposePrependCalc puts a calculator over this field in front (Calc).
	ComposePrependCalc
	// ComposeAppendCalc puts a calculator over this field behind (Calc).
	ComposeAppendCalc
)

func (k ComposeKind) String() string {
	switch k {
	case ComposeNone:
		return "none"
	case ComposePrependRow:
		return "prepend-row"
	case ComposePrependCalc:
		return "prepend-calc"
	case ComposeAppendCalc:
		return "append-calc"
	default:
		return "unknown"
	}
}

type Compose struct {
	Kind    ComposeKind
	FieldID int
	Calc    calc.Spec
}

// Row describes one telemetry field.
type Row struct {
	FieldID    int
	Name       string
	Descriptor registry.Descriptor

	Source string
	Scale  string // optional, key of the power-of-ten exponent
	Format Format

	Compose Compose
	Lookup  []string
	Calc    *calc.Spec
}

// ---- table building helpers ----

func field(id int, name string, d registry.Descriptor, source, scale string, f Format) Row {
	return Row{
		FieldID:    id,
		Name:       name,
		Descriptor: d,
		Source:     source,
		Scale:      scale,
		Format:     f,
	}
}

func (r Row) with(kind calc.Kind) Row {
	r.Calc = &calc.Spec{Kind: kind}
	return r
}

func (r Row) above(multiplier, floor float64) Row {
	r.Calc = &calc.Spec{Kind: calc.Above, Multiplier: multiplier, Floor: floor}
	return r
}

func (r Row) lookup(table []string) Row {
	r.Lookup = table
	return r
}

func (r Row) prepend(fieldID int) Row {
	r.Compose = Compose{Kind: ComposePrependRow, FieldID: fieldID}
	return r
}

func (r Row) prependCalc(kind calc.Kind) Row {
	r.Compose = Compose{Kind: ComposePrependCalc, Calc: calc.Spec{Kind: kind}}
	return r
}

func (r Row) appendCalc(kind calc.Kind) Row {
	r.Compose = Compose{Kind: ComposeAppendCalc, Calc: calc.Spec{Kind: kind}}
	return r
}

// ---- registry device shapes ----

func textDevice() registry.Descriptor    { return registry.Descriptor{Type: 0xF3, Subtype: 0x13} }
func currentDevice() registry.Descriptor { return registry.Descriptor{Type: 0xF3, Subtype: 0x17} }
func voltageDevice() registry.Descriptor { return registry.Descriptor{Type: 0xF3, Subtype: 0x08} }
func usageDevice() registry.Descriptor   { return registry.Descriptor{Type: 0xF8, Subtype: 0x01} }
func percentDevice() registry.Descriptor { return registry.Descriptor{Type: 0xF3, Subtype: 0x06} }
func tempDevice() registry.Descriptor    { return registry.Descriptor{Type: 0xF3, Subtype: 0x05} }

func kwhDevice(switchtype uint8) registry.Descriptor {
	return registry.Descriptor{Type: 0xF3, Subtype: 0x1D, Switchtype: switchtype}
}

func counterDevice() registry.Descriptor {
	return registry.Descriptor{Type: 0xF3, Subtype: 0x21}
}

func customDevice(unit string) registry.Descriptor {
	return registry.Descriptor{
		Type:    0xF3,
		Subtype: 0x1F,
		Options: map[string]string{"Custom": "1;" + unit},
	}
}
