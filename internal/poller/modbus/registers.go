// internal/poller/modbus/registers.go
package modbus

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tamzrod/solaredge-bridge/internal/schema"
)

// wordKind describes how a value is laid out over 16-bit registers.
type wordKind int

const (
	u16 wordKind = iota
	s16
	u32   // high word first (SunSpec acc32)
	f32sw // float32, low word first
	u32sw // uint32, low word first
	u64sw // uint64, lowest word first
)

func (k wordKind) words() int {
	switch k {
	case u32, f32sw, u32sw:
		return 2
	case u64sw:
		return 4
	default:
		return 1
	}
}

// field maps a value key to its register offset inside a block.
type field struct {
	name   string
	offset int
	kind   wordKind
}

// words splits a big-endian register payload.
func words(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return out
}

// decode reads fields out of regs into values.
func decode(regs []uint16, fields []field, into schema.Values) error {
	for _, f := range fields {
		end := f.offset + f.kind.words()
		if f.offset < 0 || end > len(regs) {
			return fmt.Errorf("modbus: field %s at %d outside block of %d registers", f.name, f.offset, len(regs))
		}
		r := regs[f.offset:end]

		switch f.kind {
		case u16:
			into[f.name] = float64(r[0])
		case s16:
			into[f.name] = float64(int16(r[0]))
		case u32:
			into[f.name] = float64(uint32(r[0])<<16 | uint32(r[1]))
		case u32sw:
			into[f.name] = float64(uint32(r[1])<<16 | uint32(r[0]))
		case f32sw:
			into[f.name] = float64(math.Float32frombits(uint32(r[1])<<16 | uint32(r[0])))
		case u64sw:
			v := uint64(r[3])<<48 | uint64(r[2])<<32 | uint64(r[1])<<16 | uint64(r[0])
			into[f.name] = float64(v)
		}
	}
	return nil
}

// phased builds a total field followed by three per-phase fields named
// l1_<name>..l3_<name>, step registers apart.
func phased(name string, offset int, kind wordKind, step int) []field {
	out := []field{{name, offset, kind}}
	for i := 1; i <= 3; i++ {
		out = append(out, field{fmt.Sprintf("l%d_%s", i, name), offset + i*step, kind})
	}
	return out
}

func join(groups ...[]field) []field {
	var out []field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
