// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy installation.
const HealthOK uint16 = 1

// HealthError represents a transport error state.
const HealthError uint16 = 2

// HealthStale represents a connected link whose values could not be published.
const HealthStale uint16 = 3

// HealthDisabled represents a disabled engine.
const HealthDisabled uint16 = 4

// HealthName returns the lower-case name of a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	case HealthDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ---- ERROR CODES ----

// Modbus exception codes (1..11) pass through unchanged.
// Everything else maps into the range above them.

const (
	CodeNone          uint16 = 0
	CodeGeneric       uint16 = 0x100
	CodeEmptyResponse uint16 = 0x101
	CodeSchema        uint16 = 0x102
	CodeUnreachable   uint16 = 0x103
)

// MaxSecondsInError saturates the error duration counter.
const MaxSecondsInError = 65535
