package wire

// ProtocolID identifies the register protocol in every frame header.
// The device rejects frames carrying any other value.
const ProtocolID uint16 = 0x0000

// HeaderSize is the fixed size of the frame header in bytes:
// protocol id (2) + length (2) + transaction id (1x2) + command count (1).
const HeaderSize = 7

// ChecksumSize is the size of the trailing CRC-16 in bytes.
const ChecksumSize = 2

// MaxFrameSize is the largest frame the device accepts or emits, bounded
// by the Ethernet packet limit for this device family. Larger batches must
// be split across transactions by the caller.
const MaxFrameSize = 1040

// MaxCommandsPerFrame bounds the command count, which travels as a single
// byte in the header.
const MaxCommandsPerFrame = 255

// frameOverhead is the fixed per-frame cost around the command section.
const frameOverhead = HeaderSize + ChecksumSize

// StringWidth is the fixed on-wire width of STRING registers. Shorter
// values are zero-padded; a value of exactly this width has no terminator.
const StringWidth = 50

// Opcode tags a command within a frame's command section.
type Opcode uint8

const (
	// OpRead requests the value of one register.
	OpRead Opcode = 0x00
	// OpWrite stores a value into one register.
	OpWrite Opcode = 0x01
)

func (o Opcode) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	}
	return "invalid"
}

// StatusCode is the per-command result status reported by the device.
type StatusCode uint8

const (
	StatusOK             StatusCode = 0x00
	StatusIllegalOpcode  StatusCode = 0x01
	StatusIllegalAddress StatusCode = 0x02
	StatusIllegalValue   StatusCode = 0x03
	StatusDeviceFailure  StatusCode = 0x04
	StatusDeviceBusy     StatusCode = 0x06
	StatusReadOnly       StatusCode = 0x10
	StatusWriteOnly      StatusCode = 0x11
)

func (s StatusCode) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusIllegalOpcode:
		return "illegal opcode"
	case StatusIllegalAddress:
		return "illegal address"
	case StatusIllegalValue:
		return "illegal value"
	case StatusDeviceFailure:
		return "device failure"
	case StatusDeviceBusy:
		return "device busy"
	case StatusReadOnly:
		return "register is read-only"
	case StatusWriteOnly:
		return "register is write-only"
	}
	return "unknown status"
}
