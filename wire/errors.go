package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when a value's variant does not match the
	// data type it is encoded or compared against. This is a caller error;
	// values are never coerced between variants.
	ErrTypeMismatch = errors.New("wire: value type mismatch")

	// ErrTruncatedData is returned when fewer bytes are available than a
	// data type's fixed width requires.
	ErrTruncatedData = errors.New("wire: truncated data")

	// ErrEmptyBatch is returned when a frame is encoded with zero commands.
	ErrEmptyBatch = errors.New("wire: empty batch")

	// ErrFrameTooLarge is returned when a frame would exceed, or claims to
	// exceed, MaxFrameSize.
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

	// ErrValueTooLarge is returned when an encoded value does not fit its
	// on-wire length field or fixed width.
	ErrValueTooLarge = errors.New("wire: value exceeds its wire width")

	// ErrProtocolMismatch is returned when an inbound frame header carries
	// an unexpected protocol id. The stream position is unrecoverable.
	ErrProtocolMismatch = errors.New("wire: unexpected protocol id")
)

// ChecksumError reports a frame whose trailing CRC-16 did not match the
// received bytes. The frame is discarded in full; the transaction id is
// taken from the (untrusted) header so the dispatcher can fail the
// matching pending request. The stream itself remains decodable.
type ChecksumError struct {
	TransactionID uint16
	Want          uint16 // checksum carried by the frame
	Got           uint16 // checksum recomputed over the received bytes
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("wire: checksum mismatch on transaction %d: frame carries %#04x, computed %#04x",
		e.TransactionID, e.Want, e.Got)
}

// FrameError reports a frame that could be delimited and passed its
// checksum, but whose command section could not be decoded. Like
// ChecksumError it is scoped to a single transaction; the stream remains
// decodable.
type FrameError struct {
	TransactionID uint16
	Err           error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("wire: malformed frame for transaction %d: %v", e.TransactionID, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// DeviceError wraps a non-zero per-command status code reported by the
// device.
type DeviceError struct {
	Status StatusCode
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("wire: device reported status %#02x: %s", uint8(e.Status), e.Status)
}
