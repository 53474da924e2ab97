package wire

import (
	"encoding/binary"
	"fmt"
)

// frameBuffer accumulates stream bytes and pops complete, checksum-verified
// frames. Framing is length-driven: a short read leaves the buffer intact
// and the next Feed resumes exactly where decoding stopped.
type frameBuffer struct {
	buf []byte
}

func (b *frameBuffer) feed(p []byte) {
	b.buf = append(b.buf, p...)
}

// pop returns the next complete frame, its transaction id and command
// count. It returns (nil, 0, 0, nil) when more bytes are needed.
//
// A checksum mismatch consumes the frame and returns *ChecksumError;
// decoding can continue at the next frame boundary. Header-level
// corruption (wrong protocol id, impossible length) is unrecoverable
// because the frame boundary itself can no longer be trusted.
func (b *frameBuffer) pop() (frame []byte, tid uint16, count uint8, err error) {
	if len(b.buf) < 4 {
		return nil, 0, 0, nil
	}

	if proto := binary.BigEndian.Uint16(b.buf[0:2]); proto != ProtocolID {
		return nil, 0, 0, fmt.Errorf("%w: %#04x", ErrProtocolMismatch, proto)
	}

	length := int(binary.BigEndian.Uint16(b.buf[2:4]))
	total := 4 + length
	if total > MaxFrameSize {
		return nil, 0, 0, fmt.Errorf("%w: header declares %d bytes, limit is %d",
			ErrFrameTooLarge, total, MaxFrameSize)
	}
	if length < HeaderSize-4+ChecksumSize {
		return nil, 0, 0, fmt.Errorf("wire: header declares impossible length %d", length)
	}

	// Held until enough bytes arrive; never assume one read is one frame.
	if len(b.buf) < total {
		return nil, 0, 0, nil
	}

	frame = b.buf[:total]
	b.buf = b.buf[total:]

	tid = binary.BigEndian.Uint16(frame[4:6])
	count = frame[6]

	want := binary.BigEndian.Uint16(frame[total-ChecksumSize:])
	if got := Checksum(frame[:total-ChecksumSize]); got != want {
		return nil, 0, 0, &ChecksumError{TransactionID: tid, Want: want, Got: got}
	}
	return frame, tid, count, nil
}

// Decoder reassembles inbound reply frames from an ordered byte stream.
// It is the client-side half of the codec; RequestDecoder is the device
// side. Not safe for concurrent use; a connection owns exactly one.
type Decoder struct {
	fb frameBuffer
}

// Feed appends stream bytes to the decode buffer.
func (d *Decoder) Feed(p []byte) { d.fb.feed(p) }

// Next returns the next complete reply, or (nil, nil) when more bytes are
// needed. *ChecksumError and *FrameError results are scoped to a single
// frame and decoding may continue; any other error means the stream
// position is lost and the connection must be abandoned.
func (d *Decoder) Next() (*Reply, error) {
	frame, tid, count, err := d.fb.pop()
	if err != nil || frame == nil {
		return nil, err
	}
	return parseReply(frame, tid, count)
}

// RequestDecoder reassembles outbound command frames from an ordered byte
// stream, as seen by a device or emulator.
type RequestDecoder struct {
	fb frameBuffer
}

// Feed appends stream bytes to the decode buffer.
func (d *RequestDecoder) Feed(p []byte) { d.fb.feed(p) }

// Next returns the next complete request, or (nil, nil) when more bytes
// are needed. Error scoping matches Decoder.Next.
func (d *RequestDecoder) Next() (*Request, error) {
	frame, tid, count, err := d.fb.pop()
	if err != nil || frame == nil {
		return nil, err
	}
	return parseRequest(frame, tid, count)
}
