// Package wire implements the binary frame and value codecs for the
// device's register protocol.
//
// This package serves as the foundation for higher-level clients. It is
// concerned only with byte layout: it performs no I/O and imposes no
// policy for timeouts, retries, or connection management.
//
// # Frame layout
//
// All multi-byte fields are big-endian. One frame:
//
//	offset 0  uint16  protocol id (always 0x0000)
//	offset 2  uint16  length: number of bytes following this field
//	offset 4  uint16  transaction id
//	offset 6  uint8   command count
//	offset 7  ...     command section
//	trailer   uint16  CRC-16 over every preceding byte
//
// Outbound frames carry commands; each command is an opcode followed by a
// register address, a data type tag and, for writes, the encoded value.
// Inbound frames carry one result per command: a status code, a payload
// length, and the payload.
//
// # Encoding and decoding
//
// EncodeFrame serializes a transaction's commands to wire format:
//
//	frame, err := wire.EncodeFrame(tid, []wire.Command{
//	    wire.ReadCommand(0, wire.Float32),
//	})
//
// Decoder reassembles reply frames from an ordered byte stream. It is
// length-driven, never assuming one read equals one frame:
//
//	dec := &wire.Decoder{}
//	dec.Feed(chunk)
//	for {
//	    reply, err := dec.Next()
//	    if err != nil || reply == nil {
//	        break
//	    }
//	    // dispatch reply
//	}
//
// A checksum mismatch discards exactly the affected frame and is reported
// as *ChecksumError; decoding resumes at the next frame boundary.
package wire
