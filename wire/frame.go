package wire

import (
	"encoding/binary"
	"fmt"
)

// Command is one logical register operation. Commands carry no transaction
// identity; that is assigned when a frame is encoded.
type Command struct {
	Op      Opcode
	Address uint16
	Type    DataType

	// Value is the payload for OpWrite commands and unused for reads.
	Value Value
}

// ReadCommand builds a command requesting the value of one register.
func ReadCommand(address uint16, t DataType) Command {
	return Command{Op: OpRead, Address: address, Type: t}
}

// WriteCommand builds a command storing v into one register. The value's
// variant is validated against t at encode time, not here.
func WriteCommand(address uint16, t DataType, v Value) Command {
	return Command{Op: OpWrite, Address: address, Type: t, Value: v}
}

// EncodedSize returns the number of bytes the command occupies in a
// frame's command section. Used by dispatchers to split batches before
// they would overflow MaxFrameSize.
func (c Command) EncodedSize() int {
	// opcode + address + type tag
	n := 1 + 2 + 1
	if c.Op == OpWrite {
		w := c.Type.Size()
		if c.Type == Byte {
			w = len(c.Value.raw)
		}
		n += 1 + w // payload length byte + payload
	}
	return n
}

// Request is a decoded outbound frame: the device-side view of a
// transaction. Produced by RequestDecoder.
type Request struct {
	TransactionID uint16
	Commands      []Command
}

// Result is one per-command outcome within a reply. Payload is empty for
// writes and for any non-OK status.
type Result struct {
	Status  StatusCode
	Payload []byte
}

// Reply is a decoded inbound frame: one Result per command of the
// originating request, in command order.
type Reply struct {
	TransactionID uint16
	Results       []Result
}

// EncodeFrame serializes a batch of commands into exactly one outbound
// frame for the given transaction id. It fails with ErrEmptyBatch for
// zero commands and ErrFrameTooLarge when the encoded frame would exceed
// MaxFrameSize; callers are expected to split oversized batches across
// transactions rather than force them through.
func EncodeFrame(tid uint16, cmds []Command) ([]byte, error) {
	if len(cmds) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(cmds) > MaxCommandsPerFrame {
		return nil, fmt.Errorf("%w: %d commands, limit is %d", ErrFrameTooLarge, len(cmds), MaxCommandsPerFrame)
	}

	size := frameOverhead
	for _, c := range cmds {
		size += c.EncodedSize()
	}
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes encoded, limit is %d", ErrFrameTooLarge, size, MaxFrameSize)
	}

	buf := make([]byte, 0, size)
	buf = appendHeader(buf, uint16(size-4), tid, uint8(len(cmds)))

	for _, c := range cmds {
		buf = append(buf, byte(c.Op))
		buf = binary.BigEndian.AppendUint16(buf, c.Address)
		buf = append(buf, byte(c.Type))

		if c.Op == OpWrite {
			payload, err := EncodeValue(c.Value, c.Type)
			if err != nil {
				return nil, err
			}
			if len(payload) > 255 {
				return nil, fmt.Errorf("%w: %d byte payload for register %d",
					ErrValueTooLarge, len(payload), c.Address)
			}
			buf = append(buf, byte(len(payload)))
			buf = append(buf, payload...)
		}
	}

	return appendChecksum(buf), nil
}

// EncodeReply serializes a reply frame. This is the device side of the
// codec, used by emulators and tests; clients only decode replies.
func EncodeReply(r *Reply) ([]byte, error) {
	if len(r.Results) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(r.Results) > MaxCommandsPerFrame {
		return nil, fmt.Errorf("%w: %d results, limit is %d", ErrFrameTooLarge, len(r.Results), MaxCommandsPerFrame)
	}

	size := frameOverhead
	for _, res := range r.Results {
		size += 2 + len(res.Payload)
	}
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes encoded, limit is %d", ErrFrameTooLarge, size, MaxFrameSize)
	}

	buf := make([]byte, 0, size)
	buf = appendHeader(buf, uint16(size-4), r.TransactionID, uint8(len(r.Results)))

	for _, res := range r.Results {
		if len(res.Payload) > 255 {
			return nil, fmt.Errorf("%w: %d byte result payload", ErrValueTooLarge, len(res.Payload))
		}
		buf = append(buf, byte(res.Status), byte(len(res.Payload)))
		buf = append(buf, res.Payload...)
	}

	return appendChecksum(buf), nil
}

// appendHeader writes the 7-byte frame header. The length field counts
// every byte after itself, checksum included.
func appendHeader(buf []byte, length, tid uint16, count uint8) []byte {
	buf = binary.BigEndian.AppendUint16(buf, ProtocolID)
	buf = binary.BigEndian.AppendUint16(buf, length)
	buf = binary.BigEndian.AppendUint16(buf, tid)
	return append(buf, count)
}

func appendChecksum(buf []byte) []byte {
	return binary.BigEndian.AppendUint16(buf, Checksum(buf))
}

// parseReply decodes the command section of a verified frame into a Reply.
// frame spans the full frame including header and checksum.
func parseReply(frame []byte, tid uint16, count uint8) (*Reply, error) {
	body := frame[HeaderSize : len(frame)-ChecksumSize]

	reply := &Reply{
		TransactionID: tid,
		Results:       make([]Result, 0, count),
	}

	for range count {
		if len(body) < 2 {
			return nil, &FrameError{TransactionID: tid, Err: ErrTruncatedData}
		}
		status := StatusCode(body[0])
		plen := int(body[1])
		body = body[2:]

		if len(body) < plen {
			return nil, &FrameError{TransactionID: tid, Err: ErrTruncatedData}
		}
		var payload []byte
		if plen > 0 {
			payload = append(payload, body[:plen]...)
		}
		body = body[plen:]

		reply.Results = append(reply.Results, Result{Status: status, Payload: payload})
	}

	if len(body) != 0 {
		return nil, &FrameError{TransactionID: tid,
			Err: fmt.Errorf("%d trailing bytes after %d results", len(body), count)}
	}
	return reply, nil
}

// parseRequest decodes the command section of a verified frame into a
// Request. Mirror of parseReply for the device side.
func parseRequest(frame []byte, tid uint16, count uint8) (*Request, error) {
	body := frame[HeaderSize : len(frame)-ChecksumSize]

	req := &Request{
		TransactionID: tid,
		Commands:      make([]Command, 0, count),
	}

	for range count {
		if len(body) < 4 {
			return nil, &FrameError{TransactionID: tid, Err: ErrTruncatedData}
		}
		op := Opcode(body[0])
		addr := binary.BigEndian.Uint16(body[1:3])
		typ := DataType(body[3])
		body = body[4:]

		if op != OpRead && op != OpWrite {
			return nil, &FrameError{TransactionID: tid, Err: fmt.Errorf("unknown opcode %#02x", uint8(op))}
		}
		if !typ.valid() {
			return nil, &FrameError{TransactionID: tid, Err: fmt.Errorf("unknown type tag %d", uint8(typ))}
		}

		cmd := Command{Op: op, Address: addr, Type: typ}

		if op == OpWrite {
			if len(body) < 1 {
				return nil, &FrameError{TransactionID: tid, Err: ErrTruncatedData}
			}
			plen := int(body[0])
			body = body[1:]
			if len(body) < plen {
				return nil, &FrameError{TransactionID: tid, Err: ErrTruncatedData}
			}
			v, err := DecodeValue(body[:plen], typ)
			if err != nil {
				return nil, &FrameError{TransactionID: tid, Err: err}
			}
			cmd.Value = v
			body = body[plen:]
		}

		req.Commands = append(req.Commands, cmd)
	}

	if len(body) != 0 {
		return nil, &FrameError{TransactionID: tid,
			Err: fmt.Errorf("%d trailing bytes after %d commands", len(body), count)}
	}
	return req, nil
}
