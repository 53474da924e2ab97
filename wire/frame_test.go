package wire

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrameGoldenRead(t *testing.T) {
	frame, err := EncodeFrame(1, []Command{ReadCommand(0, Float32)})
	require.NoError(t, err)

	want := []byte{
		0x00, 0x00, // protocol id
		0x00, 0x09, // length: bytes after this field, checksum included
		0x00, 0x01, // transaction id
		0x01,                   // command count
		0x00, 0x00, 0x00, 0x03, // read, address 0, FLOAT32
	}
	want = binary.BigEndian.AppendUint16(want, Checksum(want))

	assert.Equal(t, want, frame)
	assert.Len(t, frame, 13)
}

func TestEncodeFrameGoldenWrite(t *testing.T) {
	frame, err := EncodeFrame(0x0203, []Command{
		WriteCommand(1000, Float32, Float32Value(10.0)),
	})
	require.NoError(t, err)

	want := []byte{
		0x00, 0x00,
		0x00, 0x0E,
		0x02, 0x03,
		0x01,
		0x01, 0x03, 0xE8, 0x03, // write, address 1000, FLOAT32
		0x04,                   // payload length
		0x41, 0x20, 0x00, 0x00, // 10.0
	}
	want = binary.BigEndian.AppendUint16(want, Checksum(want))

	assert.Equal(t, want, frame)
}

func TestEncodeFrameEmptyBatch(t *testing.T) {
	_, err := EncodeFrame(1, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestEncodeFrameTooManyCommands(t *testing.T) {
	cmds := make([]Command, MaxCommandsPerFrame+1)
	for i := range cmds {
		cmds[i] = ReadCommand(uint16(i), Uint16)
	}
	_, err := EncodeFrame(1, cmds)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestEncodeFrameTooLarge(t *testing.T) {
	// 19 full-width string writes exceed 1040 bytes well before the
	// command count limit.
	cmds := make([]Command, 19)
	for i := range cmds {
		cmds[i] = WriteCommand(uint16(i), String, StringValue(strings.Repeat("x", StringWidth)))
	}
	_, err := EncodeFrame(1, cmds)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestEncodeFrameRejectsMismatchedWriteValue(t *testing.T) {
	_, err := EncodeFrame(1, []Command{WriteCommand(1000, Float32, Uint16Value(7))})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRequestRoundTrip(t *testing.T) {
	cmds := []Command{
		ReadCommand(0, Float32),
		WriteCommand(1000, Float32, Float32Value(2.5)),
		WriteCommand(60500, String, StringValue("BENCH-3")),
		ReadCommand(60028, Uint32),
		WriteCommand(61810, Byte, ByteValue([]byte{1, 2, 3})),
	}

	frame, err := EncodeFrame(42, cmds)
	require.NoError(t, err)

	var dec RequestDecoder
	dec.Feed(frame)
	req, err := dec.Next()
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, uint16(42), req.TransactionID)
	require.Len(t, req.Commands, len(cmds))
	for i, cmd := range cmds {
		got := req.Commands[i]
		assert.Equal(t, cmd.Op, got.Op, "command %d", i)
		assert.Equal(t, cmd.Address, got.Address, "command %d", i)
		assert.Equal(t, cmd.Type, got.Type, "command %d", i)
		if cmd.Op == OpWrite {
			assert.True(t, cmd.Value.Equal(got.Value), "command %d: want %s, got %s", i, cmd.Value, got.Value)
		}
	}
}

func TestReplyRoundTrip(t *testing.T) {
	reply := &Reply{
		TransactionID: 7,
		Results: []Result{
			{Status: StatusOK, Payload: []byte{0x41, 0x20, 0x00, 0x00}},
			{Status: StatusOK},
			{Status: StatusIllegalAddress},
			{Status: StatusOK, Payload: []byte{0x00, 0x2A}},
		},
	}

	frame, err := EncodeReply(reply)
	require.NoError(t, err)

	var dec Decoder
	dec.Feed(frame)
	got, err := dec.Next()
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, reply.TransactionID, got.TransactionID)
	assert.Equal(t, reply.Results, got.Results)
}

func TestEncodeReplyEmpty(t *testing.T) {
	_, err := EncodeReply(&Reply{TransactionID: 1})
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestCommandEncodedSize(t *testing.T) {
	assert.Equal(t, 4, ReadCommand(0, Float32).EncodedSize())
	assert.Equal(t, 4, ReadCommand(0, String).EncodedSize())
	assert.Equal(t, 9, WriteCommand(0, Float32, Float32Value(1)).EncodedSize())
	assert.Equal(t, 5+StringWidth, WriteCommand(0, String, StringValue("x")).EncodedSize())
	assert.Equal(t, 8, WriteCommand(0, Byte, ByteValue([]byte{1, 2, 3})).EncodedSize())
}
