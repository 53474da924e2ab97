package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replyFrame(t *testing.T, tid uint16, results ...Result) []byte {
	t.Helper()
	frame, err := EncodeReply(&Reply{TransactionID: tid, Results: results})
	require.NoError(t, err)
	return frame
}

func TestDecoderByteAtATime(t *testing.T) {
	frame := replyFrame(t, 9, Result{Status: StatusOK, Payload: []byte{0x00, 0x2A}})

	var dec Decoder
	for i, b := range frame {
		dec.Feed([]byte{b})

		reply, err := dec.Next()
		require.NoError(t, err)
		if i < len(frame)-1 {
			assert.Nil(t, reply, "reply surfaced after %d of %d bytes", i+1, len(frame))
			continue
		}
		require.NotNil(t, reply)
		assert.Equal(t, uint16(9), reply.TransactionID)
	}
}

func TestDecoderMultipleFramesInOneFeed(t *testing.T) {
	var stream []byte
	stream = append(stream, replyFrame(t, 1, Result{Status: StatusOK})...)
	stream = append(stream, replyFrame(t, 2, Result{Status: StatusOK})...)
	stream = append(stream, replyFrame(t, 3, Result{Status: StatusOK})...)

	var dec Decoder
	dec.Feed(stream)

	for want := uint16(1); want <= 3; want++ {
		reply, err := dec.Next()
		require.NoError(t, err)
		require.NotNil(t, reply)
		assert.Equal(t, want, reply.TransactionID)
	}

	reply, err := dec.Next()
	require.NoError(t, err)
	assert.Nil(t, reply)
}

func TestDecoderChecksumMismatchIsFrameScoped(t *testing.T) {
	bad := replyFrame(t, 5, Result{Status: StatusOK})
	bad[len(bad)-1] ^= 0xFF
	good := replyFrame(t, 6, Result{Status: StatusOK})

	var dec Decoder
	dec.Feed(bad)
	dec.Feed(good)

	_, err := dec.Next()
	var cerr *ChecksumError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, uint16(5), cerr.TransactionID)

	// The corrupted frame is consumed; the stream stays decodable.
	reply, err := dec.Next()
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, uint16(6), reply.TransactionID)
}

func TestDecoderProtocolMismatchIsFatal(t *testing.T) {
	frame := replyFrame(t, 1, Result{Status: StatusOK})
	frame[0] = 0xFF

	var dec Decoder
	dec.Feed(frame)

	_, err := dec.Next()
	require.ErrorIs(t, err, ErrProtocolMismatch)

	// Fatal errors do not consume bytes; the decoder keeps failing.
	_, err = dec.Next()
	assert.ErrorIs(t, err, ErrProtocolMismatch)
}

func TestDecoderOversizedLengthIsFatal(t *testing.T) {
	var hdr []byte
	hdr = binary.BigEndian.AppendUint16(hdr, ProtocolID)
	hdr = binary.BigEndian.AppendUint16(hdr, uint16(MaxFrameSize)) // total would be 1044

	var dec Decoder
	dec.Feed(hdr)

	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecoderImpossibleLength(t *testing.T) {
	var hdr []byte
	hdr = binary.BigEndian.AppendUint16(hdr, ProtocolID)
	hdr = binary.BigEndian.AppendUint16(hdr, 2) // below header remainder + checksum

	var dec Decoder
	dec.Feed(hdr)

	_, err := dec.Next()
	assert.Error(t, err)
}

func TestDecoderTruncatedResultSection(t *testing.T) {
	// Header claims two results but the body carries one.
	body := []byte{byte(StatusOK), 0x00}
	var frame []byte
	frame = binary.BigEndian.AppendUint16(frame, ProtocolID)
	frame = binary.BigEndian.AppendUint16(frame, uint16(3+len(body)+ChecksumSize))
	frame = binary.BigEndian.AppendUint16(frame, 11)
	frame = append(frame, 2)
	frame = append(frame, body...)
	frame = binary.BigEndian.AppendUint16(frame, Checksum(frame))

	var dec Decoder
	dec.Feed(frame)

	_, err := dec.Next()
	var ferr *FrameError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, uint16(11), ferr.TransactionID)
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestRequestDecoderRejectsUnknownOpcode(t *testing.T) {
	frame, err := EncodeFrame(3, []Command{ReadCommand(0, Uint16)})
	require.NoError(t, err)

	frame[HeaderSize] = 0x7E
	frame = frame[:len(frame)-ChecksumSize]
	frame = binary.BigEndian.AppendUint16(frame, Checksum(frame))

	var dec RequestDecoder
	dec.Feed(frame)

	_, err = dec.Next()
	var ferr *FrameError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, uint16(3), ferr.TransactionID)
}
