package wire

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		typ   DataType
		value Value
	}{
		{"uint16 zero", Uint16, Uint16Value(0)},
		{"uint16 max", Uint16, Uint16Value(math.MaxUint16)},
		{"uint16 typical", Uint16, Uint16Value(0x1234)},
		{"uint32 zero", Uint32, Uint32Value(0)},
		{"uint32 max", Uint32, Uint32Value(math.MaxUint32)},
		{"int32 zero", Int32, Int32Value(0)},
		{"int32 min", Int32, Int32Value(math.MinInt32)},
		{"int32 max", Int32, Int32Value(math.MaxInt32)},
		{"int32 negative", Int32, Int32Value(-42)},
		{"float32 zero", Float32, Float32Value(0)},
		{"float32 fractional", Float32, Float32Value(2.5)},
		{"float32 negative", Float32, Float32Value(-3.14159)},
		{"float32 max", Float32, Float32Value(math.MaxFloat32)},
		{"float32 smallest", Float32, Float32Value(math.SmallestNonzeroFloat32)},
		{"uint64 zero", Uint64, Uint64Value(0)},
		{"uint64 max", Uint64, Uint64Value(math.MaxUint64)},
		{"string empty", String, StringValue("")},
		{"string typical", String, StringValue("My T7 Device")},
		{"string full width", String, StringValue(strings.Repeat("x", StringWidth))},
		{"byte empty", Byte, ByteValue(nil)},
		{"byte sequence", Byte, ByteValue([]byte{0x00, 0xDE, 0xAD, 0xBE, 0xEF})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeValue(tt.value, tt.typ)
			require.NoError(t, err)

			if w := tt.typ.Size(); w > 0 {
				assert.Len(t, encoded, w, "fixed-width type must encode to its width")
			}

			decoded, err := DecodeValue(encoded, tt.typ)
			require.NoError(t, err)

			if tt.name == "byte empty" {
				// nil and empty compare equal on the wire
				b, ok := decoded.Bytes()
				assert.True(t, ok)
				assert.Empty(t, b)
				return
			}
			assert.True(t, tt.value.Equal(decoded), "want %s, got %s", tt.value, decoded)
		})
	}
}

func TestEncodeValueTypeMismatch(t *testing.T) {
	_, err := EncodeValue(Uint16Value(1), Float32)
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = EncodeValue(Float32Value(1), Uint32)
	require.ErrorIs(t, err, ErrTypeMismatch)

	// the zero Value matches nothing, not even its nominal tag
	_, err = EncodeValue(Value{}, Uint16)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestEncodeValueStringTooLong(t *testing.T) {
	_, err := EncodeValue(StringValue(strings.Repeat("x", StringWidth+1)), String)
	require.ErrorIs(t, err, ErrValueTooLarge)
}

func TestDecodeValueTruncated(t *testing.T) {
	tests := []struct {
		typ   DataType
		bytes []byte
	}{
		{Uint16, []byte{0x01}},
		{Uint32, []byte{0x01, 0x02, 0x03}},
		{Int32, nil},
		{Float32, []byte{0x41, 0x20}},
		{Uint64, []byte{1, 2, 3, 4, 5, 6, 7}},
		{String, make([]byte, StringWidth-1)},
	}

	for _, tt := range tests {
		_, err := DecodeValue(tt.bytes, tt.typ)
		assert.ErrorIs(t, err, ErrTruncatedData, "type %s", tt.typ)
	}
}

func TestDecodeValueFloat32BigEndian(t *testing.T) {
	// 0x41200000 is 10.0 in IEEE-754 single precision, most significant
	// byte first.
	v, err := DecodeValue([]byte{0x41, 0x20, 0x00, 0x00}, Float32)
	require.NoError(t, err)

	f, ok := v.Float32()
	require.True(t, ok)
	assert.Equal(t, float32(10.0), f)
}

func TestDecodeValueStringStopsAtZeroByte(t *testing.T) {
	raw := make([]byte, StringWidth)
	copy(raw, "AIN\x00garbage")

	v, err := DecodeValue(raw, String)
	require.NoError(t, err)

	s, ok := v.Str()
	require.True(t, ok)
	assert.Equal(t, "AIN", s)
}

func TestValueFloat64Widening(t *testing.T) {
	assert.Equal(t, 65535.0, Uint16Value(65535).Float64())
	assert.Equal(t, -7.0, Int32Value(-7).Float64())
	assert.Equal(t, 2.5, Float32Value(2.5).Float64())
	assert.Equal(t, 0.0, StringValue("nope").Float64())
}

func TestParseDataType(t *testing.T) {
	for _, name := range []string{"UINT16", "UINT32", "INT32", "FLOAT32", "UINT64", "STRING", "BYTE"} {
		typ, err := ParseDataType(name)
		require.NoError(t, err)
		assert.Equal(t, name, typ.String())
	}

	_, err := ParseDataType("FLOAT64")
	assert.Error(t, err)
}
