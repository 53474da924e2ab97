package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// DataType identifies a register's on-wire encoding. The tag values are
// the device family's own numbering and travel on the wire with every
// command, so decoding never infers a type from value shape.
type DataType uint8

const (
	Uint16  DataType = 0
	Uint32  DataType = 1
	Int32   DataType = 2
	Float32 DataType = 3
	Uint64  DataType = 4
	String  DataType = 98
	Byte    DataType = 99
)

// Size returns the type's fixed on-wire width in bytes, or 0 for the
// variable-width Byte type.
func (t DataType) Size() int {
	switch t {
	case Uint16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64:
		return 8
	case String:
		return StringWidth
	}
	return 0
}

func (t DataType) valid() bool {
	switch t {
	case Uint16, Uint32, Int32, Float32, Uint64, String, Byte:
		return true
	}
	return false
}

func (t DataType) String() string {
	switch t {
	case Uint16:
		return "UINT16"
	case Uint32:
		return "UINT32"
	case Int32:
		return "INT32"
	case Float32:
		return "FLOAT32"
	case Uint64:
		return "UINT64"
	case String:
		return "STRING"
	case Byte:
		return "BYTE"
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// ParseDataType maps a type name, as used in catalog resources, to its
// DataType tag.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "UINT16":
		return Uint16, nil
	case "UINT32":
		return Uint32, nil
	case "INT32":
		return Int32, nil
	case "FLOAT32":
		return Float32, nil
	case "UINT64":
		return Uint64, nil
	case "STRING":
		return String, nil
	case "BYTE":
		return Byte, nil
	}
	return 0, fmt.Errorf("wire: unknown data type %q", s)
}

// Value is a tagged union holding one runtime value per DataType variant.
// The zero Value has no type and fails every encode. Values are produced
// by decoding and consumed by encoding; they are never implicitly coerced
// between variants.
type Value struct {
	typ DataType
	set bool

	num uint64 // scalar bits for the numeric variants
	str string
	raw []byte
}

func Uint16Value(v uint16) Value  { return Value{typ: Uint16, set: true, num: uint64(v)} }
func Uint32Value(v uint32) Value  { return Value{typ: Uint32, set: true, num: uint64(v)} }
func Int32Value(v int32) Value    { return Value{typ: Int32, set: true, num: uint64(uint32(v))} }
func Uint64Value(v uint64) Value  { return Value{typ: Uint64, set: true, num: v} }
func StringValue(v string) Value  { return Value{typ: String, set: true, str: v} }
func ByteValue(v []byte) Value    { return Value{typ: Byte, set: true, raw: v} }
func Float32Value(v float32) Value {
	return Value{typ: Float32, set: true, num: uint64(math.Float32bits(v))}
}

// Type returns the variant tag. The zero Value reports Uint16 but IsZero.
func (v Value) Type() DataType { return v.typ }

// IsZero reports whether v is the zero Value, i.e. carries no data.
func (v Value) IsZero() bool { return !v.set }

// Typed accessors. Each returns the variant's value and whether the Value
// actually holds that variant.

func (v Value) Uint16() (uint16, bool)  { return uint16(v.num), v.set && v.typ == Uint16 }
func (v Value) Uint32() (uint32, bool)  { return uint32(v.num), v.set && v.typ == Uint32 }
func (v Value) Int32() (int32, bool)    { return int32(uint32(v.num)), v.set && v.typ == Int32 }
func (v Value) Uint64() (uint64, bool)  { return v.num, v.set && v.typ == Uint64 }
func (v Value) Str() (string, bool)     { return v.str, v.set && v.typ == String }
func (v Value) Bytes() ([]byte, bool)   { return v.raw, v.set && v.typ == Byte }
func (v Value) Float32() (float32, bool) {
	return math.Float32frombits(uint32(v.num)), v.set && v.typ == Float32
}

// Float64 widens any numeric variant to float64 for display and
// instrumentation. String and Byte variants report 0.
func (v Value) Float64() float64 {
	switch v.typ {
	case Uint16, Uint32, Uint64:
		return float64(v.num)
	case Int32:
		return float64(int32(uint32(v.num)))
	case Float32:
		return float64(math.Float32frombits(uint32(v.num)))
	}
	return 0
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ || v.set != o.set {
		return false
	}
	switch v.typ {
	case String:
		return v.str == o.str
	case Byte:
		return bytes.Equal(v.raw, o.raw)
	}
	return v.num == o.num
}

func (v Value) String() string {
	if !v.set {
		return "<unset>"
	}
	switch v.typ {
	case Float32:
		return fmt.Sprintf("%v", math.Float32frombits(uint32(v.num)))
	case Int32:
		return fmt.Sprintf("%d", int32(uint32(v.num)))
	case String:
		return fmt.Sprintf("%q", v.str)
	case Byte:
		return fmt.Sprintf("%x", v.raw)
	}
	return fmt.Sprintf("%d", v.num)
}

// EncodeValue serializes v to its on-wire representation for data type t.
// The value's variant must match t exactly; no coercion is performed.
// Multi-byte values use big-endian layout, Float32 is IEEE-754 single
// precision, and String values are zero-padded to StringWidth.
func EncodeValue(v Value, t DataType) ([]byte, error) {
	if !v.set || v.typ != t {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, v.typ, t)
	}

	switch t {
	case Uint16:
		return binary.BigEndian.AppendUint16(nil, uint16(v.num)), nil
	case Uint32, Int32, Float32:
		return binary.BigEndian.AppendUint32(nil, uint32(v.num)), nil
	case Uint64:
		return binary.BigEndian.AppendUint64(nil, v.num), nil
	case String:
		if len(v.str) > StringWidth {
			return nil, fmt.Errorf("%w: string of %d bytes, fixed width is %d",
				ErrValueTooLarge, len(v.str), StringWidth)
		}
		b := make([]byte, StringWidth)
		copy(b, v.str)
		return b, nil
	case Byte:
		return bytes.Clone(v.raw), nil
	}
	return nil, fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, v.typ, t)
}

// DecodeValue interprets b as a value of data type t. Fixed-width types
// require at least Size() bytes and ignore any excess; Byte consumes every
// byte given. String values are truncated at the first zero byte.
func DecodeValue(b []byte, t DataType) (Value, error) {
	if w := t.Size(); len(b) < w {
		return Value{}, fmt.Errorf("%w: %d bytes for %s, need %d", ErrTruncatedData, len(b), t, w)
	}

	switch t {
	case Uint16:
		return Uint16Value(binary.BigEndian.Uint16(b)), nil
	case Uint32:
		return Uint32Value(binary.BigEndian.Uint32(b)), nil
	case Int32:
		return Int32Value(int32(binary.BigEndian.Uint32(b))), nil
	case Float32:
		return Float32Value(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case Uint64:
		return Uint64Value(binary.BigEndian.Uint64(b)), nil
	case String:
		s := b[:StringWidth]
		if i := bytes.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return StringValue(string(s)), nil
	case Byte:
		return ByteValue(bytes.Clone(b)), nil
	}
	return Value{}, fmt.Errorf("wire: cannot decode unknown data type %s", t)
}
