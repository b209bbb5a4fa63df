// Package field implements the primitive typed-value layer that header
// fields are built from: fixed-width integers, enums, strings, addresses,
// arrays and opaque byte ranges, each readable from and writable to a wire
// buffer.
package field

import (
	"encoding/binary"
	"errors"
)

// ErrInvalidValue is returned when an assignment is out of range, has the
// wrong Go type, or is otherwise malformed for the target field type.
var ErrInvalidValue = errors.New("field: invalid value")

// ErrTruncated is returned when a Read would consume bytes past the end of
// the input buffer.
var ErrTruncated = errors.New("field: truncated read")

// Type is a primitive wire type. Read and Write operate on a cursor-based
// byte buffer; param carries the output of a field's builder callback
// (header.FieldDescriptor.Builder) for variable-length types such as Array
// or LengthPrefixedString — types that don't need one simply ignore it.
type Type interface {
	Read(b []byte, cursor int, param any) (value any, next int, err error)
	Write(value any, param any) ([]byte, error)
	Size(value any, param any) int
	Default() any
}

// OrderAware is implemented by integer types whose byte order can be fixed
// up by the enclosing header at declaration time when the field didn't name
// an explicit endian (spec: "a header's endian selection propagates to
// integer fields declared without explicit endian").
type OrderAware interface {
	Type
	WithOrder(order binary.ByteOrder) Type
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}
