package field

import "encoding/binary"

// Uint8 is an 8-bit unsigned integer field. Values are carried as uint64
// on the Go side so every integer width shares one representation.
type Uint8 struct{}

func (Uint8) Read(b []byte, cursor int, _ any) (any, int, error) {
	if cursor+1 > len(b) {
		return nil, cursor, ErrTruncated
	}
	return uint64(b[cursor]), cursor + 1, nil
}

func (Uint8) Write(v any, _ any) ([]byte, error) {
	n, ok := toUint64(v)
	if !ok || n > 0xFF {
		return nil, ErrInvalidValue
	}
	return []byte{byte(n)}, nil
}

func (Uint8) Size(any, any) int { return 1 }
func (Uint8) Default() any      { return uint64(0) }

// Int8 is an 8-bit signed integer field, carried as int64.
type Int8 struct{}

func (Int8) Read(b []byte, cursor int, _ any) (any, int, error) {
	if cursor+1 > len(b) {
		return nil, cursor, ErrTruncated
	}
	return int64(int8(b[cursor])), cursor + 1, nil
}

func (Int8) Write(v any, _ any) ([]byte, error) {
	n, ok := toInt64(v)
	if !ok || n < -128 || n > 127 {
		return nil, ErrInvalidValue
	}
	return []byte{byte(int8(n))}, nil
}

func (Int8) Size(any, any) int { return 1 }
func (Int8) Default() any      { return int64(0) }

// Uint16 is a 16-bit unsigned integer field. Order defaults to the
// enclosing header's endian if left nil at declaration time.
type Uint16 struct{ Order binary.ByteOrder }

func (t Uint16) order() binary.ByteOrder {
	if t.Order != nil {
		return t.Order
	}
	return binary.BigEndian
}

func (t Uint16) Read(b []byte, cursor int, _ any) (any, int, error) {
	if cursor+2 > len(b) {
		return nil, cursor, ErrTruncated
	}
	return uint64(t.order().Uint16(b[cursor : cursor+2])), cursor + 2, nil
}

func (t Uint16) Write(v any, _ any) ([]byte, error) {
	n, ok := toUint64(v)
	if !ok || n > 0xFFFF {
		return nil, ErrInvalidValue
	}
	out := make([]byte, 2)
	t.order().PutUint16(out, uint16(n))
	return out, nil
}

func (t Uint16) Size(any, any) int { return 2 }
func (Uint16) Default() any        { return uint64(0) }

func (t Uint16) WithOrder(order binary.ByteOrder) Type {
	if t.Order != nil {
		return t
	}
	return Uint16{Order: order}
}

// Int16 is a 16-bit signed integer field.
type Int16 struct{ Order binary.ByteOrder }

func (t Int16) order() binary.ByteOrder {
	if t.Order != nil {
		return t.Order
	}
	return binary.BigEndian
}

func (t Int16) Read(b []byte, cursor int, _ any) (any, int, error) {
	if cursor+2 > len(b) {
		return nil, cursor, ErrTruncated
	}
	return int64(int16(t.order().Uint16(b[cursor : cursor+2]))), cursor + 2, nil
}

func (t Int16) Write(v any, _ any) ([]byte, error) {
	n, ok := toInt64(v)
	if !ok || n < -32768 || n > 32767 {
		return nil, ErrInvalidValue
	}
	out := make([]byte, 2)
	t.order().PutUint16(out, uint16(int16(n)))
	return out, nil
}

func (t Int16) Size(any, any) int { return 2 }
func (Int16) Default() any        { return int64(0) }

func (t Int16) WithOrder(order binary.ByteOrder) Type {
	if t.Order != nil {
		return t
	}
	return Int16{Order: order}
}

// Uint24 is a 24-bit unsigned integer field — not backed by encoding/binary,
// which has no three-byte accessor, so it's packed and unpacked by hand.
type Uint24 struct{ Order binary.ByteOrder }

func (t Uint24) order() binary.ByteOrder {
	if t.Order != nil {
		return t.Order
	}
	return binary.BigEndian
}

func (t Uint24) Read(b []byte, cursor int, _ any) (any, int, error) {
	if cursor+3 > len(b) {
		return nil, cursor, ErrTruncated
	}
	chunk := b[cursor : cursor+3]
	var n uint64
	if isLittleEndian(t.order()) {
		n = uint64(chunk[0]) | uint64(chunk[1])<<8 | uint64(chunk[2])<<16
	} else {
		n = uint64(chunk[2]) | uint64(chunk[1])<<8 | uint64(chunk[0])<<16
	}
	return n, cursor + 3, nil
}

func (t Uint24) Write(v any, _ any) ([]byte, error) {
	n, ok := toUint64(v)
	if !ok || n > 0xFFFFFF {
		return nil, ErrInvalidValue
	}
	out := make([]byte, 3)
	if isLittleEndian(t.order()) {
		out[0] = byte(n)
		out[1] = byte(n >> 8)
		out[2] = byte(n >> 16)
	} else {
		out[0] = byte(n >> 16)
		out[1] = byte(n >> 8)
		out[2] = byte(n)
	}
	return out, nil
}

func (t Uint24) Size(any, any) int { return 3 }
func (Uint24) Default() any        { return uint64(0) }

func (t Uint24) WithOrder(order binary.ByteOrder) Type {
	if t.Order != nil {
		return t
	}
	return Uint24{Order: order}
}

func isLittleEndian(order binary.ByteOrder) bool {
	return order == binary.LittleEndian
}

// Uint32 is a 32-bit unsigned integer field.
type Uint32 struct{ Order binary.ByteOrder }

func (t Uint32) order() binary.ByteOrder {
	if t.Order != nil {
		return t.Order
	}
	return binary.BigEndian
}

func (t Uint32) Read(b []byte, cursor int, _ any) (any, int, error) {
	if cursor+4 > len(b) {
		return nil, cursor, ErrTruncated
	}
	return uint64(t.order().Uint32(b[cursor : cursor+4])), cursor + 4, nil
}

func (t Uint32) Write(v any, _ any) ([]byte, error) {
	n, ok := toUint64(v)
	if !ok || n > 0xFFFFFFFF {
		return nil, ErrInvalidValue
	}
	out := make([]byte, 4)
	t.order().PutUint32(out, uint32(n))
	return out, nil
}

func (t Uint32) Size(any, any) int { return 4 }
func (Uint32) Default() any        { return uint64(0) }

func (t Uint32) WithOrder(order binary.ByteOrder) Type {
	if t.Order != nil {
		return t
	}
	return Uint32{Order: order}
}

// Int32 is a 32-bit signed integer field.
type Int32 struct{ Order binary.ByteOrder }

func (t Int32) order() binary.ByteOrder {
	if t.Order != nil {
		return t.Order
	}
	return binary.BigEndian
}

func (t Int32) Read(b []byte, cursor int, _ any) (any, int, error) {
	if cursor+4 > len(b) {
		return nil, cursor, ErrTruncated
	}
	return int64(int32(t.order().Uint32(b[cursor : cursor+4]))), cursor + 4, nil
}

func (t Int32) Write(v any, _ any) ([]byte, error) {
	n, ok := toInt64(v)
	if !ok || n < -2147483648 || n > 2147483647 {
		return nil, ErrInvalidValue
	}
	out := make([]byte, 4)
	t.order().PutUint32(out, uint32(int32(n)))
	return out, nil
}

func (t Int32) Size(any, any) int { return 4 }
func (Int32) Default() any        { return int64(0) }

func (t Int32) WithOrder(order binary.ByteOrder) Type {
	if t.Order != nil {
		return t
	}
	return Int32{Order: order}
}

// Uint64 is a 64-bit unsigned integer field.
type Uint64 struct{ Order binary.ByteOrder }

func (t Uint64) order() binary.ByteOrder {
	if t.Order != nil {
		return t.Order
	}
	return binary.BigEndian
}

func (t Uint64) Read(b []byte, cursor int, _ any) (any, int, error) {
	if cursor+8 > len(b) {
		return nil, cursor, ErrTruncated
	}
	return t.order().Uint64(b[cursor : cursor+8]), cursor + 8, nil
}

func (t Uint64) Write(v any, _ any) ([]byte, error) {
	n, ok := toUint64(v)
	if !ok {
		return nil, ErrInvalidValue
	}
	out := make([]byte, 8)
	t.order().PutUint64(out, n)
	return out, nil
}

func (t Uint64) Size(any, any) int { return 8 }
func (Uint64) Default() any        { return uint64(0) }

func (t Uint64) WithOrder(order binary.ByteOrder) Type {
	if t.Order != nil {
		return t
	}
	return Uint64{Order: order}
}

// Int64 is a 64-bit signed integer field.
type Int64 struct{ Order binary.ByteOrder }

func (t Int64) order() binary.ByteOrder {
	if t.Order != nil {
		return t.Order
	}
	return binary.BigEndian
}

func (t Int64) Read(b []byte, cursor int, _ any) (any, int, error) {
	if cursor+8 > len(b) {
		return nil, cursor, ErrTruncated
	}
	return int64(t.order().Uint64(b[cursor : cursor+8])), cursor + 8, nil
}

func (t Int64) Write(v any, _ any) ([]byte, error) {
	n, ok := toInt64(v)
	if !ok {
		return nil, ErrInvalidValue
	}
	out := make([]byte, 8)
	t.order().PutUint64(out, uint64(n))
	return out, nil
}

func (t Int64) Size(any, any) int { return 8 }
func (Int64) Default() any        { return int64(0) }

func (t Int64) WithOrder(order binary.ByteOrder) Type {
	if t.Order != nil {
		return t
	}
	return Int64{Order: order}
}
