package field

import "bytes"

// FixedString is a fixed-size byte string field of Length bytes.
type FixedString struct{ Length int }

func (t FixedString) Read(b []byte, cursor int, _ any) (any, int, error) {
	end := cursor + t.Length
	if end > len(b) {
		return nil, cursor, ErrTruncated
	}
	return string(b[cursor:end]), end, nil
}

func (t FixedString) Write(v any, _ any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, ErrInvalidValue
	}
	out := make([]byte, t.Length)
	copy(out, s)
	return out, nil
}

func (t FixedString) Size(any, any) int { return t.Length }
func (t FixedString) Default() any      { return "" }

// CString is a null-terminated string: reading consumes bytes up to and
// including the first zero byte, and Write appends a trailing zero.
type CString struct{}

func (CString) Read(b []byte, cursor int, _ any) (any, int, error) {
	idx := bytes.IndexByte(b[cursor:], 0)
	if idx < 0 {
		return nil, cursor, ErrTruncated
	}
	return string(b[cursor : cursor+idx]), cursor + idx + 1, nil
}

func (CString) Write(v any, _ any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, ErrInvalidValue
	}
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		return nil, ErrInvalidValue
	}
	out := make([]byte, len(s)+1)
	copy(out, s)
	return out, nil
}

func (CString) Size(v any, _ any) int {
	s, _ := v.(string)
	return len(s) + 1
}

func (CString) Default() any { return "" }

// LengthPrefixedString reads exactly the number of bytes its builder
// reports (typically the value of a preceding length field) with no
// terminator of its own.
type LengthPrefixedString struct{}

func (LengthPrefixedString) Read(b []byte, cursor int, param any) (any, int, error) {
	n, ok := param.(int)
	if !ok || n < 0 {
		return nil, cursor, ErrInvalidValue
	}
	end := cursor + n
	if end > len(b) {
		return nil, cursor, ErrTruncated
	}
	return string(b[cursor:end]), end, nil
}

func (LengthPrefixedString) Write(v any, _ any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, ErrInvalidValue
	}
	return []byte(s), nil
}

func (LengthPrefixedString) Size(v any, _ any) int {
	s, _ := v.(string)
	return len(s)
}

func (LengthPrefixedString) Default() any { return "" }
