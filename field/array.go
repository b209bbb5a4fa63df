package field

import "fmt"

// Array parses N elements of Elem, where N comes from the field's builder
// (typically a count read from an earlier counter field).
type Array struct{ Elem Type }

func (a Array) Read(b []byte, cursor int, param any) (any, int, error) {
	n, ok := param.(int)
	if !ok {
		return nil, cursor, fmt.Errorf("field: array requires an int count param: %w", ErrInvalidValue)
	}
	vals := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, next, err := a.Elem.Read(b, cursor, nil)
		if err != nil {
			return nil, cursor, err
		}
		vals = append(vals, v)
		cursor = next
	}
	return vals, cursor, nil
}

func (a Array) Write(v any, _ any) ([]byte, error) {
	vals, ok := v.([]any)
	if !ok {
		return nil, ErrInvalidValue
	}
	var out []byte
	for _, item := range vals {
		b, err := a.Elem.Write(item, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (a Array) Size(v any, param any) int {
	b, err := a.Write(v, param)
	if err != nil {
		return 0
	}
	return len(b)
}

func (a Array) Default() any { return []any{} }

// Opaque consumes the remaining bytes of the buffer, or a caller-bounded
// subrange when its builder supplies an explicit byte count.
type Opaque struct{}

func (Opaque) Read(b []byte, cursor int, param any) (any, int, error) {
	n := len(b) - cursor
	if bound, ok := param.(int); ok && bound >= 0 {
		n = bound
	}
	end := cursor + n
	if end > len(b) {
		return nil, cursor, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, b[cursor:end])
	return out, end, nil
}

func (Opaque) Write(v any, _ any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrInvalidValue
	}
	return append([]byte{}, b...), nil
}

func (Opaque) Size(v any, _ any) int {
	b, _ := v.([]byte)
	return len(b)
}

func (Opaque) Default() any { return []byte{} }
