package field

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// Enum pairs a fixed-width integer Base with a bidirectional name<->value
// map. Write accepts either a name string or a raw number; RenderString
// returns the name when known, or the raw number rendered as text.
type Enum struct {
	Base  Type
	Names map[string]uint64
}

func (e Enum) reverse() map[uint64]string {
	rev := make(map[uint64]string, len(e.Names))
	for name, v := range e.Names {
		rev[v] = name
	}
	return rev
}

func (e Enum) Read(b []byte, cursor int, param any) (any, int, error) {
	return e.Base.Read(b, cursor, param)
}

func (e Enum) Write(v any, param any) ([]byte, error) {
	if name, ok := v.(string); ok {
		n, known := e.Names[name]
		if !known {
			return nil, fmt.Errorf("field: unknown enum name %q: %w", name, ErrInvalidValue)
		}
		return e.Base.Write(n, param)
	}
	return e.Base.Write(v, param)
}

func (e Enum) Size(v any, param any) int { return e.Base.Size(v, param) }
func (e Enum) Default() any              { return e.Base.Default() }

// RenderString returns the enum name bound to v, or v's decimal text if no
// name is registered for it.
func (e Enum) RenderString(v any) string {
	n, ok := toUint64(v)
	if !ok {
		return fmt.Sprint(v)
	}
	if name, known := e.reverse()[n]; known {
		return name
	}
	return strconv.FormatUint(n, 10)
}

// WithOrder propagates the header's endian to Base when Base is itself
// endian-sensitive (e.g. an Enum over Uint16), so Enum fields participate
// in the same default-endian rule as plain integer fields.
func (e Enum) WithOrder(order binary.ByteOrder) Type {
	if oa, ok := e.Base.(OrderAware); ok {
		return Enum{Base: oa.WithOrder(order), Names: e.Names}
	}
	return e
}
