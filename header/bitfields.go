package header

import (
	"fmt"

	"packetgen/field"
)

// BitSpec names one sub-field of a bit-group: Width bits, most-significant
// sub-field declared first.
type BitSpec struct {
	Name  string
	Width int
}

func bitsOf(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// DefineBitFieldsOn decomposes host — an already-declared integer field —
// into the given sub-fields, most-significant-first. The widths must sum
// to host's bit width.
func (k *Kind) DefineBitFieldsOn(host string, specs ...BitSpec) *Kind {
	fd := k.Field(host)
	if fd == nil {
		panic(fmt.Sprintf("header: no such host field %q on kind %q", host, k.id))
	}
	width := fd.Type.Size(fd.Type.Default(), nil) * 8
	sum := 0
	for _, s := range specs {
		sum += s.Width
	}
	if sum != width {
		panic(fmt.Sprintf("header: bit-field widths on %q sum to %d, want %d", host, sum, width))
	}
	k.bitGroups[host] = append([]BitSpec{}, specs...)
	return k
}

// BitGroupFields returns the bit-field specs packed into host, or nil if
// host has no bit-fields defined — lets a generic renderer decompose a
// composite field without hand-written per-protocol code.
func (k *Kind) BitGroupFields(host string) []BitSpec {
	return k.bitGroups[host]
}

func (k *Kind) hostWidth(host string) int {
	fd := k.Field(host)
	return fd.Type.Size(fd.Type.Default(), nil) * 8
}

// BitField returns the current value of a sub-field packed into host.
// Width-1 sub-fields are conventionally read with BitFlag instead.
func (inst *Instance) BitField(host, name string) (uint64, error) {
	specs, ok := inst.kind.bitGroups[host]
	if !ok {
		return 0, fmt.Errorf("header: %q has no bit-fields defined", host)
	}
	hostVal, ok := bitsOf(inst.Get(host))
	if !ok {
		return 0, fmt.Errorf("header: host field %q is not an integer", host)
	}
	shift := inst.kind.hostWidth(host)
	for _, s := range specs {
		shift -= s.Width
		if s.Name == name {
			mask := uint64(1)<<s.Width - 1
			return (hostVal >> shift) & mask, nil
		}
	}
	return 0, fmt.Errorf("header: no such bit-field %q on %q", name, host)
}

// BitFlag returns a width-1 sub-field rendered as a boolean.
func (inst *Instance) BitFlag(host, name string) (bool, error) {
	v, err := inst.BitField(host, name)
	return v != 0, err
}

// SetBitField writes value into a sub-field packed into host, leaving
// every other bit of host — including reserved bits no sub-field names —
// unchanged, so they survive a read/write round-trip.
func (inst *Instance) SetBitField(host, name string, value uint64) error {
	specs, ok := inst.kind.bitGroups[host]
	if !ok {
		return fmt.Errorf("header: %q has no bit-fields defined", host)
	}
	shift := inst.kind.hostWidth(host)
	for _, s := range specs {
		shift -= s.Width
		if s.Name != name {
			continue
		}
		mask := uint64(1)<<s.Width - 1
		if value > mask {
			return fmt.Errorf("header: bit-field %q value %d exceeds width %d: %w", name, value, s.Width, field.ErrInvalidValue)
		}
		hostVal, _ := bitsOf(inst.Get(host))
		hostVal = (hostVal &^ (mask << shift)) | ((value & mask) << shift)
		return inst.Set(host, hostVal)
	}
	return fmt.Errorf("header: no such bit-field %q on %q", name, host)
}

// SetBitFlag writes a width-1 sub-field from a boolean.
func (inst *Instance) SetBitFlag(host, name string, value bool) error {
	if value {
		return inst.SetBitField(host, name, 1)
	}
	return inst.SetBitField(host, name, 0)
}
