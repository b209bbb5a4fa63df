package header

import "fmt"

// Instance is a single materialised header: a Kind plus resolved field
// values. Reading proceeds field-by-field in the Kind's declared order;
// each field's Builder (if present) is evaluated against the
// already-materialised fields that precede it.
type Instance struct {
	kind      *Kind
	values    map[string]any
	remaining int
}

// Kind returns the instance's current Kind. A discriminator dispatch
// during Read can change this away from the Kind that began the parse.
func (inst *Instance) Kind() *Kind { return inst.kind }

// ProtocolName is a convenience for inst.Kind().ProtocolName().
func (inst *Instance) ProtocolName() string { return inst.kind.ProtocolName() }

// SetRemaining records how many bytes of the input buffer were left
// unconsumed immediately after this instance was read. Packet.Parse calls
// this before consulting the binding registry, so a binding predicate can
// inspect a lower header's trailing body length (e.g. "body longer than
// 23 bytes", used to tell MLDv1 and MLDv2 query bodies apart) without the
// header itself declaring a field for bytes it never parses. Instances
// built programmatically (New, Add) report zero.
func (inst *Instance) SetRemaining(n int) { inst.remaining = n }

// RemainingLen returns the value last set by SetRemaining.
func (inst *Instance) RemainingLen() int { return inst.remaining }

// Get returns the current value of a field, or nil if no such field exists.
func (inst *Instance) Get(name string) any { return inst.values[name] }

// GetString renders a field's value as text — the enum name if the field
// is an Enum and the value is known, otherwise fmt.Sprint of the raw value.
func (inst *Instance) GetString(name string) string {
	fd := inst.kind.Field(name)
	v := inst.values[name]
	if fd != nil {
		if e, ok := fd.Type.(interface{ RenderString(any) string }); ok {
			return e.RenderString(v)
		}
	}
	return fmt.Sprint(v)
}

// Set validates and assigns a field's value, failing with the field type's
// InvalidValue error if the value is out of range or malformed.
func (inst *Instance) Set(name string, v any) error {
	fd := inst.kind.Field(name)
	if fd == nil {
		return fmt.Errorf("header: no such field %q on kind %q", name, inst.kind.id)
	}
	var param any
	if fd.Builder != nil {
		param = fd.Builder(inst)
	}
	if _, err := fd.Type.Write(v, param); err != nil {
		return fmt.Errorf("header %s: field %s: %w", inst.kind.id, name, err)
	}
	inst.values[name] = v
	return nil
}

// MustSet is Set but panics on error — for use in static header-building
// helpers where the value is a Go literal known to be valid.
func (inst *Instance) MustSet(name string, v any) {
	if err := inst.Set(name, v); err != nil {
		panic(err)
	}
}

// Read parses data against k's field list in order, returning the
// resulting instance and the number of bytes consumed. If k has a
// registered discriminator, the instance's Kind may change mid-read to the
// subkind the discriminator dispatches to.
func (k *Kind) Read(data []byte) (*Instance, int, error) {
	inst := &Instance{kind: k, values: make(map[string]any, len(k.fields))}
	cursor := 0
	fields := k.fields
	activeKind := k

	for i := 0; i < len(fields); i++ {
		fd := fields[i]
		var param any
		if fd.Builder != nil {
			param = fd.Builder(inst)
		}
		v, next, err := fd.Type.Read(data, cursor, param)
		if err != nil {
			return nil, 0, fmt.Errorf("header %s: field %s: %w", activeKind.id, fd.Name, err)
		}
		inst.values[fd.Name] = v
		cursor = next

		if activeKind.discriminatorField == fd.Name && activeKind.dispatch != nil {
			if sub := activeKind.dispatch(inst); sub != nil && sub != activeKind {
				inst.kind = sub
				activeKind = sub
				fields = sub.fields
				idx := sub.indexOf(fd.Name)
				if idx >= 0 {
					i = idx
				}
			}
		}
	}

	return inst, cursor, nil
}

// ToBytes serializes the instance's fields, in its Kind's declared order,
// into their wire representation.
func (inst *Instance) ToBytes() ([]byte, error) {
	var out []byte
	for _, fd := range inst.kind.fields {
		v, ok := inst.values[fd.Name]
		if !ok {
			if fd.Default != nil {
				v = fd.Default
			} else {
				v = fd.Type.Default()
			}
		}
		var param any
		if fd.Builder != nil {
			param = fd.Builder(inst)
		}
		b, err := fd.Type.Write(v, param)
		if err != nil {
			return nil, fmt.Errorf("header %s: field %s: %w", inst.kind.id, fd.Name, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// Len reports the instance's current wire length without allocating the
// serialized bytes.
func (inst *Instance) Len() int {
	total := 0
	for _, fd := range inst.kind.fields {
		v := inst.values[fd.Name]
		var param any
		if fd.Builder != nil {
			param = fd.Builder(inst)
		}
		total += fd.Type.Size(v, param)
	}
	return total
}

// Clone returns a deep-enough copy of the instance (fresh value map,
// sharing the immutable Kind) so a caller can mutate one Packet's headers
// without disturbing another built from the same template.
func (inst *Instance) Clone() *Instance {
	out := &Instance{kind: inst.kind, values: make(map[string]any, len(inst.values))}
	for k, v := range inst.values {
		out.values[k] = v
	}
	return out
}
