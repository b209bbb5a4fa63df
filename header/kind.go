// Package header implements the header/field framework: a header kind is a
// static, ordered list of field descriptors bound to a wire layout, with
// bit-field packing over a host integer field layered on top.
package header

import (
	"encoding/binary"
	"fmt"
	"sync"

	"packetgen/field"
)

// CalcKind names a calculable field's role, one Packet.Recalc reconciles
// automatically rather than leave to the caller.
type CalcKind int

const (
	// CalcNone marks an ordinary field with no automatic reconciliation.
	CalcNone CalcKind = iota
	// CalcLength marks a field that holds the encoded length of the
	// header (or header+payload, per CalcScope) it belongs to.
	CalcLength
	// CalcChecksum marks a field that holds a checksum over the header
	// (or header+payload, per CalcScope).
	CalcChecksum
	// CalcCounter marks a field that holds the element count of the
	// array field named by CalcTarget.
	CalcCounter
)

// CalcScope distinguishes what a CalcLength/CalcChecksum field covers.
type CalcScope int

const (
	// ScopeHeader covers only the enclosing header's own bytes.
	ScopeHeader CalcScope = iota
	// ScopePayload covers the header's bytes plus everything after it
	// (used by e.g. IPv4 total length, UDP length/checksum).
	ScopePayload
	// ScopeTrailerOnly covers everything after the header, excluding the
	// header's own bytes (used by e.g. IPv6 payload length).
	ScopeTrailerOnly
)

// FieldDescriptor is one named, typed slot in a Kind's field list.
type FieldDescriptor struct {
	Name    string
	Type    field.Type
	Default any
	// Builder parameterises variable-length types at read/write time —
	// e.g. returning an element count for an Array field, read off an
	// already-materialised earlier field.
	Builder func(inst *Instance) any
	Calc    CalcKind
	// CalcScope applies to CalcLength/CalcChecksum fields.
	CalcScope CalcScope
	// CalcTarget names the array field a CalcCounter field counts.
	CalcTarget string
}

// FieldOption configures optional FieldDescriptor attributes at
// declaration time.
type FieldOption func(*FieldDescriptor)

// WithDefault sets the field's default value.
func WithDefault(v any) FieldOption { return func(fd *FieldDescriptor) { fd.Default = v } }

// WithBuilder installs the field's builder callback.
func WithBuilder(fn func(inst *Instance) any) FieldOption {
	return func(fd *FieldDescriptor) { fd.Builder = fn }
}

// Calculable marks the field as automatically reconciled by Recalc.
func Calculable(kind CalcKind, scope CalcScope, target string) FieldOption {
	return func(fd *FieldDescriptor) {
		fd.Calc = kind
		fd.CalcScope = scope
		fd.CalcTarget = target
	}
}

// Kind is a header class — a static, ordered field list plus the metadata
// the framework needs to read, write and identify instances of it. Two
// Kinds with identical field sequences are distinct: identity is the Kind
// pointer, not the layout.
type Kind struct {
	id       string
	protocol string
	endian   binary.ByteOrder

	fields []FieldDescriptor

	discriminatorField string
	dispatch           func(inst *Instance) *Kind

	bitGroups map[string][]BitSpec

	// base is the Kind this one was derived from via DeriveSubkind, or
	// nil for a root Kind. It lets binding lookups registered against a
	// base (e.g. a discriminated protocol's parent) resolve for any of
	// its subkinds too.
	base *Kind
}

// NewKind declares a new, empty header kind. id is the stable identifier
// HeaderID reports and the key Register and Lookup use; protocol is the
// human-facing protocol name.
func NewKind(id, protocol string, endian binary.ByteOrder) *Kind {
	return &Kind{
		id:        id,
		protocol:  protocol,
		endian:    endian,
		bitGroups: make(map[string][]BitSpec),
	}
}

// HeaderID returns the Kind's stable identifier.
func (k *Kind) HeaderID() string { return k.id }

// ProtocolName returns the Kind's human-facing protocol name.
func (k *Kind) ProtocolName() string { return k.protocol }

// Endian returns the byte order new integer fields on this Kind default to.
func (k *Kind) Endian() binary.ByteOrder { return k.endian }

func (k *Kind) resolveType(t field.Type) field.Type {
	if oa, ok := t.(field.OrderAware); ok {
		return oa.WithOrder(k.endian)
	}
	return t
}

func (k *Kind) indexOf(name string) int {
	for i, fd := range k.fields {
		if fd.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the descriptor for name, or nil if no such field exists.
func (k *Kind) Field(name string) *FieldDescriptor {
	if i := k.indexOf(name); i >= 0 {
		return &k.fields[i]
	}
	return nil
}

// Fields returns the Kind's field descriptors in wire order. The slice is
// owned by the Kind and must not be mutated by callers.
func (k *Kind) Fields() []FieldDescriptor { return k.fields }

// DefineField appends a new field to the end of the Kind's field list.
func (k *Kind) DefineField(name string, t field.Type, opts ...FieldOption) *Kind {
	if k.indexOf(name) >= 0 {
		panic(fmt.Sprintf("header: duplicate field %q on kind %q", name, k.id))
	}
	fd := FieldDescriptor{Name: name, Type: k.resolveType(t)}
	for _, opt := range opts {
		opt(&fd)
	}
	k.fields = append(k.fields, fd)
	return k
}

// DefineFieldBefore inserts a new field immediately before target.
func (k *Kind) DefineFieldBefore(target, name string, t field.Type, opts ...FieldOption) *Kind {
	idx := k.indexOf(target)
	if idx < 0 {
		panic(fmt.Sprintf("header: no such field %q on kind %q", target, k.id))
	}
	fd := FieldDescriptor{Name: name, Type: k.resolveType(t)}
	for _, opt := range opts {
		opt(&fd)
	}
	k.fields = insertField(k.fields, idx, fd)
	return k
}

// DefineFieldAfter inserts a new field immediately after target.
func (k *Kind) DefineFieldAfter(target, name string, t field.Type, opts ...FieldOption) *Kind {
	idx := k.indexOf(target)
	if idx < 0 {
		panic(fmt.Sprintf("header: no such field %q on kind %q", target, k.id))
	}
	fd := FieldDescriptor{Name: name, Type: k.resolveType(t)}
	for _, opt := range opts {
		opt(&fd)
	}
	k.fields = insertField(k.fields, idx+1, fd)
	return k
}

// DeleteField removes a field, used by subkinds that replace a parent's
// trailing body with alternative fields.
func (k *Kind) DeleteField(name string) *Kind {
	idx := k.indexOf(name)
	if idx < 0 {
		panic(fmt.Sprintf("header: no such field %q on kind %q", name, k.id))
	}
	k.fields = append(k.fields[:idx], k.fields[idx+1:]...)
	return k
}

// UpdateField changes a field's default value or enum map in place.
// attr is "default" or "enum".
func (k *Kind) UpdateField(name, attr string, value any) *Kind {
	idx := k.indexOf(name)
	if idx < 0 {
		panic(fmt.Sprintf("header: no such field %q on kind %q", name, k.id))
	}
	switch attr {
	case "default":
		k.fields[idx].Default = value
	case "enum":
		names, ok := value.(map[string]uint64)
		if !ok {
			panic("header: UpdateField enum value must be map[string]uint64")
		}
		if e, ok := k.fields[idx].Type.(field.Enum); ok {
			e.Names = names
			k.fields[idx].Type = e
		} else {
			panic(fmt.Sprintf("header: field %q is not an Enum", name))
		}
	default:
		panic(fmt.Sprintf("header: unknown UpdateField attribute %q", attr))
	}
	return k
}

func insertField(fields []FieldDescriptor, idx int, fd FieldDescriptor) []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(fields)+1)
	out = append(out, fields[:idx]...)
	out = append(out, fd)
	out = append(out, fields[idx:]...)
	return out
}

// DeriveSubkind copies the receiver's current field list into a new Kind
// sharing the same endian and protocol name, ready for the caller to apply
// DeleteField/DefineField* to build the subkind's distinct tail. The
// parent is never mutated.
func (k *Kind) DeriveSubkind(id string) *Kind {
	sub := NewKind(id, k.protocol, k.endian)
	sub.fields = append([]FieldDescriptor{}, k.fields...)
	for host, specs := range k.bitGroups {
		sub.bitGroups[host] = append([]BitSpec{}, specs...)
	}
	sub.base = k
	return sub
}

// Base returns the Kind this one was derived from via DeriveSubkind, or
// nil if it is a root Kind.
func (k *Kind) Base() *Kind { return k.base }

// RegisterDiscriminator installs the polymorphic re-parse hook: once field
// is read during Kind.Read, dispatch is invoked on the partially-read
// instance. If it returns a non-nil subkind, the instance switches to that
// subkind and the remaining bytes are parsed against the subkind's fields
// that follow the discriminator.
func (k *Kind) RegisterDiscriminator(field string, dispatch func(inst *Instance) *Kind) *Kind {
	k.discriminatorField = field
	k.dispatch = dispatch
	return k
}

// New creates a zero-valued Instance of this Kind, every field set to its
// declared default.
func (k *Kind) New() *Instance {
	inst := &Instance{kind: k, values: make(map[string]any, len(k.fields))}
	for _, fd := range k.fields {
		if fd.Default != nil {
			inst.values[fd.Name] = fd.Default
		} else {
			inst.values[fd.Name] = fd.Type.Default()
		}
	}
	return inst
}

var registry = struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
}{kinds: make(map[string]*Kind)}

// Register adds k to the process-wide header registry under its HeaderID.
// Intended to be called once, from a proto package's init(), never after
// the registry has started being read.
func Register(k *Kind) *Kind {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.kinds[k.id] = k
	return k
}

// Lookup returns the registered Kind for id, or nil.
func Lookup(id string) *Kind {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.kinds[id]
}
