// Package packet implements the packet composition engine: layered
// stacking of headers over a trailing payload buffer, and the binding
// registry that drives upper-layer dispatch between them.
package packet

import (
	"packetgen/header"
)

// Packet is an ordered, non-empty stack of header instances plus a
// trailing opaque payload. Headers are kept in wire order: index 0 is the
// outermost header, the last entry is the most recently pushed ("current
// top"), and the payload follows it.
type Packet struct {
	headers []*header.Instance
	payload []byte
	reg     *Bindings
}

// boundAncestor returns kind itself or the nearest ancestor reached by
// walking Kind.Base() that lower is registered to, or nil if none is. This
// lets Packet.Add push a discriminated subkind (e.g. a TFTP RRQ) directly
// even though the binding was registered against its base (TFTP).
func boundAncestor(reg *Bindings, lower, kind *header.Kind) *header.Kind {
	for k := kind; k != nil; k = k.Base() {
		if reg.HasBinding(lower, k) {
			return k
		}
	}
	return nil
}

func applyOverrides(inst *header.Instance, overrides []FieldOverride) error {
	for _, o := range overrides {
		if err := inst.Set(o.Name, o.Value); err != nil {
			return err
		}
	}
	return nil
}

// New starts a Packet with first as its sole, outermost header.
func New(reg *Bindings, first *header.Kind, overrides ...FieldOverride) (*Packet, error) {
	inst := first.New()
	if err := applyOverrides(inst, overrides); err != nil {
		return nil, err
	}
	return &Packet{headers: []*header.Instance{inst}, reg: reg}, nil
}

// Add pushes a header of kind onto the stack. The binding registered
// between the current top and kind supplies the field assignments applied
// to the current top (e.g. setting an IPv4 header's protocol number to
// advertise the upper header that follows it); overrides are then applied
// to the newly pushed header itself.
func (p *Packet) Add(kind *header.Kind, overrides ...FieldOverride) (*Packet, error) {
	if len(p.headers) == 0 {
		return nil, ErrUnboundStack
	}
	top := p.headers[len(p.headers)-1]
	bound := boundAncestor(p.reg, top.Kind(), kind)
	if bound == nil {
		return nil, ErrUnboundStack
	}
	for _, setter := range p.reg.DefaultsFor(top.Kind(), bound) {
		if err := top.Set(setter.Name, setter.Value); err != nil {
			return nil, err
		}
	}
	inst := kind.New()
	if err := applyOverrides(inst, overrides); err != nil {
		return nil, err
	}
	p.headers = append(p.headers, inst)
	return p, nil
}

// Is reports whether the stack contains a header of kind.
func (p *Packet) Is(kind *header.Kind) bool {
	for _, h := range p.headers {
		if h.Kind() == kind {
			return true
		}
	}
	return false
}

// Header returns the index-th header of kind in the stack (0-based), or
// nil if there are fewer than index+1 such headers.
func (p *Packet) Header(kind *header.Kind, index int) *header.Instance {
	count := 0
	for _, h := range p.headers {
		if h.Kind() == kind {
			if count == index {
				return h
			}
			count++
		}
	}
	return nil
}

// Headers returns the stack in wire order. The slice is owned by the
// Packet and must not be mutated by callers.
func (p *Packet) Headers() []*header.Instance { return p.headers }

// Outermost returns the first header pushed (the link-layer header in a
// parsed packet), or nil for an empty stack.
func (p *Packet) Outermost() *header.Instance {
	if len(p.headers) == 0 {
		return nil
	}
	return p.headers[0]
}

// Payload returns the trailing opaque bytes after the innermost header.
func (p *Packet) Payload() []byte { return p.payload }

// SetPayload replaces the trailing payload buffer.
func (p *Packet) SetPayload(b []byte) { p.payload = append([]byte{}, b...) }

// ToBytes recalculates every calculable field (Recalc) and concatenates
// each header's wire image followed by the payload.
func (p *Packet) ToBytes() ([]byte, error) {
	if err := p.Recalc(); err != nil {
		return nil, err
	}
	var out []byte
	for _, h := range p.headers {
		b, err := h.ToBytes()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	out = append(out, p.payload...)
	return out, nil
}

// Recalc reconciles every header's calculable fields (length, checksum,
// array counters) from innermost to outermost, so an outer header's length
// or checksum field can see the already-finalised bytes of everything
// beneath it. Calling Recalc twice in a row is idempotent: each calculable
// field is recomputed from the header's other fields and the payload, never
// from its own prior value.
func (p *Packet) Recalc() error {
	rest := append([]byte{}, p.payload...)
	for i := len(p.headers) - 1; i >= 0; i-- {
		h := p.headers[i]
		if err := applyCalc(h, rest); err != nil {
			return err
		}
		hb, err := h.ToBytes()
		if err != nil {
			return err
		}
		rest = append(append([]byte{}, hb...), rest...)
	}
	return nil
}

func applyCalc(h *header.Instance, rest []byte) error {
	for _, fd := range h.Kind().Fields() {
		switch fd.Calc {
		case header.CalcNone:
			continue
		case header.CalcLength:
			var total int
			switch fd.CalcScope {
			case header.ScopeTrailerOnly:
				total = len(rest)
			case header.ScopePayload:
				total = h.Len() + len(rest)
			default:
				total = h.Len()
			}
			if err := h.Set(fd.Name, uint64(total)); err != nil {
				return err
			}
		case header.CalcChecksum:
			if err := h.Set(fd.Name, uint64(0)); err != nil {
				return err
			}
			hb, err := h.ToBytes()
			if err != nil {
				return err
			}
			span := hb
			if fd.CalcScope == header.ScopePayload {
				span = append(append([]byte{}, hb...), rest...)
			}
			if err := h.Set(fd.Name, uint64(internetChecksum(span))); err != nil {
				return err
			}
		case header.CalcCounter:
			arr, _ := h.Get(fd.CalcTarget).([]any)
			if err := h.Set(fd.Name, uint64(len(arr))); err != nil {
				return err
			}
		}
	}
	return nil
}

// internetChecksum is the RFC 1071 one's-complement checksum used by
// IPv4/ICMP/UDP/TCP-family headers.
func internetChecksum(data []byte) uint16 {
	var sum uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}
	for sum > 0xFFFF {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}

// Parse instantiates first, reads it, then repeatedly consults reg to
// identify and read the next header until no binding matches or the input
// is exhausted. Remaining bytes become the payload of the innermost
// header read.
func Parse(reg *Bindings, data []byte, first *header.Kind) (*Packet, error) {
	p := &Packet{reg: reg}
	cursor := 0
	kind := first
	for {
		inst, n, err := kind.Read(data[cursor:])
		if err != nil {
			return nil, err
		}
		p.headers = append(p.headers, inst)
		cursor += n
		inst.SetRemaining(len(data) - cursor)
		if cursor >= len(data) {
			break
		}
		nextKind, err := reg.Resolve(inst.Kind(), inst)
		if err != nil {
			return nil, err
		}
		if nextKind == nil {
			break
		}
		kind = nextKind
	}
	p.payload = append([]byte{}, data[cursor:]...)
	return p, nil
}
