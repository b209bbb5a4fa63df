package packet

import (
	"encoding/binary"
	"testing"

	"packetgen/field"
	"packetgen/header"
)

func newTestKinds() (outer, middle, inner *header.Kind, reg *Bindings) {
	outer = header.NewKind("test-outer", "Outer", binary.BigEndian)
	outer.DefineField("kind", field.Uint8{}, header.WithDefault(uint64(1)))
	outer.DefineField("length", field.Uint16{}, header.Calculable(header.CalcLength, header.ScopePayload, ""))

	middle = header.NewKind("test-middle", "Middle", binary.BigEndian)
	middle.DefineField("proto", field.Uint8{}, header.WithDefault(uint64(9)))
	middle.DefineField("checksum", field.Uint16{}, header.Calculable(header.CalcChecksum, header.ScopePayload, ""))

	inner = header.NewKind("test-inner", "Inner", binary.BigEndian)
	inner.DefineField("tag", field.Uint8{})

	reg = NewBindings()
	reg.Bind(outer, middle, Equals("kind", uint64(1)), FieldOverride{Name: "kind", Value: uint64(1)})
	reg.Bind(middle, inner, Equals("proto", uint64(9)), FieldOverride{Name: "proto", Value: uint64(9)})
	return
}

func TestBuildAddToBytesAndParseRoundTrip(t *testing.T) {
	outer, middle, inner, reg := newTestKinds()

	p, err := New(reg, outer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(middle); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(inner); err != nil {
		t.Fatal(err)
	}
	p.SetPayload([]byte("payload"))

	b, err := p.ToBytes()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(reg, b, outer)
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Is(middle) || !parsed.Is(inner) {
		t.Fatal("parsed packet is missing an expected header")
	}
	if string(parsed.Payload()) != "payload" {
		t.Errorf("payload = %q, want %q", parsed.Payload(), "payload")
	}
	if got := parsed.Header(inner, 0).Get("tag"); got != uint64(0) {
		t.Errorf("tag = %v, want 0", got)
	}

	b2, err := parsed.ToBytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != string(b2) {
		t.Errorf("build-then-parse-then-rebuild is not byte-identical:\n%v\n%v", b, b2)
	}
}

func TestRecalcIsIdempotent(t *testing.T) {
	outer, middle, inner, reg := newTestKinds()
	p, _ := New(reg, outer)
	p.Add(middle)
	p.Add(inner)
	p.SetPayload([]byte("xyz"))

	if err := p.Recalc(); err != nil {
		t.Fatal(err)
	}
	first, _ := p.Header(outer, 0).ToBytes()
	if err := p.Recalc(); err != nil {
		t.Fatal(err)
	}
	second, _ := p.Header(outer, 0).ToBytes()
	if string(first) != string(second) {
		t.Errorf("Recalc is not idempotent: %v != %v", first, second)
	}
}

func TestCalcLengthCoversPayload(t *testing.T) {
	outer, middle, inner, reg := newTestKinds()
	p, _ := New(reg, outer)
	p.Add(middle)
	p.Add(inner)
	p.SetPayload([]byte("0123456789"))

	if err := p.Recalc(); err != nil {
		t.Fatal(err)
	}
	outerLen := p.Header(outer, 0).Len()
	innerLen := p.Header(inner, 0).Len()
	middleLen := p.Header(middle, 0).Len()
	gotLen, _ := p.Header(outer, 0).Get("length").(uint64)
	want := outerLen + middleLen + innerLen + 10
	if int(gotLen) != want {
		t.Errorf("outer length = %d, want %d", gotLen, want)
	}
}

func TestAddRejectsUnboundKind(t *testing.T) {
	outer, _, inner, reg := newTestKinds()
	p, _ := New(reg, outer)
	if _, err := p.Add(inner); err != ErrUnboundStack {
		t.Errorf("expected ErrUnboundStack pushing an unbound kind directly onto outer, got %v", err)
	}
}

func TestResolveAmbiguousTiesFail(t *testing.T) {
	lower := header.NewKind("test-lower", "Lower", binary.BigEndian)
	lower.DefineField("tag", field.Uint8{})
	upperA := header.NewKind("test-upper-a", "UpperA", binary.BigEndian)
	upperA.DefineField("x", field.Uint8{})
	upperB := header.NewKind("test-upper-b", "UpperB", binary.BigEndian)
	upperB.DefineField("x", field.Uint8{})

	reg := NewBindings()
	reg.Bind(lower, upperA, Equals("tag", uint64(5)))
	reg.Bind(lower, upperB, Equals("tag", uint64(5)))

	inst, _, err := lower.Read([]byte{5})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Resolve(lower, inst); err != ErrAmbiguousBinding {
		t.Errorf("expected ErrAmbiguousBinding, got %v", err)
	}

	reg.AllowAmbiguousTies(true)
	got, err := reg.Resolve(lower, inst)
	if err != nil {
		t.Fatal(err)
	}
	if got != upperA && got != upperB {
		t.Errorf("Resolve with ties allowed returned %v, want upperA or upperB", got)
	}
}

func TestResolvePrefersHigherSpecificity(t *testing.T) {
	lower := header.NewKind("test-lower2", "Lower", binary.BigEndian)
	lower.DefineField("tag", field.Uint8{})
	lower.DefineField("len", field.Uint8{})
	generic := header.NewKind("test-generic", "Generic", binary.BigEndian)
	specific := header.NewKind("test-specific", "Specific", binary.BigEndian)

	reg := NewBindings()
	reg.Bind(lower, generic, Equals("tag", uint64(7)))
	reg.Bind(lower, specific, All(Equals("tag", uint64(7)), ByLambda([]string{"len"}, func(inst *header.Instance) bool {
		v, _ := inst.Get("len").(uint64)
		return v > 10
	})))

	inst, _, err := lower.Read([]byte{7, 20})
	if err != nil {
		t.Fatal(err)
	}
	got, err := reg.Resolve(lower, inst)
	if err != nil {
		t.Fatal(err)
	}
	if got != specific {
		t.Errorf("Resolve = %v, want the more specific binding", got)
	}
}
