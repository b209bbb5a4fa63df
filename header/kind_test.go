package header

import (
	"encoding/binary"
	"testing"

	"packetgen/field"
)

func TestNewInstanceUsesDeclaredDefaults(t *testing.T) {
	k := NewKind("test-defaults", "Test", binary.BigEndian)
	k.DefineField("ttl", field.Uint8{}, WithDefault(uint64(64)))
	k.DefineField("flags", field.Uint8{})

	inst := k.New()
	if got := inst.Get("ttl"); got != uint64(64) {
		t.Errorf("ttl default = %v, want 64", got)
	}
	if got := inst.Get("flags"); got != uint64(0) {
		t.Errorf("flags default = %v, want 0 (field.Uint8's own Default)", got)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	k := NewKind("test-roundtrip", "Test", binary.BigEndian)
	k.DefineField("a", field.Uint8{})
	k.DefineField("b", field.Uint16{})

	inst, n, err := k.Read([]byte{0x05, 0x01, 0x02})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("consumed %d bytes, want 3", n)
	}
	if got := inst.Get("a"); got != uint64(5) {
		t.Errorf("a = %v, want 5", got)
	}
	if got := inst.Get("b"); got != uint64(0x0102) {
		t.Errorf("b = %v, want 0x0102", got)
	}

	out, err := inst.ToBytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string([]byte{0x05, 0x01, 0x02}) {
		t.Errorf("ToBytes = %v, want [5 1 2]", out)
	}
	if inst.Len() != len(out) {
		t.Errorf("Len() = %d, want %d", inst.Len(), len(out))
	}
}

func TestOrderAwarePropagatesHeaderEndian(t *testing.T) {
	k := NewKind("test-endian", "Test", binary.LittleEndian)
	k.DefineField("v", field.Uint16{})

	inst, _, err := k.Read([]byte{0x01, 0x02})
	if err != nil {
		t.Fatal(err)
	}
	if got := inst.Get("v"); got != uint64(0x0201) {
		t.Errorf("little-endian header read v = %v, want 0x0201", got)
	}
}

func TestDuplicateFieldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate field name")
		}
	}()
	k := NewKind("test-dup", "Test", binary.BigEndian)
	k.DefineField("a", field.Uint8{})
	k.DefineField("a", field.Uint8{})
}

func TestBitFieldsPreserveReservedBits(t *testing.T) {
	k := NewKind("test-bits", "Test", binary.BigEndian)
	k.DefineField("flags", field.Uint16{})
	k.DefineBitFieldsOn("flags",
		BitSpec{Name: "reserved", Width: 1},
		BitSpec{Name: "df", Width: 1},
		BitSpec{Name: "mf", Width: 1},
		BitSpec{Name: "offset", Width: 13},
	)

	inst, _, err := k.Read([]byte{0xFF, 0xFF})
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.SetBitFlag("flags", "df", false); err != nil {
		t.Fatal(err)
	}
	got, err := inst.BitField("flags", "offset")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x1FFF {
		t.Errorf("offset = %#x, want 0x1fff (untouched by the df write)", got)
	}
	df, err := inst.BitFlag("flags", "df")
	if err != nil {
		t.Fatal(err)
	}
	if df {
		t.Error("df flag should now be false")
	}
}

func TestBitGroupFieldsReportsDeclaredSpecs(t *testing.T) {
	k := NewKind("test-bitgroup-fields", "Test", binary.BigEndian)
	k.DefineField("flags", field.Uint8{})
	k.DefineField("other", field.Uint8{})
	k.DefineBitFieldsOn("flags",
		BitSpec{Name: "a", Width: 3},
		BitSpec{Name: "b", Width: 5},
	)

	specs := k.BitGroupFields("flags")
	if len(specs) != 2 || specs[0].Name != "a" || specs[1].Name != "b" {
		t.Errorf("BitGroupFields(flags) = %v, want [a:3 b:5]", specs)
	}

	if got := k.BitGroupFields("other"); got != nil {
		t.Errorf("BitGroupFields(other) = %v, want nil (no bit-fields declared)", got)
	}
}

func TestBitFieldWidthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when widths don't sum to the host's bit width")
		}
	}()
	k := NewKind("test-bits-bad", "Test", binary.BigEndian)
	k.DefineField("flags", field.Uint8{})
	k.DefineBitFieldsOn("flags", BitSpec{Name: "only", Width: 4})
}

func TestDiscriminatorSwapsSubkind(t *testing.T) {
	base := NewKind("test-base", "Test", binary.BigEndian)
	base.DefineField("opcode", field.Uint8{})

	variantA := base.DeriveSubkind("test-variant-a").DefineField("extra", field.Uint8{})
	variantB := base.DeriveSubkind("test-variant-b").DefineField("other", field.Uint16{})

	base.RegisterDiscriminator("opcode", func(inst *Instance) *Kind {
		op, _ := inst.Get("opcode").(uint64)
		if op == 1 {
			return variantA
		}
		return variantB
	})

	instA, n, err := base.Read([]byte{0x01, 0x42})
	if err != nil {
		t.Fatal(err)
	}
	if instA.Kind() != variantA {
		t.Fatalf("expected dispatch to variantA, got %q", instA.Kind().HeaderID())
	}
	if got := instA.Get("extra"); got != uint64(0x42) {
		t.Errorf("extra = %v, want 0x42", got)
	}
	if n != 2 {
		t.Errorf("consumed %d bytes, want 2", n)
	}

	instB, n, err := base.Read([]byte{0x02, 0x01, 0x02})
	if err != nil {
		t.Fatal(err)
	}
	if instB.Kind() != variantB {
		t.Fatalf("expected dispatch to variantB, got %q", instB.Kind().HeaderID())
	}
	if got := instB.Get("other"); got != uint64(0x0102) {
		t.Errorf("other = %v, want 0x0102", got)
	}
	if n != 3 {
		t.Errorf("consumed %d bytes, want 3", n)
	}
}

func TestDeriveSubkindDoesNotMutateParent(t *testing.T) {
	base := NewKind("test-parent", "Test", binary.BigEndian)
	base.DefineField("a", field.Uint8{})
	sub := base.DeriveSubkind("test-child").DefineField("b", field.Uint8{})

	if len(base.Fields()) != 1 {
		t.Errorf("parent grew to %d fields after deriving a subkind", len(base.Fields()))
	}
	if len(sub.Fields()) != 2 {
		t.Errorf("subkind has %d fields, want 2", len(sub.Fields()))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	k := NewKind("test-clone", "Test", binary.BigEndian)
	k.DefineField("a", field.Uint8{})
	inst := k.New()
	clone := inst.Clone()
	if err := clone.Set("a", uint64(9)); err != nil {
		t.Fatal(err)
	}
	if inst.Get("a") == clone.Get("a") {
		t.Error("mutating the clone also changed the original")
	}
}
