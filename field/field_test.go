package field

import (
	"encoding/binary"
	"net"
	"testing"
)

func roundTrip(t *testing.T, ty Type, value any) any {
	b, err := ty.Write(value, nil)
	if err != nil {
		t.Fatalf("Write(%v): %v", value, err)
	}
	if got := ty.Size(value, nil); got != len(b) {
		t.Errorf("Size(%v) = %d, want %d", value, got, len(b))
	}
	got, n, err := ty.Read(b, 0, nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(b) {
		t.Errorf("Read consumed %d bytes, want %d", n, len(b))
	}
	return got
}

func TestUintRoundTrip(t *testing.T) {
	if got := roundTrip(t, Uint8{}, uint64(200)); got != uint64(200) {
		t.Errorf("Uint8 round trip = %v", got)
	}
	if got := roundTrip(t, Uint16{}, uint64(0xBEEF)); got != uint64(0xBEEF) {
		t.Errorf("Uint16 round trip = %v", got)
	}
	if got := roundTrip(t, Uint32{}, uint64(0xDEADBEEF)); got != uint64(0xDEADBEEF) {
		t.Errorf("Uint32 round trip = %v", got)
	}
}

func TestUint16EndianOrder(t *testing.T) {
	be := Uint16{}
	b, _ := be.Write(uint64(0x0102), nil)
	if b[0] != 0x01 || b[1] != 0x02 {
		t.Fatalf("expected big-endian default, got %v", b)
	}
	le, ok := Uint16{}.WithOrder(binary.LittleEndian).(Uint16)
	if !ok {
		t.Fatal("WithOrder did not return a Uint16")
	}
	b2, _ := le.Write(uint64(0x0102), nil)
	if b2[0] != 0x02 || b2[1] != 0x01 {
		t.Fatalf("expected little-endian bytes, got %v", b2)
	}
}

func TestUint8RejectsOutOfRange(t *testing.T) {
	if _, err := (Uint8{}).Write(uint64(256), nil); err != ErrInvalidValue {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestEnumWritesNameOrNumber(t *testing.T) {
	e := Enum{Base: Uint8{}, Names: map[string]uint64{"foo": 1}}
	b1, err := e.Write("foo", nil)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := e.Write(uint64(1), nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Errorf("name and numeric write diverged: %v vs %v", b1, b2)
	}
	if _, err := e.Write("bar", nil); err == nil {
		t.Error("expected error for unknown enum name")
	}
	if got := e.RenderString(uint64(1)); got != "foo" {
		t.Errorf("RenderString(1) = %q, want foo", got)
	}
	if got := e.RenderString(uint64(99)); got != "99" {
		t.Errorf("RenderString(99) = %q, want 99", got)
	}
}

func TestMACAddressRoundTrip(t *testing.T) {
	mac := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	got := roundTrip(t, MACAddress{}, mac)
	gotMAC, ok := got.(net.HardwareAddr)
	if !ok || gotMAC.String() != mac.String() {
		t.Errorf("MACAddress round trip = %v, want %v", got, mac)
	}
	if _, err := (MACAddress{}).Write("zz:zz:zz:zz:zz:zz", nil); err == nil {
		t.Error("expected error for malformed MAC string")
	}
}

func TestIPv4AddressRoundTrip(t *testing.T) {
	ip := net.ParseIP("192.168.1.1")
	got := roundTrip(t, IPv4Address{}, ip)
	gotIP, ok := got.(net.IP)
	if !ok || !gotIP.Equal(ip) {
		t.Errorf("IPv4Address round trip = %v, want %v", got, ip)
	}
}

func TestIPv6AddressRoundTrip(t *testing.T) {
	ip := net.ParseIP("2001:db8::1")
	got := roundTrip(t, IPv6Address{}, ip)
	gotIP, ok := got.(net.IP)
	if !ok || !gotIP.Equal(ip) {
		t.Errorf("IPv6Address round trip = %v, want %v", got, ip)
	}
}

func TestCStringRoundTrip(t *testing.T) {
	b, err := (CString{}).Write("octet.txt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if b[len(b)-1] != 0 {
		t.Fatal("CString.Write did not terminate with a zero byte")
	}
	got, n, err := (CString{}).Read(append(b, 0xFF), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "octet.txt" || n != len(b) {
		t.Errorf("CString round trip = %q, %d bytes", got, n)
	}
}

func TestLengthPrefixedString(t *testing.T) {
	s := LengthPrefixedString{}
	b, err := s.Write("hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	got, n, err := s.Read(b, 0, len(b))
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" || n != len(b) {
		t.Errorf("LengthPrefixedString round trip = %q, %d", got, n)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	a := Array{Elem: Uint16{}}
	vals := []any{uint64(1), uint64(2), uint64(3)}
	b, err := a.Write(vals, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, n, err := a.Read(b, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(b) {
		t.Errorf("Array.Read consumed %d, want %d", n, len(b))
	}
	gotVals, ok := got.([]any)
	if !ok || len(gotVals) != 3 {
		t.Fatalf("Array round trip = %v", got)
	}
	for i, v := range gotVals {
		if v != vals[i] {
			t.Errorf("element %d = %v, want %v", i, v, vals[i])
		}
	}
}

func TestOpaqueBoundedRead(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	got, n, err := (Opaque{}).Read(data, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Opaque.Read consumed %d, want 3", n)
	}
	b, ok := got.([]byte)
	if !ok || string(b) != string([]byte{2, 3}) {
		t.Errorf("Opaque.Read = %v, want [2 3]", got)
	}
}
