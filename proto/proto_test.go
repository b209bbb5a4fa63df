package proto

import (
	"net"
	"testing"

	"packetgen/field"
	"packetgen/header"
	"packetgen/packet"
)

func TestTFTPReadRequestRoundTrip(t *testing.T) {
	p, err := packet.New(packet.DefaultBindings, Ethernet)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(IPv4); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(UDP, packet.FieldOverride{Name: "dst_port", Value: uint64(69)}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(RRQ, packet.FieldOverride{Name: "opcode", Value: "RRQ"}); err != nil {
		t.Fatal(err)
	}
	rrq := p.Header(RRQ, 0)
	if err := rrq.Set("filename", "boot.img"); err != nil {
		t.Fatal(err)
	}
	if err := rrq.Set("mode", "octet"); err != nil {
		t.Fatal(err)
	}

	b, err := p.ToBytes()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := packet.Parse(packet.DefaultBindings, b, Ethernet)
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Is(IPv4) || !parsed.Is(UDP) {
		t.Fatal("parsed stack is missing IPv4 or UDP")
	}
	tftpInst := parsed.Header(RRQ, 0)
	if tftpInst == nil {
		t.Fatal("discriminator did not dispatch the TFTP header to RRQ")
	}
	if got := tftpInst.Get("filename"); got != "boot.img" {
		t.Errorf("filename = %v, want boot.img", got)
	}
	if got := tftpInst.Get("mode"); got != "octet" {
		t.Errorf("mode = %v, want octet", got)
	}

	b2, err := parsed.ToBytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != string(b2) {
		t.Error("parse-then-rebuild did not reproduce the original bytes")
	}
}

func TestBuildIPv4UDPTftpAck(t *testing.T) {
	p, err := packet.New(packet.DefaultBindings, IPv4)
	if err != nil {
		t.Fatal(err)
	}
	ip := p.Header(IPv4, 0)
	ip.MustSet("src", net.ParseIP("10.0.0.1"))
	ip.MustSet("dst", net.ParseIP("10.0.0.2"))

	if _, err := p.Add(UDP); err != nil {
		t.Fatal(err)
	}
	udp := p.Header(UDP, 0)

	if _, err := p.Add(ACK, packet.FieldOverride{Name: "opcode", Value: "ACK"}); err != nil {
		t.Fatal(err)
	}
	// Add's binding defaults just set UDP's dst_port to 69 (the TFTP
	// well-known port, from the UDP->TFTP binding both ACK's base and
	// peers share); this is an ACK sent FROM that port, so fix up both
	// ports for the reply direction now that the push is done.
	udp.MustSet("src_port", uint64(69))
	udp.MustSet("dst_port", uint64(50000))
	ack := p.Header(ACK, 0)
	if err := ack.Set("block", uint64(1)); err != nil {
		t.Fatal(err)
	}

	b, err := p.ToBytes()
	if err != nil {
		t.Fatal(err)
	}
	// IPv4 (20) + UDP (8) + TFTP ACK (opcode 2 + block 2) = 32 bytes.
	if len(b) != 32 {
		t.Fatalf("built packet is %d bytes, want 32", len(b))
	}

	gotLen, _ := ip.Get("total_length").(uint64)
	if gotLen != 32 {
		t.Errorf("IPv4 total_length = %d, want 32", gotLen)
	}
	gotUDPLen, _ := udp.Get("length").(uint64)
	if gotUDPLen != 12 {
		t.Errorf("UDP length = %d, want 12", gotUDPLen)
	}
}

func TestMLDMLQDisambiguationByBodyLength(t *testing.T) {
	mldBody := make([]byte, 20) // max_resp_delay(2) + reserved(2) + address(16)
	mldFrame := append([]byte{130, 0, 0, 0}, mldBody...)

	parsedMLD, err := packet.Parse(packet.DefaultBindings, mldFrame, ICMPv6)
	if err != nil {
		t.Fatal(err)
	}
	if !parsedMLD.Is(MLD) {
		t.Error("20-byte body did not resolve to MLD")
	}
	if parsedMLD.Is(MLQ) {
		t.Error("20-byte body incorrectly resolved to MLQ")
	}

	mlqBody := make([]byte, 24) // max_resp_code+reserved+address+resv_s_qrv+qqic+num_sources, zero sources
	mlqFrame := append([]byte{130, 0, 0, 0}, mlqBody...)

	parsedMLQ, err := packet.Parse(packet.DefaultBindings, mlqFrame, ICMPv6)
	if err != nil {
		t.Fatal(err)
	}
	if !parsedMLQ.Is(MLQ) {
		t.Error("24-byte zero-source body did not resolve to MLQ")
	}
	if parsedMLQ.Is(MLD) {
		t.Error("24-byte body incorrectly resolved to MLD")
	}
}

func TestAmbiguousStackRejection(t *testing.T) {
	reg := packet.NewBindings()
	lower := header.NewKind("test-proto-lower", "Lower", Ethernet.Endian())
	lower.DefineField("tag", field.Uint8{})
	upperA := header.NewKind("test-proto-upper-a", "UpperA", Ethernet.Endian())
	upperB := header.NewKind("test-proto-upper-b", "UpperB", Ethernet.Endian())

	reg.Bind(lower, upperA, packet.Equals("tag", uint64(1)))
	reg.Bind(lower, upperB, packet.Equals("tag", uint64(1)))

	// The trailing byte keeps Parse from stopping at the end of the input,
	// so it goes on to resolve the header after lower.
	_, err := packet.Parse(reg, []byte{1, 0}, lower)
	if err != packet.ErrAmbiguousBinding {
		t.Errorf("expected ErrAmbiguousBinding, got %v", err)
	}
}
