package pcapng

import (
	"encoding/binary"
	"testing"

	"packetgen/packet"
	"packetgen/proto"
)

func TestArrayToFileThenReadRoundTrip(t *testing.T) {
	spec := ArrayToFileSpec{
		Array: []ArrayElement{
			{Data: []byte("first packet")},
			{Data: []byte("second packet")},
		},
		LinkType:  1,
		SnapLen:   65535,
		Timestamp: 1000,
		TsInc:     10,
	}
	f, err := ArrayToFile(spec)
	if err != nil {
		t.Fatal(err)
	}

	b, err := f.ToBytes()
	if err != nil {
		t.Fatal(err)
	}

	reread := &File{}
	if err := reread.Read(b); err != nil {
		t.Fatal(err)
	}
	if len(reread.Sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(reread.Sections))
	}
	sec := reread.Sections[0]
	if len(sec.Packets) != 2 {
		t.Fatalf("got %d packets, want 2", len(sec.Packets))
	}
	if string(sec.Packets[0].Data()) != "first packet" {
		t.Errorf("packet 0 data = %q", sec.Packets[0].Data())
	}
	if string(sec.Packets[1].Data()) != "second packet" {
		t.Errorf("packet 1 data = %q", sec.Packets[1].Data())
	}

	epb0, ok := sec.Packets[0].(*EnhancedPacketBlock)
	if !ok {
		t.Fatal("packet 0 is not an EnhancedPacketBlock")
	}
	if epb0.Timestamp() != 1000 {
		t.Errorf("packet 0 timestamp = %d, want 1000", epb0.Timestamp())
	}
	epb1 := sec.Packets[1].(*EnhancedPacketBlock)
	if epb1.Timestamp() != 1010 {
		t.Errorf("packet 1 timestamp = %d, want 1010", epb1.Timestamp())
	}
}

func TestFileRoundTripIsByteIdentical(t *testing.T) {
	f, err := ArrayToFile(ArrayToFileSpec{
		Array:    []ArrayElement{{Data: []byte{1, 2, 3}}},
		LinkType: 1,
		SnapLen:  1500,
	})
	if err != nil {
		t.Fatal(err)
	}
	b1, err := f.ToBytes()
	if err != nil {
		t.Fatal(err)
	}
	reread := &File{}
	if err := reread.Read(b1); err != nil {
		t.Fatal(err)
	}
	b2, err := reread.ToBytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Error("round trip through Read/ToBytes is not byte-identical")
	}
}

func TestEndianIndependentRead(t *testing.T) {
	leSHB := &SectionHeaderBlock{MajorVersion: 1, MinorVersion: 0, SectionLength: -1}
	beSHB := &SectionHeaderBlock{MajorVersion: 1, MinorVersion: 0, SectionLength: -1}

	leBytes, err := leSHB.Bytes(binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	beBytes, err := beSHB.Bytes(binary.BigEndian)
	if err != nil {
		t.Fatal(err)
	}

	var f File
	if err := f.Read(leBytes); err != nil {
		t.Fatalf("failed to read little-endian SHB: %v", err)
	}
	if f.Sections[0].Endian != binary.LittleEndian {
		t.Error("did not detect little-endian byte-order magic")
	}

	var f2 File
	if err := f2.Read(beBytes); err != nil {
		t.Fatalf("failed to read big-endian SHB: %v", err)
	}
	if f2.Sections[0].Endian != binary.BigEndian {
		t.Error("did not detect big-endian byte-order magic")
	}
}

func TestEnhancedPacketBlockPadding(t *testing.T) {
	epb := &EnhancedPacketBlock{PacketData: []byte{1, 2, 3}, OriginalLen: 3}
	b, err := epb.Bytes(binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	// 12-byte common envelope minus the trailing length field (4) plus the
	// 20-byte EPB-specific prefix, 3 data bytes padded to 4, no options:
	// 8 (leading type+len) + 20 + 4 (padded data) + 4 (trailing len) = 36.
	if len(b) != 36 {
		t.Errorf("EnhancedPacketBlock.Bytes length = %d, want 36", len(b))
	}

	blockType, body, consumed, err := splitBlock(b, binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if blockType != BlockTypeEPB {
		t.Errorf("block type = %#x, want %#x", blockType, BlockTypeEPB)
	}
	if consumed != len(b) {
		t.Errorf("consumed = %d, want %d", consumed, len(b))
	}
	got, err := readEnhancedPacketBlock(body, binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.PacketData) != "\x01\x02\x03" {
		t.Errorf("PacketData = %v, want [1 2 3]", got.PacketData)
	}
}

func TestMalformedBlockTrailingLengthMismatch(t *testing.T) {
	b := []byte{0x06, 0x00, 0x00, 0x00, 0x0C, 0x00, 0x00, 0x00, 0xAA, 0x0D, 0x00, 0x00, 0x00}
	if _, _, _, err := splitBlock(b, binary.LittleEndian); err == nil {
		t.Error("expected an error for mismatched leading/trailing length")
	}
}

func TestReadPacketsFallsBackForUnknownLinkType(t *testing.T) {
	// A bare 14-byte Ethernet header (dst/src MAC + an ethertype that
	// matches no registered binding) with nothing after it, so the
	// Ethernet fallback consumes the whole frame.
	frame := []byte{
		0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA,
		0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB,
		0x12, 0x34,
	}

	f, err := ArrayToFile(ArrayToFileSpec{
		Array:    []ArrayElement{{Data: frame}},
		LinkType: 9999, // not in LinkTypeHeader
		SnapLen:  1500,
	})
	if err != nil {
		t.Fatal(err)
	}

	pkts, err := ReadPackets(f, packet.DefaultBindings)
	if err != nil {
		t.Fatalf("ReadPackets returned an error for a frame the Ethernet fallback should parse: %v", err)
	}
	if len(pkts) != 1 {
		t.Fatalf("got %d packets, want 1", len(pkts))
	}
	if pkts[0].Outermost().ProtocolName() != "Ethernet" {
		t.Errorf("outermost header = %q, want Ethernet (first of fallbackHeaderOrder)", pkts[0].Outermost().ProtocolName())
	}
}

func TestReadPacketsTolerantSkipsUnparseableFrames(t *testing.T) {
	f, err := ArrayToFile(ArrayToFileSpec{
		Array: []ArrayElement{
			{Data: []byte{0x01}}, // too short for any candidate kind
		},
		LinkType: 9999,
		SnapLen:  1500,
	})
	if err != nil {
		t.Fatal(err)
	}

	pkts, skipped := ReadPacketsTolerant(f, packet.DefaultBindings)
	if len(pkts) != 0 {
		t.Errorf("got %d parsed packets, want 0", len(pkts))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}

	if _, err := ReadPackets(f, packet.DefaultBindings); err != ErrUnparseablePacket {
		t.Errorf("ReadPackets: expected ErrUnparseablePacket, got %v", err)
	}
}

func TestParseFrameResolvesKnownLinkType(t *testing.T) {
	frame := append([]byte{
		0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA,
		0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB,
		0x12, 0x34,
	}, []byte("hi")...)

	pkt, err := ParseFrame(packet.DefaultBindings, frame, 1) // DLT_EN10MB
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Outermost().ProtocolName() != "Ethernet" {
		t.Errorf("outermost header = %q, want Ethernet", pkt.Outermost().ProtocolName())
	}
}

func TestParseFrameFallsBackForUnknownLinkType(t *testing.T) {
	// A bare Ethernet header with no payload: the Ethernet fallback
	// consumes the whole frame.
	frame := []byte{
		0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA,
		0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB,
		0x12, 0x34,
	}

	pkt, err := ParseFrame(packet.DefaultBindings, frame, 9999)
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Outermost().ProtocolName() != "Ethernet" {
		t.Errorf("outermost header = %q, want Ethernet (first of fallbackHeaderOrder)", pkt.Outermost().ProtocolName())
	}
}

func TestParseFrameReturnsErrUnparseablePacket(t *testing.T) {
	if _, err := ParseFrame(packet.DefaultBindings, []byte{0x01}, 9999); err != ErrUnparseablePacket {
		t.Errorf("ParseFrame: expected ErrUnparseablePacket, got %v", err)
	}
}

func TestParseFrameFallbackPrefersFullyConsumingCandidate(t *testing.T) {
	// A bare 20-byte IPv4 header (no inner protocol, no payload) is also a
	// "valid" 14-byte Ethernet header with 6 leftover bytes: Ethernet would
	// wrongly win a naive err==nil fallback race since it never errors, even
	// though it leaves part of the frame unconsumed.
	p, err := packet.New(packet.DefaultBindings, proto.IPv4)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := p.ToBytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 20 {
		t.Fatalf("built a %d-byte IPv4 header, want 20", len(frame))
	}

	pkt, err := ParseFrame(packet.DefaultBindings, frame, 9999)
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Outermost().ProtocolName() != "IPv4" {
		t.Errorf("outermost header = %q, want IPv4 (the candidate that fully consumes the frame)", pkt.Outermost().ProtocolName())
	}
	if len(pkt.Payload()) != 0 {
		t.Errorf("payload = %v, want empty (the whole frame should have been consumed)", pkt.Payload())
	}
}

func TestReadRejectsStreamWithoutLeadingSHB(t *testing.T) {
	idbOnly, err := (&InterfaceDescriptionBlock{LinkType: 1, SnapLen: 1500}).Bytes(binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	var f File
	if err := f.Read(idbOnly); err != ErrInvalidFile {
		t.Errorf("expected ErrInvalidFile, got %v", err)
	}
}

func TestReadRespectsDeclaredSectionLengthBoundary(t *testing.T) {
	idb, err := (&InterfaceDescriptionBlock{LinkType: 1, SnapLen: 1500}).Bytes(binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	shb1, err := (&SectionHeaderBlock{MajorVersion: 1, MinorVersion: 0, SectionLength: int64(len(idb))}).Bytes(binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	epb, err := (&EnhancedPacketBlock{PacketData: []byte{9}, OriginalLen: 1}).Bytes(binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	shb2, err := (&SectionHeaderBlock{MajorVersion: 1, MinorVersion: 0, SectionLength: -1}).Bytes(binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}

	var stream []byte
	stream = append(stream, shb1...)
	stream = append(stream, idb...)
	stream = append(stream, shb2...)
	stream = append(stream, epb...)

	var f File
	if err := f.Read(stream); err != nil {
		t.Fatal(err)
	}
	if len(f.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(f.Sections))
	}
	if len(f.Sections[0].Interfaces) != 1 {
		t.Errorf("section 0 has %d interfaces, want 1", len(f.Sections[0].Interfaces))
	}
	if len(f.Sections[1].Packets) != 1 {
		t.Errorf("section 1 has %d packets, want 1", len(f.Sections[1].Packets))
	}
}

func TestReadStopsAtDeclaredSectionLength(t *testing.T) {
	idb, err := (&InterfaceDescriptionBlock{LinkType: 1, SnapLen: 1500}).Bytes(binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	// Declares a zero-length section body, but an IDB follows anyway; Read
	// must not absorb it into the section under the old next-SHB-or-EOF scan.
	shb, err := (&SectionHeaderBlock{MajorVersion: 1, MinorVersion: 0, SectionLength: 0}).Bytes(binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}

	stream := append(append([]byte{}, shb...), idb...)

	var f File
	if err := f.Read(stream); err != ErrInvalidFile {
		t.Errorf("Read with trailing bytes past a zero-length section = %v, want ErrInvalidFile", err)
	}
	if len(f.Sections) != 1 || len(f.Sections[0].Interfaces) != 0 {
		t.Error("the IDB past the declared section length should not have been absorbed into the section")
	}
}
