package parser

import (
	"strings"
	"testing"

	"packetgen/packet"
	"packetgen/proto"
)

func buildTCPPacket(t *testing.T, payload []byte) *packet.Packet {
	p, err := packet.New(packet.DefaultBindings, proto.Ethernet)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(proto.IPv4); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Add(proto.TCP,
		packet.FieldOverride{Name: "src_port", Value: uint64(51000)},
		packet.FieldOverride{Name: "dst_port", Value: uint64(80)},
	); err != nil {
		t.Fatal(err)
	}
	tcp := p.Header(proto.TCP, 0)
	if err := tcp.SetBitFlag("offset_flags", "syn", true); err != nil {
		t.Fatal(err)
	}
	if err := tcp.SetBitFlag("offset_flags", "ack", true); err != nil {
		t.Fatal(err)
	}
	p.SetPayload(payload)

	b, err := p.ToBytes()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := packet.Parse(packet.DefaultBindings, b, proto.Ethernet)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}

func TestExtractLayersRendersTCPFlags(t *testing.T) {
	pkt := buildTCPPacket(t, nil)
	layers := extractLayers(pkt)

	found := false
	for _, l := range layers {
		if l.Name != "TCP" {
			continue
		}
		found = true
		foundSyn, foundAck := false, false
		for _, f := range l.Fields {
			if f.Name == "Syn" && f.Value == "true" {
				foundSyn = true
			}
			if f.Name == "Ack" && f.Value == "true" {
				foundAck = true
			}
		}
		if !foundSyn || !foundAck {
			t.Errorf("TCP layer fields = %+v, want Syn=true and Ack=true", l.Fields)
		}
	}
	if !found {
		t.Fatal("no TCP layer rendered")
	}
}

func TestSummarizeReportsTCPFlagsAndPorts(t *testing.T) {
	pkt := buildTCPPacket(t, nil)
	protocol, src, dst, info := summarize(pkt)

	if protocol != "TCP" {
		t.Errorf("protocol = %q, want TCP", protocol)
	}
	if !strings.Contains(info, "SYN") || !strings.Contains(info, "ACK") {
		t.Errorf("info = %q, want it to mention SYN and ACK", info)
	}
	if !strings.HasSuffix(src, ":51000") {
		t.Errorf("src = %q, want suffix :51000", src)
	}
	if !strings.HasSuffix(dst, ":80") {
		t.Errorf("dst = %q, want suffix :80", dst)
	}
}

func TestSummarizeDetectsHTTP(t *testing.T) {
	pkt := buildTCPPacket(t, []byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	protocol, _, _, info := summarize(pkt)

	if protocol != "HTTP" {
		t.Errorf("protocol = %q, want HTTP", protocol)
	}
	if info != "GET /index.html HTTP/1.1" {
		t.Errorf("info = %q, want the request line", info)
	}
}

func TestSummarizeDetectsTLSHandshakeRecord(t *testing.T) {
	// TLS record header: Handshake (0x16), version 3.1, length; body is
	// opaque here since summarize's isTLS check only needs the 5-byte
	// record header to classify the payload.
	record := []byte{0x16, 0x03, 0x01, 0x00, 0x04, 0xAA, 0xBB, 0xCC, 0xDD}
	pkt := buildTCPPacket(t, record)
	protocol, _, _, info := summarize(pkt)

	if protocol != "TLS" {
		t.Errorf("protocol = %q, want TLS", protocol)
	}
	if info != "Handshake" {
		t.Errorf("info = %q, want Handshake", info)
	}
}

func TestFieldLabelTitleCasesSnakeCase(t *testing.T) {
	if got := fieldLabel("src_port"); got != "Src Port" {
		t.Errorf("fieldLabel(src_port) = %q, want %q", got, "Src Port")
	}
	if got := fieldLabel("ttl"); got != "Ttl" {
		t.Errorf("fieldLabel(ttl) = %q, want %q", got, "Ttl")
	}
}
