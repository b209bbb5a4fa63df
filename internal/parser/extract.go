package parser

import (
	"packetgen/packet"
	"packetgen/proto"

	"packetgen/internal/flow"
)

// FlowTuple holds the extracted 5-tuple + TCP flags from a packet.
type FlowTuple struct {
	SrcIP    string
	DstIP    string
	SrcPort  uint16
	DstPort  uint16
	Protocol string
	Flags    flow.TCPFlags
	Valid    bool
}

// ExtractFlowTuple extracts the flow 5-tuple and TCP flags from a packet
// without re-doing full parsing.
func ExtractFlowTuple(pkt *packet.Packet) FlowTuple {
	var t FlowTuple

	if ip4 := pkt.Header(proto.IPv4, 0); ip4 != nil {
		t.SrcIP = ip4.GetString("src")
		t.DstIP = ip4.GetString("dst")
		t.Protocol = ip4.GetString("protocol")
		t.Valid = true
	}

	if ip6 := pkt.Header(proto.IPv6, 0); ip6 != nil {
		t.SrcIP = ip6.GetString("src")
		t.DstIP = ip6.GetString("dst")
		t.Protocol = ip6.GetString("next_header")
		t.Valid = true
	}

	if tcp := pkt.Header(proto.TCP, 0); tcp != nil {
		t.SrcPort = uint16FromField(tcp.Get("src_port"))
		t.DstPort = uint16FromField(tcp.Get("dst_port"))
		t.Protocol = "TCP"
		t.Flags.SYN, _ = tcp.BitFlag("offset_flags", "syn")
		t.Flags.ACK, _ = tcp.BitFlag("offset_flags", "ack")
		t.Flags.FIN, _ = tcp.BitFlag("offset_flags", "fin")
		t.Flags.RST, _ = tcp.BitFlag("offset_flags", "rst")
		t.Flags.PSH, _ = tcp.BitFlag("offset_flags", "psh")
	}

	if udp := pkt.Header(proto.UDP, 0); udp != nil {
		t.SrcPort = uint16FromField(udp.Get("src_port"))
		t.DstPort = uint16FromField(udp.Get("dst_port"))
		t.Protocol = "UDP"
	}

	return t
}

func uint16FromField(v any) uint16 {
	n, _ := v.(uint64)
	return uint16(n)
}
