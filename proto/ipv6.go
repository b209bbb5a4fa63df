package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
	"packetgen/packet"
)

// IPv6 is the Internet Protocol version 6 header: a 32-bit host field
// packing version/traffic-class/flow-label (exercising a wider bit-group
// than IPv4's), a calculable payload length covering only what follows
// the fixed 40-byte header, and a next-header field dispatching to the
// transport layer.
var IPv6 = header.NewKind("ipv6", "IPv6", binary.BigEndian)

func init() {
	IPv6.
		DefineField("vtc_flow", field.Uint32{}, header.WithDefault(uint64(0x60000000))).
		DefineField("payload_length", field.Uint16{}, header.Calculable(header.CalcLength, header.ScopeTrailerOnly, "")).
		DefineField("next_header", field.Enum{Base: field.Uint8{}, Names: ipProtocolNames}, header.WithDefault(uint64(6))).
		DefineField("hop_limit", field.Uint8{}, header.WithDefault(uint64(64))).
		DefineField("src", field.IPv6Address{}).
		DefineField("dst", field.IPv6Address{}).
		DefineBitFieldsOn("vtc_flow",
			header.BitSpec{Name: "version", Width: 4},
			header.BitSpec{Name: "traffic_class", Width: 8},
			header.BitSpec{Name: "flow_label", Width: 20},
		)

	packet.DefaultBindings.Bind(IPv6, UDP, packet.Equals("next_header", uint64(17)),
		packet.FieldOverride{Name: "next_header", Value: uint64(17)})
	packet.DefaultBindings.Bind(IPv6, TCP, packet.Equals("next_header", uint64(6)),
		packet.FieldOverride{Name: "next_header", Value: uint64(6)})
	packet.DefaultBindings.Bind(IPv6, ICMPv6, packet.Equals("next_header", uint64(58)),
		packet.FieldOverride{Name: "next_header", Value: uint64(58)})
}
