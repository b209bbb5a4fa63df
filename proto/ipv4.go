package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
	"packetgen/packet"
)

var ipProtocolNames = map[string]uint64{
	"icmp": 1,
	"tcp":  6,
	"udp":  17,
}

// IPv4 is the Internet Protocol version 4 header: version/IHL packed into
// one byte (exercising the bit-field framework), a calculable total-length
// and header checksum, and a protocol field that dispatches to the
// transport layer.
var IPv4 = header.NewKind("ipv4", "IPv4", binary.BigEndian)

func init() {
	IPv4.
		DefineField("version_ihl", field.Uint8{}, header.WithDefault(uint64(0x45))).
		DefineField("tos", field.Uint8{}).
		DefineField("total_length", field.Uint16{}, header.Calculable(header.CalcLength, header.ScopePayload, "")).
		DefineField("identification", field.Uint16{}).
		DefineField("flags_frag_offset", field.Uint16{}).
		DefineField("ttl", field.Uint8{}, header.WithDefault(uint64(64))).
		DefineField("protocol", field.Enum{Base: field.Uint8{}, Names: ipProtocolNames}, header.WithDefault(uint64(6))).
		DefineField("checksum", field.Uint16{}, header.Calculable(header.CalcChecksum, header.ScopeHeader, "")).
		DefineField("src", field.IPv4Address{}).
		DefineField("dst", field.IPv4Address{}).
		DefineBitFieldsOn("version_ihl",
			header.BitSpec{Name: "version", Width: 4},
			header.BitSpec{Name: "ihl", Width: 4},
		).
		DefineBitFieldsOn("flags_frag_offset",
			header.BitSpec{Name: "reserved_flag", Width: 1},
			header.BitSpec{Name: "dont_fragment", Width: 1},
			header.BitSpec{Name: "more_fragments", Width: 1},
			header.BitSpec{Name: "fragment_offset", Width: 13},
		)

	packet.DefaultBindings.Bind(IPv4, UDP, packet.Equals("protocol", uint64(17)),
		packet.FieldOverride{Name: "protocol", Value: uint64(17)})
	packet.DefaultBindings.Bind(IPv4, TCP, packet.Equals("protocol", uint64(6)),
		packet.FieldOverride{Name: "protocol", Value: uint64(6)})
	packet.DefaultBindings.Bind(IPv4, ICMPv4, packet.Equals("protocol", uint64(1)),
		packet.FieldOverride{Name: "protocol", Value: uint64(1)})
}
