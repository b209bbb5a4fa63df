package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
	"packetgen/packet"
)

// UDP is the User Datagram Protocol header: two ports plus a calculable
// length and checksum, both covering the header and everything after it.
var UDP = header.NewKind("udp", "UDP", binary.BigEndian)

func init() {
	UDP.
		DefineField("src_port", field.Uint16{}).
		DefineField("dst_port", field.Uint16{}).
		DefineField("length", field.Uint16{}, header.Calculable(header.CalcLength, header.ScopePayload, "")).
		DefineField("checksum", field.Uint16{}, header.Calculable(header.CalcChecksum, header.ScopePayload, ""))

	packet.DefaultBindings.Bind(UDP, TFTP, packet.Equals("dst_port", uint64(69)),
		packet.FieldOverride{Name: "dst_port", Value: uint64(69)})
	packet.DefaultBindings.Bind(UDP, DNS, packet.Equals("dst_port", uint64(53)),
		packet.FieldOverride{Name: "dst_port", Value: uint64(53)})
}
