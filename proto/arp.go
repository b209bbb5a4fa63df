package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
)

// ARP is the fixed-layout Address Resolution Protocol request/reply.
var ARP = header.NewKind("arp", "ARP", binary.BigEndian)

func init() {
	ARP.
		DefineField("hardware_type", field.Uint16{}, header.WithDefault(uint64(1))).
		DefineField("protocol_type", field.Uint16{}, header.WithDefault(uint64(0x0800))).
		DefineField("hardware_len", field.Uint8{}, header.WithDefault(uint64(6))).
		DefineField("protocol_len", field.Uint8{}, header.WithDefault(uint64(4))).
		DefineField("opcode", field.Enum{Base: field.Uint16{}, Names: map[string]uint64{"request": 1, "reply": 2}},
			header.WithDefault(uint64(1))).
		DefineField("sender_mac", field.MACAddress{}).
		DefineField("sender_ip", field.IPv4Address{}).
		DefineField("target_mac", field.MACAddress{}).
		DefineField("target_ip", field.IPv4Address{})
}
