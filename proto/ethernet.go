// Package proto is the protocol catalog: concrete header kinds built on
// the field/header/packet framework, wired into the process-wide binding
// registry. It is the framework's own acceptance surface — every
// declaration here exercises components A through E end to end.
package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
	"packetgen/packet"
)

var etherTypeNames = map[string]uint64{
	"ipv4": 0x0800,
	"arp":  0x0806,
	"ipv6": 0x86DD,
}

// Ethernet is the IEEE 802.3 link-layer header: destination/source MAC
// plus a 16-bit EtherType selecting the next header.
var Ethernet = header.NewKind("ethernet", "Ethernet", binary.BigEndian)

func init() {
	Ethernet.
		DefineField("dst", field.MACAddress{}).
		DefineField("src", field.MACAddress{}).
		DefineField("ethertype", field.Enum{Base: field.Uint16{}, Names: etherTypeNames},
			header.WithDefault(uint64(0x0800)))

	packet.DefaultBindings.Bind(Ethernet, IPv4, packet.Equals("ethertype", uint64(0x0800)),
		packet.FieldOverride{Name: "ethertype", Value: uint64(0x0800)})
	packet.DefaultBindings.Bind(Ethernet, IPv6, packet.Equals("ethertype", uint64(0x86DD)),
		packet.FieldOverride{Name: "ethertype", Value: uint64(0x86DD)})
	packet.DefaultBindings.Bind(Ethernet, ARP, packet.Equals("ethertype", uint64(0x0806)),
		packet.FieldOverride{Name: "ethertype", Value: uint64(0x0806)})
}
