package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
)

// ICMPv4 covers the common echo request/reply layout: type, code, a
// calculable checksum over the whole ICMP message, and the identifier/
// sequence pair echo messages carry.
var ICMPv4 = header.NewKind("icmpv4", "ICMPv4", binary.BigEndian)

func init() {
	ICMPv4.
		DefineField("type", field.Enum{Base: field.Uint8{}, Names: map[string]uint64{"echo_reply": 0, "echo_request": 8}}).
		DefineField("code", field.Uint8{}).
		DefineField("checksum", field.Uint16{}, header.Calculable(header.CalcChecksum, header.ScopePayload, "")).
		DefineField("identifier", field.Uint16{}).
		DefineField("sequence", field.Uint16{})
}
