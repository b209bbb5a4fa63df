package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
	"packetgen/packet"
)

// TCP is the Transmission Control Protocol header. Options are out of
// scope (data_offset is always 5, a fixed 20-byte header); the flag byte
// is decomposed into individual boolean sub-fields, each a width-1
// bit-field.
var TCP = header.NewKind("tcp", "TCP", binary.BigEndian)

func init() {
	TCP.
		DefineField("src_port", field.Uint16{}).
		DefineField("dst_port", field.Uint16{}).
		DefineField("seq_num", field.Uint32{}).
		DefineField("ack_num", field.Uint32{}).
		DefineField("offset_flags", field.Uint16{}, header.WithDefault(uint64(0x5000))).
		DefineField("window", field.Uint16{}, header.WithDefault(uint64(0xFFFF))).
		DefineField("checksum", field.Uint16{}, header.Calculable(header.CalcChecksum, header.ScopePayload, "")).
		DefineField("urgent_pointer", field.Uint16{}).
		DefineBitFieldsOn("offset_flags",
			header.BitSpec{Name: "data_offset", Width: 4},
			header.BitSpec{Name: "reserved", Width: 3},
			header.BitSpec{Name: "ns", Width: 1},
			header.BitSpec{Name: "cwr", Width: 1},
			header.BitSpec{Name: "ece", Width: 1},
			header.BitSpec{Name: "urg", Width: 1},
			header.BitSpec{Name: "ack", Width: 1},
			header.BitSpec{Name: "psh", Width: 1},
			header.BitSpec{Name: "rst", Width: 1},
			header.BitSpec{Name: "syn", Width: 1},
			header.BitSpec{Name: "fin", Width: 1},
		)

	packet.DefaultBindings.Bind(TCP, DNS, packet.Equals("dst_port", uint64(53)),
		packet.FieldOverride{Name: "dst_port", Value: uint64(53)})
}
