package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
	"packetgen/packet"
)

var icmpv6TypeNames = map[string]uint64{
	"echo_request":         128,
	"echo_reply":           129,
	"multicast_listener":   130, // MLDv1 report/query and MLDv2 query share type 130
	"multicast_report_v2":  143,
}

// ICMPv6 is the ICMPv6 base header: type, code, and a calculable checksum
// covering the message and everything after it. Type 130 is shared by two
// distinct message shapes (MLD and MLQv2), disambiguated purely by a
// binding predicate on the trailing body's length.
var ICMPv6 = header.NewKind("icmpv6", "ICMPv6", binary.BigEndian)

// MLD is a Multicast Listener Query/Report/Done message (RFC 2710): a
// fixed 20-byte body following the ICMPv6 header.
var MLD = header.NewKind("mld", "MLDv1", binary.BigEndian)

// MLQ is an MLDv2 Multicast Listener Query (RFC 3810): MLD's fixed fields
// plus a querier's-robustness/QQIC/source-count tail and a variable-length
// source-address array.
var MLQ = header.NewKind("mlq", "MLDv2-Query", binary.BigEndian)

func sourceCountBuilder(inst *header.Instance) any {
	n, _ := inst.Get("num_sources").(uint64)
	return int(n)
}

func init() {
	ICMPv6.
		DefineField("type", field.Enum{Base: field.Uint8{}, Names: icmpv6TypeNames}).
		DefineField("code", field.Uint8{}).
		DefineField("checksum", field.Uint16{}, header.Calculable(header.CalcChecksum, header.ScopePayload, ""))

	MLD.
		DefineField("max_resp_delay", field.Uint16{}).
		DefineField("mld_reserved", field.Uint16{}).
		DefineField("multicast_address", field.IPv6Address{})

	MLQ.
		DefineField("max_resp_code", field.Uint16{}).
		DefineField("mlq_reserved", field.Uint16{}).
		DefineField("multicast_address", field.IPv6Address{}).
		DefineField("resv_s_qrv", field.Uint8{}).
		DefineField("qqic", field.Uint8{}).
		DefineField("num_sources", field.Uint16{}, header.Calculable(header.CalcCounter, header.ScopeHeader, "sources")).
		DefineField("sources", field.Array{Elem: field.IPv6Address{}}, header.WithBuilder(sourceCountBuilder)).
		DefineBitFieldsOn("resv_s_qrv",
			header.BitSpec{Name: "resv", Width: 4},
			header.BitSpec{Name: "suppress_router_side", Width: 1},
			header.BitSpec{Name: "qrv", Width: 3},
		)

	isLongBody := packet.ByLambda([]string{"remaining"}, func(lower *header.Instance) bool {
		return lower.RemainingLen() > 23
	})
	packet.DefaultBindings.Bind(ICMPv6, MLD, packet.Equals("type", uint64(130)),
		packet.FieldOverride{Name: "type", Value: uint64(130)})
	packet.DefaultBindings.Bind(ICMPv6, MLQ, packet.All(packet.Equals("type", uint64(130)), isLongBody),
		packet.FieldOverride{Name: "type", Value: uint64(130)})
}
