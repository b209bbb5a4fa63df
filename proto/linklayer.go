package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
)

// RadioTap is the variable-length radiotap pseudo-header 802.11 capture
// tools prepend to each frame. Only the fixed 8-byte prefix (version,
// pad, overall length, present-field bitmask) is decoded; the
// per-present-bit fields that follow are carried opaque, bounded by the
// length this prefix reports.
var RadioTap = header.NewKind("radiotap", "RadioTap", binary.LittleEndian)

// IEEE80211 is a minimal 802.11 MAC header: frame control, duration, and
// the three address fields common to non-QoS data/management frames.
// Four-address frames and the QoS control field are out of scope.
var IEEE80211 = header.NewKind("ieee80211", "IEEE802.11", binary.LittleEndian)

// PPI is the Per-Packet Information pseudo-header (the fixed pcap_ppi
// prefix: version, flags, overall length, DLT). The vendor-specific field
// blocks that follow are carried opaque, bounded by the length field.
var PPI = header.NewKind("ppi", "PPI", binary.LittleEndian)

func radiotapBodyBuilder(inst *header.Instance) any {
	n, _ := inst.Get("length").(uint64)
	body := int(n) - 8
	if body < 0 {
		body = 0
	}
	return body
}

func ppiBodyBuilder(inst *header.Instance) any {
	n, _ := inst.Get("length").(uint64)
	body := int(n) - 8
	if body < 0 {
		body = 0
	}
	return body
}

func init() {
	RadioTap.
		DefineField("version", field.Uint8{}).
		DefineField("pad", field.Uint8{}).
		DefineField("length", field.Uint16{}, header.WithDefault(uint64(8))).
		DefineField("present", field.Uint32{}).
		DefineField("fields", field.Opaque{}, header.WithBuilder(radiotapBodyBuilder))

	IEEE80211.
		DefineField("frame_control", field.Uint16{}).
		DefineField("duration", field.Uint16{}).
		DefineField("addr1", field.MACAddress{}).
		DefineField("addr2", field.MACAddress{}).
		DefineField("addr3", field.MACAddress{}).
		DefineField("seq_control", field.Uint16{})

	PPI.
		DefineField("version", field.Uint8{}).
		DefineField("flags", field.Uint8{}).
		DefineField("length", field.Uint16{}, header.WithDefault(uint64(8))).
		DefineField("dlt", field.Uint32{}).
		DefineField("fields", field.Opaque{}, header.WithBuilder(ppiBodyBuilder))
}
