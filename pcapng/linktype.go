package pcapng

import (
	"packetgen/header"
	"packetgen/packet"
	"packetgen/proto"
)

// LinkTypeHeader maps a PCAP-NG interface's LinkType (IDB if_linktype, the
// tcpdump/libpcap DLT_ numbering) to the header.Kind its captured frames
// start with.
var LinkTypeHeader = map[uint16]*header.Kind{
	1:   proto.Ethernet,
	105: proto.IEEE80211,
	127: proto.RadioTap,
	192: proto.PPI,
	228: proto.IPv4,
	229: proto.IPv6,
}

// fallbackHeaderOrder is tried, in order, for a link-type this catalog
// doesn't recognize — the raw bytes might still happen to parse as one of
// the common outermost kinds.
var fallbackHeaderOrder = []*header.Kind{proto.Ethernet, proto.IPv4, proto.IPv6}

// ReadPackets parses every packet block in f against its interface's
// link-type, using reg to resolve the header stack inward from there
// (ParseFrame describes the fallback used for unknown link-types). It
// stops at the first packet that no candidate kind can parse and returns
// the packets parsed before it together with ErrUnparseablePacket.
func ReadPackets(f *File, reg *packet.Bindings) ([]*packet.Packet, error) {
	var out []*packet.Packet
	for _, sec := range f.Sections {
		for _, pb := range sec.Packets {
			pkt, err := parseOnePacket(sec, pb, reg)
			if err != nil {
				return out, err
			}
			out = append(out, pkt)
		}
	}
	return out, nil
}

// ReadPacketsTolerant behaves like ReadPackets but skips packets that
// fail to parse under any candidate kind instead of returning an error,
// reporting how many were skipped.
func ReadPacketsTolerant(f *File, reg *packet.Bindings) ([]*packet.Packet, int) {
	var out []*packet.Packet
	skipped := 0
	for _, sec := range f.Sections {
		for _, pb := range sec.Packets {
			pkt, err := parseOnePacket(sec, pb, reg)
			if err != nil {
				skipped++
				continue
			}
			out = append(out, pkt)
		}
	}
	return out, skipped
}

func parseOnePacket(sec *Section, pb PacketBlock, reg *packet.Bindings) (*packet.Packet, error) {
	return ParseFrame(reg, pb.Data(), linkTypeFor(sec, pb))
}

// ParseFrame parses one link-layer frame's bytes against linkType, trying
// LinkTypeHeader's mapping first and falling back, in order, through
// fallbackHeaderOrder if linkType isn't recognized or its mapped kind fails
// to parse. Exported so non-PCAP-NG frame sources (a live capture handle, a
// single captured buffer) can resolve the same way a file's packet blocks
// do.
func ParseFrame(reg *packet.Bindings, data []byte, linkType uint16) (*packet.Packet, error) {
	if first, ok := LinkTypeHeader[linkType]; ok {
		if pkt, err := packet.Parse(reg, data, first); err == nil {
			return pkt, nil
		}
	}
	for _, first := range fallbackHeaderOrder {
		// packet.Parse returns a nil error even when it stops partway
		// through and hands the remainder back as payload, so a candidate
		// only wins here if it actually consumed the whole frame.
		if pkt, err := packet.Parse(reg, data, first); err == nil && len(pkt.Payload()) == 0 {
			return pkt, nil
		}
	}
	return nil, ErrUnparseablePacket
}

func linkTypeFor(sec *Section, pb PacketBlock) uint16 {
	for i, idb := range sec.Interfaces {
		if uint32(i) == pb.Interface() {
			return uint16(idb.LinkType)
		}
	}
	return 0xFFFF
}
