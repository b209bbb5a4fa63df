// Package pcapng implements the block-structured PCAP-NG capture file
// format: endian-agnostic parsing, section/interface/packet hierarchies,
// and the file-level read/write operations built on top of them.
package pcapng

import (
	"encoding/binary"
	"fmt"

	"packetgen/field"
)

// Block type identifiers, per draft-tuexen-opsawg-pcapng.
const (
	BlockTypeSHB = 0x0A0D0D0A
	BlockTypeIDB = 0x00000001
	BlockTypeSPB = 0x00000003
	BlockTypeEPB = 0x00000006
)

// shbMagicBytes is written byte-palindromic so a block-type scan can spot a new
// SHB regardless of which endian the surrounding bytes were written in.
var shbMagicBytes = [4]byte{0x0A, 0x0D, 0x0D, 0x0A}

const (
	byteOrderMagic     uint32 = 0x1A2B3C4D
	byteOrderMagicSwap uint32 = 0x4D3C2B1A
)

// Block is any PCAP-NG block: the common 4-byte type / 4-byte total length /
// body / 4-byte total length repeat layout, serialized in a given section's
// endian.
type Block interface {
	Type() uint32
	Bytes(order binary.ByteOrder) ([]byte, error)
}

// pad4 returns the number of zero pad bytes needed to bring n up to a
// 4-byte boundary.
func pad4(n int) int { return (4 - (n & 3)) & 3 }

// wrapBlock assembles the common block envelope around body.
func wrapBlock(order binary.ByteOrder, blockType uint32, body []byte) []byte {
	total := uint32(8 + len(body) + 4)
	out := make([]byte, total)
	order.PutUint32(out[0:4], blockType)
	order.PutUint32(out[4:8], total)
	copy(out[8:], body)
	order.PutUint32(out[len(out)-4:], total)
	return out
}

// splitBlock validates and strips the common envelope off data (which must
// hold at least one full block at its start), returning the block type, its
// body, and the number of bytes the whole block occupies.
func splitBlock(data []byte, order binary.ByteOrder) (blockType uint32, body []byte, consumed int, err error) {
	if len(data) < 12 {
		return 0, nil, 0, fmt.Errorf("pcapng: block header: %w", field.ErrTruncated)
	}
	blockType = order.Uint32(data[0:4])
	total := order.Uint32(data[4:8])
	if total < 12 || int(total) > len(data) {
		return 0, nil, 0, fmt.Errorf("pcapng: block declares length %d: %w", total, field.ErrTruncated)
	}
	trailing := order.Uint32(data[total-4 : total])
	if trailing != total {
		return 0, nil, 0, fmt.Errorf("pcapng: leading length %d != trailing length %d: %w", total, trailing, ErrMalformedBlock)
	}
	return blockType, data[8 : total-4], int(total), nil
}

// SectionHeaderBlock is the SHB: the first block of every section, carrying
// its byte-order magic and an optional, unspecified section length.
type SectionHeaderBlock struct {
	MajorVersion  uint16
	MinorVersion  uint16
	SectionLength int64 // -1 means "undefined", per the format
	Options       []byte
}

func (b *SectionHeaderBlock) Type() uint32 { return BlockTypeSHB }

func (b *SectionHeaderBlock) Bytes(order binary.ByteOrder) ([]byte, error) {
	body := make([]byte, 16+len(b.Options))
	order.PutUint32(body[0:4], byteOrderMagic)
	order.PutUint16(body[4:6], b.MajorVersion)
	order.PutUint16(body[6:8], b.MinorVersion)
	order.PutUint64(body[8:16], uint64(b.SectionLength))
	copy(body[16:], b.Options)
	return wrapBlock(order, BlockTypeSHB, body), nil
}

func readSectionHeaderBlock(body []byte, order binary.ByteOrder) (*SectionHeaderBlock, error) {
	if len(body) < 16 {
		return nil, fmt.Errorf("pcapng: section header block body too short: %w", ErrMalformedBlock)
	}
	return &SectionHeaderBlock{
		MajorVersion:  order.Uint16(body[4:6]),
		MinorVersion:  order.Uint16(body[6:8]),
		SectionLength: int64(order.Uint64(body[8:16])),
		Options:       append([]byte{}, body[16:]...),
	}, nil
}

// InterfaceDescriptionBlock declares one capture interface within a
// section; EnhancedPacketBlock.InterfaceID indexes into the owning
// section's interface list.
type InterfaceDescriptionBlock struct {
	LinkType uint16
	SnapLen  uint32
	Options  []byte
}

func (b *InterfaceDescriptionBlock) Type() uint32 { return BlockTypeIDB }

func (b *InterfaceDescriptionBlock) Bytes(order binary.ByteOrder) ([]byte, error) {
	body := make([]byte, 8+len(b.Options))
	order.PutUint16(body[0:2], b.LinkType)
	order.PutUint16(body[2:4], 0) // reserved
	order.PutUint32(body[4:8], b.SnapLen)
	copy(body[8:], b.Options)
	return wrapBlock(order, BlockTypeIDB, body), nil
}

func readInterfaceDescriptionBlock(body []byte, order binary.ByteOrder) (*InterfaceDescriptionBlock, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("pcapng: interface description block body too short: %w", ErrMalformedBlock)
	}
	return &InterfaceDescriptionBlock{
		LinkType: order.Uint16(body[0:2]),
		SnapLen:  order.Uint32(body[4:8]),
		Options:  append([]byte{}, body[8:]...),
	}, nil
}

// TsResolSeconds returns the format's default timestamp resolution,
// 10^-6 s. The if_tsresol option (code 9) is not parsed out of Options, so
// an interface that declares a different resolution still reports 10^-6 s.
func (b *InterfaceDescriptionBlock) TsResolSeconds() float64 { return 1e-6 }

// PacketBlock is the common shape of the two block kinds that carry packet
// data: EnhancedPacketBlock and SimplePacketBlock.
type PacketBlock interface {
	Block
	Data() []byte
	Interface() uint32
}

// EnhancedPacketBlock carries one captured or synthesized packet, tied to
// an interface and timestamped at that interface's resolution.
type EnhancedPacketBlock struct {
	InterfaceID   uint32
	TimestampHigh uint32
	TimestampLow  uint32
	OriginalLen   uint32
	PacketData    []byte
	Options       []byte
}

func (b *EnhancedPacketBlock) Type() uint32     { return BlockTypeEPB }
func (b *EnhancedPacketBlock) Data() []byte      { return b.PacketData }
func (b *EnhancedPacketBlock) Interface() uint32 { return b.InterfaceID }

// Timestamp returns the packet's timestamp as a single 64-bit integer
// count of resTimeUnits since the epoch.
func (b *EnhancedPacketBlock) Timestamp() uint64 {
	return uint64(b.TimestampHigh)<<32 | uint64(b.TimestampLow)
}

// SetTimestamp splits a 64-bit resolution-unit count into TimestampHigh/Low.
func (b *EnhancedPacketBlock) SetTimestamp(ts uint64) {
	b.TimestampHigh = uint32(ts >> 32)
	b.TimestampLow = uint32(ts)
}

func (b *EnhancedPacketBlock) Bytes(order binary.ByteOrder) ([]byte, error) {
	padding := pad4(len(b.PacketData))
	body := make([]byte, 20+len(b.PacketData)+padding+len(b.Options))
	order.PutUint32(body[0:4], b.InterfaceID)
	order.PutUint32(body[4:8], b.TimestampHigh)
	order.PutUint32(body[8:12], b.TimestampLow)
	order.PutUint32(body[12:16], uint32(len(b.PacketData)))
	order.PutUint32(body[16:20], b.OriginalLen)
	copy(body[20:], b.PacketData)
	copy(body[20+len(b.PacketData)+padding:], b.Options)
	return wrapBlock(order, BlockTypeEPB, body), nil
}

func readEnhancedPacketBlock(body []byte, order binary.ByteOrder) (*EnhancedPacketBlock, error) {
	if len(body) < 20 {
		return nil, fmt.Errorf("pcapng: enhanced packet block body too short: %w", ErrMalformedBlock)
	}
	capLen := order.Uint32(body[12:16])
	padding := pad4(int(capLen))
	dataEnd := 20 + int(capLen)
	if len(body) < dataEnd+padding {
		return nil, fmt.Errorf("pcapng: enhanced packet block declares %d captured bytes: %w", capLen, ErrMalformedBlock)
	}
	return &EnhancedPacketBlock{
		InterfaceID:   order.Uint32(body[0:4]),
		TimestampHigh: order.Uint32(body[4:8]),
		TimestampLow:  order.Uint32(body[8:12]),
		OriginalLen:   order.Uint32(body[16:20]),
		PacketData:    append([]byte{}, body[20:dataEnd]...),
		Options:       append([]byte{}, body[dataEnd+padding:]...),
	}, nil
}

// SimplePacketBlock is the EPB's terser sibling: no interface reference (it
// always belongs to interface 0), no timestamp, no options.
type SimplePacketBlock struct {
	OriginalLen uint32
	PacketData  []byte
}

func (b *SimplePacketBlock) Type() uint32 { return BlockTypeSPB }
func (b *SimplePacketBlock) Data() []byte { return b.PacketData }

// Interface is always 0: SPB has no interface field, per the format.
func (b *SimplePacketBlock) Interface() uint32 { return 0 }

func (b *SimplePacketBlock) Bytes(order binary.ByteOrder) ([]byte, error) {
	padding := pad4(len(b.PacketData))
	body := make([]byte, 4+len(b.PacketData)+padding)
	order.PutUint32(body[0:4], b.OriginalLen)
	copy(body[4:], b.PacketData)
	return wrapBlock(order, BlockTypeSPB, body), nil
}

func readSimplePacketBlock(body []byte, order binary.ByteOrder) (*SimplePacketBlock, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("pcapng: simple packet block body too short: %w", ErrMalformedBlock)
	}
	originalLen := order.Uint32(body[0:4])
	capLen := len(body) - 4
	if int(originalLen) < capLen {
		capLen = int(originalLen)
	}
	return &SimplePacketBlock{
		OriginalLen: originalLen,
		PacketData:  append([]byte{}, body[4:4+capLen]...),
	}, nil
}

// UnknownBlock preserves an unrecognised block type verbatim, so a file
// round-trip loses nothing even where this package has no dedicated type.
type UnknownBlock struct {
	RawType uint32
	Body    []byte
}

func (b *UnknownBlock) Type() uint32 { return b.RawType }

func (b *UnknownBlock) Bytes(order binary.ByteOrder) ([]byte, error) {
	return wrapBlock(order, b.RawType, b.Body), nil
}
