package pcapng

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Section is one Section Header Block plus the Interface Description,
// packet and unknown blocks that follow it until the next SHB (or EOF).
type Section struct {
	SHB           *SectionHeaderBlock
	Interfaces    []*InterfaceDescriptionBlock
	Packets       []PacketBlock
	UnknownBlocks []*UnknownBlock
	Endian        binary.ByteOrder
}

// File is an ordered list of Sections; concatenating each Section's block
// serializations in order yields a valid PCAP-NG byte stream.
type File struct {
	Sections []*Section
}

func isSHBStart(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[0:4], shbMagicBytes[:])
}

func detectSectionEndian(body []byte) (binary.ByteOrder, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("pcapng: section header block too short to carry byte-order magic: %w", ErrMalformedBlock)
	}
	if binary.LittleEndian.Uint32(body[0:4]) == byteOrderMagic {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(body[0:4]) == byteOrderMagic {
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("pcapng: unrecognised byte-order magic: %w", ErrMalformedBlock)
}

// Read parses data and appends the resulting Sections to f, without
// clearing any it already holds.
func (f *File) Read(data []byte) error {
	cursor := 0
	var current *Section
	sectionEnd := -1 // absolute cursor offset where current's declared body ends; -1 means unbounded (scan to next SHB or EOF)

	for cursor < len(data) {
		if isSHBStart(data[cursor:]) {
			// The block-type bytes are endian-palindromic, so we can spot a
			// new SHB before knowing its endian; peek the body with a
			// placeholder order just to read the byte-order magic, then
			// redo the real parse with the order it names.
			if len(data[cursor:]) < 16 {
				return fmt.Errorf("pcapng: truncated section header block: %w", ErrMalformedBlock)
			}
			order, err := detectSectionEndian(data[cursor+8 : cursor+12])
			if err != nil {
				return err
			}
			blockType, body, consumed, err := splitBlock(data[cursor:], order)
			if err != nil {
				return err
			}
			_ = blockType
			shb, err := readSectionHeaderBlock(body, order)
			if err != nil {
				return err
			}
			current = &Section{SHB: shb, Endian: order}
			f.Sections = append(f.Sections, current)
			cursor += consumed
			if shb.SectionLength >= 0 {
				sectionEnd = cursor + int(shb.SectionLength)
			} else {
				sectionEnd = -1
			}
			continue
		}

		if current == nil {
			return ErrInvalidFile
		}

		if sectionEnd >= 0 && cursor >= sectionEnd {
			// The section's declared length is used up; stop absorbing
			// blocks into it and let the next loop iteration demand a
			// fresh SHB instead of scanning ahead for one.
			current = nil
			sectionEnd = -1
			continue
		}

		blockType, body, consumed, err := splitBlock(data[cursor:], current.Endian)
		if err != nil {
			return err
		}
		switch blockType {
		case BlockTypeIDB:
			idb, err := readInterfaceDescriptionBlock(body, current.Endian)
			if err != nil {
				return err
			}
			current.Interfaces = append(current.Interfaces, idb)
		case BlockTypeEPB:
			epb, err := readEnhancedPacketBlock(body, current.Endian)
			if err != nil {
				return err
			}
			current.Packets = append(current.Packets, epb)
		case BlockTypeSPB:
			spb, err := readSimplePacketBlock(body, current.Endian)
			if err != nil {
				return err
			}
			current.Packets = append(current.Packets, spb)
		default:
			current.UnknownBlocks = append(current.UnknownBlocks, &UnknownBlock{RawType: blockType, Body: append([]byte{}, body...)})
		}
		cursor += consumed
	}
	return nil
}

// ReadReset clears f's current Sections before parsing data into it.
func (f *File) ReadReset(data []byte) error {
	f.Sections = nil
	return f.Read(data)
}

// ToBytes serializes every Section in order: SHB, then IDBs, then packet
// blocks in insertion order, then unknown blocks.
func (f *File) ToBytes() ([]byte, error) {
	var out []byte
	for _, sec := range f.Sections {
		b, err := sec.SHB.Bytes(sec.Endian)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
		for _, idb := range sec.Interfaces {
			b, err := idb.Bytes(sec.Endian)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		for _, pkt := range sec.Packets {
			b, err := pkt.Bytes(sec.Endian)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		for _, unk := range sec.UnknownBlocks {
			b, err := unk.Bytes(sec.Endian)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}
