package capture

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// PcapReader reads packets from a .pcap file.
type PcapReader struct {
	handle *pcap.Handle
}

// NewPcapReader opens a pcap file for reading.
func NewPcapReader(path string) (*PcapReader, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("open pcap file %q: %w", path, err)
	}
	return &PcapReader{handle: handle}, nil
}

// ReadFrame returns the next frame's raw bytes and capture metadata, or
// io.EOF once the file is exhausted.
func (pr *PcapReader) ReadFrame() ([]byte, gopacket.CaptureInfo, error) {
	return pr.handle.ReadPacketData()
}

// LinkType returns the link layer type for the pcap file, in the
// tcpdump/libpcap DLT_ numbering LinkTypeHeader also uses.
func (pr *PcapReader) LinkType() uint16 {
	return uint16(pr.handle.LinkType())
}

// Close releases the handle.
func (pr *PcapReader) Close() {
	if pr.handle != nil {
		pr.handle.Close()
	}
}
