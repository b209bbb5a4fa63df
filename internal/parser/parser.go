package parser

import (
	"fmt"
	"strings"
	"time"

	"packetgen/packet"

	"packetgen/internal/models"
)

// Parse converts a parsed packet into a PacketInfo for display. raw is the
// frame's captured bytes (for the hex dump) and length is the frame's
// original wire length, which can exceed len(raw) when the capture was
// truncated to the snap length.
func Parse(pkt *packet.Packet, raw []byte, length, number int, ts, startTime time.Time) models.PacketInfo {
	info := models.PacketInfo{
		Number: number,
		Length: length,
	}

	if startTime.IsZero() {
		info.Timestamp = ts.Format("15:04:05.000000")
	} else {
		info.Timestamp = fmt.Sprintf("%.6f", ts.Sub(startTime).Seconds())
	}

	info.Layers = extractLayers(pkt)
	info.Protocol, info.SrcAddr, info.DstAddr, info.Info = summarize(pkt)

	if len(raw) > 0 {
		info.HexDump = formatHexDump(raw)
		info.RawHex = formatRawHex(raw)
	}

	return info
}

func formatHexDump(data []byte) string {
	var sb strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		sb.WriteString(fmt.Sprintf("%04x  ", offset))

		end := offset + 16
		if end > len(data) {
			end = len(data)
		}
		for i := offset; i < offset+16; i++ {
			if i < end {
				sb.WriteString(fmt.Sprintf("%02x ", data[i]))
			} else {
				sb.WriteString("   ")
			}
			if i == offset+7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(" |")

		for i := offset; i < end; i++ {
			b := data[i]
			if b >= 0x20 && b <= 0x7e {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('|')
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatRawHex(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		sb.WriteString(fmt.Sprintf("%02x", b))
	}
	return sb.String()
}
