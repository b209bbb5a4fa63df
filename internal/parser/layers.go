package parser

import (
	"fmt"
	"strings"

	"packetgen/header"
	"packetgen/packet"
	"packetgen/proto"

	"packetgen/internal/models"
)

// extractLayers renders every header on the stack, in wire order, as a
// LayerDetail — generic over any Kind, since a Kind's field list already
// describes how to walk and label its own values.
func extractLayers(pkt *packet.Packet) []models.LayerDetail {
	var result []models.LayerDetail
	for _, inst := range pkt.Headers() {
		result = append(result, renderHeader(inst))
	}
	data := pkt.Payload()
	if isHTTP(data) {
		result = append(result, parseHTTP(data))
	} else if detail, ok := detectTLS(data); ok {
		result = append(result, detail)
	} else if detail, ok := detectAppProtocol(data, pkt); ok {
		result = append(result, detail)
	}
	return result
}

func renderHeader(inst *header.Instance) models.LayerDetail {
	kind := inst.Kind()
	var fields []models.LayerField
	for _, fd := range kind.Fields() {
		if specs := kind.BitGroupFields(fd.Name); specs != nil {
			for _, s := range specs {
				fields = append(fields, renderBitField(inst, fd.Name, s))
			}
			continue
		}
		if kind == proto.DNS && fd.Name == "questions" {
			fields = append(fields, renderDNSQuestions(inst)...)
			continue
		}
		if kind == proto.DNS && fd.Name == "answers" {
			fields = append(fields, renderDNSAnswers(inst)...)
			continue
		}
		fields = append(fields, models.LayerField{Name: fieldLabel(fd.Name), Value: inst.GetString(fd.Name)})
	}
	return models.LayerDetail{Name: kind.ProtocolName(), Fields: fields}
}

func renderBitField(inst *header.Instance, host string, s header.BitSpec) models.LayerField {
	if s.Width == 1 {
		v, _ := inst.BitFlag(host, s.Name)
		return models.LayerField{Name: fieldLabel(s.Name), Value: fmt.Sprintf("%v", v)}
	}
	v, _ := inst.BitField(host, s.Name)
	return models.LayerField{Name: fieldLabel(s.Name), Value: fmt.Sprintf("%d", v)}
}

func renderDNSQuestions(inst *header.Instance) []models.LayerField {
	arr, _ := inst.Get("questions").([]any)
	var out []models.LayerField
	for _, elem := range arr {
		q, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.LayerField{
			Name:  "Query",
			Value: fmt.Sprintf("%v type=%v class=%v", q["name"], q["qtype"], q["qclass"]),
		})
	}
	return out
}

func renderDNSAnswers(inst *header.Instance) []models.LayerField {
	arr, _ := inst.Get("answers").([]any)
	var out []models.LayerField
	for _, elem := range arr {
		a, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.LayerField{
			Name:  "Answer",
			Value: fmt.Sprintf("%v type=%v (TTL: %v)", a["name"], a["type"], a["ttl"]),
		})
	}
	return out
}

func fieldLabel(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func isHTTP(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	s := string(data[:4])
	return s == "GET " || s == "POST" || s == "PUT " || s == "DELE" ||
		s == "HEAD" || s == "HTTP" || s == "PATC" || s == "OPTI"
}

func parseHTTP(data []byte) models.LayerDetail {
	text := string(data)
	lines := strings.SplitN(text, "\r\n", 32)

	fields := []models.LayerField{}
	if len(lines) > 0 {
		fields = append(fields, models.LayerField{Name: "Request/Status Line", Value: lines[0]})
	}
	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		parts := strings.SplitN(line, ": ", 2)
		if len(parts) == 2 {
			fields = append(fields, models.LayerField{Name: parts[0], Value: parts[1]})
		}
	}

	return models.LayerDetail{Name: "HTTP", Fields: fields}
}

// summarize determines the highest-level protocol and builds address/info
// strings, checking from the most specific protocol down to the link layer —
// the same precedence order the per-layer rendering above walks in reverse.
func summarize(pkt *packet.Packet) (protocol, src, dst, info string) {
	protocol = "Unknown"

	if isHTTP(pkt.Payload()) {
		protocol = "HTTP"
		lines := strings.SplitN(string(pkt.Payload()), "\r\n", 2)
		if len(lines) > 0 {
			info = lines[0]
		}
	} else if isTLS(pkt.Payload()) {
		protocol = "TLS"
		info = tlsContentTypes[pkt.Payload()[0]]
	} else if name, appInfo := detectAppProtocolSummary(pkt.Payload(), pkt); name != "" {
		protocol = name
		info = appInfo
	}

	if dns := pkt.Header(proto.DNS, 0); dns != nil {
		protocol = "DNS"
		if qr, _ := dns.BitFlag("flags", "qr"); qr {
			info = "Standard query response"
		} else {
			info = "Standard query"
		}
		for _, f := range renderDNSQuestions(dns) {
			info += " " + f.Value
		}
	}

	if icmp := pkt.Header(proto.ICMPv4, 0); icmp != nil && protocol == "Unknown" {
		protocol = "ICMP"
		info = fmt.Sprintf("%s (code %s)", icmp.GetString("type"), icmp.GetString("code"))
	}

	if tcp := pkt.Header(proto.TCP, 0); tcp != nil && (protocol == "Unknown" || protocol == "HTTP") {
		if protocol == "Unknown" {
			protocol = "TCP"
		}
		if protocol == "TCP" {
			info = fmt.Sprintf("%s -> %s [%s] Seq=%s Ack=%s Win=%s Len=%d",
				tcp.GetString("src_port"), tcp.GetString("dst_port"), tcpFlagSummary(tcp),
				tcp.GetString("seq_num"), tcp.GetString("ack_num"), tcp.GetString("window"), len(pkt.Payload()))
		}
		src = addPort(tcp.GetString("src_port"))
		dst = addPort(tcp.GetString("dst_port"))
	}

	if udp := pkt.Header(proto.UDP, 0); udp != nil && protocol == "Unknown" {
		protocol = "UDP"
		info = fmt.Sprintf("%s -> %s Len=%s", udp.GetString("src_port"), udp.GetString("dst_port"), udp.GetString("length"))
		src = addPort(udp.GetString("src_port"))
		dst = addPort(udp.GetString("dst_port"))
	}

	if ip4 := pkt.Header(proto.IPv4, 0); ip4 != nil {
		if src == "" || !strings.Contains(src, ":") {
			src = ip4.GetString("src") + maybePort(src)
		}
		if dst == "" || !strings.Contains(dst, ":") {
			dst = ip4.GetString("dst") + maybePort(dst)
		}
	}

	if ip6 := pkt.Header(proto.IPv6, 0); ip6 != nil {
		if src == "" || !strings.Contains(src, ":") {
			src = ip6.GetString("src") + maybePort(src)
		}
		if dst == "" || !strings.Contains(dst, ":") {
			dst = ip6.GetString("dst") + maybePort(dst)
		}
		if protocol == "Unknown" {
			protocol = "IPv6"
		}
	}

	if arp := pkt.Header(proto.ARP, 0); arp != nil {
		protocol = "ARP"
		srcIP, dstIP := arp.GetString("sender_ip"), arp.GetString("target_ip")
		src, dst = srcIP, dstIP
		if arp.Get("opcode") == uint64(1) {
			info = fmt.Sprintf("Who has %s? Tell %s", dstIP, srcIP)
		} else {
			info = fmt.Sprintf("%s is at %s", srcIP, arp.GetString("sender_mac"))
		}
	}

	if eth := pkt.Header(proto.Ethernet, 0); eth != nil {
		if src == "" {
			src = eth.GetString("src")
		}
		if dst == "" {
			dst = eth.GetString("dst")
		}
	}

	return
}

func tcpFlagSummary(tcp *header.Instance) string {
	var parts []string
	for _, name := range []string{"syn", "ack", "fin", "rst", "psh", "urg"} {
		if v, _ := tcp.BitFlag("offset_flags", name); v {
			parts = append(parts, strings.ToUpper(name))
		}
	}
	return strings.Join(parts, ",")
}

func addPort(port string) string {
	return ":" + port
}

func maybePort(s string) string {
	if strings.HasPrefix(s, ":") {
		return s
	}
	return ""
}
