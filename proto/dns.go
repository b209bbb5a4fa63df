package proto

import (
	"encoding/binary"
	"strings"

	"packetgen/field"
	"packetgen/header"
)

// DNS is the Domain Name System message header: a fixed 12-byte prefix
// (with a bit-group of flags) followed by variable-count question and
// answer arrays, each synced to its own counter field via the builder/
// counter pairing. Authority and additional records are out of scope;
// their counts are carried as plain fields without being parsed into
// arrays.
var DNS = header.NewKind("dns", "DNS", binary.BigEndian)

func questionCountBuilder(inst *header.Instance) any {
	n, _ := inst.Get("qdcount").(uint64)
	return int(n)
}

func answerCountBuilder(inst *header.Instance) any {
	n, _ := inst.Get("ancount").(uint64)
	return int(n)
}

func init() {
	DNS.
		DefineField("id", field.Uint16{}).
		DefineField("flags", field.Uint16{}).
		DefineField("qdcount", field.Uint16{}, header.Calculable(header.CalcCounter, header.ScopeHeader, "questions")).
		DefineField("ancount", field.Uint16{}, header.Calculable(header.CalcCounter, header.ScopeHeader, "answers")).
		DefineField("nscount", field.Uint16{}).
		DefineField("arcount", field.Uint16{}).
		DefineField("questions", field.Array{Elem: dnsQuestionType{}}, header.WithBuilder(questionCountBuilder)).
		DefineField("answers", field.Array{Elem: dnsAnswerType{}}, header.WithBuilder(answerCountBuilder)).
		DefineBitFieldsOn("flags",
			header.BitSpec{Name: "qr", Width: 1},
			header.BitSpec{Name: "opcode", Width: 4},
			header.BitSpec{Name: "aa", Width: 1},
			header.BitSpec{Name: "tc", Width: 1},
			header.BitSpec{Name: "rd", Width: 1},
			header.BitSpec{Name: "ra", Width: 1},
			header.BitSpec{Name: "z", Width: 3},
			header.BitSpec{Name: "rcode", Width: 4},
		)
}

func readDNSName(b []byte, cursor int) (string, int, error) {
	var labels []string
	for {
		if cursor >= len(b) {
			return "", cursor, field.ErrTruncated
		}
		n := int(b[cursor])
		cursor++
		if n == 0 {
			break
		}
		if cursor+n > len(b) {
			return "", cursor, field.ErrTruncated
		}
		labels = append(labels, string(b[cursor:cursor+n]))
		cursor += n
	}
	return strings.Join(labels, "."), cursor, nil
}

func writeDNSName(name string) []byte {
	var out []byte
	if name != "" {
		for _, label := range strings.Split(name, ".") {
			out = append(out, byte(len(label)))
			out = append(out, []byte(label)...)
		}
	}
	return append(out, 0)
}

func toU16(v any) uint16 {
	n, _ := field.Uint16{}.Write(v, nil)
	if len(n) != 2 {
		return 0
	}
	return binary.BigEndian.Uint16(n)
}

func toU32(v any) uint32 {
	n, _ := field.Uint32{}.Write(v, nil)
	if len(n) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(n)
}

// dnsQuestionType is one element of DNS.questions: a domain name plus the
// query type/class pair.
type dnsQuestionType struct{}

func (dnsQuestionType) Read(b []byte, cursor int, _ any) (any, int, error) {
	name, next, err := readDNSName(b, cursor)
	if err != nil {
		return nil, cursor, err
	}
	if next+4 > len(b) {
		return nil, cursor, field.ErrTruncated
	}
	qtype := binary.BigEndian.Uint16(b[next : next+2])
	qclass := binary.BigEndian.Uint16(b[next+2 : next+4])
	return map[string]any{"name": name, "qtype": uint64(qtype), "qclass": uint64(qclass)}, next + 4, nil
}

func (dnsQuestionType) Write(v any, _ any) ([]byte, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, field.ErrInvalidValue
	}
	name, _ := m["name"].(string)
	out := writeDNSName(name)
	suffix := make([]byte, 4)
	binary.BigEndian.PutUint16(suffix[0:2], toU16(m["qtype"]))
	binary.BigEndian.PutUint16(suffix[2:4], toU16(m["qclass"]))
	return append(out, suffix...), nil
}

func (t dnsQuestionType) Size(v any, param any) int {
	b, err := t.Write(v, param)
	if err != nil {
		return 0
	}
	return len(b)
}

func (dnsQuestionType) Default() any {
	return map[string]any{"name": "", "qtype": uint64(1), "qclass": uint64(1)}
}

// dnsAnswerType is one element of DNS.answers: a domain name, type/class/
// TTL, and an opaque, uninterpreted rdata blob.
type dnsAnswerType struct{}

func (dnsAnswerType) Read(b []byte, cursor int, _ any) (any, int, error) {
	name, next, err := readDNSName(b, cursor)
	if err != nil {
		return nil, cursor, err
	}
	if next+10 > len(b) {
		return nil, cursor, field.ErrTruncated
	}
	typ := binary.BigEndian.Uint16(b[next : next+2])
	class := binary.BigEndian.Uint16(b[next+2 : next+4])
	ttl := binary.BigEndian.Uint32(b[next+4 : next+8])
	rdlen := binary.BigEndian.Uint16(b[next+8 : next+10])
	start := next + 10
	end := start + int(rdlen)
	if end > len(b) {
		return nil, cursor, field.ErrTruncated
	}
	return map[string]any{
		"name":  name,
		"type":  uint64(typ),
		"class": uint64(class),
		"ttl":   uint64(ttl),
		"rdata": append([]byte{}, b[start:end]...),
	}, end, nil
}

func (dnsAnswerType) Write(v any, _ any) ([]byte, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, field.ErrInvalidValue
	}
	name, _ := m["name"].(string)
	rdata, _ := m["rdata"].([]byte)
	out := writeDNSName(name)
	suffix := make([]byte, 10)
	binary.BigEndian.PutUint16(suffix[0:2], toU16(m["type"]))
	binary.BigEndian.PutUint16(suffix[2:4], toU16(m["class"]))
	binary.BigEndian.PutUint32(suffix[4:8], toU32(m["ttl"]))
	binary.BigEndian.PutUint16(suffix[8:10], uint16(len(rdata)))
	out = append(out, suffix...)
	return append(out, rdata...), nil
}

func (t dnsAnswerType) Size(v any, param any) int {
	b, err := t.Write(v, param)
	if err != nil {
		return 0
	}
	return len(b)
}

func (dnsAnswerType) Default() any {
	return map[string]any{"name": "", "type": uint64(1), "class": uint64(1), "ttl": uint64(0), "rdata": []byte{}}
}
