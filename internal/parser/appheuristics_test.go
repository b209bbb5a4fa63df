package parser

import "testing"

func TestFirstLine(t *testing.T) {
	if got := firstLine([]byte("INVITE sip:bob@example.com SIP/2.0\r\nVia: x\r\n")); got != "INVITE sip:bob@example.com SIP/2.0" {
		t.Errorf("firstLine = %q", got)
	}
	if got := firstLine([]byte("no newline here")); got != "no newline here" {
		t.Errorf("firstLine(no newline) = %q", got)
	}
}

func TestSipMethod(t *testing.T) {
	if got := sipMethod([]byte("INVITE sip:bob@example.com SIP/2.0\r\n")); got != "INVITE" {
		t.Errorf("sipMethod(request) = %q, want INVITE", got)
	}
	if got := sipMethod([]byte("SIP/2.0 200 OK\r\n")); got != "200 OK" {
		t.Errorf("sipMethod(response) = %q, want 200 OK", got)
	}
}

func TestSipHeader(t *testing.T) {
	data := []byte("INVITE sip:bob@example.com SIP/2.0\r\n" +
		"Call-ID: abc123@example.com\r\n" +
		"From: <sip:alice@example.com>\r\n" +
		"To: <sip:bob@example.com>\r\n\r\n")

	if got := sipHeader(data, "Call-ID"); got != "abc123@example.com" {
		t.Errorf("sipHeader(Call-ID) = %q", got)
	}
	if got := sipHeader(data, "call-id"); got != "abc123@example.com" {
		t.Errorf("sipHeader is case-insensitive: got %q", got)
	}
	if got := sipHeader(data, "From"); got != "<sip:alice@example.com>" {
		t.Errorf("sipHeader(From) = %q", got)
	}
	if got := sipHeader(data, "Contact"); got != "" {
		t.Errorf("sipHeader(missing) = %q, want empty", got)
	}
}

func TestBytesToUintBE(t *testing.T) {
	if got := bytesToUint16BE([]byte{0x01, 0x02}); got != 0x0102 {
		t.Errorf("bytesToUint16BE = %#x, want 0x0102", got)
	}
	if got := bytesToUint32BE([]byte{0x01, 0x02, 0x03, 0x04}); got != 0x01020304 {
		t.Errorf("bytesToUint32BE = %#x, want 0x01020304", got)
	}
}

func TestHexDCID(t *testing.T) {
	data := []byte{0, 0, 0, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF}
	if got := hexDCID(data, 6, 4); got != "deadbeef" {
		t.Errorf("hexDCID = %q, want deadbeef", got)
	}
}

func TestQuicVersionString(t *testing.T) {
	if got := quicVersionString(1); got != "QUIC v1 (RFC 9000)" {
		t.Errorf("quicVersionString(1) = %q", got)
	}
	if got := quicVersionString(0); got != "Version Negotiation" {
		t.Errorf("quicVersionString(0) = %q", got)
	}
}

func TestIsSIPRecognizesMethods(t *testing.T) {
	if !isSIP([]byte("INVITE sip:bob@example.com SIP/2.0\r\n")) {
		t.Error("isSIP should recognize INVITE")
	}
	if !isSIP([]byte("SIP/2.0 200 OK\r\n")) {
		t.Error("isSIP should recognize a status line")
	}
	if isSIP([]byte("GET / HTTP/1.1\r\n")) {
		t.Error("isSIP should not match an HTTP request")
	}
}
