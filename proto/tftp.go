package proto

import (
	"encoding/binary"

	"packetgen/field"
	"packetgen/header"
)

// TFTP is the base Trivial File Transfer Protocol header: a single opcode
// field. RegisterDiscriminator dispatches on the opcode's materialised
// value to one of five subkinds, each built with DeriveSubkind from this
// base so they all agree on the opcode field's position and encoding.
var TFTP = header.NewKind("tftp", "TFTP", binary.BigEndian)

var tftpOpcodeNames = map[string]uint64{
	"RRQ":   1,
	"WRQ":   2,
	"DATA":  3,
	"ACK":   4,
	"ERROR": 5,
}

// RRQ is a read request: opcode, filename, transfer mode, both
// null-terminated.
var RRQ *header.Kind

// WRQ is a write request, identical in shape to RRQ.
var WRQ *header.Kind

// DATA carries one block of file data.
var DATA *header.Kind

// ACK acknowledges one block number.
var ACK *header.Kind

// ERRORPacket reports a transfer failure. Named to avoid colliding with
// the builtin error type.
var ERRORPacket *header.Kind

func dispatchTFTP(inst *header.Instance) *header.Kind {
	op, _ := inst.Get("opcode").(uint64)
	switch op {
	case 1:
		return RRQ
	case 2:
		return WRQ
	case 3:
		return DATA
	case 4:
		return ACK
	case 5:
		return ERRORPacket
	default:
		return nil
	}
}

func init() {
	TFTP.
		DefineField("opcode", field.Enum{Base: field.Uint16{}, Names: tftpOpcodeNames}).
		RegisterDiscriminator("opcode", dispatchTFTP)

	// Subkinds are derived only now, after TFTP's own fields are declared —
	// DeriveSubkind copies whatever field list the parent currently has, and
	// package-level var initializers run before any init() body.
	RRQ = TFTP.DeriveSubkind("tftp-rrq").
		DefineField("filename", field.CString{}).
		DefineField("mode", field.CString{})

	WRQ = TFTP.DeriveSubkind("tftp-wrq").
		DefineField("filename", field.CString{}).
		DefineField("mode", field.CString{})

	DATA = TFTP.DeriveSubkind("tftp-data").
		DefineField("block", field.Uint16{}).
		DefineField("data", field.Opaque{})

	ACK = TFTP.DeriveSubkind("tftp-ack").
		DefineField("block", field.Uint16{})

	ERRORPacket = TFTP.DeriveSubkind("tftp-error").
		DefineField("error_code", field.Uint16{}).
		DefineField("error_message", field.CString{})
}
