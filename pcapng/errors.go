package pcapng

import "errors"

// ErrMalformedBlock is returned when a block's trailing length does not
// match its leading length, or an SHB carries an unrecognised byte-order
// magic.
var ErrMalformedBlock = errors.New("pcapng: malformed block")

// ErrInvalidFile is returned when a byte stream does not begin with a
// Section Header Block.
var ErrInvalidFile = errors.New("pcapng: stream does not start with a section header block")

// ErrUnparseablePacket is returned by ReadPackets when a packet's
// link-type is unrecognised and none of the fallback header kinds fully
// consume the packet's bytes.
var ErrUnparseablePacket = errors.New("pcapng: no header kind could parse this packet")
