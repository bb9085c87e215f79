// Package mcumgr is a host-side client for the Simple Management Protocol
// (SMP) used by MCUmgr on Zephyr and other embedded targets: device state
// inspection, firmware upload, slot management, file transfer, and the
// shell/settings/stat groups, over a serial, UDP, or BLE transport.
package mcumgr

import "fmt"

// SMP operation codes. A response's op is always the request's op + 1.
const (
	OpRead          uint8 = 0
	OpReadResponse  uint8 = 1
	OpWrite         uint8 = 2
	OpWriteResponse uint8 = 3
)

// Management group IDs.
const (
	GroupOS       uint16 = 0
	GroupImage    uint16 = 1
	GroupStat     uint16 = 2
	GroupSettings uint16 = 3
	GroupFS       uint16 = 8
	GroupShell    uint16 = 9
)

// HeaderLen is the fixed size, in bytes, of an SMP packet header.
const HeaderLen = 8

// Header is the 8-octet SMP packet header that precedes every CBOR body.
//
// Byte layout (big-endian throughout):
//
//	byte 0   : op (low 3 bits) | flags (high 5 bits, reserved, always zero)
//	byte 1-2 : length of the CBOR body
//	byte 3-4 : group
//	byte 5   : sequence
//	byte 6   : command
//	byte 7   : reserved, always zero
type Header struct {
	Op       uint8
	Flags    uint8
	Length   uint16
	Group    uint16
	Sequence uint8
	Command  uint8
}

// Marshal encodes the header into its 8-byte wire form.
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderLen)
	b[0] = (h.Flags << 3) | (h.Op & 0x07)
	b[1] = byte(h.Length >> 8)
	b[2] = byte(h.Length)
	b[3] = byte(h.Group >> 8)
	b[4] = byte(h.Group)
	b[5] = h.Sequence
	b[6] = h.Command
	b[7] = 0
	return b
}

// ParseHeader decodes the first 8 bytes of an SMP packet.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, &ProtocolError{Msg: fmt.Sprintf("short header: %d bytes", len(b))}
	}
	return Header{
		Op:       b[0] & 0x07,
		Flags:    b[0] >> 3,
		Length:   uint16(b[1])<<8 | uint16(b[2]),
		Group:    uint16(b[3])<<8 | uint16(b[4]),
		Sequence: b[5],
		Command:  b[6],
	}, nil
}

// BuildPacket encodes an SMP header followed by a pre-encoded CBOR body into
// the raw bytes handed to a Transport.
func BuildPacket(h Header, body []byte) []byte {
	h.Length = uint16(len(body))
	packet := make([]byte, 0, HeaderLen+len(body))
	packet = append(packet, h.Marshal()...)
	packet = append(packet, body...)
	return packet
}

// SplitPacket separates a raw SMP packet into its header and CBOR body,
// validating that the header's declared length matches the actual body size.
func SplitPacket(packet []byte) (Header, []byte, error) {
	h, err := ParseHeader(packet)
	if err != nil {
		return Header{}, nil, err
	}
	body := packet[HeaderLen:]
	if int(h.Length) != len(body) {
		return Header{}, nil, &ProtocolError{
			Msg: fmt.Sprintf("length mismatch: header=%d, actual=%d", h.Length, len(body)),
		}
	}
	return h, body, nil
}
