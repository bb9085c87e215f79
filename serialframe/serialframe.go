// Package serialframe implements the base64/CRC16 line framing that carries
// SMP packets over a serial connection: a 2-byte big-endian length prefix and
// a 2-byte CRC16-CCITT trailer are appended to the packet, the result is
// base64-encoded, and the encoding is split into newline-terminated lines no
// longer than a configured length, each prefixed with a start marker (first
// line) or continuation marker (subsequent lines).
package serialframe

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	crc16 "github.com/joaojeronimo/go-crc16"
)

// Marker bytes prefixing each encoded line.
var (
	startMarker = []byte{0x06, 0x09}
	contMarker  = []byte{0x04, 0x14}
)

const markerLen = 2

// Encode frames packet into one or more newline-terminated lines, none
// exceeding lineLength bytes including its marker and trailing newline.
// lineLength must be large enough to carry the marker, at least 4 bytes of
// base64 payload, and the newline; a smaller value is reported as an error
// rather than silently truncating. The base64 carried per line is rounded
// down to a multiple of 4.
func Encode(packet []byte, lineLength int) ([][]byte, error) {
	if lineLength < markerLen+4+1 {
		return nil, fmt.Errorf("serialframe: line length %d too small to carry a frame", lineLength)
	}

	crc := crc16.Crc16(packet)
	body := make([]byte, 0, len(packet)+2)
	body = append(body, packet...)
	crcBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(crcBytes, crc)
	body = append(body, crcBytes...)

	// The length prefix covers the packet plus its CRC trailer, matching
	// what the receiver's Assembler accumulates before CRC-checking.
	framed := make([]byte, 0, 2+len(body))
	lenPrefix := make([]byte, 2)
	binary.BigEndian.PutUint16(lenPrefix, uint16(len(body)))
	framed = append(framed, lenPrefix...)
	framed = append(framed, body...)

	b64 := make([]byte, base64.StdEncoding.EncodedLen(len(framed)))
	base64.StdEncoding.Encode(b64, framed)

	// Reserve room for the 2-byte marker and the trailing newline; the
	// base64 chunk per line must stay a multiple of 4 so each line decodes
	// independently when reassembled.
	maxChunk := ((lineLength - markerLen - 1) / 4) * 4
	if maxChunk <= 0 {
		return nil, fmt.Errorf("serialframe: line length %d leaves no room for payload", lineLength)
	}

	var lines [][]byte
	written := 0
	for written < len(b64) {
		marker := contMarker
		if written == 0 {
			marker = startMarker
		}

		end := written + maxChunk
		if end > len(b64) {
			end = len(b64)
		}

		line := make([]byte, 0, markerLen+(end-written)+1)
		line = append(line, marker...)
		line = append(line, b64[written:end]...)
		line = append(line, '\n')
		lines = append(lines, line)

		written = end
	}

	return lines, nil
}

// FramedLen returns the number of bytes Encode would put on the wire to
// carry a packet of packetLen bytes with the given lineLength, without
// performing the CRC or base64 work. Used by transports that implement
// mcumgr.FrameSizer.
func FramedLen(packetLen, lineLength int) int {
	b64Len := base64.StdEncoding.EncodedLen(packetLen + 4)
	maxChunk := ((lineLength - markerLen - 1) / 4) * 4
	if maxChunk <= 0 {
		return 0
	}
	numLines := (b64Len + maxChunk - 1) / maxChunk
	if numLines == 0 {
		numLines = 1
	}
	return b64Len + numLines*(markerLen+1)
}

// Assembler reconstructs SMP packets from a stream of decoded lines,
// tracking the in-progress packet across its continuation lines the way a
// single-outstanding-request session expects: exactly one frame assembles
// at a time.
type Assembler struct {
	want int
	buf  []byte
}

// Reset discards any partially-assembled frame. Transports call this
// between retries so a half-received frame from a dropped attempt cannot
// corrupt the next one.
func (a *Assembler) Reset() {
	a.want = 0
	a.buf = nil
}

// AddLine feeds one raw line (without its trailing newline) into the
// assembler. It returns a complete, CRC-validated packet once enough
// continuation lines have arrived, or ok=false if the frame is still
// incomplete. Lines without a recognized marker, and stray continuation
// lines with no frame in progress, are ignored and report ok=false with a
// nil error, matching newtmgr's tolerant line scanning.
func (a *Assembler) AddLine(line []byte) (packet []byte, ok bool, err error) {
	if len(line) < markerLen {
		return nil, false, nil
	}

	isStart := line[0] == startMarker[0] && line[1] == startMarker[1]
	isCont := line[0] == contMarker[0] && line[1] == contMarker[1]
	if !isStart && !isCont {
		return nil, false, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(string(line[markerLen:]))
	if err != nil {
		return nil, false, fmt.Errorf("serialframe: decoding base64 line: %w", err)
	}

	if isStart {
		if len(decoded) < 2 {
			return nil, false, fmt.Errorf("serialframe: start line too short for length prefix")
		}
		a.want = int(binary.BigEndian.Uint16(decoded[:2]))
		a.buf = append([]byte(nil), decoded[2:]...)
	} else {
		if a.want == 0 && a.buf == nil {
			// Continuation line with no frame in progress; ignore.
			return nil, false, nil
		}
		a.buf = append(a.buf, decoded...)
	}

	if len(a.buf) < a.want {
		return nil, false, nil
	}

	full := a.buf[:a.want]
	a.Reset()

	if crc16.Crc16(full) != 0 {
		return nil, false, fmt.Errorf("serialframe: crc mismatch")
	}

	return full[:len(full)-2], true, nil
}
