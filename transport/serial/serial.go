// Package serial implements mcumgr.Transport over a local serial device,
// using the base64/CRC16 line framing in package serialframe.
package serial

import (
	"context"
	"fmt"
	"time"

	goserial "go.bug.st/serial"

	"github.com/rudislabs/mcumgr-client/serialframe"
)

// Transport is a serial mcumgr.Transport. It owns the open port for the
// lifetime of one command invocation; Send/Recv are not safe for concurrent
// use, matching the engine's single-outstanding-request model.
type Transport struct {
	port       goserial.Port
	readBuf    []byte
	pending    []byte
	assembler  serialframe.Assembler
	lineLength int
}

// Open opens device at baud with 8N1 framing and no flow control, the
// defaults for MCUmgr-capable boards.
func Open(device string, baud int, lineLength int) (*Transport, error) {
	mode := &goserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	}

	port, err := goserial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial device %s: %w", device, err)
	}

	return &Transport{
		port:       port,
		readBuf:    make([]byte, 4096),
		lineLength: lineLength,
	}, nil
}

// Send writes packet to the device, framed per serialframe.Encode.
func (t *Transport) Send(ctx context.Context, packet []byte) error {
	lines, err := serialframe.Encode(packet, t.lineLength)
	if err != nil {
		return fmt.Errorf("framing packet: %w", err)
	}

	for i, line := range lines {
		if i > 0 {
			// Slower boards need time to process each segment between
			// continuation lines; mirrors the reference serial transport
			// this framing is grounded on.
			time.Sleep(20 * time.Millisecond)
		}
		if _, err := t.port.Write(line); err != nil {
			return fmt.Errorf("writing serial line: %w", err)
		}
	}

	return nil
}

// pollInterval bounds how long a single blocking read waits before Recv
// re-checks ctx, so a canceled context doesn't leave a read call blocked on
// the port indefinitely.
const pollInterval = 50 * time.Millisecond

// Recv reads lines until a full frame assembles or ctx is done. The
// underlying port read is bounded by pollInterval so ctx cancellation is
// noticed promptly without leaking a goroutine blocked on the port; bytes
// read past a line boundary, or read before a timeout interrupts a line,
// are kept in t.pending across calls rather than discarded.
func (t *Transport) Recv(ctx context.Context) ([]byte, error) {
	if err := t.port.SetReadTimeout(pollInterval); err != nil {
		return nil, fmt.Errorf("setting serial read timeout: %w", err)
	}

	for {
		if line, ok := t.takePendingLine(); ok {
			packet, ok, err := t.assembler.AddLine(trimCR(line))
			if err != nil {
				// Drop the malformed frame and keep reading until ctx is done.
				t.assembler.Reset()
				continue
			}
			if ok {
				return packet, nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: serial recv", context.DeadlineExceeded)
		default:
		}

		n, err := t.port.Read(t.readBuf)
		if n > 0 {
			t.pending = append(t.pending, t.readBuf[:n]...)
		}
		if err != nil {
			return nil, fmt.Errorf("reading serial port: %w", err)
		}
	}
}

// takePendingLine extracts one newline-terminated line from t.pending, if
// present, leaving any following bytes buffered.
func (t *Transport) takePendingLine() ([]byte, bool) {
	for i, b := range t.pending {
		if b == '\n' {
			line := t.pending[:i]
			t.pending = t.pending[i+1:]
			return line, true
		}
	}
	return nil, false
}

func trimCR(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

// Reset discards any partially-assembled frame and buffered bytes, without
// touching the open port, so a half-received frame from a timed-out attempt
// cannot corrupt the next retry's read.
func (t *Transport) Reset() error {
	t.assembler.Reset()
	t.pending = nil
	return nil
}

// Close releases the underlying serial port.
func (t *Transport) Close() error {
	return t.port.Close()
}

// FramedSize returns the wire size serialframe.Encode would produce for an
// SMP packet of packetLen bytes at this transport's configured line length,
// satisfying mcumgr.FrameSizer.
func (t *Transport) FramedSize(packetLen int) int {
	return serialframe.FramedLen(packetLen, t.lineLength)
}
