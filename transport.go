package mcumgr

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is a timeout sentinel a Transport's Recv may return when no
// frame arrives before the context deadline; the engine treats it the same
// as context.DeadlineExceeded.
var ErrWaitTimeout = errors.New("wait timeout")

// Transport is the contract every channel (serial, UDP, BLE) implements.
// It owns framing, read buffering, and the underlying device/socket for the
// lifetime of one command invocation; it does not implement retry — that is
// the engine's job, composed out of Send/Recv per §4.2/§4.3.
type Transport interface {
	// Send transmits one SMP packet. It does not wait for a response.
	Send(ctx context.Context, packet []byte) error

	// Recv blocks for the next framed packet until ctx is done, returning an
	// error wrapping context.DeadlineExceeded (as the serial, UDP and BLE
	// transports do) or ErrWaitTimeout if the deadline elapses with no valid
	// frame.
	Recv(ctx context.Context) ([]byte, error)

	// Reset clears any buffered partial-frame state without closing the
	// underlying connection. Used between retries so a half-received frame
	// from a dropped attempt cannot corrupt the next one.
	Reset() error

	// Close releases the underlying device or socket.
	Close() error
}

// FrameSizer is implemented by transports whose wire framing inflates the
// raw SMP packet (serial's base64 encoding, length prefix, and CRC). The
// upload pipeline queries it, when present, to calibrate chunk size against
// the configured MTU; transports without meaningful inflation (UDP, BLE)
// need not implement it; the pipeline then treats MTU as bounding the raw
// packet directly.
type FrameSizer interface {
	// FramedSize returns the number of bytes that would actually cross the
	// wire to carry an SMP packet of packetLen bytes.
	FramedSize(packetLen int) int
}

// Config holds the transport and engine tuning knobs from §6. The CLI
// collaborator populates this from flags/env; the core never reads
// configuration from a file or environment itself.
type Config struct {
	// Device is the serial device path. The serial transport opens exactly
	// this path; it does not scan for or pick a device when Device is empty.
	Device string

	// Host and Port address a UDP transport.
	Host string
	Port int

	// InitialTimeout bounds the first response of a session, to accommodate
	// device boot or first-flash-erase latency.
	InitialTimeout time.Duration

	// SubsequentTimeout bounds every response after the first.
	SubsequentTimeout time.Duration

	// NbRetry is how many times the engine resends a timed-out request
	// before surfacing a transport-timeout error.
	NbRetry int

	// LineLength bounds each serial frame line, including its 2-byte
	// marker and trailing newline.
	LineLength int

	// MTU bounds the size of one SMP request, on the terms FrameSizer
	// describes for the active transport.
	MTU int

	// BaudRate configures the serial port.
	BaudRate int
}

// DefaultConfig returns the §6 external-interface defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "",
		Port:              1337,
		InitialTimeout:    60 * time.Second,
		SubsequentTimeout: 200 * time.Millisecond,
		NbRetry:           4,
		LineLength:        128,
		MTU:               512,
		BaudRate:          115200,
	}
}
