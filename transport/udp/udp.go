// Package udp implements mcumgr.Transport over a UDP socket. Each SMP
// packet is sent as one datagram with no additional envelope; there is no
// third-party UDP client suitable for this in the reference pack, so this
// package uses net.UDPConn directly.
package udp

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Transport is a UDP mcumgr.Transport, dialed once for the lifetime of one
// command invocation.
type Transport struct {
	conn *net.UDPConn
}

// Dial connects to host:port. An empty host defaults to localhost.
func Dial(host string, port int) (*Transport, error) {
	if host == "" {
		host = "127.0.0.1"
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("resolving udp address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing udp: %w", err)
	}

	return &Transport{conn: conn}, nil
}

// Send writes packet as one datagram.
func (t *Transport) Send(ctx context.Context, packet []byte) error {
	if _, err := t.conn.Write(packet); err != nil {
		return fmt.Errorf("writing udp datagram: %w", err)
	}
	return nil
}

// Recv blocks for the next datagram until ctx is done.
func (t *Transport) Recv(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(1 * time.Hour)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting udp read deadline: %w", err)
	}

	buf := make([]byte, 64*1024)
	n, err := t.conn.Read(buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: udp recv", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("reading udp datagram: %w", err)
	}

	return buf[:n], nil
}

// Reset is a no-op for UDP: a stale or partial datagram never straddles two
// reads the way a serial frame can, so there is no partial state to clear.
func (t *Transport) Reset() error {
	return nil
}

// Close releases the underlying socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}
