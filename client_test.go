package mcumgr

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeTransport is a programmable Transport for exercising the engine
// without a real device, in the style of the teacher's testTransport.
type fakeTransport struct {
	sendFn  func(ctx context.Context, packet []byte) error
	recvFn  func(ctx context.Context) ([]byte, error)
	resetFn func() error
	closeFn func() error

	resetCount int
}

func (f *fakeTransport) Send(ctx context.Context, packet []byte) error {
	if f.sendFn != nil {
		return f.sendFn(ctx, packet)
	}
	return nil
}

func (f *fakeTransport) Recv(ctx context.Context) ([]byte, error) {
	if f.recvFn != nil {
		return f.recvFn(ctx)
	}
	return nil, ErrWaitTimeout
}

func (f *fakeTransport) Reset() error {
	f.resetCount++
	if f.resetFn != nil {
		return f.resetFn()
	}
	return nil
}

func (f *fakeTransport) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialTimeout = 50 * time.Millisecond
	cfg.SubsequentTimeout = 20 * time.Millisecond
	cfg.NbRetry = 2
	return cfg
}

func echoPacketFor(seq uint8, msg string) []byte {
	body, _ := EncodeCBOR(echoResponse{R: msg})
	h := Header{Op: OpWriteResponse, Group: GroupOS, Sequence: seq}
	return BuildPacket(h, body)
}

func TestCallSuccess(t *testing.T) {
	var gotSeq uint8
	transport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, _ := ParseHeader(packet)
			gotSeq = h.Sequence
			return nil
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			return echoPacketFor(gotSeq, "hello"), nil
		},
	}

	c := NewClient(transport, testConfig())
	out, err := c.Echo(context.Background(), "hello")
	if err != nil {
		t.Fatalf("echo: %s", err.Error())
	}
	if out != "hello" {
		t.Fatalf("echo reply = %q, want %q", out, "hello")
	}
}

func TestCallDropsStaleFrameThenMatches(t *testing.T) {
	var gotSeq uint8
	first := true

	transport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, _ := ParseHeader(packet)
			gotSeq = h.Sequence
			return nil
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			if first {
				first = false
				// A stale response for a sequence that can never match.
				return echoPacketFor(gotSeq+1, "stale"), nil
			}
			return echoPacketFor(gotSeq, "fresh"), nil
		},
	}

	c := NewClient(transport, testConfig())
	out, err := c.Echo(context.Background(), "x")
	if err != nil {
		t.Fatalf("echo: %s", err.Error())
	}
	if out != "fresh" {
		t.Fatalf("echo reply = %q, want %q", out, "fresh")
	}
}

func TestCallRetriesOnTimeoutThenSucceeds(t *testing.T) {
	var gotSeq uint8
	attempts := 0

	transport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, _ := ParseHeader(packet)
			gotSeq = h.Sequence
			return nil
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			attempts++
			if attempts == 1 {
				<-ctx.Done()
				return nil, context.DeadlineExceeded
			}
			return echoPacketFor(gotSeq, "ok"), nil
		},
	}

	c := NewClient(transport, testConfig())
	out, err := c.Echo(context.Background(), "x")
	if err != nil {
		t.Fatalf("echo: %s", err.Error())
	}
	if out != "ok" {
		t.Fatalf("echo reply = %q, want %q", out, "ok")
	}
	if transport.resetCount == 0 {
		t.Fatalf("expected transport.Reset to be called between retries")
	}
}

func TestCallExhaustsRetries(t *testing.T) {
	transport := &fakeTransport{
		recvFn: func(ctx context.Context) ([]byte, error) {
			<-ctx.Done()
			return nil, context.DeadlineExceeded
		},
	}

	c := NewClient(transport, testConfig())
	_, err := c.Echo(context.Background(), "x")
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T: %s", err, err.Error())
	}
}

func TestCallSurfacesApplicationError(t *testing.T) {
	var gotSeq uint8
	transport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, _ := ParseHeader(packet)
			gotSeq = h.Sequence
			return nil
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			rc := 5
			body, _ := EncodeCBOR(rcEnvelope{Rc: &rc})
			h := Header{Op: OpWriteResponse, Group: GroupOS, Sequence: gotSeq}
			return BuildPacket(h, body), nil
		},
	}

	c := NewClient(transport, testConfig())
	err := c.ResetDevice(context.Background())
	if err == nil {
		t.Fatalf("expected application error")
	}

	var ae *ApplicationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *ApplicationError, got %T: %s", err, err.Error())
	}
	if ae.Rc != 5 {
		t.Fatalf("rc = %d, want 5", ae.Rc)
	}
}
