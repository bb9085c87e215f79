package mcumgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Client is the SMP engine: it assigns sequence numbers, frames requests,
// correlates responses, and retries on timeout. One Client owns one
// Transport for the duration of a command invocation (§5: single-threaded,
// synchronous, one request outstanding at a time).
type Client struct {
	transport Transport
	cfg       Config
	log       *slog.Logger

	seq          atomic.Uint32
	sentFirstReq bool
}

// NewClient builds a Client around an already-open Transport. The caller
// retains ownership of the transport's lifecycle (open before, Close after).
func NewClient(transport Transport, cfg Config) *Client {
	return &Client{
		transport: transport,
		cfg:       cfg,
		log:       slog.Default(),
	}
}

// SetLogger overrides the client's logger; the default is slog.Default().
func (c *Client) SetLogger(log *slog.Logger) {
	if log != nil {
		c.log = log
	}
}

// nextSeq returns the next 8-bit sequence number, wrapping from 255 back to
// 0. Sequence numbers are a process-local counter; only one request is ever
// outstanding at a time, so a plain counter (no map of in-flight IDs) is
// enough to tell a late, stale response apart from the current one.
func (c *Client) nextSeq() uint8 {
	return uint8(c.seq.Add(1) - 1)
}

// call performs one synchronous SMP request/response exchange, retrying on
// timeout per §4.2/§4.3. req is CBOR-encoded as the request body; resp, if
// non-nil, receives the CBOR-decoded response body. If resp implements
// rcGetter and reports a non-zero code, call surfaces it as an
// ApplicationError with the right group-aware message.
func (c *Client) call(ctx context.Context, group uint16, op uint8, command uint8, cmdName string, req interface{}, resp interface{}) error {
	body, err := EncodeCBOR(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", cmdName, err)
	}

	seq := c.nextSeq()
	header := Header{Op: op, Group: group, Sequence: seq, Command: command}
	packet := BuildPacket(header, body)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.NbRetry; attempt++ {
		timeout := c.cfg.SubsequentTimeout
		if !c.sentFirstReq {
			timeout = c.cfg.InitialTimeout
		}

		attemptCtx, cancel := contextWithTimeout(ctx, timeout)

		c.log.Debug("smp send", "cmd", cmdName, "group", group, "seq", seq, "attempt", attempt)
		if err := c.transport.Send(attemptCtx, packet); err != nil {
			cancel()
			return &TransportError{Op: "send " + cmdName, Err: err}
		}

		respPacket, err := c.waitForMatch(attemptCtx, header)
		cancel()
		c.sentFirstReq = true

		if err == nil {
			_, respBody, splitErr := SplitPacket(respPacket)
			if splitErr != nil {
				return &ProtocolError{Msg: splitErr.Error()}
			}
			if resp != nil {
				if decErr := DecodeCBOR(respBody, resp); decErr != nil {
					return &ProtocolError{Msg: fmt.Sprintf("decode %s response: %s", cmdName, decErr.Error())}
				}
				if rg, ok := resp.(rcGetter); ok {
					if rc := rg.RC(); rc != 0 {
						return &ApplicationError{Group: group, Rc: rc, Command: cmdName}
					}
				}
			}
			return nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrWaitTimeout) {
			lastErr = err
			if resetErr := c.transport.Reset(); resetErr != nil {
				c.log.Warn("transport reset after timeout failed", "err", resetErr)
			}
			c.log.Warn("smp timeout, retrying", "cmd", cmdName, "seq", seq, "attempt", attempt)
			continue
		}

		return &TransportError{Op: "recv " + cmdName, Err: err}
	}

	return &TransportError{Op: cmdName, Err: fmt.Errorf("exhausted %d retries: %w", c.cfg.NbRetry, lastErr)}
}

// waitForMatch reads frames until one matches the outstanding request's
// group/sequence/op, or the context is done. Mismatched frames (a stale
// response to an earlier request, or an unparseable frame) are dropped
// silently per §4.3/§7 and reading continues until the deadline. Retries
// reuse the sequence number, so a late reply to an earlier attempt of the
// same request matches and is accepted.
func (c *Client) waitForMatch(ctx context.Context, req Header) ([]byte, error) {
	for {
		packet, err := c.transport.Recv(ctx)
		if err != nil {
			return nil, err
		}

		h, err := ParseHeader(packet)
		if err != nil {
			c.log.Debug("dropping unparseable frame", "err", err)
			continue
		}

		if h.Group != req.Group || h.Sequence != req.Sequence || h.Op != req.Op+1 {
			c.log.Debug("dropping mismatched frame",
				"want_group", req.Group, "got_group", h.Group,
				"want_seq", req.Sequence, "got_seq", h.Sequence,
				"want_op", req.Op+1, "got_op", h.Op)
			continue
		}

		return packet, nil
	}
}
