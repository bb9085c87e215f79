package mcumgr

import "fmt"

// ConfigError reports a problem with how the client was configured before
// any bytes hit the wire: no device found, more than one candidate device,
// a bad hex argument, a missing file. Always fatal for the invocation.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// TransportError reports a problem opening or using the underlying channel:
// open failure, I/O error, or timeout after the retry budget is exhausted.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport: " + e.Op
	}
	return fmt.Sprintf("transport: %s: %s", e.Op, e.Err.Error())
}

func (e *TransportError) Unwrap() error { return e.Err }

// FramingError reports a malformed frame: CRC mismatch, bad base64, a
// truncated frame, or an unexpected marker. Framing errors are recovered by
// the transport (the bad frame is dropped and reading continues until the
// deadline); they only escape to a caller when no valid frame ever arrives,
// at which point the engine reports a TransportError timeout instead.
type FramingError struct {
	Msg string
}

func (e *FramingError) Error() string { return "framing: " + e.Msg }

// ProtocolError reports a header mismatch (sequence, group, or op) or a
// decode failure on an otherwise well-framed body. Stale responses (the
// sequence doesn't match the outstanding request) are silently dropped by
// the engine and never surface as a ProtocolError; this type is for
// mismatches that make the exchange impossible to complete.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Msg }

// ApplicationError reports a device-side rejection: a well-formed response
// whose conventional "rc" field is non-zero. It carries the group the
// command belongs to so the message can be group-aware.
type ApplicationError struct {
	Group   uint16
	Rc      int
	Command string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("device rejected %s (group %d): %s", e.Command, e.Group, rcMessage(e.Rc))
}

// genericRc are the MGMT_ERR_* codes shared by every group; a group may
// define additional codes of its own, but the spec does not enumerate them,
// so unknown codes fall back to a numeric message.
var genericRc = map[int]string{
	0:  "ok",
	1:  "unknown error",
	2:  "insufficient memory",
	3:  "invalid value",
	4:  "timeout",
	5:  "no such entry",
	6:  "current state disallows command",
	7:  "response too large",
	8:  "command not supported",
	9:  "corrupt",
	10: "command temporarily unavailable",
	11: "access denied",
}

func rcMessage(rc int) string {
	if msg, ok := genericRc[rc]; ok {
		return fmt.Sprintf("rc=%d (%s)", rc, msg)
	}
	return fmt.Sprintf("rc=%d", rc)
}
