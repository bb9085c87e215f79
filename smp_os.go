package mcumgr

import "context"

// OS group (group 0) command IDs.
const (
	cmdOSEcho           uint8 = 0
	cmdOSTaskStat       uint8 = 2
	cmdOSReset          uint8 = 5
	cmdOSMcumgrParams   uint8 = 6
	cmdOSInfo           uint8 = 7
	cmdOSBootloaderInfo uint8 = 8
)

type echoRequest struct {
	D string `cbor:"d"`
}

type echoResponse struct {
	rcEnvelope
	R string `cbor:"r"`
}

// Echo sends the "os echo" command and returns the device's echoed string.
func (c *Client) Echo(ctx context.Context, msg string) (string, error) {
	req := echoRequest{D: msg}
	var resp echoResponse
	if err := c.call(ctx, GroupOS, OpWrite, cmdOSEcho, "echo", req, &resp); err != nil {
		return "", err
	}
	return resp.R, nil
}

// TaskInfo is one entry of the "os taskstat" response map.
type TaskInfo struct {
	Prio         int `cbor:"prio"`
	Tid          int `cbor:"tid"`
	State        int `cbor:"state"`
	StackUse     int `cbor:"stkuse"`
	StackSize    int `cbor:"stksiz"`
	ContextSwaps int `cbor:"cswcnt"`
	Runtime      int `cbor:"runtime"`
	LastCheckin  int `cbor:"last_checkin"`
	NextCheckin  int `cbor:"next_checkin"`
}

type taskStatResponse struct {
	rcEnvelope
	Tasks map[string]TaskInfo `cbor:"tasks"`
}

// TaskStat returns per-task runtime statistics from "os taskstat".
func (c *Client) TaskStat(ctx context.Context) (map[string]TaskInfo, error) {
	var resp taskStatResponse
	if err := c.call(ctx, GroupOS, OpRead, cmdOSTaskStat, "taskstat", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

type mcumgrParamsResponse struct {
	rcEnvelope
	BufSize  int `cbor:"buf_size"`
	BufCount int `cbor:"buf_count"`
}

// McumgrParams is the decoded "os mcumgr-params" response.
type McumgrParams struct {
	BufSize  int
	BufCount int
}

// McumgrParams returns the device's SMP buffer sizing via "os mcumgr-params".
func (c *Client) McumgrParams(ctx context.Context) (McumgrParams, error) {
	var resp mcumgrParamsResponse
	if err := c.call(ctx, GroupOS, OpRead, cmdOSMcumgrParams, "mcumgr-params", struct{}{}, &resp); err != nil {
		return McumgrParams{}, err
	}
	return McumgrParams{BufSize: resp.BufSize, BufCount: resp.BufCount}, nil
}

type osInfoRequest struct {
	Format string `cbor:"format"`
}

type osInfoResponse struct {
	rcEnvelope
	Output string `cbor:"output"`
}

// OSInfo issues "os os-info" with the given format string; characters in
// format select which fields the device reports (snrvbmpioa, per §6).
func (c *Client) OSInfo(ctx context.Context, format string) (string, error) {
	req := osInfoRequest{Format: format}
	var resp osInfoResponse
	if err := c.call(ctx, GroupOS, OpRead, cmdOSInfo, "os-info", req, &resp); err != nil {
		return "", err
	}
	return resp.Output, nil
}

// HWID returns the device's hardware ID, a convenience wrapper around
// OSInfo("h") as described in the §6 command-surface table.
func (c *Client) HWID(ctx context.Context) (string, error) {
	return c.OSInfo(ctx, "h")
}

type bootloaderInfoRequest struct {
	Query string `cbor:"query,omitempty"`
}

// BootloaderInfo issues "os bootloader-info". An empty query returns the
// full set of bootloader-reported fields; a non-empty query returns just
// the named field. The response shape is query-dependent (a single named
// key, or the full field set), so it decodes into a generic map rather than
// a fixed struct — §9 calls out that bootloader-info's field numbering has
// varied across upstream versions and implementations should stay
// field-driven rather than position-driven.
func (c *Client) BootloaderInfo(ctx context.Context, query string) (map[string]interface{}, error) {
	req := bootloaderInfoRequest{Query: query}
	var resp map[string]interface{}
	if err := c.call(ctx, GroupOS, OpRead, cmdOSBootloaderInfo, "bootloader-info", req, &resp); err != nil {
		return nil, err
	}
	// A generic map does not satisfy rcGetter, so check rc here.
	switch rc := resp["rc"].(type) {
	case uint64:
		if rc != 0 {
			return nil, &ApplicationError{Group: GroupOS, Rc: int(rc), Command: "bootloader-info"}
		}
	case int64:
		if rc != 0 {
			return nil, &ApplicationError{Group: GroupOS, Rc: int(rc), Command: "bootloader-info"}
		}
	}
	delete(resp, "rc")
	return resp, nil
}

// ResetDevice issues "os reset", requesting the device reboot.
func (c *Client) ResetDevice(ctx context.Context) error {
	var resp rcEnvelope
	return c.call(ctx, GroupOS, OpWrite, cmdOSReset, "reset", struct{}{}, &resp)
}
