package mcumgr

import (
	"context"
	"strings"
)

// Shell group (group 9) command IDs.
const cmdShellExec uint8 = 0

type shellExecRequest struct {
	Argv []string `cbor:"argv"`
}

type shellExecResponse struct {
	rcEnvelope
	O   string `cbor:"o"`
	Ret int32  `cbor:"ret"`
}

// ShellExec issues "shell exec" with an already-split argument vector.
func (c *Client) ShellExec(ctx context.Context, argv []string) (string, int32, error) {
	req := shellExecRequest{Argv: argv}
	var resp shellExecResponse
	if err := c.call(ctx, GroupShell, OpWrite, cmdShellExec, "shell", req, &resp); err != nil {
		return "", 0, err
	}
	return resp.O, resp.Ret, nil
}

// Shell splits cmdline on whitespace and issues it via ShellExec, matching
// the §4.4 convention that the client (not the device) tokenizes the
// command line.
func (c *Client) Shell(ctx context.Context, cmdline string) (string, int32, error) {
	return c.ShellExec(ctx, strings.Fields(cmdline))
}
