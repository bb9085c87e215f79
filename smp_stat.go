package mcumgr

import "context"

// Stat group (group 2) command IDs.
const (
	cmdStatRead uint8 = 0
	cmdStatList uint8 = 1
)

// StatGroup is the decoded "stat read" response for one statistics group.
type StatGroup struct {
	Name   string            `cbor:"name"`
	Group  string            `cbor:"group"`
	Fields map[string]uint64 `cbor:"fields"`
}

type statReadRequest struct {
	Name string `cbor:"name"`
}

type statReadResponse struct {
	rcEnvelope
	StatGroup
}

// StatRead issues "stat read" for the named statistics group.
func (c *Client) StatRead(ctx context.Context, name string) (StatGroup, error) {
	req := statReadRequest{Name: name}
	var resp statReadResponse
	if err := c.call(ctx, GroupStat, OpRead, cmdStatRead, "stat-read", req, &resp); err != nil {
		return StatGroup{}, err
	}
	return resp.StatGroup, nil
}

type statListResponse struct {
	rcEnvelope
	StatList []string `cbor:"stat_list"`
}

// StatList issues "stat list", returning the device's known statistics
// group names.
func (c *Client) StatList(ctx context.Context) ([]string, error) {
	var resp statListResponse
	if err := c.call(ctx, GroupStat, OpRead, cmdStatList, "stat-list", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.StatList, nil
}
