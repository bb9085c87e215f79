package mcumgr

import "context"

// Settings group (group 3) command IDs.
const (
	cmdSettingsReadWrite uint8 = 0
	cmdSettingsDelete    uint8 = 1
	cmdSettingsCommit    uint8 = 2
	cmdSettingsLoad      uint8 = 3
	cmdSettingsSave      uint8 = 4
)

type settingsReadRequest struct {
	Name    string  `cbor:"name"`
	MaxSize *uint32 `cbor:"max_size,omitempty"`
}

type settingsReadResponse struct {
	rcEnvelope
	Val []byte `cbor:"val"`
}

// SettingsRead issues "settings read" for name, optionally bounding the
// response to maxSize bytes.
func (c *Client) SettingsRead(ctx context.Context, name string, maxSize *uint32) ([]byte, error) {
	req := settingsReadRequest{Name: name, MaxSize: maxSize}
	var resp settingsReadResponse
	if err := c.call(ctx, GroupSettings, OpRead, cmdSettingsReadWrite, "settings-read", req, &resp); err != nil {
		return nil, err
	}
	return resp.Val, nil
}

type settingsWriteRequest struct {
	Name string `cbor:"name"`
	Val  []byte `cbor:"val"`
}

// SettingsWrite issues "settings write" storing val under name.
func (c *Client) SettingsWrite(ctx context.Context, name string, val []byte) error {
	req := settingsWriteRequest{Name: name, Val: val}
	var resp rcEnvelope
	return c.call(ctx, GroupSettings, OpWrite, cmdSettingsReadWrite, "settings-write", req, &resp)
}

type settingsNameRequest struct {
	Name string `cbor:"name"`
}

// SettingsDelete issues "settings delete" for name.
func (c *Client) SettingsDelete(ctx context.Context, name string) error {
	req := settingsNameRequest{Name: name}
	var resp rcEnvelope
	return c.call(ctx, GroupSettings, OpWrite, cmdSettingsDelete, "settings-delete", req, &resp)
}

// SettingsCommit issues "settings commit", applying loaded settings.
func (c *Client) SettingsCommit(ctx context.Context) error {
	var resp rcEnvelope
	return c.call(ctx, GroupSettings, OpWrite, cmdSettingsCommit, "settings-commit", struct{}{}, &resp)
}

// SettingsLoad issues "settings load", reloading settings from storage.
func (c *Client) SettingsLoad(ctx context.Context) error {
	var resp rcEnvelope
	return c.call(ctx, GroupSettings, OpWrite, cmdSettingsLoad, "settings-load", struct{}{}, &resp)
}

// SettingsSave issues "settings save", persisting settings to storage.
func (c *Client) SettingsSave(ctx context.Context) error {
	var resp rcEnvelope
	return c.call(ctx, GroupSettings, OpWrite, cmdSettingsSave, "settings-save", struct{}{}, &resp)
}
