package mcumgr

import "context"

// Image group (group 1) command IDs.
const (
	cmdImageState  uint8 = 0
	cmdImageUpload uint8 = 1
	cmdImageErase  uint8 = 5
)

// ImageSlot describes one entry of an "image state" response.
type ImageSlot struct {
	Image     *uint32 `cbor:"image,omitempty"`
	Slot      uint32  `cbor:"slot"`
	Version   string  `cbor:"version"`
	Hash      []byte  `cbor:"hash,omitempty"`
	Bootable  bool    `cbor:"bootable,omitempty"`
	Pending   bool    `cbor:"pending,omitempty"`
	Confirmed bool    `cbor:"confirmed,omitempty"`
	Active    bool    `cbor:"active,omitempty"`
	Permanent bool    `cbor:"permanent,omitempty"`
}

type imageStateResponse struct {
	rcEnvelope
	Images []ImageSlot `cbor:"images"`
}

// List issues "image state" (read) and returns the device's image slots.
func (c *Client) List(ctx context.Context) ([]ImageSlot, error) {
	var resp imageStateResponse
	if err := c.call(ctx, GroupImage, OpRead, cmdImageState, "list", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

type imageStateSetRequest struct {
	Hash    []byte `cbor:"hash,omitempty"`
	Confirm bool   `cbor:"confirm,omitempty"`
}

// Test marks the image identified by hash as pending (or confirmed, if
// confirm is true) via "image state" (write), returning the updated slot
// list. Re-running Test with confirm=true on an already-confirmed image is
// idempotent: it returns the same state.
func (c *Client) Test(ctx context.Context, hash []byte, confirm bool) ([]ImageSlot, error) {
	req := imageStateSetRequest{Hash: hash, Confirm: confirm}
	var resp imageStateResponse
	if err := c.call(ctx, GroupImage, OpWrite, cmdImageState, "test", req, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

type imageEraseRequest struct {
	Slot *uint32 `cbor:"slot,omitempty"`
}

// Erase issues "image erase" for the given slot (nil selects the device's
// default, typically the inactive slot).
func (c *Client) Erase(ctx context.Context, slot *uint32) error {
	req := imageEraseRequest{Slot: slot}
	var resp rcEnvelope
	return c.call(ctx, GroupImage, OpWrite, cmdImageErase, "erase", req, &resp)
}
