package mcumgr

import (
	"context"
	"fmt"
)

// FS group (group 8) command IDs.
const (
	cmdFSDownloadUpload uint8 = 0
	cmdFSStat           uint8 = 1
	cmdFSHash           uint8 = 2
)

type fsDownloadRequest struct {
	Name string `cbor:"name"`
	Off  uint32 `cbor:"off"`
}

type fsDownloadResponse struct {
	rcEnvelope
	Off  uint32 `cbor:"off"`
	Data []byte `cbor:"data"`
	Len  *uint32 `cbor:"len,omitempty"`
}

// FSDownload reads remote entirely via repeated "fs download" calls,
// following the off/len state machine of §4.6: the first response reports
// the total length, subsequent ones return successive windows until
// off+len(data) == total.
func (c *Client) FSDownload(ctx context.Context, remote string, progress ProgressFunc) ([]byte, error) {
	var out []byte
	var total uint32
	var off uint32
	known := false

	for {
		req := fsDownloadRequest{Name: remote, Off: off}
		var resp fsDownloadResponse
		if err := c.call(ctx, GroupFS, OpRead, cmdFSDownloadUpload, "fs-download", req, &resp); err != nil {
			return nil, err
		}

		if !known {
			if resp.Len == nil {
				return nil, &ProtocolError{Msg: "fs download: first response missing len"}
			}
			total = *resp.Len
			out = make([]byte, 0, total)
			known = true
		}

		if resp.Off != off {
			return nil, &ProtocolError{Msg: fmt.Sprintf("fs download: expected off %d, got %d", off, resp.Off)}
		}

		out = append(out, resp.Data...)
		off += uint32(len(resp.Data))

		if progress != nil {
			progress(off, total)
		}

		if off >= total {
			break
		}
	}

	return out, nil
}

type fsUploadRequest struct {
	Name string  `cbor:"name"`
	Off  uint32  `cbor:"off"`
	Data []byte  `cbor:"data"`
	Len  *uint32 `cbor:"len,omitempty"`
}

type fsUploadResponse struct {
	rcEnvelope
	Off uint32 `cbor:"off"`
}

// FSUpload writes data to remote via repeated "fs upload" calls, the first
// of which carries the total length.
func (c *Client) FSUpload(ctx context.Context, remote string, data []byte, progress ProgressFunc) error {
	total := uint32(len(data))
	sizer := c.frameSizer()

	var off uint32
	for off < total || (total == 0 && off == 0) {
		first := off == 0
		remaining := int(total - off)

		k := calibrateChunkSizeGeneric(c.cfg.MTU, remaining, sizer, func(mid int) interface{} {
			req := fsUploadRequest{Name: remote, Off: off, Data: make([]byte, mid)}
			if first {
				l := total
				req.Len = &l
			}
			return req
		})
		if k <= 0 && remaining > 0 {
			return &ConfigError{Msg: fmt.Sprintf("mtu %d too small to fit an fs upload chunk envelope", c.cfg.MTU)}
		}

		req := fsUploadRequest{Name: remote, Off: off, Data: data[off : off+uint32(k)]}
		if first {
			l := total
			req.Len = &l
		}

		var resp fsUploadResponse
		if err := c.call(ctx, GroupFS, OpWrite, cmdFSDownloadUpload, "fs-upload", req, &resp); err != nil {
			return err
		}
		off = resp.Off
		if progress != nil {
			progress(off, total)
		}
		if total == 0 {
			break
		}
	}
	return nil
}

type fsStatRequest struct {
	Name string `cbor:"name"`
}

type fsStatResponse struct {
	rcEnvelope
	Len uint32 `cbor:"len"`
}

// FSStat issues "fs stat" for remote, returning its size in bytes.
func (c *Client) FSStat(ctx context.Context, remote string) (uint32, error) {
	req := fsStatRequest{Name: remote}
	var resp fsStatResponse
	if err := c.call(ctx, GroupFS, OpRead, cmdFSStat, "fs-stat", req, &resp); err != nil {
		return 0, err
	}
	return resp.Len, nil
}

type fsHashRequest struct {
	Name string `cbor:"name"`
	Type string `cbor:"type,omitempty"`
}

type fsHashResponse struct {
	rcEnvelope
	Output []byte `cbor:"output"`
}

// FSHash issues "fs hash" for remote using hashType ("sha256" or "crc32");
// an empty hashType defaults to "sha256".
func (c *Client) FSHash(ctx context.Context, remote string, hashType string) ([]byte, error) {
	req := fsHashRequest{Name: remote, Type: hashType}
	var resp fsHashResponse
	if err := c.call(ctx, GroupFS, OpRead, cmdFSHash, "fs-hash", req, &resp); err != nil {
		return nil, err
	}
	return resp.Output, nil
}
