package mcumgr

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// ProgressFunc receives (bytesAccepted, totalBytes) after each chunk the
// device acknowledges. Implementations may buffer to avoid flooding a UI
// but Upload always delivers a final (total, total) event on success.
type ProgressFunc func(off, total uint32)

// UploadState names a point in the upload state machine of §4.6:
// Idle -> Sending(off) -> Awaiting(off) -> Sending(off') | Failed | Done.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadSending
	UploadAwaiting
	UploadFailed
	UploadDone
)

func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadSending:
		return "sending"
	case UploadAwaiting:
		return "awaiting"
	case UploadFailed:
		return "failed"
	case UploadDone:
		return "done"
	default:
		return "unknown"
	}
}

// UploadOptions configures one "image upload" invocation.
type UploadOptions struct {
	// Slot selects the image slot. Nil means "infer from FilePath, else 0".
	Slot *uint32

	// FilePath is used only for slot inference (§4.5): a path containing
	// "slot1" or "slot3" infers that slot when Slot is nil.
	FilePath string

	// OnState, if set, is called on every upload state transition.
	OnState func(UploadState)
}

// InferSlot implements the §4.5 filename convention: a path containing
// "slot1" or "slot3" infers that slot. Any other path returns nil, leaving
// the caller to default to slot 0.
func InferSlot(path string) *uint32 {
	switch {
	case containsSlotMarker(path, "slot1"):
		return uint32Ptr(1)
	case containsSlotMarker(path, "slot3"):
		return uint32Ptr(3)
	default:
		return nil
	}
}

func containsSlotMarker(path, marker string) bool {
	for i := 0; i+len(marker) <= len(path); i++ {
		if path[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}

func uint32Ptr(v uint32) *uint32 { return &v }

type firmwareUploadRequest struct {
	Image *uint32 `cbor:"image,omitempty"`
	Len   *uint32 `cbor:"len,omitempty"`
	Off   uint32  `cbor:"off"`
	SHA   []byte  `cbor:"sha,omitempty"`
	Data  []byte  `cbor:"data"`
}

type firmwareUploadResponse struct {
	rcEnvelope
	Off   *uint32 `cbor:"off,omitempty"`
	Match *bool   `cbor:"match,omitempty"`
}

// Upload streams data to the device via "image upload", computing its
// SHA-256 identity up front and resuming cleanly if the device reports a
// matching in-progress image (§8 scenario 4: a restarted upload of the same
// file resumes at the device-reported offset because off/sha identify it).
func (c *Client) Upload(ctx context.Context, data []byte, opts UploadOptions, progress ProgressFunc) error {
	sum := sha256.Sum256(data)
	total := uint32(len(data))

	slot := opts.Slot
	if slot == nil {
		slot = InferSlot(opts.FilePath)
	}

	setState := func(s UploadState) {
		if opts.OnState != nil {
			opts.OnState(s)
		}
	}

	sizer := c.frameSizer()

	setState(UploadIdle)

	var off uint32
	for off < total {
		first := off == 0
		remaining := int(total - off)

		k := calibrateChunkSize(c.cfg.MTU, first, slot, remaining, sizer)
		if k <= 0 {
			setState(UploadFailed)
			return &ConfigError{Msg: fmt.Sprintf("mtu %d too small to fit an image upload chunk envelope", c.cfg.MTU)}
		}

		req := firmwareUploadRequest{
			Off:  off,
			Data: data[off : off+uint32(k)],
		}
		if first {
			l := total
			req.Len = &l
			req.SHA = sum[:]
			req.Image = slot
		}
		// calibrateChunkSize sizes the request at off 0; a larger off takes
		// more CBOR bytes, so shed payload until the real request fits.
		for k > 1 {
			body, err := EncodeCBOR(req)
			if err != nil || sizer(HeaderLen+len(body)) <= c.cfg.MTU {
				break
			}
			k--
			req.Data = data[off : off+uint32(k)]
		}

		setState(UploadSending)
		var resp firmwareUploadResponse
		setState(UploadAwaiting)
		if err := c.call(ctx, GroupImage, OpWrite, cmdImageUpload, "upload", req, &resp); err != nil {
			setState(UploadFailed)
			return err
		}
		if resp.Off == nil {
			setState(UploadFailed)
			return &ProtocolError{Msg: "upload response missing off"}
		}

		// The device is authoritative about how much it accepted; it may be
		// less than off+k even on success, so the loop never advances off
		// on its own.
		off = *resp.Off
		if progress != nil {
			progress(off, total)
		}
	}

	setState(UploadDone)
	if progress != nil {
		progress(total, total)
	}
	return nil
}

// frameSizer adapts the active transport's optional FrameSizer to a plain
// function, defaulting to an identity mapping (raw packet size is the wire
// size) for transports that don't inflate their framing.
func (c *Client) frameSizer() func(int) int {
	if fs, ok := c.transport.(FrameSizer); ok {
		return fs.FramedSize
	}
	return func(n int) int { return n }
}

// calibrateChunkSize binary-searches the largest image-upload payload
// length k such that the fully-framed wire size of the resulting SMP
// packet fits within mtu.
func calibrateChunkSize(mtu int, first bool, slot *uint32, remaining int, sizer func(int) int) int {
	return calibrateChunkSizeGeneric(mtu, remaining, sizer, func(k int) interface{} {
		req := firmwareUploadRequest{Off: 0, Data: make([]byte, k)}
		if first {
			l := uint32(remaining)
			sha := make([]byte, 32)
			req.Len = &l
			req.SHA = sha
			req.Image = slot
		}
		return req
	})
}

// calibrateChunkSizeGeneric binary-searches the largest k such that
// build(k), once CBOR-encoded and wrapped in an SMP header and the active
// transport's framing, still fits within mtu bytes on the wire. §9 is
// explicit that this must be computed from first principles rather than a
// hard-coded table, because CBOR's own length-prefix encoding and (for
// serial) base64 inflation both vary with k; using the real encoder for
// each candidate avoids having to hand-derive those encodings. Used for
// both image-upload and FS-upload chunk sizing.
func calibrateChunkSizeGeneric(mtu int, remaining int, sizer func(int) int, build func(k int) interface{}) int {
	hi := remaining
	if hi > mtu {
		hi = mtu
	}

	lo, best := 0, 0
	for lo <= hi {
		mid := (lo + hi) / 2

		body, err := EncodeCBOR(build(mid))
		if err != nil {
			break
		}

		if sizer(HeaderLen+len(body)) <= mtu {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}
