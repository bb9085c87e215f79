package mcumgr

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"
)

func TestFSUploadDownloadRoundTrip(t *testing.T) {
	const size = 1500
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("generate data: %s", err.Error())
	}

	store := make([]byte, size)
	var gotSeq uint8
	var lastUpload fsUploadRequest

	uploadTransport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, body, err := SplitPacket(packet)
			if err != nil {
				return err
			}
			gotSeq = h.Sequence
			return DecodeCBOR(body, &lastUpload)
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			copy(store[lastUpload.Off:], lastUpload.Data)
			off := lastUpload.Off + uint32(len(lastUpload.Data))
			body, _ := EncodeCBOR(fsUploadResponse{Off: off})
			h := Header{Op: OpWriteResponse, Group: GroupFS, Sequence: gotSeq}
			return BuildPacket(h, body), nil
		},
	}

	cfg := testConfig()
	cfg.MTU = 200
	uc := NewClient(uploadTransport, cfg)

	if err := uc.FSUpload(context.Background(), "/lfs1/test.bin", data, nil); err != nil {
		t.Fatalf("fs upload: %s", err.Error())
	}
	if !bytes.Equal(store, data) {
		t.Fatalf("uploaded content differs from source")
	}

	var lastDownload fsDownloadRequest
	downloadTransport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, body, err := SplitPacket(packet)
			if err != nil {
				return err
			}
			gotSeq = h.Sequence
			return DecodeCBOR(body, &lastDownload)
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			const window = 128
			end := lastDownload.Off + window
			if end > uint32(len(store)) {
				end = uint32(len(store))
			}
			resp := fsDownloadResponse{Off: lastDownload.Off, Data: store[lastDownload.Off:end]}
			if lastDownload.Off == 0 {
				l := uint32(len(store))
				resp.Len = &l
			}
			body, _ := EncodeCBOR(resp)
			h := Header{Op: OpReadResponse, Group: GroupFS, Sequence: gotSeq}
			return BuildPacket(h, body), nil
		},
	}

	dc := NewClient(downloadTransport, testConfig())
	out, err := dc.FSDownload(context.Background(), "/lfs1/test.bin", nil)
	if err != nil {
		t.Fatalf("fs download: %s", err.Error())
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("downloaded content differs from uploaded source")
	}
}

func TestFSStatAndHash(t *testing.T) {
	var gotCmd uint8
	var gotSeq uint8
	transport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, _, err := SplitPacket(packet)
			if err != nil {
				return err
			}
			gotCmd = h.Command
			gotSeq = h.Sequence
			return nil
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			switch gotCmd {
			case cmdFSStat:
				body, _ := EncodeCBOR(fsStatResponse{Len: 42})
				h := Header{Op: OpReadResponse, Group: GroupFS, Command: gotCmd, Sequence: gotSeq}
				return BuildPacket(h, body), nil
			case cmdFSHash:
				body, _ := EncodeCBOR(fsHashResponse{Output: []byte{0xDE, 0xAD, 0xBE, 0xEF}})
				h := Header{Op: OpReadResponse, Group: GroupFS, Command: gotCmd, Sequence: gotSeq}
				return BuildPacket(h, body), nil
			}
			return nil, ErrWaitTimeout
		},
	}

	c := NewClient(transport, testConfig())

	size, err := c.FSStat(context.Background(), "/lfs1/test.bin")
	if err != nil {
		t.Fatalf("fs stat: %s", err.Error())
	}
	if size != 42 {
		t.Fatalf("fs stat len = %d, want 42", size)
	}

	hash, err := c.FSHash(context.Background(), "/lfs1/test.bin", "")
	if err != nil {
		t.Fatalf("fs hash: %s", err.Error())
	}
	if !bytes.Equal(hash, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("fs hash output mismatch: %x", hash)
	}
}
