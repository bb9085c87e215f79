package mcumgr

import (
	"bytes"
	"context"
	"testing"
)

func TestSettingsReadWriteDeleteCommitLoadSave(t *testing.T) {
	store := map[string][]byte{}
	var gotCmd, gotOp, gotSeq uint8
	var readReq settingsReadRequest
	var writeReq settingsWriteRequest
	var nameReq settingsNameRequest

	transport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, body, err := SplitPacket(packet)
			if err != nil {
				return err
			}
			gotCmd, gotOp, gotSeq = h.Command, h.Op, h.Sequence
			switch {
			case gotCmd == cmdSettingsReadWrite && gotOp == OpRead:
				return DecodeCBOR(body, &readReq)
			case gotCmd == cmdSettingsReadWrite && gotOp == OpWrite:
				return DecodeCBOR(body, &writeReq)
			case gotCmd == cmdSettingsDelete:
				return DecodeCBOR(body, &nameReq)
			}
			return nil
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			h := Header{Op: gotOp + 1, Group: GroupSettings, Command: gotCmd, Sequence: gotSeq}
			switch {
			case gotCmd == cmdSettingsReadWrite && gotOp == OpRead:
				body, _ := EncodeCBOR(settingsReadResponse{Val: store[readReq.Name]})
				return BuildPacket(h, body), nil
			default:
				var resp rcEnvelope
				body, _ := EncodeCBOR(resp)
				return BuildPacket(h, body), nil
			}
		},
	}

	c := NewClient(transport, testConfig())
	ctx := context.Background()

	store["k"] = []byte("v1")
	if err := c.SettingsWrite(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("settings write: %s", err.Error())
	}
	if !bytes.Equal(writeReq.Val, []byte("v2")) {
		t.Fatalf("device received val %q, want %q", writeReq.Val, "v2")
	}
	store["k"] = writeReq.Val

	val, err := c.SettingsRead(ctx, "k", nil)
	if err != nil {
		t.Fatalf("settings read: %s", err.Error())
	}
	if !bytes.Equal(val, []byte("v2")) {
		t.Fatalf("settings read = %q, want %q", val, "v2")
	}

	if err := c.SettingsDelete(ctx, "k"); err != nil {
		t.Fatalf("settings delete: %s", err.Error())
	}
	if nameReq.Name != "k" {
		t.Fatalf("delete request name = %q, want %q", nameReq.Name, "k")
	}

	if err := c.SettingsCommit(ctx); err != nil {
		t.Fatalf("settings commit: %s", err.Error())
	}
	if err := c.SettingsLoad(ctx); err != nil {
		t.Fatalf("settings load: %s", err.Error())
	}
	if err := c.SettingsSave(ctx); err != nil {
		t.Fatalf("settings save: %s", err.Error())
	}
}
