package mcumgr

import (
	"context"
	"reflect"
	"testing"
)

func TestShellSplitsCommandLine(t *testing.T) {
	var gotReq shellExecRequest
	var gotSeq uint8

	transport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, body, err := SplitPacket(packet)
			if err != nil {
				return err
			}
			gotSeq = h.Sequence
			return DecodeCBOR(body, &gotReq)
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			body, _ := EncodeCBOR(shellExecResponse{O: "ok\n", Ret: 0})
			h := Header{Op: OpWriteResponse, Group: GroupShell, Sequence: gotSeq}
			return BuildPacket(h, body), nil
		},
	}

	c := NewClient(transport, testConfig())
	out, ret, err := c.Shell(context.Background(), "ls -la /lfs1")
	if err != nil {
		t.Fatalf("shell: %s", err.Error())
	}
	if out != "ok\n" || ret != 0 {
		t.Fatalf("shell result = (%q, %d), want (%q, 0)", out, ret, "ok\n")
	}

	want := []string{"ls", "-la", "/lfs1"}
	if !reflect.DeepEqual(gotReq.Argv, want) {
		t.Fatalf("argv = %v, want %v", gotReq.Argv, want)
	}
}
