package mcumgr

import (
	"context"
	"reflect"
	"testing"
)

func TestStatReadAndList(t *testing.T) {
	var gotCmd uint8
	var gotSeq uint8
	transport := &fakeTransport{
		sendFn: func(ctx context.Context, packet []byte) error {
			h, _, err := SplitPacket(packet)
			if err != nil {
				return err
			}
			gotCmd, gotSeq = h.Command, h.Sequence
			return nil
		},
		recvFn: func(ctx context.Context) ([]byte, error) {
			h := Header{Op: OpReadResponse, Group: GroupStat, Command: gotCmd, Sequence: gotSeq}
			switch gotCmd {
			case cmdStatRead:
				body, _ := EncodeCBOR(statReadResponse{
					StatGroup: StatGroup{Group: "smp", Fields: map[string]uint64{"rx": 10}},
				})
				return BuildPacket(h, body), nil
			case cmdStatList:
				body, _ := EncodeCBOR(statListResponse{StatList: []string{"smp", "ble"}})
				return BuildPacket(h, body), nil
			}
			return nil, ErrWaitTimeout
		},
	}

	c := NewClient(transport, testConfig())

	group, err := c.StatRead(context.Background(), "smp")
	if err != nil {
		t.Fatalf("stat read: %s", err.Error())
	}
	if group.Fields["rx"] != 10 {
		t.Fatalf("stat read fields = %v, want rx=10", group.Fields)
	}

	names, err := c.StatList(context.Background())
	if err != nil {
		t.Fatalf("stat list: %s", err.Error())
	}
	if !reflect.DeepEqual(names, []string{"smp", "ble"}) {
		t.Fatalf("stat list = %v, want [smp ble]", names)
	}
}
