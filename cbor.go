package mcumgr

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR utilities shared by every group codec.

// EncodeCBOR encodes a request body for an SMP command.
func EncodeCBOR(data interface{}) ([]byte, error) {
	encoded, err := cbor.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR: %w", err)
	}

	return encoded, nil
}

// DecodeCBOR decodes an SMP response body into v.
func DecodeCBOR(data []byte, v interface{}) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode CBOR: %w", err)
	}

	return nil
}

// rcEnvelope is embedded into every group's response struct to pick up the
// conventional "rc" status field without repeating the tag in each group
// file. A missing rc means success, per the MCUmgr convention. Because its
// RC method has a pointer receiver, any *Response that embeds rcEnvelope by
// value automatically satisfies rcGetter (see client.go) through Go's
// method promotion — no per-group boilerplate needed.
type rcEnvelope struct {
	Rc *int `cbor:"rc,omitempty"`
}

// rcGetter is implemented by every response struct that embeds rcEnvelope.
type rcGetter interface {
	RC() int
}

func (e *rcEnvelope) RC() int {
	if e.Rc == nil {
		return 0
	}
	return *e.Rc
}
