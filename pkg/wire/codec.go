package wire

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for envelopes and call payloads.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for envelopes and call payloads.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding: unknown keys from newer daemons are ignored.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeEnvelope encodes an envelope to CBOR bytes.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return Marshal(env)
}

// DecodeEnvelope decodes CBOR bytes into an envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return &env, nil
}

// EncodeRDMRequest encodes the arguments of an RDMCommand call.
func EncodeRDMRequest(req *RDMRequest) ([]byte, error) {
	if !req.CommandClass.IsRequest() {
		return nil, fmt.Errorf("invalid request command class: %s", req.CommandClass)
	}
	return Marshal(req)
}

// DecodeRDMRequest decodes the arguments of an RDMCommand call.
func DecodeRDMRequest(data []byte) (*RDMRequest, error) {
	var req RDMRequest
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode RDM request: %w", err)
	}
	return &req, nil
}

// EncodeRDMResponse encodes the result of an RDMCommand call.
func EncodeRDMResponse(resp *RDMResponse) ([]byte, error) {
	return Marshal(resp)
}

// DecodeRDMResponse decodes the result of an RDMCommand call.
func DecodeRDMResponse(data []byte) (*RDMResponse, error) {
	var resp RDMResponse
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode RDM response: %w", err)
	}
	return &resp, nil
}
