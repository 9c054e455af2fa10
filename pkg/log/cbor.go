package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// CaptureExt is the file extension of protocol capture files.
const CaptureExt = ".rlog"

// Capture files hold one CBOR map per event, back to back, with no framing
// of their own. Events are written canonically so two captures of the same
// conversation compare byte for byte apart from timestamps.
var (
	captureEnc = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})

	// Decoding is lenient so captures written by older builds, or edited by
	// other CBOR tools, still replay.
	captureDec = mustDecMode(cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: capture encoder: %v", err))
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: capture decoder: %v", err))
	}
	return m
}

// EncodeEvent returns the capture encoding of one event.
func EncodeEvent(event Event) ([]byte, error) {
	return captureEnc.Marshal(event)
}

// DecodeEvent decodes the first event in data. Anything after it is ignored,
// so a whole capture file yields its first event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if _, err := captureDec.UnmarshalFirst(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode capture event: %w", err)
	}
	return event, nil
}

// NewEncoder returns an encoder that appends capture events to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return captureEnc.NewEncoder(w)
}

// NewDecoder returns a decoder that reads capture events from r one at a time.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return captureDec.NewDecoder(r)
}
