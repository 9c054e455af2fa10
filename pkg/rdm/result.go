package rdm

import (
	"errors"
	"fmt"

	"github.com/openlighting/olardm/pkg/pid"
	"github.com/openlighting/olardm/pkg/uid"
	"github.com/openlighting/olardm/pkg/wire"
)

// Transaction errors delivered through Callback.
var (
	ErrQueueingUnsupported = errors.New("device does not support queued messages")
	ErrQueueDrainExceeded  = errors.New("queue drain exceeded")
	ErrUnexpectedResponse  = errors.New("unexpected response type")
)

// Result is the final outcome of a transaction.
type Result struct {
	ResponseCode wire.ResponseCode
	ResponseType wire.ResponseType
	MessageCount uint8
	ParamID      uint16
	Pid          *pid.Pid

	// Nack is set when ResponseType is NACK_REASON.
	Nack NackReason

	// Fields holds the unpacked parameter data of an ACK. It is nil when the
	// parameter has no response layout; Raw is always the data as received.
	Fields map[string]any
	Raw    []byte

	// DecodeErr is set when Raw did not match the response layout.
	DecodeErr error

	// Polls counts the QUEUED_MESSAGE requests issued after an ACK_TIMER.
	Polls int

	// RawResponses holds the frames seen by the daemon when requested.
	RawResponses [][]byte
}

// OK reports whether the device acknowledged and the data decoded cleanly.
func (r *Result) OK() bool {
	return r.ResponseCode.IsSuccess() && r.ResponseType != wire.ResponseTypeNackReason && r.DecodeErr == nil
}

// Err converts a non-OK result into an error: *ResponseError for a failed
// exchange, *NackError for a NACK, or the decode error.
func (r *Result) Err() error {
	switch {
	case !r.ResponseCode.IsSuccess():
		return &ResponseError{Code: r.ResponseCode}
	case r.ResponseType == wire.ResponseTypeNackReason:
		return &NackError{Pid: pidName(r.Pid, r.ParamID), Reason: r.Nack}
	case r.DecodeErr != nil:
		return r.DecodeErr
	}
	return nil
}

// ResponseError reports an RDM exchange the daemon could not complete.
type ResponseError struct {
	Code wire.ResponseCode
}

func (e *ResponseError) Error() string {
	return "rdm exchange failed: " + e.Code.String()
}

// NackError reports a NACK from the device.
type NackError struct {
	Pid    string
	Reason NackReason
}

func (e *NackError) Error() string {
	return fmt.Sprintf("%s: nack: %s", e.Pid, e.Reason)
}

// QueuedMessage is a deferred response for a parameter other than the one
// being waited for, seen while draining the queue.
type QueuedMessage struct {
	UID          uid.UID
	SubDevice    uint16
	ParamID      uint16
	CommandClass wire.CommandClass
	ResponseType wire.ResponseType
	Pid          *pid.Pid // nil when the store has no definition
	Fields       map[string]any
	Raw          []byte
	DecodeErr    error
}

// QueuedMessageHandler receives unrelated queued messages.
type QueuedMessageHandler func(msg *QueuedMessage)

func pidName(p *pid.Pid, code uint16) string {
	if p != nil {
		return p.Name
	}
	return fmt.Sprintf("0x%04x", code)
}
