package wire

import (
	"fmt"
)

// MessageType identifies the kind of envelope.
type MessageType uint8

const (
	// MsgRequest is a call from the client.
	MsgRequest MessageType = 1

	// MsgResponse is a successful reply.
	MsgResponse MessageType = 2

	// MsgResponseCancel reports that the call was cancelled.
	MsgResponseCancel MessageType = 3

	// MsgResponseFailed reports a failed call; Buffer holds the error text.
	MsgResponseFailed MessageType = 4

	// MsgResponseNotImplemented reports that the method is unknown.
	MsgResponseNotImplemented MessageType = 5
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MsgRequest:
		return "REQUEST"
	case MsgResponse:
		return "RESPONSE"
	case MsgResponseCancel:
		return "RESPONSE_CANCEL"
	case MsgResponseFailed:
		return "RESPONSE_FAILED"
	case MsgResponseNotImplemented:
		return "RESPONSE_NOT_IMPLEMENTED"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true for the known message types.
func (t MessageType) IsValid() bool {
	return t >= MsgRequest && t <= MsgResponseNotImplemented
}

// IsReply returns true for the reply message types.
func (t MessageType) IsReply() bool {
	return t > MsgRequest && t <= MsgResponseNotImplemented
}

// Envelope is the payload of every frame.
//
// CBOR encoding:
//
//	{
//	  1: type,     // uint8
//	  2: id,       // uint32: sequence number, echoed by the reply
//	  3: method,   // string: request only
//	  4: buffer    // bytes: arguments, reply data, or error text
//	}
type Envelope struct {
	Type   MessageType `cbor:"1,keyasint"`
	ID     uint32      `cbor:"2,keyasint"`
	Method string      `cbor:"3,keyasint,omitempty"`
	Buffer []byte      `cbor:"4,keyasint,omitempty"`
}

// Validate checks if the envelope is well formed.
func (e *Envelope) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid message type: %d", e.Type)
	}
	if e.Type == MsgRequest && e.Method == "" {
		return fmt.Errorf("request %d has no method", e.ID)
	}
	return nil
}
