package log

import (
	"time"

	"github.com/openlighting/olardm/pkg/wire"
)

// Event represents a protocol event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the daemon connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the daemon address (host:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	Transaction *TransactionEvent `cbor:"12,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerRPC is the envelope layer.
	LayerRPC Layer = 1
	// LayerRDM is the transaction layer.
	LayerRDM Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerRPC:
		return "RPC"
	case LayerRDM:
		return "RDM"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a frame or envelope.
	CategoryMessage Category = 0
	// CategoryState indicates a connection or transaction state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including the header).
	Size int `cbor:"1,keyasint"`

	// Data is the payload (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Discarded is set when the frame was dropped (version mismatch).
	Discarded bool `cbor:"4,keyasint,omitempty"`
}

// MessageEvent captures a decoded envelope at the rpc layer.
type MessageEvent struct {
	Type      wire.MessageType `cbor:"1,keyasint"`
	MessageID uint32           `cbor:"2,keyasint"`

	// Method is set for requests.
	Method string `cbor:"3,keyasint,omitempty"`

	// Size is the length of the envelope buffer.
	Size int `cbor:"4,keyasint"`

	// Error holds the text of a failed reply.
	Error string `cbor:"5,keyasint,omitempty"`
}

// TransactionEvent captures a state transition of one RDM transaction.
type TransactionEvent struct {
	ID           uint64            `cbor:"1,keyasint"`
	UID          string            `cbor:"2,keyasint"`
	SubDevice    uint16            `cbor:"3,keyasint"`
	ParamID      uint16            `cbor:"4,keyasint"`
	PidName      string            `cbor:"5,keyasint,omitempty"`
	CommandClass wire.CommandClass `cbor:"6,keyasint"`
	OldState     string            `cbor:"7,keyasint,omitempty"`
	NewState     string            `cbor:"8,keyasint"`
	Reason       string            `cbor:"9,keyasint,omitempty"`
}

// StateChangeEvent captures connection lifecycle events.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
