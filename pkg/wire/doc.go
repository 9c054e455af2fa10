// Package wire defines the CBOR message formats exchanged with the daemon.
//
// Every frame payload is one Envelope. Request envelopes carry a method name
// and the CBOR-encoded call arguments; reply envelopes carry the CBOR-encoded
// result or, for failures, the error text.
//
// # Envelope Types
//
//   - Request: client to daemon (method + arguments)
//   - Response: successful reply
//   - ResponseCancel: the call was cancelled by the peer
//   - ResponseFailed: the call failed; Buffer holds the error text
//   - ResponseNotImplemented: the method is unknown to the peer
//
// # RDM Call Grammar
//
// The RDMCommand and RDMDiscoveryCommand methods take an RDMRequest and
// return an RDMResponse. Only the ParamData byte strings are interpreted by
// the parameter codec; the rest of the grammar is fixed here.
//
// # CBOR Integer Keys
//
// All maps use integer keys for compactness, in the same style for every
// message type.
package wire
