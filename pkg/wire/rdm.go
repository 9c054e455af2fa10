package wire

import (
	"github.com/openlighting/olardm/pkg/uid"
)

// Daemon method names.
const (
	MethodRDMCommand          = "RDMCommand"
	MethodRDMDiscoveryCommand = "RDMDiscoveryCommand"
	MethodForceDiscovery      = "ForceDiscovery"
	MethodGetUIDs             = "GetUIDs"
)

// RDMRequest is the argument of RDMCommand and RDMDiscoveryCommand.
//
// CBOR encoding:
//
//	{
//	  1: universe,      // uint32
//	  2: uid,           // {1: manufacturer, 2: device}
//	  3: subDevice,     // uint16
//	  4: paramID,       // uint16
//	  5: commandClass,  // uint8: 0x10, 0x20 or 0x30
//	  6: paramData,     // bytes
//	  7: includeRaw     // bool
//	}
type RDMRequest struct {
	Universe           uint32       `cbor:"1,keyasint"`
	UID                uid.UID      `cbor:"2,keyasint"`
	SubDevice          uint16       `cbor:"3,keyasint"`
	ParamID            uint16       `cbor:"4,keyasint"`
	CommandClass       CommandClass `cbor:"5,keyasint"`
	ParamData          []byte       `cbor:"6,keyasint,omitempty"`
	IncludeRawResponse bool         `cbor:"7,keyasint,omitempty"`
}

// RDMResponse is the result of RDMCommand and RDMDiscoveryCommand.
//
// ResponseType, CommandClass, ParamID and ParamData are only meaningful when
// ResponseCode is ResponseCompletedOK.
type RDMResponse struct {
	ResponseCode ResponseCode `cbor:"1,keyasint"`
	ResponseType ResponseType `cbor:"2,keyasint"`
	MessageCount uint8        `cbor:"3,keyasint,omitempty"`
	SubDevice    uint16       `cbor:"4,keyasint,omitempty"`
	ParamID      uint16       `cbor:"5,keyasint"`
	CommandClass CommandClass `cbor:"6,keyasint,omitempty"`
	ParamData    []byte       `cbor:"7,keyasint,omitempty"`
	SourceUID    *uid.UID     `cbor:"8,keyasint,omitempty"`
	RawResponse  [][]byte     `cbor:"9,keyasint,omitempty"`
}

// DiscoveryRequest is the argument of ForceDiscovery.
type DiscoveryRequest struct {
	Universe uint32 `cbor:"1,keyasint"`
	Full     bool   `cbor:"2,keyasint,omitempty"`
}

// UniverseRequest is the argument of GetUIDs.
type UniverseRequest struct {
	Universe uint32 `cbor:"1,keyasint"`
}

// UIDListReply is the result of GetUIDs and ForceDiscovery.
type UIDListReply struct {
	Universe uint32    `cbor:"1,keyasint"`
	UIDs     []uid.UID `cbor:"2,keyasint"`
}
