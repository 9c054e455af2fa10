package wire

import "fmt"

// CommandClass is the RDM command class byte.
type CommandClass uint8

const (
	DiscoveryCommand         CommandClass = 0x10
	DiscoveryCommandResponse CommandClass = 0x11
	GetCommand               CommandClass = 0x20
	GetCommandResponse       CommandClass = 0x21
	SetCommand               CommandClass = 0x30
	SetCommandResponse       CommandClass = 0x31
)

// String returns the command class name.
func (c CommandClass) String() string {
	switch c {
	case DiscoveryCommand:
		return "DISCOVERY"
	case DiscoveryCommandResponse:
		return "DISCOVERY_RESPONSE"
	case GetCommand:
		return "GET"
	case GetCommandResponse:
		return "GET_RESPONSE"
	case SetCommand:
		return "SET"
	case SetCommandResponse:
		return "SET_RESPONSE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(c))
	}
}

// IsRequest returns true for the three request command classes.
func (c CommandClass) IsRequest() bool {
	return c == DiscoveryCommand || c == GetCommand || c == SetCommand
}

// Response returns the response class paired with a request class.
func (c CommandClass) Response() CommandClass {
	if c.IsRequest() {
		return c + 1
	}
	return c
}

// ResponseType is the RDM response type byte.
type ResponseType uint8

const (
	ResponseTypeAck         ResponseType = 0x00
	ResponseTypeAckTimer    ResponseType = 0x01
	ResponseTypeNackReason  ResponseType = 0x02
	ResponseTypeAckOverflow ResponseType = 0x03
)

// String returns the response type name.
func (t ResponseType) String() string {
	switch t {
	case ResponseTypeAck:
		return "ACK"
	case ResponseTypeAckTimer:
		return "ACK_TIMER"
	case ResponseTypeNackReason:
		return "NACK_REASON"
	case ResponseTypeAckOverflow:
		return "ACK_OVERFLOW"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(t))
	}
}

// ResponseCode reports how the daemon's RDM exchange with the device ended.
type ResponseCode uint8

const (
	ResponseCompletedOK ResponseCode = iota
	ResponseWasBroadcast
	ResponseFailedToSend
	ResponseTimeout
	ResponseInvalidResponse
	ResponseUnknownUID
	ResponseChecksumIncorrect
	ResponseTransactionMismatch
	ResponseSubDeviceMismatch
	ResponseSrcUIDMismatch
	ResponseDestUIDMismatch
	ResponseWrongSubStartCode
	ResponsePacketTooShort
	ResponsePacketLengthMismatch
	ResponseParamLengthMismatch
	ResponseInvalidCommandClass
	ResponseCommandClassMismatch
	ResponseInvalidResponseType
	ResponseDiscoveryNotSupported
	ResponseDUBResponse
)

var responseCodeNames = map[ResponseCode]string{
	ResponseCompletedOK:           "COMPLETED_OK",
	ResponseWasBroadcast:          "WAS_BROADCAST",
	ResponseFailedToSend:          "FAILED_TO_SEND",
	ResponseTimeout:               "TIMEOUT",
	ResponseInvalidResponse:       "INVALID_RESPONSE",
	ResponseUnknownUID:            "UNKNOWN_UID",
	ResponseChecksumIncorrect:     "CHECKSUM_INCORRECT",
	ResponseTransactionMismatch:   "TRANSACTION_MISMATCH",
	ResponseSubDeviceMismatch:     "SUB_DEVICE_MISMATCH",
	ResponseSrcUIDMismatch:        "SRC_UID_MISMATCH",
	ResponseDestUIDMismatch:       "DEST_UID_MISMATCH",
	ResponseWrongSubStartCode:     "WRONG_SUB_START_CODE",
	ResponsePacketTooShort:        "PACKET_TOO_SHORT",
	ResponsePacketLengthMismatch:  "PACKET_LENGTH_MISMATCH",
	ResponseParamLengthMismatch:   "PARAM_LENGTH_MISMATCH",
	ResponseInvalidCommandClass:   "INVALID_COMMAND_CLASS",
	ResponseCommandClassMismatch:  "COMMAND_CLASS_MISMATCH",
	ResponseInvalidResponseType:   "INVALID_RESPONSE_TYPE",
	ResponseDiscoveryNotSupported: "DISCOVERY_NOT_SUPPORTED",
	ResponseDUBResponse:           "DUB_RESPONSE",
}

// String returns the response code name.
func (c ResponseCode) String() string {
	if name, ok := responseCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(c))
}

// IsSuccess returns true if the exchange completed and a response is available.
func (c ResponseCode) IsSuccess() bool {
	return c == ResponseCompletedOK
}
