package rdm

import (
	"encoding/binary"
	"fmt"
)

// NackReason is the reason code carried by a NACK response.
type NackReason uint16

const (
	NackUnknownPID             NackReason = 0x0000
	NackFormatError            NackReason = 0x0001
	NackHardwareFault          NackReason = 0x0002
	NackProxyReject            NackReason = 0x0003
	NackWriteProtect           NackReason = 0x0004
	NackUnsupportedCommand     NackReason = 0x0005
	NackDataOutOfRange         NackReason = 0x0006
	NackBufferFull             NackReason = 0x0007
	NackPacketSizeUnsupported  NackReason = 0x0008
	NackSubDeviceOutOfRange    NackReason = 0x0009
	NackProxyBufferFull        NackReason = 0x000a
	NackActionNotSupported     NackReason = 0x000b
	NackEndpointNumberInvalid  NackReason = 0x000c
	NackInvalidEndpointMode    NackReason = 0x000d
	NackUnknownUID             NackReason = 0x000e
	NackUnknownScope           NackReason = 0x000f
	NackInvalidStaticConfig    NackReason = 0x0010
	NackInvalidIPv4Address     NackReason = 0x0011
	NackInvalidIPv6Address     NackReason = 0x0012
	NackInvalidPort            NackReason = 0x0013
)

var nackNames = map[NackReason]string{
	NackUnknownPID:            "Unknown PID",
	NackFormatError:           "Format Error",
	NackHardwareFault:         "Hardware Fault",
	NackProxyReject:           "Proxy Reject",
	NackWriteProtect:          "Write Protect",
	NackUnsupportedCommand:    "Unsupported Command Class",
	NackDataOutOfRange:        "Data Out Of Range",
	NackBufferFull:            "Buffer Full",
	NackPacketSizeUnsupported: "Packet Size Unsupported",
	NackSubDeviceOutOfRange:   "Sub-Device Out Of Range",
	NackProxyBufferFull:       "Proxy Buffer Full",
	NackActionNotSupported:    "Action Not Supported",
	NackEndpointNumberInvalid: "Endpoint Number Invalid",
	NackInvalidEndpointMode:   "Invalid Endpoint Mode",
	NackUnknownUID:            "Unknown UID",
	NackUnknownScope:          "Unknown Scope",
	NackInvalidStaticConfig:   "Invalid Static Config Type",
	NackInvalidIPv4Address:    "Invalid IPv4 Address",
	NackInvalidIPv6Address:    "Invalid IPv6 Address",
	NackInvalidPort:           "Invalid Port",
}

func (r NackReason) String() string {
	if name, ok := nackNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Unknown NACK reason 0x%04x", uint16(r))
}

func decodeNackReason(data []byte) (NackReason, error) {
	if len(data) != 2 {
		return 0, fmt.Errorf("nack reason: got %d bytes, want 2", len(data))
	}
	return NackReason(binary.BigEndian.Uint16(data)), nil
}
