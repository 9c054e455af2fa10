package pid

import (
	"fmt"

	"github.com/openlighting/olardm/pkg/uid"
)

// Sub-device addressing limits.
const (
	RootDevice    uint16 = 0
	MaxSubDevice  uint16 = 512
	AllSubDevices uint16 = 0xffff
)

// Validator checks the address of a request before it is sent.
type Validator interface {
	Validate(target uid.UID, subDevice uint16) error
}

// SubDeviceRange restricts which sub-devices a command may address.
type SubDeviceRange uint8

const (
	// RootDeviceOnly accepts only the root device.
	RootDeviceOnly SubDeviceRange = iota + 1
	// RootOrAllSubDevices accepts the root device or the all-sub-devices broadcast.
	RootOrAllSubDevices
	// RootOrSubDevices accepts the root device or one specific sub-device.
	RootOrSubDevices
	// OnlySubDevices accepts one specific sub-device.
	OnlySubDevices
)

func (r SubDeviceRange) String() string {
	switch r {
	case RootDeviceOnly:
		return "ROOT_DEVICE"
	case RootOrAllSubDevices:
		return "ROOT_OR_ALL_SUBDEVICE"
	case RootOrSubDevices:
		return "ROOT_OR_SUBDEVICES"
	case OnlySubDevices:
		return "ONLY_SUBDEVICES"
	default:
		return fmt.Sprintf("SubDeviceRange(%d)", uint8(r))
	}
}

// Validate implements Validator.
func (r SubDeviceRange) Validate(_ uid.UID, subDevice uint16) error {
	var ok bool
	var want string
	switch r {
	case RootDeviceOnly:
		ok, want = subDevice == RootDevice, "must be the root device"
	case RootOrAllSubDevices:
		ok, want = subDevice == RootDevice || subDevice == AllSubDevices,
			"must be the root device or all sub-devices (0xffff)"
	case RootOrSubDevices:
		ok, want = subDevice <= MaxSubDevice, fmt.Sprintf("must be the root device or a sub-device up to %d", MaxSubDevice)
	case OnlySubDevices:
		ok, want = subDevice >= 1 && subDevice <= MaxSubDevice, fmt.Sprintf("must be a sub-device between 1 and %d", MaxSubDevice)
	default:
		return validationf("sub-device", "unknown range %s", r)
	}
	if !ok {
		return validationf("sub-device", "%d %s", subDevice, want)
	}
	return nil
}
