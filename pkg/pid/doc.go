// Package pid describes RDM parameters and packs and unpacks their
// parameter data.
//
// A parameter (PID) is a 16-bit code with a name and, for each command class
// it supports, a request and response layout. A layout is a Group: an
// ordered list of Fields, each a fixed-width scalar, a bounded string, or one
// level of nested Group. Layouts are not compiled in. They are read at
// startup from protobuf text definition files into a Store:
//
//	store, err := pid.LoadDir("/usr/share/ola/pids")
//	p, ok := store.PidByName("DMX_START_ADDRESS", 0)
//	data, err := p.Pack(wire.SetCommand, []string{"17"})
//
// Groups are validated when built. At most one variable-size field may
// appear in a group and it must be last, and a group holding one must not
// repeat. Violations are reported as *StructuralError.
//
// Pack reports caller mistakes as *ValidationError. Unpack reports payloads
// that do not fit the layout as *UnpackError.
package pid
