package pid

import (
	"fmt"

	"github.com/openlighting/olardm/pkg/uid"
	"github.com/openlighting/olardm/pkg/wire"
)

// Well-known parameter codes used by the client itself.
const (
	QueuedMessage        uint16 = 0x0020
	SupportedParameters  uint16 = 0x0050
	DeviceInfo           uint16 = 0x0060
	DMXStartAddress      uint16 = 0x00f0
	IdentifyDevice       uint16 = 0x1000
	ManufacturerRangeMin uint16 = 0x8000
	ManufacturerRangeMax uint16 = 0xffdf
)

// IsManufacturerCode reports whether code lies in the manufacturer-specific range.
func IsManufacturerCode(code uint16) bool {
	return code >= ManufacturerRangeMin && code <= ManufacturerRangeMax
}

// Command is the layout of one command class of a parameter. A nil
// Response means replies carry no registered layout.
type Command struct {
	Request    *Group
	Response   *Group
	Validators []Validator
}

// Pid is one RDM parameter.
type Pid struct {
	Name         string
	Value        uint16
	Manufacturer uint16 // zero for standard parameters

	commands map[wire.CommandClass]*Command
}

// NewPid returns a parameter with no supported command classes.
func NewPid(name string, value uint16, manufacturer uint16) *Pid {
	return &Pid{
		Name:         name,
		Value:        value,
		Manufacturer: manufacturer,
		commands:     make(map[wire.CommandClass]*Command),
	}
}

// SetCommand registers the layout for a request command class.
func (p *Pid) SetCommand(cc wire.CommandClass, cmd *Command) {
	p.commands[cc] = cmd
}

// Command returns the layout for cc.
func (p *Pid) Command(cc wire.CommandClass) (*Command, bool) {
	cmd, ok := p.commands[cc]
	return cmd, ok
}

// Supports reports whether the parameter accepts cc.
func (p *Pid) Supports(cc wire.CommandClass) bool {
	_, ok := p.commands[cc]
	return ok
}

func (p *Pid) String() string {
	return fmt.Sprintf("%s (0x%04x)", p.Name, p.Value)
}

// Pack encodes args as the request for cc.
func (p *Pid) Pack(cc wire.CommandClass, args []string) ([]byte, error) {
	cmd, ok := p.commands[cc]
	if !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("%s %s", cc, p.Name), Err: ErrUnsupportedCommand}
	}
	if cmd.Request == nil {
		if len(args) > 0 {
			return nil, validationf(p.Name, "too many arguments: got %d, want 0", len(args))
		}
		return nil, nil
	}
	return cmd.Request.Pack(args)
}

// Unpack decodes a response to cc. ok is false when the class has no
// response layout, in which case the caller keeps the raw bytes.
func (p *Pid) Unpack(cc wire.CommandClass, data []byte) (fields map[string]any, ok bool, err error) {
	cmd, found := p.commands[cc]
	if !found || cmd.Response == nil {
		return nil, false, nil
	}
	fields, err = cmd.Response.Unpack(data)
	return fields, true, err
}

// ValidateAddress runs the addressing validators for cc.
func (p *Pid) ValidateAddress(cc wire.CommandClass, target uid.UID, subDevice uint16) error {
	cmd, ok := p.commands[cc]
	if !ok {
		return &ValidationError{Msg: fmt.Sprintf("%s %s", cc, p.Name), Err: ErrUnsupportedCommand}
	}
	for _, v := range cmd.Validators {
		if err := v.Validate(target, subDevice); err != nil {
			return err
		}
	}
	return nil
}
