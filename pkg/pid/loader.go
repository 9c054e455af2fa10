package pid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/openlighting/olardm/pkg/wire"
)

// Definition file names with special treatment.
const (
	OverridesFile         = "overrides.proto"
	ManufacturerNamesFile = "manufacturer_names.proto"
)

// Source is one definition file.
type Source struct {
	Name string
	Data []byte
}

var fieldKinds = map[protoreflect.EnumNumber]Kind{
	1: KindBool, 2: KindUint8, 3: KindUint16, 4: KindUint32, 5: KindString,
	6: KindGroup, 7: KindInt8, 8: KindInt16, 9: KindInt32, 10: KindIPv4,
	11: KindUID, 12: KindMAC, 13: KindIPv6, 14: KindURL, 15: KindUint64,
	16: KindInt64,
}

type commandSlot struct {
	class     wire.CommandClass
	request   protoreflect.Name
	response  protoreflect.Name
	subDevice protoreflect.Name
}

var commandSlots = []commandSlot{
	{wire.GetCommand, "get_request", "get_response", "get_sub_device_range"},
	{wire.SetCommand, "set_request", "set_response", "set_sub_device_range"},
	{wire.DiscoveryCommand, "discovery_request", "discovery_response", "discovery_sub_device_range"},
}

// LoadDir loads every *.proto file in dir, in name order.
func LoadDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".proto") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		sources = append(sources, Source{Name: path, Data: data})
	}
	return LoadDefinitions(sources...)
}

// LoadDefinitions builds a store from definition sources. Ordinary sources
// load first and must not repeat a code or name within a namespace. The
// manufacturer names file then supplies display names, and the overrides
// file replaces entries by code.
func LoadDefinitions(sources ...Source) (*Store, error) {
	s := NewStore()
	var names, overrides []Source
	for _, src := range sources {
		switch filepath.Base(src.Name) {
		case OverridesFile:
			overrides = append(overrides, src)
		case ManufacturerNamesFile:
			names = append(names, src)
		default:
			if err := s.loadSource(src, s.Add); err != nil {
				return nil, err
			}
		}
	}

	for _, src := range names {
		msg, err := parseSource(src)
		if err != nil {
			return nil, err
		}
		mans := msg.Get(fieldDesc(msg, "manufacturer")).List()
		for i := 0; i < mans.Len(); i++ {
			m := mans.Get(i).Message()
			id, err := manufacturerID(m)
			if err != nil {
				return nil, withSource(err, src.Name)
			}
			s.SetManufacturerName(id, m.Get(fieldDesc(m, "manufacturer_name")).String())
		}
	}

	for _, src := range overrides {
		if err := s.loadSource(src, s.Override); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func parseSource(src Source) (protoreflect.Message, error) {
	msg := dynamicpb.NewMessage(storeDescriptor)
	if err := prototext.Unmarshal(src.Data, msg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", src.Name, err)
	}
	return msg, nil
}

func (s *Store) loadSource(src Source, insert func(*Pid) error) error {
	msg, err := parseSource(src)
	if err != nil {
		return err
	}
	if v := msg.Get(fieldDesc(msg, "version")).Uint(); v > s.version {
		s.version = v
	}

	pids := msg.Get(fieldDesc(msg, "pid")).List()
	for i := 0; i < pids.Len(); i++ {
		p, err := buildPid(pids.Get(i).Message(), 0)
		if err == nil {
			err = insert(p)
		}
		if err != nil {
			return withSource(err, src.Name)
		}
	}

	mans := msg.Get(fieldDesc(msg, "manufacturer")).List()
	for i := 0; i < mans.Len(); i++ {
		m := mans.Get(i).Message()
		id, err := manufacturerID(m)
		if err != nil {
			return withSource(err, src.Name)
		}
		if name := m.Get(fieldDesc(m, "manufacturer_name")).String(); name != "" {
			s.SetManufacturerName(id, name)
		}
		mpids := m.Get(fieldDesc(m, "pid")).List()
		for j := 0; j < mpids.Len(); j++ {
			p, err := buildPid(mpids.Get(j).Message(), id)
			if err == nil {
				err = insert(p)
			}
			if err != nil {
				return withSource(err, src.Name)
			}
		}
	}
	return nil
}

func manufacturerID(m protoreflect.Message) (uint16, error) {
	fd := fieldDesc(m, "manufacturer_id")
	id := m.Get(fd).Uint()
	if !m.Has(fd) || id == 0 || id > 0xffff {
		return 0, structuralf("manufacturer with invalid id %d", id)
	}
	return uint16(id), nil
}

func buildPid(m protoreflect.Message, manufacturer uint16) (*Pid, error) {
	name := m.Get(fieldDesc(m, "name")).String()
	if name == "" {
		return nil, structuralf("pid without a name")
	}
	valueField := fieldDesc(m, "value")
	value := m.Get(valueField).Uint()
	if !m.Has(valueField) || value > 0xffff {
		return nil, &StructuralError{Pid: name, Msg: fmt.Sprintf("invalid code %d", value)}
	}

	p := NewPid(name, uint16(value), manufacturer)
	for _, slot := range commandSlots {
		reqField := m.Descriptor().Fields().ByName(slot.request)
		respField := m.Descriptor().Fields().ByName(slot.response)
		if !m.Has(reqField) && !m.Has(respField) {
			continue
		}

		cmd := &Command{}
		var err error
		if m.Has(reqField) {
			if cmd.Request, err = buildGroup(m.Get(reqField).Message(), string(slot.request)); err != nil {
				return nil, withPid(err, name)
			}
		}
		if m.Has(respField) {
			if cmd.Response, err = buildGroup(m.Get(respField).Message(), string(slot.response)); err != nil {
				return nil, withPid(err, name)
			}
		}

		rangeField := m.Descriptor().Fields().ByName(slot.subDevice)
		if m.Has(rangeField) {
			r := SubDeviceRange(m.Get(rangeField).Enum())
			if r < RootDeviceOnly || r > OnlySubDevices {
				return nil, &StructuralError{Pid: name, Msg: fmt.Sprintf("%s: unknown sub-device range %d", slot.subDevice, r)}
			}
			cmd.Validators = []Validator{r}
		}
		p.SetCommand(slot.class, cmd)
	}
	return p, nil
}

func buildGroup(frame protoreflect.Message, name string) (*Group, error) {
	fields, err := buildFields(frame.Get(fieldDesc(frame, "field")).List())
	if err != nil {
		return nil, err
	}
	return NewGroup(name, fields...)
}

func buildFields(list protoreflect.List) ([]*Field, error) {
	fields := make([]*Field, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		f, err := buildField(list.Get(i).Message())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func buildField(m protoreflect.Message) (*Field, error) {
	name := m.Get(fieldDesc(m, "name")).String()
	typeField := fieldDesc(m, "type")
	kind, ok := fieldKinds[m.Get(typeField).Enum()]
	if !m.Has(typeField) || !ok {
		return nil, structuralf("field %q: missing or unknown type", name)
	}

	f := &Field{
		Name:       name,
		Kind:       kind,
		Multiplier: int(m.Get(fieldDesc(m, "multiplier")).Int()),
	}

	minField, maxField := fieldDesc(m, "min_size"), fieldDesc(m, "max_size")
	minSize, maxSize := int(m.Get(minField).Uint()), int(m.Get(maxField).Uint())
	hasMax := m.Has(maxField)

	members := m.Get(fieldDesc(m, "field")).List()
	switch {
	case kind.IsText():
		f.MinSize = minSize
		f.MaxSize = MaxParamDataLength
		if hasMax {
			f.MaxSize = maxSize
		}
	case kind == KindGroup:
		sub, err := buildFields(members)
		if err != nil {
			return nil, err
		}
		maxRepeat := Unbounded
		if hasMax {
			maxRepeat = maxSize
		}
		f.Group = &Group{Name: name, Fields: sub, MinRepeat: minSize, MaxRepeat: maxRepeat}
	}
	if kind != KindGroup && members.Len() > 0 {
		return nil, structuralf("field %s: %s fields have no members", name, kind)
	}

	labels := m.Get(fieldDesc(m, "label")).List()
	for i := 0; i < labels.Len(); i++ {
		l := labels.Get(i).Message()
		f.Labels = append(f.Labels, Label{
			Value: l.Get(fieldDesc(l, "value")).Int(),
			Name:  l.Get(fieldDesc(l, "label")).String(),
		})
	}
	ranges := m.Get(fieldDesc(m, "range")).List()
	for i := 0; i < ranges.Len(); i++ {
		r := ranges.Get(i).Message()
		f.Ranges = append(f.Ranges, Range{
			Min: r.Get(fieldDesc(r, "min")).Int(),
			Max: r.Get(fieldDesc(r, "max")).Int(),
		})
	}
	return f, nil
}

func fieldDesc(m protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	return m.Descriptor().Fields().ByName(name)
}

func withSource(err error, source string) error {
	var se *StructuralError
	if errors.As(err, &se) && se.Source == "" {
		se.Source = source
	}
	return err
}

func withPid(err error, name string) error {
	var se *StructuralError
	if errors.As(err, &se) && se.Pid == "" {
		se.Pid = name
	}
	return err
}
