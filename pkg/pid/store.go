package pid

import (
	"fmt"
	"sort"
	"strings"
)

type namespace struct {
	byCode map[uint16]*Pid
	byName map[string]*Pid
}

func newNamespace() *namespace {
	return &namespace{
		byCode: make(map[uint16]*Pid),
		byName: make(map[string]*Pid),
	}
}

func (ns *namespace) add(p *Pid) *StructuralError {
	if old, ok := ns.byCode[p.Value]; ok {
		return structuralf("duplicate code 0x%04x (%s and %s)", p.Value, old.Name, p.Name)
	}
	key := strings.ToUpper(p.Name)
	if old, ok := ns.byName[key]; ok {
		return structuralf("duplicate name %s (0x%04x and 0x%04x)", p.Name, old.Value, p.Value)
	}
	ns.byCode[p.Value] = p
	ns.byName[key] = p
	return nil
}

// replace removes any entry sharing p's code, then inserts p.
func (ns *namespace) replace(p *Pid) *StructuralError {
	if old, ok := ns.byCode[p.Value]; ok {
		delete(ns.byCode, old.Value)
		delete(ns.byName, strings.ToUpper(old.Name))
	}
	return ns.add(p)
}

func (ns *namespace) sorted() []*Pid {
	out := make([]*Pid, 0, len(ns.byCode))
	for _, p := range ns.byCode {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// Store holds every known parameter, split into the standard namespace and
// one namespace per manufacturer id.
//
// A Store is built once and then only read; lookups are safe for concurrent
// use after loading completes.
type Store struct {
	version           uint64
	standard          *namespace
	manufacturers     map[uint16]*namespace
	manufacturerNames map[uint16]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		standard:          newNamespace(),
		manufacturers:     make(map[uint16]*namespace),
		manufacturerNames: make(map[uint16]string),
	}
}

func (s *Store) namespaceFor(p *Pid) (*namespace, error) {
	if p.Manufacturer == 0 {
		if IsManufacturerCode(p.Value) {
			return nil, &StructuralError{Pid: p.Name,
				Msg: fmt.Sprintf("standard code 0x%04x is in the manufacturer range", p.Value)}
		}
		return s.standard, nil
	}
	if !IsManufacturerCode(p.Value) {
		return nil, &StructuralError{Pid: p.Name,
			Msg: fmt.Sprintf("manufacturer 0x%04x code 0x%04x is outside the manufacturer range", p.Manufacturer, p.Value)}
	}
	ns, ok := s.manufacturers[p.Manufacturer]
	if !ok {
		ns = newNamespace()
		s.manufacturers[p.Manufacturer] = ns
	}
	return ns, nil
}

// Add inserts p. Codes and names must be unique within p's namespace.
func (s *Store) Add(p *Pid) error {
	ns, err := s.namespaceFor(p)
	if err != nil {
		return err
	}
	if err := ns.add(p); err != nil {
		err.Pid = p.Name
		return err
	}
	return nil
}

// Override replaces whatever entry shares p's code with p. The replaced
// entry's name no longer resolves.
func (s *Store) Override(p *Pid) error {
	ns, err := s.namespaceFor(p)
	if err != nil {
		return err
	}
	if err := ns.replace(p); err != nil {
		err.Pid = p.Name
		return err
	}
	return nil
}

// SetManufacturerName records the display name of a manufacturer id.
func (s *Store) SetManufacturerName(id uint16, name string) {
	s.manufacturerNames[id] = name
}

// ManufacturerName returns the display name of a manufacturer id.
func (s *Store) ManufacturerName(id uint16) (string, bool) {
	name, ok := s.manufacturerNames[id]
	return name, ok
}

// Version returns the highest definition version loaded.
func (s *Store) Version() uint64 {
	return s.version
}

// Pid looks up code. Codes in the manufacturer range resolve in the
// namespace of manufacturer, the rest in the standard namespace.
func (s *Store) Pid(code uint16, manufacturer uint16) (*Pid, bool) {
	if IsManufacturerCode(code) {
		ns, ok := s.manufacturers[manufacturer]
		if !ok {
			return nil, false
		}
		p, ok := ns.byCode[code]
		return p, ok
	}
	p, ok := s.standard.byCode[code]
	return p, ok
}

// PidByName looks up a name, ignoring case. The manufacturer's namespace is
// searched before the standard one.
func (s *Store) PidByName(name string, manufacturer uint16) (*Pid, bool) {
	key := strings.ToUpper(name)
	if ns, ok := s.manufacturers[manufacturer]; ok {
		if p, ok := ns.byName[key]; ok {
			return p, true
		}
	}
	p, ok := s.standard.byName[key]
	return p, ok
}

// Pids returns the standard parameters ordered by code.
func (s *Store) Pids() []*Pid {
	return s.standard.sorted()
}

// ManufacturerPids returns the parameters of one manufacturer ordered by code.
func (s *Store) ManufacturerPids(manufacturer uint16) []*Pid {
	ns, ok := s.manufacturers[manufacturer]
	if !ok {
		return nil
	}
	return ns.sorted()
}

// Manufacturers returns the ids with registered parameters, ascending.
func (s *Store) Manufacturers() []uint16 {
	out := make([]uint16, 0, len(s.manufacturers))
	for id := range s.manufacturers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
