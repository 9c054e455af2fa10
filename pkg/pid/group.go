package pid

// Unbounded is the MaxRepeat of a group without an upper repeat limit.
const Unbounded = -1

// Group is an ordered list of fields repeated between MinRepeat and
// MaxRepeat times. Request and response layouts are groups that appear
// exactly once.
//
// Build groups with NewGroup or NewRepeatedGroup so the layout rules are
// enforced; Pack and Unpack assume a valid group.
type Group struct {
	Name      string
	Fields    []*Field
	MinRepeat int
	MaxRepeat int
}

// NewGroup returns a validated group that appears exactly once.
func NewGroup(name string, fields ...*Field) (*Group, error) {
	return NewRepeatedGroup(name, 1, 1, fields...)
}

// NewRepeatedGroup returns a validated group repeated between min and max
// times. Use Unbounded for max to leave the count open.
func NewRepeatedGroup(name string, min, max int, fields ...*Field) (*Group, error) {
	g := &Group{Name: name, Fields: fields, MinRepeat: min, MaxRepeat: max}
	if err := g.validate(0); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Group) validate(depth int) error {
	if g.MinRepeat < 0 || (g.MaxRepeat != Unbounded && g.MaxRepeat < g.MinRepeat) {
		return structuralf("group %s: invalid repeat range [%d, %d]", g.Name, g.MinRepeat, g.MaxRepeat)
	}

	names := make(map[string]bool, len(g.Fields))
	variable := 0
	for i, f := range g.Fields {
		if f == nil {
			return structuralf("group %s: nil field at %d", g.Name, i)
		}
		if err := f.check(); err != nil {
			return err
		}
		if names[f.Name] {
			return structuralf("group %s: duplicate field %s", g.Name, f.Name)
		}
		names[f.Name] = true

		if f.Kind == KindGroup {
			if depth > 0 {
				return structuralf("group %s: field %s nests groups more than one level", g.Name, f.Name)
			}
			if err := f.Group.validate(depth + 1); err != nil {
				return err
			}
		}

		if !f.IsVariable() {
			continue
		}
		variable++
		if variable > 1 {
			return structuralf("group %s: more than one variable-size field", g.Name)
		}
		if i != len(g.Fields)-1 {
			return structuralf("group %s: variable-size field %s must be last", g.Name, f.Name)
		}
		if !g.single() {
			return structuralf("group %s: repeat range [%d, %d] not allowed with variable-size field %s",
				g.Name, g.MinRepeat, g.MaxRepeat, f.Name)
		}
	}

	if !g.single() {
		if n, _ := g.recordSize(); n == 0 {
			return structuralf("group %s: repeating group has an empty record", g.Name)
		}
	}
	return nil
}

func (g *Group) single() bool {
	return g.MinRepeat == 1 && g.MaxRepeat == 1
}

// recordSize returns the size of one repeat. For a variable record it is the
// upper bound, or -1 when unbounded.
func (g *Group) recordSize() (int, bool) {
	total, fixed := 0, true
	for _, f := range g.Fields {
		n, ok := f.Size()
		if !ok {
			fixed = false
		}
		if n < 0 || total < 0 {
			total = -1
			continue
		}
		total += n
	}
	return total, fixed
}

// Size returns the encoded size of the group and whether it is fixed.
// Variable groups report their upper bound, or -1 when unbounded.
func (g *Group) Size() (int, bool) {
	return g.size()
}

func (g *Group) size() (int, bool) {
	n, fixed := g.recordSize()
	switch {
	case n < 0:
		return -1, false
	case !fixed:
		return n, false
	case g.MinRepeat == g.MaxRepeat:
		return n * g.MinRepeat, true
	case g.MaxRepeat == Unbounded:
		return -1, false
	default:
		return n * g.MaxRepeat, false
	}
}

// Pack encodes args against the group. Each fixed field takes one argument
// in order; a trailing repeating group takes whole records from the rest.
func (g *Group) Pack(args []string) ([]byte, error) {
	if !g.single() {
		return g.packRepeated(args)
	}
	out, n, err := g.packRecord(args)
	if err != nil {
		return nil, err
	}
	if n < len(args) {
		return nil, validationf(g.Name, "too many arguments: got %d, want %d", len(args), n)
	}
	return out, nil
}

func (g *Group) packRepeated(args []string) ([]byte, error) {
	var out []byte
	count, pos := 0, 0
	for pos < len(args) {
		rec, n, err := g.packRecord(args[pos:])
		if err != nil {
			return nil, err
		}
		out = append(out, rec...)
		pos += n
		count++
	}
	if count < g.MinRepeat {
		return nil, validationf(g.Name, "too few repeats: got %d, want at least %d", count, g.MinRepeat)
	}
	if g.MaxRepeat != Unbounded && count > g.MaxRepeat {
		return nil, validationf(g.Name, "too many repeats: got %d, want at most %d", count, g.MaxRepeat)
	}
	return out, nil
}

func (g *Group) packRecord(args []string) ([]byte, int, error) {
	out := make([]byte, 0, 16)
	pos := 0
	for _, f := range g.Fields {
		if f.Kind == KindGroup {
			sub := f.Group
			switch {
			case sub.single():
				rec, n, err := sub.packRecord(args[pos:])
				if err != nil {
					return nil, 0, err
				}
				out = append(out, rec...)
				pos += n
			case f.IsVariable():
				rec, err := sub.packRepeated(args[pos:])
				if err != nil {
					return nil, 0, err
				}
				out = append(out, rec...)
				pos = len(args)
			default:
				for i := 0; i < sub.MinRepeat; i++ {
					rec, n, err := sub.packRecord(args[pos:])
					if err != nil {
						return nil, 0, err
					}
					out = append(out, rec...)
					pos += n
				}
			}
			continue
		}

		if pos >= len(args) {
			return nil, 0, validationf(f.Name, "missing argument")
		}
		b, err := f.pack(args[pos])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b...)
		pos++
	}
	return out, pos, nil
}

// Unpack decodes data into field name / value pairs. Nested repeating
// groups decode to []map[string]any. A repeating group decodes to a single
// entry under its own name.
func (g *Group) Unpack(data []byte) (map[string]any, error) {
	if g.single() {
		return g.unpackRecord(data)
	}
	recs, err := g.unpackRepeated(data)
	if err != nil {
		return nil, err
	}
	return map[string]any{g.Name: recs}, nil
}

// UnpackRecords decodes data into one map per repeat.
func (g *Group) UnpackRecords(data []byte) ([]map[string]any, error) {
	if g.single() {
		rec, err := g.unpackRecord(data)
		if err != nil {
			return nil, err
		}
		return []map[string]any{rec}, nil
	}
	return g.unpackRepeated(data)
}

func (g *Group) unpackRecord(data []byte) (map[string]any, error) {
	if size, fixed := g.size(); fixed && len(data) != size {
		return nil, unpackf(g.Name, "size mismatch: got %d bytes, want %d", len(data), size)
	}

	prefix := 0
	for _, f := range g.Fields {
		if n, fixed := f.Size(); fixed {
			prefix += n
		}
	}
	if len(data) < prefix {
		return nil, unpackf(g.Name, "too few bytes: got %d, want at least %d", len(data), prefix)
	}

	out := make(map[string]any, len(g.Fields))
	pos := 0
	for _, f := range g.Fields {
		var chunk []byte
		if n, fixed := f.Size(); fixed {
			chunk = data[pos : pos+n]
		} else {
			chunk = data[pos:]
		}
		v, err := f.unpackValue(chunk)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
		pos += len(chunk)
	}
	return out, nil
}

func (g *Group) unpackRepeated(data []byte) ([]map[string]any, error) {
	size, _ := g.recordSize()
	if size <= 0 {
		return nil, unpackf(g.Name, "repeating group has no fixed record size")
	}
	if len(data)%size != 0 {
		return nil, unpackf(g.Name, "size inconsistency: %d bytes is not a multiple of the %d byte record", len(data), size)
	}
	n := len(data) / size
	if n < g.MinRepeat {
		return nil, unpackf(g.Name, "too few repeats: got %d, want at least %d", n, g.MinRepeat)
	}
	if g.MaxRepeat != Unbounded && n > g.MaxRepeat {
		return nil, unpackf(g.Name, "too many repeats: got %d, want at most %d", n, g.MaxRepeat)
	}

	recs := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		rec, err := g.unpackRecord(data[i*size : (i+1)*size])
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (f *Field) unpackValue(data []byte) (any, error) {
	if f.Kind != KindGroup {
		return f.unpack(data)
	}
	if f.Group.single() {
		return f.Group.unpackRecord(data)
	}
	return f.Group.unpackRepeated(data)
}
