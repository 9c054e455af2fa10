package pid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/openlighting/olardm/pkg/uid"
)

// MaxParamDataLength is the largest RDM parameter data block. Text fields
// without an explicit maximum are bounded by it.
const MaxParamDataLength = 231

// Label names one integer value of a Field.
type Label struct {
	Value int64
	Name  string
}

// Range is an inclusive interval of accepted wire values.
type Range struct {
	Min int64
	Max int64
}

func (r Range) String() string {
	if r.Min == r.Max {
		return strconv.FormatInt(r.Min, 10)
	}
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

// Field is one element of a Group.
//
// MinSize and MaxSize bound the encoded byte length of text kinds. Multiplier
// scales integers for display: a wire value w means w * 10^Multiplier.
// Labels and Ranges apply to integer kinds, Group to KindGroup.
type Field struct {
	Name       string
	Kind       Kind
	MinSize    int
	MaxSize    int
	Multiplier int
	Labels     []Label
	Ranges     []Range
	Group      *Group
}

// Size returns the encoded size of the field and whether it is fixed. For a
// variable field the size is the upper bound, or -1 when unbounded.
func (f *Field) Size() (int, bool) {
	switch {
	case f.Kind.IsText():
		return f.MaxSize, f.MinSize == f.MaxSize
	case f.Kind == KindGroup:
		return f.Group.size()
	default:
		return f.Kind.width(), true
	}
}

// IsVariable reports whether the encoded size of the field depends on its value.
func (f *Field) IsVariable() bool {
	_, fixed := f.Size()
	return !fixed
}

// LabelFor returns the label attached to value, if any.
func (f *Field) LabelFor(value int64) (string, bool) {
	for _, l := range f.Labels {
		if l.Value == value {
			return l.Name, true
		}
	}
	return "", false
}

func (f *Field) check() error {
	if f.Name == "" {
		return structuralf("%s field without a name", f.Kind)
	}
	if _, ok := kindNames[f.Kind]; !ok {
		return structuralf("field %s: unknown kind %d", f.Name, f.Kind)
	}
	if f.Kind.IsText() {
		if f.MinSize < 0 || f.MaxSize < f.MinSize || f.MaxSize > MaxParamDataLength {
			return structuralf("field %s: invalid size bounds [%d, %d]", f.Name, f.MinSize, f.MaxSize)
		}
	}
	if !f.Kind.IsInteger() && (f.Multiplier != 0 || len(f.Labels) > 0 || len(f.Ranges) > 0) {
		return structuralf("field %s: %s fields take no multiplier, labels or ranges", f.Name, f.Kind)
	}
	for _, r := range f.Ranges {
		if r.Min > r.Max {
			return structuralf("field %s: empty range %s", f.Name, r)
		}
	}
	seen := make(map[string]bool, len(f.Labels))
	for _, l := range f.Labels {
		key := strings.ToLower(l.Name)
		if l.Name == "" || seen[key] {
			return structuralf("field %s: duplicate or empty label %q", f.Name, l.Name)
		}
		seen[key] = true
	}
	if f.Kind == KindGroup && f.Group == nil {
		return structuralf("field %s: group field without members", f.Name)
	}
	if f.Kind != KindGroup && f.Group != nil {
		return structuralf("field %s: %s field with members", f.Name, f.Kind)
	}
	return nil
}

// pack encodes one argument for a scalar or text field.
func (f *Field) pack(arg string) ([]byte, error) {
	switch {
	case f.Kind.IsInteger():
		v, err := f.parseInteger(arg)
		if err != nil {
			return nil, err
		}
		if err := f.checkValue(v); err != nil {
			return nil, err
		}
		return putInteger(f.Kind, v), nil

	case f.Kind.IsText():
		if !utf8.ValidString(arg) {
			return nil, validationf(f.Name, "invalid UTF-8 text")
		}
		if n := len(arg); n < f.MinSize || n > f.MaxSize {
			return nil, validationf(f.Name, "text is %d bytes, must be between %d and %d", n, f.MinSize, f.MaxSize)
		}
		return []byte(arg), nil

	case f.Kind == KindBool:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(arg)))
		if err != nil {
			return nil, validationf(f.Name, "invalid bool %q", arg)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case f.Kind == KindMAC:
		mac, err := net.ParseMAC(strings.TrimSpace(arg))
		if err != nil || len(mac) != 6 {
			return nil, validationf(f.Name, "invalid MAC address %q", arg)
		}
		return []byte(mac), nil

	case f.Kind == KindUID:
		u, err := uid.Parse(strings.TrimSpace(arg))
		if err != nil {
			return nil, &ValidationError{Field: f.Name, Msg: "invalid UID", Err: err}
		}
		return u.Bytes(), nil

	case f.Kind == KindIPv4, f.Kind == KindIPv6:
		addr, err := netip.ParseAddr(strings.TrimSpace(arg))
		if err != nil {
			return nil, &ValidationError{Field: f.Name, Msg: "invalid IP address", Err: err}
		}
		if f.Kind == KindIPv4 {
			if !addr.Is4() {
				return nil, validationf(f.Name, "%s is not an IPv4 address", arg)
			}
			a := addr.As4()
			return a[:], nil
		}
		a := addr.As16()
		return a[:], nil
	}
	return nil, validationf(f.Name, "cannot pack %s field", f.Kind)
}

// parseInteger turns a label or decimal argument into a wire value.
func (f *Field) parseInteger(arg string) (*big.Int, error) {
	s := strings.TrimSpace(arg)
	for _, l := range f.Labels {
		if strings.EqualFold(l.Name, s) {
			return big.NewInt(l.Value), nil
		}
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, validationf(f.Name, "invalid number %q", arg)
	}
	if f.Multiplier != 0 {
		scale := new(big.Rat).SetInt(pow10(abs(f.Multiplier)))
		if f.Multiplier > 0 {
			r.Quo(r, scale)
		} else {
			r.Mul(r, scale)
		}
	}
	if !r.IsInt() {
		return nil, validationf(f.Name, "%s is not exact with multiplier %d", s, f.Multiplier)
	}
	return new(big.Int).Set(r.Num()), nil
}

// checkValue applies the kind bounds, then the declared ranges. Without
// declared ranges the label values, if any, are the accepted set.
func (f *Field) checkValue(v *big.Int) error {
	lo, hi := integerBounds(f.Kind)
	if v.Cmp(lo) < 0 || v.Cmp(hi) > 0 {
		return validationf(f.Name, "value out of range, must be one of [%s, %s]", lo, hi)
	}

	allowed := f.Ranges
	if len(allowed) == 0 {
		for _, l := range f.Labels {
			allowed = append(allowed, Range{Min: l.Value, Max: l.Value})
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, r := range allowed {
		if v.Cmp(big.NewInt(r.Min)) >= 0 && v.Cmp(big.NewInt(r.Max)) <= 0 {
			return nil
		}
	}
	parts := make([]string, len(allowed))
	for i, r := range allowed {
		parts[i] = r.String()
	}
	return validationf(f.Name, "value out of range, must be one of %s", strings.Join(parts, ", "))
}

// unpack decodes a scalar or text field from exactly its bytes.
func (f *Field) unpack(data []byte) (any, error) {
	switch {
	case f.Kind.IsInteger():
		if len(data) != f.Kind.width() {
			return nil, unpackf(f.Name, "got %d bytes, want %d", len(data), f.Kind.width())
		}
		return f.decodeInteger(data)

	case f.Kind.IsText():
		if len(data) < f.MinSize || len(data) > f.MaxSize {
			return nil, unpackf(f.Name, "text is %d bytes, must be between %d and %d", len(data), f.MinSize, f.MaxSize)
		}
		text := bytes.TrimRight(data, "\x00")
		if !utf8.Valid(text) {
			return nil, unpackf(f.Name, "invalid UTF-8 text")
		}
		return string(text), nil

	case f.Kind == KindBool:
		switch data[0] {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, unpackf(f.Name, "invalid bool value 0x%02x", data[0])

	case f.Kind == KindMAC:
		return net.HardwareAddr(bytes.Clone(data)), nil

	case f.Kind == KindUID:
		u, err := uid.FromBytes(data)
		if err != nil {
			return nil, unpackf(f.Name, "%v", err)
		}
		return u, nil

	case f.Kind == KindIPv4:
		return netip.AddrFrom4([4]byte(data)), nil

	case f.Kind == KindIPv6:
		return netip.AddrFrom16([16]byte(data)), nil
	}
	return nil, unpackf(f.Name, "cannot unpack %s field", f.Kind)
}

// decodeInteger applies the label and multiplier transforms. Plain values
// decode as int64, or uint64 for UINT64; a negative multiplier yields float64.
func (f *Field) decodeInteger(data []byte) (any, error) {
	var raw uint64
	switch len(data) {
	case 1:
		raw = uint64(data[0])
	case 2:
		raw = uint64(binary.BigEndian.Uint16(data))
	case 4:
		raw = uint64(binary.BigEndian.Uint32(data))
	case 8:
		raw = binary.BigEndian.Uint64(data)
	}

	v := new(big.Int)
	if f.Kind.IsSigned() {
		shift := 64 - 8*len(data)
		v.SetInt64(int64(raw<<shift) >> shift)
	} else {
		v.SetUint64(raw)
	}

	if v.IsInt64() {
		if name, ok := f.LabelFor(v.Int64()); ok {
			return name, nil
		}
	}

	switch {
	case f.Multiplier > 0:
		v.Mul(v, pow10(f.Multiplier))
		if !v.IsInt64() {
			return nil, unpackf(f.Name, "value %s overflows int64", v)
		}
		return v.Int64(), nil
	case f.Multiplier < 0:
		out, _ := new(big.Rat).SetFrac(v, pow10(-f.Multiplier)).Float64()
		return out, nil
	case f.Kind == KindUint64:
		return v.Uint64(), nil
	default:
		return v.Int64(), nil
	}
}

func putInteger(k Kind, v *big.Int) []byte {
	var x uint64
	if v.Sign() < 0 {
		x = uint64(v.Int64())
	} else {
		x = v.Uint64()
	}
	b := make([]byte, k.width())
	switch len(b) {
	case 1:
		b[0] = byte(x)
	case 2:
		binary.BigEndian.PutUint16(b, uint16(x))
	case 4:
		binary.BigEndian.PutUint32(b, uint32(x))
	case 8:
		binary.BigEndian.PutUint64(b, x)
	}
	return b
}

func integerBounds(k Kind) (lo, hi *big.Int) {
	bits := uint(8 * k.width())
	if k.IsSigned() {
		hi = new(big.Int).Lsh(big.NewInt(1), bits-1)
		lo = new(big.Int).Neg(hi)
		hi.Sub(hi, big.NewInt(1))
		return lo, hi
	}
	hi = new(big.Int).Lsh(big.NewInt(1), bits)
	hi.Sub(hi, big.NewInt(1))
	return big.NewInt(0), hi
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
