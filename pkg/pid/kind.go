package pid

import "fmt"

// Kind is the wire type of a Field.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindString
	KindURL
	KindGroup
	KindMAC
	KindUID
	KindIPv4
	KindIPv6
)

var kindNames = map[Kind]string{
	KindBool:   "BOOL",
	KindUint8:  "UINT8",
	KindUint16: "UINT16",
	KindUint32: "UINT32",
	KindUint64: "UINT64",
	KindInt8:   "INT8",
	KindInt16:  "INT16",
	KindInt32:  "INT32",
	KindInt64:  "INT64",
	KindString: "STRING",
	KindURL:    "URL",
	KindGroup:  "GROUP",
	KindMAC:    "MAC",
	KindUID:    "UID",
	KindIPv4:   "IPV4",
	KindIPv6:   "IPV6",
}

// String returns the definition-file name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// IsInteger reports whether the kind is one of the fixed-width integers.
func (k Kind) IsInteger() bool {
	return k >= KindUint8 && k <= KindInt64
}

// IsSigned reports whether the kind is a signed integer.
func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt64
}

// IsText reports whether the kind holds UTF-8 text.
func (k Kind) IsText() bool {
	return k == KindString || k == KindURL
}

// width returns the encoded size of scalar kinds, or 0 for text and groups.
func (k Kind) width() int {
	switch k {
	case KindBool, KindUint8, KindInt8:
		return 1
	case KindUint16, KindInt16:
		return 2
	case KindUint32, KindInt32, KindIPv4:
		return 4
	case KindUint64, KindInt64:
		return 8
	case KindMAC, KindUID:
		return 6
	case KindIPv6:
		return 16
	default:
		return 0
	}
}
