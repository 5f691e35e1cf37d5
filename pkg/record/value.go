// Package record defines the in-memory data model every core component
// shares: Timestamp, Value, Map (an order-preserving key/value sequence),
// and Record itself. None of the types here know how to put themselves on
// the wire; that is pkg/codec's job.
package record

import "strconv"

// Kind identifies which variant of Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindDouble
	KindString
	KindBinary
	KindMap
	KindArray
	KindExt
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindMap:
		return "map"
	case KindArray:
		return "array"
	case KindExt:
		return "ext"
	default:
		return "unknown"
	}
}

// Ext holds a typed extension value: one signed type tag plus opaque bytes.
type Ext struct {
	Type byte
	Data []byte
}

// Value is a tagged union over every representable wire type. Only the
// field matching Kind is meaningful; the zero Value is KindNull.
//
// Strings and Binary may alias a decoder's input buffer when the decoder was
// constructed in zero-copy mode — see pkg/codec. Callers that need a Value
// to outlive the buffer must call Clone.
type Value struct {
	Kind Kind

	boolean bool
	i       int64
	u       uint64
	d       float64
	str     string
	bin     []byte
	m       *Map
	arr     []Value
	ext     Ext
}

func Null() Value                { return Value{Kind: KindNull} }
func Bool(b bool) Value          { return Value{Kind: KindBool, boolean: b} }
func Int(v int64) Value          { return Value{Kind: KindInt, i: v} }
func Uint(v uint64) Value        { return Value{Kind: KindUint, u: v} }
func Double(v float64) Value     { return Value{Kind: KindDouble, d: v} }
func String(s string) Value      { return Value{Kind: KindString, str: s} }
func Binary(b []byte) Value      { return Value{Kind: KindBinary, bin: b} }
func MapValue(m *Map) Value      { return Value{Kind: KindMap, m: m} }
func Array(vs []Value) Value     { return Value{Kind: KindArray, arr: vs} }
func ExtValue(t byte, d []byte) Value { return Value{Kind: KindExt, ext: Ext{Type: t, Data: d}} }

func (v Value) AsBool() (bool, bool)       { return v.boolean, v.Kind == KindBool }
func (v Value) AsInt() (int64, bool)       { return v.i, v.Kind == KindInt }
func (v Value) AsUint() (uint64, bool)     { return v.u, v.Kind == KindUint }
func (v Value) AsDouble() (float64, bool)  { return v.d, v.Kind == KindDouble }
func (v Value) AsString() (string, bool)   { return v.str, v.Kind == KindString }
func (v Value) AsBinary() ([]byte, bool)   { return v.bin, v.Kind == KindBinary }
func (v Value) AsMap() (*Map, bool)        { return v.m, v.Kind == KindMap }
func (v Value) AsArray() ([]Value, bool)   { return v.arr, v.Kind == KindArray }
func (v Value) AsExt() (Ext, bool)         { return v.ext, v.Kind == KindExt }

// IsScalar reports whether v is a leaf value (not Map or Array), which is
// what grep field-path resolution requires for a match.
func (v Value) IsScalar() bool {
	return v.Kind != KindMap && v.Kind != KindArray
}

// Stringify losslessly converts any scalar to its canonical decimal/boolean
// text form, per the grep matcher's "stringify losslessly" rule. Map, Array
// and Ext kinds return ("", false).
func (v Value) Stringify() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.str, true
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	case KindUint:
		return strconv.FormatUint(v.u, 10), true
	case KindDouble:
		return strconv.FormatFloat(v.d, 'g', -1, 64), true
	case KindBool:
		if v.boolean {
			return "true", true
		}
		return "false", true
	case KindBinary:
		return string(v.bin), true
	case KindNull:
		return "", true
	default:
		return "", false
	}
}

// Clone returns a Value that owns its own memory, copying any borrowed
// slice or string backing. Safe to retain past the lifetime of a zero-copy
// decode buffer.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindString:
		b := make([]byte, len(v.str))
		copy(b, v.str)
		return Value{Kind: KindString, str: string(b)}
	case KindBinary:
		b := make([]byte, len(v.bin))
		copy(b, v.bin)
		return Value{Kind: KindBinary, bin: b}
	case KindExt:
		b := make([]byte, len(v.ext.Data))
		copy(b, v.ext.Data)
		return Value{Kind: KindExt, ext: Ext{Type: v.ext.Type, Data: b}}
	case KindMap:
		return Value{Kind: KindMap, m: v.m.Clone()}
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.Clone()
		}
		return Value{Kind: KindArray, arr: arr}
	default:
		return v
	}
}

// Equal reports deep, order-sensitive equality between two Values; Map.Equal
// and Record.Equal build on it.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolean == b.boolean
	case KindInt:
		return a.i == b.i
	case KindUint:
		return a.u == b.u
	case KindDouble:
		return a.d == b.d
	case KindString:
		return a.str == b.str
	case KindBinary:
		return string(a.bin) == string(b.bin)
	case KindExt:
		return a.ext.Type == b.ext.Type && string(a.ext.Data) == string(b.ext.Data)
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return a.m.Equal(b.m)
	default:
		return false
	}
}
