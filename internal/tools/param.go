// ABOUTME: Parameter declarations for tools: kinds, required/optional params, defaults.
// ABOUTME: Kinds are derived from Go type parameters with a static type switch.

package tools

import "encoding/json"

// Kind is the declared value kind of a tool parameter.
type Kind int

// Parameter kinds. KindProgress marks the out-of-band progress reporter.
const (
	KindObject Kind = iota
	KindString
	KindBool
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindProgress
)

var kindNames = map[Kind]string{
	KindObject:   "object",
	KindString:   "string",
	KindBool:     "bool",
	KindInt:      "int",
	KindInt8:     "int8",
	KindInt16:    "int16",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindUint:     "uint",
	KindUint8:    "uint8",
	KindUint16:   "uint16",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindProgress: "progress",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "object"
}

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k Kind) IsInteger() bool {
	return k >= KindInt && k <= KindUint64
}

// IsUnsigned reports whether k is an unsigned integer kind.
func (k Kind) IsUnsigned() bool {
	return k >= KindUint && k <= KindUint64
}

// IsFloat reports whether k is a floating point kind.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// KindOf returns the parameter kind for the Go type T.
func KindOf[T any]() Kind {
	switch any((*T)(nil)).(type) {
	case *string:
		return KindString
	case *bool:
		return KindBool
	case *int:
		return KindInt
	case *int8:
		return KindInt8
	case *int16:
		return KindInt16
	case *int32:
		return KindInt32
	case *int64:
		return KindInt64
	case *uint:
		return KindUint
	case *uint8:
		return KindUint8
	case *uint16:
		return KindUint16
	case *uint32:
		return KindUint32
	case *uint64:
		return KindUint64
	case *float32:
		return KindFloat32
	case *float64:
		return KindFloat64
	case *Progress:
		return KindProgress
	default:
		return KindObject
	}
}

// Param declares one parameter of a tool.
type Param struct {
	Name string
	Kind Kind

	// HasDefault marks the parameter optional; Default is bound when the
	// caller omits it.
	HasDefault bool
	Default    any
}

// Required reports whether callers must supply the parameter.
func (p Param) Required() bool {
	return !p.HasDefault && p.Kind != KindProgress
}

// Arg declares a required parameter of Go type T.
func Arg[T any](name string) Param {
	return Param{Name: name, Kind: KindOf[T]()}
}

// Opt declares an optional parameter of Go type T with a default value.
func Opt[T any](name string, def T) Param {
	return Param{Name: name, Kind: KindOf[T](), HasDefault: true, Default: normalizeDefault(def)}
}

// ProgressParam declares the progress reporter side channel.
func ProgressParam(name string) Param {
	return Param{Name: name, Kind: KindProgress}
}

// normalizeDefault widens integer and float defaults to the representation
// Bind produces, so handlers see the same types either way.
func normalizeDefault(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case float32:
		return float64(n)
	case []byte:
		return json.RawMessage(n)
	}
	return v
}
