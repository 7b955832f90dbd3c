package dbx

import (
	"fmt"
	"strings"
)

// BindKind - closed set of supported bind value kinds. Inference is by the
// value's own Go type, never by declared schema.
type BindKind int

const (
	BindString BindKind = iota
	BindInt
	BindBool
	BindNull
)

// String - printable kind name.
func (k BindKind) String() string {
	switch k {
	case BindInt:
		return "int"
	case BindBool:
		return "bool"
	case BindNull:
		return "null"
	default:
		return "string"
	}
}

// BindValue - a tagged scalar bound into a prepared statement.
type BindValue struct {
	Kind BindKind
	Int  int64
	Bool bool

	Str string
}

// InferBindValue classifies v into one of the supported kinds. Integers of
// any width map to BindInt, bool to BindBool, nil to BindNull; strings, byte
// slices and every other scalar are carried as BindString (stringified with
// %v), matching driver-side text binding.
func InferBindValue(v any) BindValue {
	switch value := v.(type) {
	case nil:
		return BindValue{Kind: BindNull}
	case bool:
		return BindValue{Kind: BindBool, Bool: value}
	case int:
		return BindValue{Kind: BindInt, Int: int64(value)}
	case int8:
		return BindValue{Kind: BindInt, Int: int64(value)}
	case int16:
		return BindValue{Kind: BindInt, Int: int64(value)}
	case int32:
		return BindValue{Kind: BindInt, Int: int64(value)}
	case int64:
		return BindValue{Kind: BindInt, Int: value}
	case uint:
		return BindValue{Kind: BindInt, Int: int64(value)}
	case uint8:
		return BindValue{Kind: BindInt, Int: int64(value)}
	case uint16:
		return BindValue{Kind: BindInt, Int: int64(value)}
	case uint32:
		return BindValue{Kind: BindInt, Int: int64(value)}
	case uint64:
		return BindValue{Kind: BindInt, Int: int64(value)}
	case string:
		return BindValue{Kind: BindString, Str: value}
	case []byte:
		return BindValue{Kind: BindString, Str: string(value)}
	default:
		return BindValue{Kind: BindString, Str: fmt.Sprintf("%v", value)}
	}
}

// Value - the native Go value to hand to the driver.
func (b BindValue) Value() any {
	switch b.Kind {
	case BindInt:
		return b.Int
	case BindBool:
		return b.Bool
	case BindNull:
		return nil
	default:
		return b.Str
	}
}

// NormalizeBindName strips the optional leading ':' so that bind(":a", v) and
// bind("a", v) address the same parameter.
func NormalizeBindName(name string) string {
	return strings.TrimPrefix(name, ":")
}
