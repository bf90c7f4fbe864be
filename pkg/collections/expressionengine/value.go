package expressionengine

import (
	"strconv"
	"strings"
)

type ValueKind int

const (
	NULL_VALUE ValueKind = iota
	BOOL_VALUE
	NUMBER_VALUE
	STRING_VALUE
	SET_VALUE
)

func (k ValueKind) String() string {
	switch k {
	case NULL_VALUE:
		return "null"
	case BOOL_VALUE:
		return "bool"
	case NUMBER_VALUE:
		return "number"
	case STRING_VALUE:
		return "string"
	case SET_VALUE:
		return "set"
	default:
		return "unknown"
	}
}

// Value is everything an expression can produce: a scalar, a set of scalars, or null.
type Value struct {
	Kind ValueKind
	Bool bool
	Num  float64
	Str  string
	Set  []Value
}

func NullValue() Value {
	return Value{Kind: NULL_VALUE}
}

func BoolValue(b bool) Value {
	return Value{Kind: BOOL_VALUE, Bool: b}
}

func NumberValue(n float64) Value {
	return Value{Kind: NUMBER_VALUE, Num: n}
}

func StringValue(s string) Value {
	return Value{Kind: STRING_VALUE, Str: s}
}

func SetValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: SET_VALUE, Set: items}
}

func StringSetValue(items ...string) Value {
	values := make([]Value, len(items))
	for i, s := range items {
		values[i] = StringValue(s)
	}
	return SetValue(values...)
}

func (v Value) IsNull() bool {
	return v.Kind == NULL_VALUE
}

// Truthy is used by the logical operators.
func (v Value) Truthy() bool {
	switch v.Kind {
	case BOOL_VALUE:
		return v.Bool
	case NUMBER_VALUE:
		return v.Num != 0
	case STRING_VALUE:
		return v.Str != ""
	case SET_VALUE:
		return len(v.Set) > 0
	default:
		return false
	}
}

// Equal compares kind and content; sets compare as unordered collections.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case NULL_VALUE:
		return true
	case BOOL_VALUE:
		return v.Bool == other.Bool
	case NUMBER_VALUE:
		return v.Num == other.Num
	case STRING_VALUE:
		return v.Str == other.Str
	case SET_VALUE:
		if len(v.Set) != len(other.Set) {
			return false
		}
		for _, item := range v.Set {
			if !other.Contains(item) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) Contains(item Value) bool {
	if v.Kind != SET_VALUE {
		return false
	}
	for _, s := range v.Set {
		if s.Equal(item) {
			return true
		}
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case BOOL_VALUE:
		return strconv.FormatBool(v.Bool)
	case NUMBER_VALUE:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case STRING_VALUE:
		return v.Str
	case SET_VALUE:
		items := make([]string, len(v.Set))
		for i, s := range v.Set {
			items[i] = s.String()
		}
		return "{" + strings.Join(items, ", ") + "}"
	default:
		return "null"
	}
}
