package manifest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind describes how an attribute value was encoded in the manifest.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindBool
	KindFloat
	KindReference
	KindDimension
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindReference:
		return "reference"
	case KindDimension:
		return "dimension"
	default:
		return "null"
	}
}

// Value is a typed attribute value.
//
// Text manifests infer the kind from the attribute text with ParseValue.
// Binary manifests carry the encoded type next to the data and are read
// with TypedValue.
type Value struct {
	Kind Kind
	Raw  string

	i int64
	f float64
}

// ParseValue infers the kind of a raw attribute string.
func ParseValue(raw string) Value {
	v := Value{Kind: KindString, Raw: raw}
	switch {
	case raw == "":
		return v
	case raw == "true":
		v.Kind, v.i = KindBool, 1
		return v
	case raw == "false":
		v.Kind = KindBool
		return v
	case strings.HasPrefix(raw, "@"):
		v.Kind = KindReference
		if id, ok := parseHex(raw[1:]); ok {
			v.i = id
		}
		return v
	}

	if n, ok := parseHex(raw); ok {
		v.Kind, v.i = KindInt, int64(int32(uint32(n)))
		return v
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > math.MaxInt32 && n <= math.MaxUint32 {
			n = int64(int32(uint32(n)))
		}
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			v.Kind, v.i = KindInt, n
			return v
		}
	}
	if strings.ContainsAny(raw, ".eE") {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			v.Kind, v.f = KindFloat, f
			return v
		}
	}
	return v
}

// Binary value types, as stored in the dataType byte of a Res_value.
const (
	typeNull       = 0x00
	typeReference  = 0x01
	typeAttribute  = 0x02
	typeString     = 0x03
	typeFloat      = 0x04
	typeDimension  = 0x05
	typeFraction   = 0x06
	typeIntDec     = 0x10
	typeIntHex     = 0x11
	typeIntBoolean = 0x12
	typeFirstColor = 0x1c
	typeLastInt    = 0x1f
)

// TypedValue builds a value from a binary Res_value. ok is false for string
// and null values, whose text is the only meaningful form.
func TypedValue(dataType uint8, data uint32) (v Value, ok bool) {
	switch {
	case dataType == typeReference, dataType == typeAttribute:
		return Value{Kind: KindReference, Raw: fmt.Sprintf("@0x%08X", data), i: int64(data)}, true
	case dataType == typeFloat:
		f := math.Float32frombits(data)
		return Value{Kind: KindFloat, Raw: strconv.FormatFloat(float64(f), 'g', -1, 32), f: float64(f)}, true
	case dataType == typeDimension, dataType == typeFraction:
		return Value{Kind: KindDimension, Raw: fmt.Sprintf("0x%08X", data), i: int64(data)}, true
	case dataType == typeIntBoolean:
		if data != 0 {
			return Value{Kind: KindBool, Raw: "true", i: 1}, true
		}
		return Value{Kind: KindBool, Raw: "false"}, true
	case dataType == typeIntHex:
		return Value{Kind: KindInt, Raw: fmt.Sprintf("0x%08X", data), i: int64(int32(data))}, true
	case dataType >= typeFirstColor && dataType <= typeLastInt:
		return Value{Kind: KindInt, Raw: fmt.Sprintf("#%08X", data), i: int64(int32(data))}, true
	case dataType >= typeIntDec && dataType <= typeLastInt:
		return Value{Kind: KindInt, Raw: strconv.Itoa(int(int32(data))), i: int64(int32(data))}, true
	}
	return Value{}, false
}

func parseHex(s string) (int64, bool) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, false
	}
	n, err := strconv.ParseUint(s[2:], 16, 32)
	if err != nil {
		return 0, false
	}
	return int64(n), true
}

// String returns the raw text of the value.
func (v Value) String() string {
	return v.Raw
}

// Int returns the integer value for int and bool kinds.
func (v Value) Int() (int, bool) {
	switch v.Kind {
	case KindInt, KindBool:
		return int(v.i), true
	}
	return 0, false
}

// Bool returns the boolean value for bool and int kinds.
func (v Value) Bool() (bool, bool) {
	switch v.Kind {
	case KindBool, KindInt:
		return v.i != 0, true
	}
	return false, false
}

// Float returns the floating point value for float and int kinds.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// ResourceID returns the referenced resource identifier, or 0.
// Symbolic references such as "@string/app_name" in text manifests have no
// identifier and report 0.
func (v Value) ResourceID() uint32 {
	if v.Kind != KindReference {
		return 0
	}
	return uint32(v.i)
}

// IsReference reports whether the value points at a resource.
func (v Value) IsReference() bool {
	return v.Kind == KindReference
}
