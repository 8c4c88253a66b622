package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type valueKind uint8

const (
	kindBool valueKind = iota + 1
	kindInt
)

// Value is the optional scalar payload of a reply: either a bool or an int.
type Value struct {
	kind valueKind
	b    bool
	i    int64
}

// BoolValue wraps b as a reply value.
func BoolValue(b bool) *Value { return &Value{kind: kindBool, b: b} }

// IntValue wraps i as a reply value.
func IntValue(i int64) *Value { return &Value{kind: kindInt, i: i} }

// Bool returns the boolean payload and whether the value holds one.
func (v *Value) Bool() (bool, bool) {
	if v == nil || v.kind != kindBool {
		return false, false
	}
	return v.b, true
}

// Int returns the integer payload and whether the value holds one.
func (v *Value) Int() (int64, bool) {
	if v == nil || v.kind != kindInt {
		return 0, false
	}
	return v.i, true
}

func (v *Value) String() string {
	switch {
	case v == nil:
		return "<none>"
	case v.kind == kindBool:
		return strconv.FormatBool(v.b)
	case v.kind == kindInt:
		return strconv.FormatInt(v.i, 10)
	default:
		return "<none>"
	}
}

func (v *Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindBool:
		return json.Marshal(v.b)
	case kindInt:
		return json.Marshal(v.i)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*v = Value{kind: kindBool, b: data[0] == 't'}
		return nil
	case bytes.Equal(data, []byte("null")):
		*v = Value{}
		return nil
	}
	i, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("reply value must be bool or integer: %s", data)
	}
	*v = Value{kind: kindInt, i: i}
	return nil
}
