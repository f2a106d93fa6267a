// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Kind identifies a native value variant.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindTime
	KindBytes
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindBool:
		return "Bool"
	case KindTime:
		return "Time"
	case KindBytes:
		return "Bytes"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	default:
		return "Invalid"
	}
}

// Value is an application-facing value exchanged with a peer. The set of
// variants is closed: Int, Float, String, Bool, Time, Bytes, List and Map.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	Int    int64
	Float  float64
	String string
	Bool   bool
	Time   time.Time
	Bytes  []byte
	List   []Value
	Map    []Entry
)

// Entry is a key/value pair of a Map. Keys are unique within one Map.
type Entry struct {
	Key   string
	Value Value
}

func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Bool) Kind() Kind   { return KindBool }
func (Time) Kind() Kind   { return KindTime }
func (Bytes) Kind() Kind  { return KindBytes }
func (List) Kind() Kind   { return KindList }
func (Map) Kind() Kind    { return KindMap }

func (Int) isValue()    {}
func (Float) isValue()  {}
func (String) isValue() {}
func (Bool) isValue()   {}
func (Time) isValue()   {}
func (Bytes) isValue()  {}
func (List) isValue()   {}
func (Map) isValue()    {}

// Get returns the value stored under key.
func (m Map) Get(key string) (Value, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Params is the argument or result list of a call: either one value or
// an explicit list of values. A List passed through Single travels as one
// array parameter.
type Params interface {
	Values() []Value
}

type single struct{ v Value }

func (s single) Values() []Value { return []Value{s.v} }

type many []Value

func (m many) Values() []Value { return []Value(m) }

// Single wraps one value as a one-element parameter list.
func Single(v Value) Params { return single{v} }

// Many passes vs as the parameter list unchanged.
func Many(vs ...Value) Params { return many(vs) }

func valuesOf(p Params) []Value {
	if p == nil {
		return nil
	}
	return p.Values()
}

// Equal reports whether a and b hold the same value. Lists compare in
// order; maps compare by key regardless of entry order.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case Int, Float, String, Bool:
		return a == b
	case Time:
		bt, ok := b.(Time)
		return ok && time.Time(a).Equal(time.Time(bt))
	case Bytes:
		bb, ok := b.(Bytes)
		return ok && bytes.Equal(a, bb)
	case List:
		bl, ok := b.(List)
		if !ok || len(a) != len(bl) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bl[i]) {
				return false
			}
		}
		return true
	case Map:
		bm, ok := b.(Map)
		if !ok || len(a) != len(bm) {
			return false
		}
		// each entry of a pairs with a distinct equal entry of b
		used := make([]bool, len(bm))
		for _, e := range a {
			found := false
			for j, other := range bm {
				if !used[j] && other.Key == e.Key && Equal(e.Value, other.Value) {
					used[j], found = true, true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return false
}

// EqualValues compares two value lists element-wise.
func EqualValues(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ValueOf converts a plain Go value into a Value. Go maps have no order,
// so their entries are sorted by key.
func ValueOf(x interface{}) (Value, error) {
	switch x := x.(type) {
	case Value:
		return x, nil
	case int:
		return Int(x), nil
	case int8:
		return Int(x), nil
	case int16:
		return Int(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(x), nil
	case uint16:
		return Int(x), nil
	case uint32:
		return Int(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Float(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrUnsupportedType, x)
		}
		return Float(f), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case time.Time:
		return Time(x), nil
	case []byte:
		return Bytes(x), nil
	case []interface{}:
		out := make(List, 0, len(x))
		for _, elem := range x {
			v, err := ValueOf(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case []string:
		out := make(List, 0, len(x))
		for _, s := range x {
			out = append(out, String(s))
		}
		return out, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Map, 0, len(x))
		for _, k := range keys {
			v, err := ValueOf(x[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out = append(out, Entry{Key: k, Value: v})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
}

// ToGo converts v into plain Go values: int64, float64, string, bool,
// time.Time, []byte, []interface{} and map[string]interface{}.
func ToGo(v Value) interface{} {
	switch v := v.(type) {
	case Int:
		return int64(v)
	case Float:
		return float64(v)
	case String:
		return string(v)
	case Bool:
		return bool(v)
	case Time:
		return time.Time(v)
	case Bytes:
		return []byte(v)
	case List:
		out := make([]interface{}, 0, len(v))
		for _, elem := range v {
			out = append(out, ToGo(elem))
		}
		return out
	case Map:
		out := make(map[string]interface{}, len(v))
		for _, e := range v {
			out[e.Key] = ToGo(e.Value)
		}
		return out
	}
	return nil
}
