// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire holds the transport-facing value tree of the XML-RPC
// protocol and the XML document codec for call and response envelopes.
package wire

import (
	"bytes"
	"time"
)

// Kind identifies a wire value variant.
type Kind uint8

const (
	Invalid Kind = iota
	KindInt
	KindDouble
	KindString
	KindBase64
	KindBool
	KindDateTime
	KindArray
	KindStruct
)

// String returns the XML element name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBase64:
		return "base64"
	case KindBool:
		return "boolean"
	case KindDateTime:
		return "dateTime.iso8601"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	default:
		return "invalid"
	}
}

// Value is a node of the wire value tree. The set of variants is closed.
type Value interface {
	Kind() Kind
	isWire()
}

type (
	Int      int64
	Double   float64
	String   string
	Base64   []byte
	Bool     bool
	DateTime time.Time
	Array    []Value
	Struct   []Member
)

// Member is a named struct member. Names may repeat on the wire.
type Member struct {
	Name  string
	Value Value
}

func (Int) Kind() Kind      { return KindInt }
func (Double) Kind() Kind   { return KindDouble }
func (String) Kind() Kind   { return KindString }
func (Base64) Kind() Kind   { return KindBase64 }
func (Bool) Kind() Kind     { return KindBool }
func (DateTime) Kind() Kind { return KindDateTime }
func (Array) Kind() Kind    { return KindArray }
func (Struct) Kind() Kind   { return KindStruct }

func (Int) isWire()      {}
func (Double) isWire()   {}
func (String) isWire()   {}
func (Base64) isWire()   {}
func (Bool) isWire()     {}
func (DateTime) isWire() {}
func (Array) isWire()    {}
func (Struct) isWire()   {}

// Call is the envelope of an outgoing method call.
type Call struct {
	Method string
	Params []Value
}

// Response is the envelope of a method response.
type Response struct {
	Params []Value
}

// Equal reports whether two wire trees are identical, including the order
// of array elements and struct members.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case Int, Double, String, Bool:
		return a == b
	case Base64:
		bb, ok := b.(Base64)
		return ok && bytes.Equal(a, bb)
	case DateTime:
		bt, ok := b.(DateTime)
		return ok && time.Time(a).Equal(time.Time(bt))
	case Array:
		ba, ok := b.(Array)
		if !ok || len(a) != len(ba) {
			return false
		}
		for i := range a {
			if !Equal(a[i], ba[i]) {
				return false
			}
		}
		return true
	case Struct:
		bs, ok := b.(Struct)
		if !ok || len(a) != len(bs) {
			return false
		}
		for i := range a {
			if a[i].Name != bs[i].Name || !Equal(a[i].Value, bs[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// EqualParams compares two parameter lists element-wise.
func EqualParams(a, b []Value) bool {
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
