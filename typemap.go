// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"fmt"

	"github.com/luxfi/xrpc/wire"
)

// KindPair associates a native kind with the wire kind it travels as.
type KindPair struct {
	Native Kind
	Wire   wire.Kind
}

// DefaultKindPairs is the native/wire association used by DefaultTypes.
var DefaultKindPairs = []KindPair{
	{KindInt, wire.KindInt},
	{KindFloat, wire.KindDouble},
	{KindString, wire.KindString},
	{KindBool, wire.KindBool},
	{KindTime, wire.KindDateTime},
	{KindBytes, wire.KindBase64},
	{KindList, wire.KindArray},
	{KindMap, wire.KindStruct},
}

// DefaultTypes is the process-wide type table shared by Encode and Decode.
var DefaultTypes = MustTypeTable(DefaultKindPairs...)

// TypeTable is an immutable bijection between native and wire kinds.
type TypeTable struct {
	toWire   map[Kind]wire.Kind
	toNative map[wire.Kind]Kind
}

// NewTypeTable builds a table from pairs. A native or wire kind listed
// twice is rejected with ErrDuplicateKind.
func NewTypeTable(pairs ...KindPair) (*TypeTable, error) {
	t := &TypeTable{
		toWire:   make(map[Kind]wire.Kind, len(pairs)),
		toNative: make(map[wire.Kind]Kind, len(pairs)),
	}
	for _, p := range pairs {
		if p.Native == KindInvalid || p.Wire == wire.Invalid {
			return nil, fmt.Errorf("%w: invalid pair %s/%s", ErrUnsupportedType, p.Native, p.Wire)
		}
		if prev, dup := t.toWire[p.Native]; dup {
			return nil, fmt.Errorf("%w: %s already maps to %s, cannot map to %s",
				ErrDuplicateKind, p.Native, prev, p.Wire)
		}
		if prev, dup := t.toNative[p.Wire]; dup {
			return nil, fmt.Errorf("%w: %s already maps to %s, cannot map to %s",
				ErrDuplicateKind, p.Wire, prev, p.Native)
		}
		t.toWire[p.Native] = p.Wire
		t.toNative[p.Wire] = p.Native
	}
	return t, nil
}

// MustTypeTable is like NewTypeTable but panics on error.
func MustTypeTable(pairs ...KindPair) *TypeTable {
	t, err := NewTypeTable(pairs...)
	if err != nil {
		panic(err)
	}
	return t
}

// WireKindOf returns the wire kind native values of kind k travel as.
func (t *TypeTable) WireKindOf(k Kind) (wire.Kind, error) {
	w, ok := t.toWire[k]
	if !ok {
		return wire.Invalid, fmt.Errorf("%w: native kind %s", ErrUnsupportedType, k)
	}
	return w, nil
}

// NativeKindOf returns the native kind wire values of kind k decode to.
func (t *TypeTable) NativeKindOf(k wire.Kind) (Kind, error) {
	n, ok := t.toNative[k]
	if !ok {
		return KindInvalid, fmt.Errorf("%w: wire kind %s", ErrUnsupportedType, k)
	}
	return n, nil
}
