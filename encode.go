// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"fmt"

	"github.com/luxfi/xrpc/wire"
)

// Encode converts v into a wire value using DefaultTypes.
func Encode(v Value) (wire.Value, error) { return DefaultTypes.Encode(v) }

// EncodeArgs converts vs element-wise using DefaultTypes.
func EncodeArgs(vs []Value) ([]wire.Value, error) { return DefaultTypes.EncodeArgs(vs) }

// Encode converts v into a wire value. Lists become arrays and maps
// become structs, both in their original order.
func (t *TypeTable) Encode(v Value) (wire.Value, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrUnsupportedType)
	}
	wk, err := t.WireKindOf(v.Kind())
	if err != nil {
		return nil, err
	}

	switch v := v.(type) {
	case List:
		if wk != wire.KindArray {
			return nil, cannotTravel(v.Kind(), wk)
		}
		out := make(wire.Array, 0, len(v))
		for i, elem := range v {
			w, err := t.Encode(elem)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
			out = append(out, w)
		}
		return out, nil
	case Map:
		if wk != wire.KindStruct {
			return nil, cannotTravel(v.Kind(), wk)
		}
		seen := make(map[string]struct{}, len(v))
		out := make(wire.Struct, 0, len(v))
		for _, e := range v {
			if err := checkText(e.Key); err != nil {
				return nil, err
			}
			if _, dup := seen[e.Key]; dup {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, e.Key)
			}
			seen[e.Key] = struct{}{}
			w, err := t.Encode(e.Value)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", e.Key, err)
			}
			out = append(out, wire.Member{Name: e.Key, Value: w})
		}
		return out, nil
	}
	return encodeLeaf(wk, v)
}

// EncodeArgs converts vs element-wise, keeping order and count.
func (t *TypeTable) EncodeArgs(vs []Value) ([]wire.Value, error) {
	out := make([]wire.Value, 0, len(vs))
	for i, v := range vs {
		w, err := t.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func encodeLeaf(wk wire.Kind, v Value) (wire.Value, error) {
	switch wk {
	case wire.KindInt:
		if n, ok := v.(Int); ok {
			return wire.Int(n), nil
		}
	case wire.KindDouble:
		if f, ok := v.(Float); ok {
			return wire.Double(f), nil
		}
	case wire.KindString:
		var s string
		switch v := v.(type) {
		case String:
			s = string(v)
		case Bytes:
			s = string(v)
		default:
			return nil, cannotTravel(v.Kind(), wk)
		}
		if err := checkText(s); err != nil {
			return nil, err
		}
		return wire.String(s), nil
	case wire.KindBase64:
		switch v := v.(type) {
		case Bytes:
			return wire.Base64(append([]byte(nil), v...)), nil
		case String:
			return wire.Base64(v), nil
		}
	case wire.KindBool:
		if b, ok := v.(Bool); ok {
			return wire.Bool(b), nil
		}
	case wire.KindDateTime:
		if tm, ok := v.(Time); ok {
			return wire.DateTime(tm), nil
		}
	}
	return nil, cannotTravel(v.Kind(), wk)
}

// checkText rejects text a wire string cannot hold unchanged.
func checkText(s string) error {
	if err := wire.CheckText(s); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	return nil
}

func cannotTravel(k Kind, wk wire.Kind) error {
	return fmt.Errorf("%w: %s cannot travel as %s", ErrUnsupportedType, k, wk)
}
