// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"fmt"

	"github.com/luxfi/xrpc/wire"
)

// Decode converts a wire value into a native value using DefaultTypes.
func Decode(w wire.Value) (Value, error) { return DefaultTypes.Decode(w) }

// DecodeArgs converts ws element-wise using DefaultTypes.
func DecodeArgs(ws []wire.Value) ([]Value, error) { return DefaultTypes.DecodeArgs(ws) }

// Decode converts w into a native value. It is the inverse of Encode;
// a struct naming the same member twice fails with ErrDuplicateKey.
func (t *TypeTable) Decode(w wire.Value) (Value, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil wire value", ErrUnsupportedType)
	}
	nk, err := t.NativeKindOf(w.Kind())
	if err != nil {
		return nil, err
	}

	switch w := w.(type) {
	case wire.Array:
		if nk != KindList {
			return nil, cannotLand(w.Kind(), nk)
		}
		out := make(List, 0, len(w))
		for i, elem := range w {
			v, err := t.Decode(elem)
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case wire.Struct:
		if nk != KindMap {
			return nil, cannotLand(w.Kind(), nk)
		}
		seen := make(map[string]struct{}, len(w))
		out := make(Map, 0, len(w))
		for _, m := range w {
			if _, dup := seen[m.Name]; dup {
				return nil, fmt.Errorf("%w: struct member %q", ErrDuplicateKey, m.Name)
			}
			seen[m.Name] = struct{}{}
			v, err := t.Decode(m.Value)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", m.Name, err)
			}
			out = append(out, Entry{Key: m.Name, Value: v})
		}
		return out, nil
	}
	return decodeLeaf(nk, w)
}

// DecodeArgs converts ws element-wise, keeping order and count.
func (t *TypeTable) DecodeArgs(ws []wire.Value) ([]Value, error) {
	out := make([]Value, 0, len(ws))
	for i, w := range ws {
		v, err := t.Decode(w)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeLeaf(nk Kind, w wire.Value) (Value, error) {
	switch nk {
	case KindInt:
		if n, ok := w.(wire.Int); ok {
			return Int(n), nil
		}
	case KindFloat:
		if f, ok := w.(wire.Double); ok {
			return Float(f), nil
		}
	case KindString:
		switch w := w.(type) {
		case wire.String:
			return String(w), nil
		case wire.Base64:
			return String(w), nil
		}
	case KindBytes:
		switch w := w.(type) {
		case wire.Base64:
			return Bytes(append([]byte(nil), w...)), nil
		case wire.String:
			return Bytes(w), nil
		}
	case KindBool:
		if b, ok := w.(wire.Bool); ok {
			return Bool(b), nil
		}
	case KindTime:
		if tm, ok := w.(wire.DateTime); ok {
			return Time(tm), nil
		}
	}
	return nil, cannotLand(w.Kind(), nk)
}

func cannotLand(wk wire.Kind, k Kind) error {
	return fmt.Errorf("%w: %s cannot decode to %s", ErrUnsupportedType, wk, k)
}
