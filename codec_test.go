// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/luxfi/xrpc/wire"
)

func sampleValues() []Value {
	when := time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC)
	return []Value{
		Int(0),
		Int(math.MaxInt64),
		Int(-17),
		Float(2.5),
		Float(-1e-9),
		String(""),
		String("agent@example.org"),
		Bool(true),
		Bool(false),
		Time(when),
		Bytes{},
		Bytes{0xde, 0xad, 0xbe, 0xef},
		List{},
		List{Int(1), String("two"), List{Float(3)}},
		Map{},
		Map{
			{Key: "a", Value: Int(1)},
			{Key: "b", Value: List{Bool(true), String("x")}},
			{Key: "nested", Value: Map{{Key: "when", Value: Time(when)}}},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, v := range sampleValues() {
		w, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%#v): %v", v, err)
		}
		back, err := Decode(w)
		if err != nil {
			t.Fatalf("Decode(%#v): %v", w, err)
		}
		if !Equal(back, v) {
			t.Errorf("round trip of %#v gave %#v", v, back)
		}
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	wires := []wire.Value{
		wire.Int(5),
		wire.Double(0.125),
		wire.String("x"),
		wire.Base64("raw"),
		wire.Bool(true),
		wire.DateTime(time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)),
		wire.Array{wire.Int(1), wire.Array{}},
		wire.Struct{
			{Name: "z", Value: wire.Int(1)},
			{Name: "a", Value: wire.Struct{{Name: "k", Value: wire.String("v")}}},
		},
	}
	for _, w := range wires {
		v, err := Decode(w)
		if err != nil {
			t.Fatalf("Decode(%#v): %v", w, err)
		}
		back, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%#v): %v", v, err)
		}
		if !wire.Equal(back, w) {
			t.Errorf("round trip of %#v gave %#v", w, back)
		}
	}
}

func TestEncodeSequenceKeepsOrder(t *testing.T) {
	in := List{Int(3), Int(1), Int(2), String("last")}
	w, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	arr, ok := w.(wire.Array)
	if !ok {
		t.Fatalf("got %T, want wire.Array", w)
	}
	if len(arr) != len(in) {
		t.Fatalf("len = %d, want %d", len(arr), len(in))
	}
	want := wire.Array{wire.Int(3), wire.Int(1), wire.Int(2), wire.String("last")}
	if !wire.Equal(arr, want) {
		t.Errorf("got %#v, want %#v", arr, want)
	}
}

func TestEncodeMappingLayout(t *testing.T) {
	in := Map{
		{Key: "a", Value: Int(1)},
		{Key: "b", Value: List{Bool(true), String("x")}},
	}
	w, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st, ok := w.(wire.Struct)
	if !ok || len(st) != 2 {
		t.Fatalf("got %#v, want two-member struct", w)
	}
	if st[0].Name != "a" || st[1].Name != "b" {
		t.Fatalf("member names %q, %q", st[0].Name, st[1].Name)
	}
	if !wire.Equal(st[0].Value, wire.Int(1)) {
		t.Errorf("a = %#v", st[0].Value)
	}
	arr, ok := st[1].Value.(wire.Array)
	if !ok || len(arr) != 2 {
		t.Fatalf("b = %#v, want two-element array", st[1].Value)
	}
	if arr[0].Kind() != wire.KindBool || arr[1].Kind() != wire.KindString {
		t.Errorf("b kinds = %s, %s", arr[0].Kind(), arr[1].Kind())
	}
}

func TestEncodeArgsKeepsShape(t *testing.T) {
	args := []Value{List{Int(1), Int(2)}, Int(3)}
	ws, err := EncodeArgs(args)
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	if len(ws) != 2 {
		t.Fatalf("len = %d, want 2 (no flattening)", len(ws))
	}
	if ws[0].Kind() != wire.KindArray || ws[1].Kind() != wire.KindInt {
		t.Errorf("kinds = %s, %s", ws[0].Kind(), ws[1].Kind())
	}
}

func TestDecodeDuplicateMember(t *testing.T) {
	w := wire.Struct{
		{Name: "k", Value: wire.Int(1)},
		{Name: "k", Value: wire.Int(2)},
	}
	if _, err := Decode(w); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}

	nested := wire.Array{wire.Struct{
		{Name: "k", Value: wire.Int(1)},
		{Name: "k", Value: wire.String("again")},
	}}
	if _, err := Decode(nested); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("nested: err = %v, want ErrDuplicateKey", err)
	}
}

func TestEncodeDuplicateKey(t *testing.T) {
	m := Map{{Key: "k", Value: Int(1)}, {Key: "k", Value: Int(2)}}
	if _, err := Encode(m); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestUnsupportedTypes(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Encode(nil): err = %v", err)
	}
	if _, err := Decode(nil); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Decode(nil): err = %v", err)
	}

	table := MustTypeTable(
		KindPair{KindInt, wire.KindInt},
		KindPair{KindList, wire.KindArray},
	)
	if _, err := table.Encode(List{Int(1), Float(2)}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Encode(Float) without mapping: err = %v", err)
	}
	if _, err := table.Decode(wire.Array{wire.Bool(true)}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Decode(boolean) without mapping: err = %v", err)
	}
	if _, err := table.Encode(List{nil}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Encode(nil element): err = %v", err)
	}
}

func TestAlternateTable(t *testing.T) {
	// strings travel as base64 and bytes as plain strings
	table := MustTypeTable(
		KindPair{KindString, wire.KindBase64},
		KindPair{KindBytes, wire.KindString},
	)
	w, err := table.Encode(String("hi"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !wire.Equal(w, wire.Base64("hi")) {
		t.Fatalf("got %#v", w)
	}
	v, err := table.Decode(w)
	if err != nil || !Equal(v, String("hi")) {
		t.Fatalf("Decode = %#v, %v", v, err)
	}

	// a leaf mapped onto a container kind cannot be encoded
	bad := MustTypeTable(KindPair{KindInt, wire.KindArray})
	if _, err := bad.Encode(Int(1)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Int as array: err = %v", err)
	}
}

func TestXMLCodecEnvelope(t *testing.T) {
	params, err := EncodeArgs(sampleValues())
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	codec := XMLCodec{}
	data, err := codec.EncodeCall(&wire.Call{Method: "report", Params: params})
	if err != nil {
		t.Fatalf("EncodeCall: %v", err)
	}
	call, err := codec.DecodeCall(data)
	if err != nil {
		t.Fatalf("DecodeCall: %v", err)
	}
	got, err := DecodeArgs(call.Params)
	if err != nil {
		t.Fatalf("DecodeArgs: %v", err)
	}
	if !EqualValues(got, sampleValues()) {
		t.Errorf("got %#v", got)
	}
}

func TestEncodeRejectsUnrepresentableText(t *testing.T) {
	for _, v := range []Value{
		String("a\x00b\x01c"),
		String("\xff\xfe"),
		List{String("ok"), String("bell\a")},
		Map{{Key: "k\x00", Value: Int(1)}},
	} {
		if _, err := Encode(v); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("Encode(%#v): err = %v, want ErrUnsupportedType", v, err)
		}
	}

	table := MustTypeTable(KindPair{KindBytes, wire.KindString})
	if _, err := table.Encode(Bytes{0xff}); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Encode(Bytes as string): err = %v", err)
	}
	if _, err := table.Encode(Bytes("plain")); err != nil {
		t.Errorf("Encode(Bytes as string): %v", err)
	}
}

func TestXMLCodecUnknownKind(t *testing.T) {
	codec := XMLCodec{}
	doc := `<methodCall><methodName>m</methodName><params><param><value><nil/></value></param></params></methodCall>`
	if _, err := codec.DecodeCall([]byte(doc)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("DecodeCall: err = %v, want ErrUnsupportedType", err)
	}
	resp := `<methodResponse><params><param><value><i2>7</i2></value></param></params></methodResponse>`
	if _, err := codec.DecodeResponse([]byte(resp)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("DecodeResponse: err = %v, want ErrUnsupportedType", err)
	}
	bad := &wire.Response{Params: []wire.Value{wire.String("\x00")}}
	if _, err := codec.EncodeResponse(bad); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("EncodeResponse: err = %v, want ErrUnsupportedType", err)
	}
	// other malformed documents keep their own class
	if _, err := codec.DecodeCall([]byte("<methodCall>")); errors.Is(err, ErrUnsupportedType) || !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("truncated: err = %v, want ErrMalformed only", err)
	}
}
