// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrMalformed = errors.New("wire: malformed value")
	ErrFault     = errors.New("wire: fault response")

	// ErrUnknownKind and ErrInvalidText also match ErrMalformed.
	ErrUnknownKind = fmt.Errorf("%w: unknown value kind", ErrMalformed)
	ErrInvalidText = fmt.Errorf("%w: text not representable in XML", ErrMalformed)
)

// Accepted dateTime.iso8601 layouts, tried in order. The first is the
// layout used when encoding.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"20060102T15:04:05Z07:00",
	"20060102T15:04:05",
	"2006-01-02T15:04:05",
}

type callXML struct {
	XMLName xml.Name  `xml:"methodCall"`
	Method  string    `xml:"methodName"`
	Params  paramsXML `xml:"params"`
}

type responseXML struct {
	XMLName xml.Name   `xml:"methodResponse"`
	Params  *paramsXML `xml:"params"`
	Fault   *faultXML  `xml:"fault"`
}

type paramsXML struct {
	Param []paramXML `xml:"param"`
}

type paramXML struct {
	Value valueXML `xml:"value"`
}

type faultXML struct {
	Value valueXML `xml:"value"`
}

// valueXML mirrors <value>. Exactly one typed child is set, or none for
// the bare-text string form.
type valueXML struct {
	Int      *string    `xml:"int,omitempty"`
	I4       *string    `xml:"i4,omitempty"`
	I8       *string    `xml:"i8,omitempty"`
	Double   *string    `xml:"double,omitempty"`
	String   *string    `xml:"string,omitempty"`
	Base64   *string    `xml:"base64,omitempty"`
	Boolean  *string    `xml:"boolean,omitempty"`
	DateTime *string    `xml:"dateTime.iso8601,omitempty"`
	Array    *arrayXML  `xml:"array,omitempty"`
	Struct   *structXML `xml:"struct,omitempty"`
	Other    []anyXML   `xml:",any"`
	Text     string     `xml:",chardata"`
}

// anyXML catches child elements of <value> that name no known kind.
type anyXML struct {
	XMLName xml.Name
}

type arrayXML struct {
	Data dataXML `xml:"data"`
}

type dataXML struct {
	Values []valueXML `xml:"value"`
}

type structXML struct {
	Members []memberXML `xml:"member"`
}

type memberXML struct {
	Name  string   `xml:"name"`
	Value valueXML `xml:"value"`
}

// MarshalCall renders a methodCall document.
func MarshalCall(c *Call) ([]byte, error) {
	if c == nil || c.Method == "" {
		return nil, fmt.Errorf("%w: call without method name", ErrMalformed)
	}
	if err := CheckText(c.Method); err != nil {
		return nil, fmt.Errorf("method name: %w", err)
	}
	params, err := toParamsXML(c.Params)
	if err != nil {
		return nil, err
	}
	return marshalDocument(&callXML{Method: c.Method, Params: params})
}

// UnmarshalCall parses a methodCall document.
func UnmarshalCall(data []byte) (*Call, error) {
	var doc callXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	method := strings.TrimSpace(doc.Method)
	if method == "" {
		return nil, fmt.Errorf("%w: call without method name", ErrMalformed)
	}
	params, err := fromParamsXML(doc.Params.Param)
	if err != nil {
		return nil, err
	}
	return &Call{Method: method, Params: params}, nil
}

// MarshalResponse renders a methodResponse document.
func MarshalResponse(r *Response) ([]byte, error) {
	if r == nil {
		r = &Response{}
	}
	params, err := toParamsXML(r.Params)
	if err != nil {
		return nil, err
	}
	return marshalDocument(&responseXML{Params: &params})
}

// UnmarshalResponse parses a methodResponse document. Fault responses are
// reported as ErrFault.
func UnmarshalResponse(data []byte) (*Response, error) {
	var doc responseXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Fault != nil {
		return nil, fmt.Errorf("%w: %s", ErrFault, faultString(doc.Fault))
	}
	if doc.Params == nil {
		return &Response{}, nil
	}
	params, err := fromParamsXML(doc.Params.Param)
	if err != nil {
		return nil, err
	}
	return &Response{Params: params}, nil
}

func marshalDocument(doc interface{}) ([]byte, error) {
	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body))
	out = append(out, xml.Header...)
	return append(out, body...), nil
}

func toParamsXML(values []Value) (paramsXML, error) {
	out := paramsXML{Param: make([]paramXML, 0, len(values))}
	for i, v := range values {
		x, err := toValueXML(v)
		if err != nil {
			return paramsXML{}, fmt.Errorf("param %d: %w", i, err)
		}
		out.Param = append(out.Param, paramXML{Value: x})
	}
	return out, nil
}

func fromParamsXML(params []paramXML) ([]Value, error) {
	out := make([]Value, 0, len(params))
	for i := range params {
		v, err := fromValueXML(&params[i].Value)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func text(s string) *string { return &s }

func toValueXML(v Value) (valueXML, error) {
	switch v := v.(type) {
	case Int:
		return valueXML{Int: text(strconv.FormatInt(int64(v), 10))}, nil
	case Double:
		return valueXML{Double: text(strconv.FormatFloat(float64(v), 'f', -1, 64))}, nil
	case String:
		if err := CheckText(string(v)); err != nil {
			return valueXML{}, err
		}
		return valueXML{String: text(string(v))}, nil
	case Base64:
		return valueXML{Base64: text(base64.StdEncoding.EncodeToString(v))}, nil
	case Bool:
		if v {
			return valueXML{Boolean: text("1")}, nil
		}
		return valueXML{Boolean: text("0")}, nil
	case DateTime:
		return valueXML{DateTime: text(time.Time(v).Format(dateTimeLayouts[0]))}, nil
	case Array:
		arr := &arrayXML{Data: dataXML{Values: make([]valueXML, 0, len(v))}}
		for i, elem := range v {
			x, err := toValueXML(elem)
			if err != nil {
				return valueXML{}, fmt.Errorf("array element %d: %w", i, err)
			}
			arr.Data.Values = append(arr.Data.Values, x)
		}
		return valueXML{Array: arr}, nil
	case Struct:
		st := &structXML{Members: make([]memberXML, 0, len(v))}
		for _, m := range v {
			if err := CheckText(m.Name); err != nil {
				return valueXML{}, fmt.Errorf("member name: %w", err)
			}
			x, err := toValueXML(m.Value)
			if err != nil {
				return valueXML{}, fmt.Errorf("member %q: %w", m.Name, err)
			}
			st.Members = append(st.Members, memberXML{Name: m.Name, Value: x})
		}
		return valueXML{Struct: st}, nil
	case nil:
		return valueXML{}, fmt.Errorf("%w: nil value", ErrMalformed)
	}
	return valueXML{}, fmt.Errorf("%w: unknown kind %s", ErrMalformed, v.Kind())
}

func fromValueXML(x *valueXML) (Value, error) {
	set := 0
	for _, p := range []*string{x.Int, x.I4, x.I8, x.Double, x.String, x.Base64, x.Boolean, x.DateTime} {
		if p != nil {
			set++
		}
	}
	if x.Array != nil {
		set++
	}
	if x.Struct != nil {
		set++
	}
	if len(x.Other) > 0 {
		return nil, fmt.Errorf("%w: <%s>", ErrUnknownKind, x.Other[0].XMLName.Local)
	}
	if set > 1 {
		return nil, fmt.Errorf("%w: value holds %d typed elements", ErrMalformed, set)
	}

	switch {
	case x.Int != nil || x.I4 != nil || x.I8 != nil:
		raw := x.Int
		if raw == nil {
			raw = x.I4
		}
		if raw == nil {
			raw = x.I8
		}
		n, err := strconv.ParseInt(strings.TrimSpace(*raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: int %q", ErrMalformed, *raw)
		}
		return Int(n), nil
	case x.Double != nil:
		f, err := strconv.ParseFloat(strings.TrimSpace(*x.Double), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: double %q", ErrMalformed, *x.Double)
		}
		return Double(f), nil
	case x.String != nil:
		return String(*x.String), nil
	case x.Base64 != nil:
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(*x.Base64), ""))
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrMalformed, err)
		}
		return Base64(b), nil
	case x.Boolean != nil:
		switch strings.TrimSpace(*x.Boolean) {
		case "1", "true":
			return Bool(true), nil
		case "0", "false":
			return Bool(false), nil
		}
		return nil, fmt.Errorf("%w: boolean %q", ErrMalformed, *x.Boolean)
	case x.DateTime != nil:
		raw := strings.TrimSpace(*x.DateTime)
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return DateTime(t), nil
			}
		}
		return nil, fmt.Errorf("%w: dateTime %q", ErrMalformed, raw)
	case x.Array != nil:
		out := make(Array, 0, len(x.Array.Data.Values))
		for i := range x.Array.Data.Values {
			v, err := fromValueXML(&x.Array.Data.Values[i])
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case x.Struct != nil:
		out := make(Struct, 0, len(x.Struct.Members))
		for i := range x.Struct.Members {
			m := &x.Struct.Members[i]
			v, err := fromValueXML(&m.Value)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", m.Name, err)
			}
			out = append(out, Member{Name: m.Name, Value: v})
		}
		return out, nil
	}
	// untyped <value> content is a string
	return String(x.Text), nil
}

// CheckText rejects strings encoding/xml would alter: invalid UTF-8 and
// runes outside the XML 1.0 Char production.
func CheckText(s string) error {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return fmt.Errorf("%w: %q has invalid UTF-8 at byte %d", ErrInvalidText, s, i)
			}
		}
		if !isXMLChar(r) {
			return fmt.Errorf("%w: %q has %U at byte %d", ErrInvalidText, s, r, i)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

func faultString(f *faultXML) string {
	v, err := fromValueXML(&f.Value)
	if err != nil {
		return "unreadable fault"
	}
	if st, ok := v.(Struct); ok {
		for _, m := range st {
			if m.Name == "faultString" {
				if s, ok := m.Value.(String); ok {
					return string(s)
				}
			}
		}
	}
	return "unknown fault"
}
