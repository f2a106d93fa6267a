// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/luxfi/xrpc"
)

// parseArgs reads each argument as a JSON literal, falling back to a
// plain string when it is not valid JSON.
func parseArgs(raw []string) ([]xrpc.Value, error) {
	out := make([]xrpc.Value, 0, len(raw))
	for _, arg := range raw {
		dec := json.NewDecoder(strings.NewReader(arg))
		dec.UseNumber()
		var x interface{}
		if err := dec.Decode(&x); err != nil || dec.More() {
			out = append(out, xrpc.String(arg))
			continue
		}
		if x == nil {
			return nil, fmt.Errorf("argument %q: null has no XML-RPC representation", arg)
		}
		v, err := xrpc.ValueOf(x)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatResults(results []xrpc.Value) []string {
	lines := make([]string, 0, len(results))
	for _, v := range results {
		lines = append(lines, formatValue(v))
	}
	return lines
}

func formatValue(v xrpc.Value) string {
	switch v := v.(type) {
	case xrpc.Time:
		return time.Time(v).Format(time.RFC3339Nano)
	case xrpc.Bytes:
		return fmt.Sprintf("%x", []byte(v))
	case xrpc.List:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			parts = append(parts, formatValue(elem))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case xrpc.Map:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, fmt.Sprintf("%s: %s", e.Key, formatValue(e.Value)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case xrpc.String:
		return fmt.Sprintf("%q", string(v))
	case nil:
		return "<nil>"
	}
	return fmt.Sprint(xrpc.ToGo(v))
}
