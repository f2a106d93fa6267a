// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/luxfi/xrpc"
)

func demoMethods() map[string]xrpc.Handler {
	return map[string]xrpc.Handler{
		"ping": ping,
		"echo": echo,
		"add":  add,
		"now":  now,
	}
}

func ping(ctx context.Context, args ...xrpc.Value) (xrpc.Params, error) {
	return xrpc.Single(xrpc.String("pong")), nil
}

func echo(ctx context.Context, args ...xrpc.Value) (xrpc.Params, error) {
	return xrpc.Many(args...), nil
}

func now(ctx context.Context, args ...xrpc.Value) (xrpc.Params, error) {
	return xrpc.Single(xrpc.Time(time.Now().UTC())), nil
}

// add sums numbers. The result stays an Int unless a Float is involved.
func add(ctx context.Context, args ...xrpc.Value) (xrpc.Params, error) {
	var ints xrpc.Int
	var floats xrpc.Float
	sawFloat := false
	for i, a := range args {
		switch a := a.(type) {
		case xrpc.Int:
			ints += a
		case xrpc.Float:
			floats += a
			sawFloat = true
		default:
			return nil, fmt.Errorf("add: argument %d is %s, not a number", i, a.Kind())
		}
	}
	if sawFloat {
		return xrpc.Single(floats + xrpc.Float(ints)), nil
	}
	return xrpc.Single(ints), nil
}

// allowHosts admits callers whose remote address has one of the given
// hosts.
func allowHosts(hosts []string) xrpc.AuthorizeFunc {
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		allowed[h] = struct{}{}
	}
	return func(caller string) bool {
		host, _, err := net.SplitHostPort(caller)
		if err != nil {
			host = caller
		}
		_, ok := allowed[host]
		return ok
	}
}
