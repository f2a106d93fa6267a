// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package xrpc provides peer-to-peer remote procedure calls with XML-RPC
// envelopes for the Lux ecosystem.
//
// # Values
//
// Application code exchanges Value trees (Int, Float, String, Bool, Time,
// Bytes, List, Map). A TypeTable maps each native kind to exactly one
// wire kind; Encode and Decode walk the tree through it and are exact
// inverses of each other.
//
// # Usage
//
// Server usage:
//
//	server, err := xrpc.Listen(":9000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//
//	server.Register("ping", func(ctx context.Context, args ...xrpc.Value) (xrpc.Params, error) {
//	    return xrpc.Single(xrpc.String("pong")), nil
//	})
//
//	server.Serve(ctx)
//
// Client usage:
//
//	client, err := xrpc.NewClient()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Results are always a list, even for one value
//	results, err := client.CallMethod(ctx, "localhost:9000", "ping", xrpc.Many())
//
// # Transport Selection
//
// ZAP (length-prefixed frames over TCP) is the default. The gRPC and
// JSON-RPC-over-HTTP transports carry the same envelopes:
//
//	xrpc.NewClient(xrpc.WithTransport(xrpc.TransportGRPC))
//	xrpc.Listen(":9000", xrpc.WithServerTransport(xrpc.TransportHTTP))
//
// # Architecture
//
//   - value.go, wire/: native and wire value trees, XML documents
//   - typemap.go, encode.go, decode.go: the codec between the two trees
//   - call.go: Client.CallMethod
//   - registry.go: method bindings and incoming-call dispatch
//   - client.go, transport.go, dial.go: transport boundary and factories
//   - zap.go, grpc.go, http.go: transports
//
// Handler errors are not turned into XML-RPC fault responses; they travel
// back through the transport's own error path and reach the caller as a
// RemoteError. Registry rejections keep their class across every
// transport, so errors.Is(err, ErrUnauthorized) and
// errors.Is(err, ErrNotRegistered) hold on the calling side.
package xrpc
