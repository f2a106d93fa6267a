// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"context"
	"io"
	"time"

	"github.com/luxfi/xrpc/wire"
)

// Transport delivers an encoded call envelope to a peer and returns the
// encoded response envelope. Implementations must be safe for concurrent
// use.
type Transport interface {
	io.Closer

	// Send blocks until the peer answers, the context ends or delivery
	// fails. method is the call's method name, carried for routing and
	// logging only.
	Send(ctx context.Context, peer, method string, payload []byte) ([]byte, error)
}

// Listener accepts calls from peers and hands each one to a RawHandler.
type Listener interface {
	// Serve blocks until the context is cancelled or the listener closed
	Serve(ctx context.Context, h RawHandler) error

	Close() error

	// Addr returns the listen address
	Addr() string
}

// RawHandler handles one encoded call envelope and returns the encoded
// response envelope. A returned error travels back through the
// transport's own error path.
type RawHandler func(ctx context.Context, method string, payload []byte) ([]byte, error)

// Codec encodes/decodes call and response envelopes
type Codec interface {
	EncodeCall(c *wire.Call) ([]byte, error)
	DecodeCall(data []byte) (*wire.Call, error)
	EncodeResponse(r *wire.Response) ([]byte, error)
	DecodeResponse(data []byte) (*wire.Response, error)
}

type callerKey struct{}

// WithCaller returns a context carrying the identity of the calling peer.
// Transports set it before dispatching an incoming call.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller identity stored by WithCaller.
func CallerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

// DialOption configures clients
type DialOption func(*dialOptions)

type dialOptions struct {
	codec       Codec
	types       *TypeTable
	transport   string // "zap", "grpc", "http"
	callTimeout time.Duration
}

// WithCodec sets a custom envelope codec
func WithCodec(c Codec) DialOption {
	return func(o *dialOptions) { o.codec = c }
}

// WithTransport explicitly sets the transport type
func WithTransport(t string) DialOption {
	return func(o *dialOptions) { o.transport = t }
}

// WithTypes sets the type table used to encode arguments and decode
// results.
func WithTypes(t *TypeTable) DialOption {
	return func(o *dialOptions) { o.types = t }
}

// WithCallTimeout bounds every CallMethod by d.
func WithCallTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) { o.callTimeout = d }
}

// ServerOption configures servers and registries
type ServerOption func(*serverOptions)

type serverOptions struct {
	codec     Codec
	types     *TypeTable
	transport string
}

// WithServerCodec sets a custom codec for the server
func WithServerCodec(c Codec) ServerOption {
	return func(o *serverOptions) { o.codec = c }
}

// WithServerTransport explicitly sets the transport type for the server
func WithServerTransport(t string) ServerOption {
	return func(o *serverOptions) { o.transport = t }
}

// WithServerTypes sets the type table used to decode arguments and encode
// results.
func WithServerTypes(t *TypeTable) ServerOption {
	return func(o *serverOptions) { o.types = t }
}
