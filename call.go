// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/xrpc/wire"
)

// Client calls methods registered on remote peers.
type Client struct {
	transport   Transport
	codec       Codec
	types       *TypeTable
	callTimeout time.Duration
}

// NewClientWithTransport builds a client around an existing transport.
func NewClientWithTransport(t Transport, opts ...DialOption) *Client {
	o := &dialOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return newClient(t, o)
}

func newClient(t Transport, o *dialOptions) *Client {
	c := &Client{
		transport:   t,
		codec:       o.codec,
		types:       o.types,
		callTimeout: o.callTimeout,
	}
	if c.codec == nil {
		c.codec = defaultCodec
	}
	if c.types == nil {
		c.types = DefaultTypes
	}
	return c
}

// CallMethod invokes method on peer. A Single argument travels as a
// one-element parameter list. The result is always the full list the
// peer returned, even when it holds one value.
func (c *Client) CallMethod(ctx context.Context, peer, method string, args Params) ([]Value, error) {
	params, err := c.types.EncodeArgs(valuesOf(args))
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	payload, err := c.codec.EncodeCall(&wire.Call{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode call: %w", err)
	}

	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	log.Debugf("call %s on %s with %d params", method, peer, len(params))
	raw, err := c.transport.Send(ctx, peer, method, payload)
	if err != nil {
		log.Debugf("call %s on %s failed: %v", method, peer, err)
		return nil, transportError(err)
	}

	resp, err := c.codec.DecodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	results, err := c.types.DecodeArgs(resp.Params)
	if err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return results, nil
}

// Close closes the underlying transport
func (c *Client) Close() error {
	return c.transport.Close()
}
