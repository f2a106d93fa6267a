// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"context"
	"fmt"
)

// NewClient creates a client on the selected transport (ZAP unless
// WithTransport says otherwise). Peers are addressed per call.
func NewClient(opts ...DialOption) (*Client, error) {
	o := &dialOptions{
		transport: DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}

	entry, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("unknown transport: %s", o.transport)
	}
	t, err := entry.dial(o)
	if err != nil {
		return nil, err
	}
	return newClient(t, o), nil
}

// Server is a Registry exposed to peers through a Listener.
type Server struct {
	*Registry
	listener Listener
}

// Listen creates a server on the selected transport (ZAP unless
// WithServerTransport says otherwise).
func Listen(addr string, opts ...ServerOption) (*Server, error) {
	o := &serverOptions{
		transport: DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}

	entry, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("unknown transport: %s", o.transport)
	}
	l, err := entry.listen(addr, o)
	if err != nil {
		return nil, err
	}
	return &Server{Registry: newRegistry(o), listener: l}, nil
}

// Serve answers calls until ctx is cancelled or the server closed.
func (s *Server) Serve(ctx context.Context) error {
	log.Infof("serving on %s", s.listener.Addr())
	return s.listener.Serve(ctx, s.HandleRaw)
}

// Close stops the server
func (s *Server) Close() error {
	return s.listener.Close()
}

// Addr returns the server's listen address
func (s *Server) Addr() string {
	return s.listener.Addr()
}
