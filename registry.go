// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	uuid "github.com/satori/go.uuid"

	"github.com/luxfi/xrpc/wire"
)

// Handler implements a registered method. args are the decoded call
// parameters in order.
type Handler func(ctx context.Context, args ...Value) (Params, error)

// AuthorizeFunc decides whether caller may invoke a method.
type AuthorizeFunc func(caller string) bool

// RegisterOption configures one registration
type RegisterOption func(*binding)

// WithAuthorization rejects calls whose caller identity fails isAllowed.
// The handler does not run for rejected calls.
func WithAuthorization(isAllowed AuthorizeFunc) RegisterOption {
	return func(b *binding) { b.isAllowed = isAllowed }
}

type binding struct {
	id        uuid.UUID
	method    string
	handler   Handler
	isAllowed AuthorizeFunc
}

type bindings map[string]*binding

// Registry binds method names to handlers and dispatches incoming calls.
// Dispatch reads an immutable snapshot, so registrations may change while
// calls are in flight.
type Registry struct {
	mu       sync.Mutex // serialises writers
	snapshot atomic.Pointer[bindings]
	codec    Codec
	types    *TypeTable
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...ServerOption) *Registry {
	o := &serverOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return newRegistry(o)
}

func newRegistry(o *serverOptions) *Registry {
	r := &Registry{codec: o.codec, types: o.types}
	if r.codec == nil {
		r.codec = defaultCodec
	}
	if r.types == nil {
		r.types = DefaultTypes
	}
	empty := bindings{}
	r.snapshot.Store(&empty)
	return r
}

// Registration is the handle returned by Register.
type Registration struct {
	registry *Registry
	method   string
	id       uuid.UUID
}

// Method returns the registered method name
func (h *Registration) Method() string { return h.method }

// Unregister removes the binding if it is still the one this handle
// created. Otherwise it fails with ErrNotRegistered.
func (h *Registration) Unregister() error {
	return h.registry.remove(h.method, &h.id)
}

// Register binds method to handler. Binding a name twice fails with
// ErrAlreadyRegistered.
func (r *Registry) Register(method string, handler Handler, opts ...RegisterOption) (*Registration, error) {
	if method == "" {
		return nil, errors.New("xrpc: empty method name")
	}
	if handler == nil {
		return nil, fmt.Errorf("xrpc: nil handler for %q", method)
	}
	b := &binding{id: uuid.NewV4(), method: method, handler: handler}
	for _, opt := range opts {
		opt(b)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.snapshot.Load()
	if _, ok := cur[method]; ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyRegistered, method)
	}
	next := make(bindings, len(cur)+1)
	for name, existing := range cur {
		next[name] = existing
	}
	next[method] = b
	r.snapshot.Store(&next)

	log.Noticef("registered method %s", method)
	return &Registration{registry: r, method: method, id: b.id}, nil
}

// Unregister removes the binding for method. Unknown names fail with
// ErrNotRegistered.
func (r *Registry) Unregister(method string) error {
	return r.remove(method, nil)
}

func (r *Registry) remove(method string, id *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.snapshot.Load()
	b, ok := cur[method]
	if !ok || (id != nil && !uuid.Equal(b.id, *id)) {
		return fmt.Errorf("%w: %q", ErrNotRegistered, method)
	}
	next := make(bindings, len(cur))
	for name, existing := range cur {
		if name != method {
			next[name] = existing
		}
	}
	r.snapshot.Store(&next)

	log.Noticef("unregistered method %s", method)
	return nil
}

// Methods returns the bound method names, sorted.
func (r *Registry) Methods() []string {
	cur := *r.snapshot.Load()
	names := make([]string, 0, len(cur))
	for name := range cur {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler bound to call.Method and returns its result
// as a response envelope. Handler errors are returned unchanged; no fault
// envelope is produced.
func (r *Registry) Dispatch(ctx context.Context, call *wire.Call) (*wire.Response, error) {
	b, ok := (*r.snapshot.Load())[call.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, call.Method)
	}

	caller := CallerFrom(ctx)
	if b.isAllowed != nil && !b.isAllowed(caller) {
		log.Warningf("rejected %s from %q", call.Method, caller)
		return nil, fmt.Errorf("%w: %q may not call %q", ErrUnauthorized, caller, call.Method)
	}

	args, err := r.types.DecodeArgs(call.Params)
	if err != nil {
		return nil, fmt.Errorf("decode args of %q: %w", call.Method, err)
	}

	result, err := b.invoke(ctx, args)
	if err != nil {
		log.Errorf("method %s failed: %v", call.Method, err)
		return nil, err
	}

	params, err := r.types.EncodeArgs(valuesOf(result))
	if err != nil {
		return nil, fmt.Errorf("encode result of %q: %w", call.Method, err)
	}
	return &wire.Response{Params: params}, nil
}

func (b *binding) invoke(ctx context.Context, args []Value) (result Params, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("xrpc: method %q panicked: %v", b.method, rec)
		}
	}()
	return b.handler(ctx, args...)
}

// HandleRaw decodes payload, dispatches it and encodes the response. It
// is the RawHandler listeners are served with.
func (r *Registry) HandleRaw(ctx context.Context, method string, payload []byte) ([]byte, error) {
	call, err := r.codec.DecodeCall(payload)
	if err != nil {
		return nil, fmt.Errorf("decode call: %w", err)
	}
	if method != "" && method != call.Method {
		log.Warningf("frame names %q but envelope calls %q", method, call.Method)
	}
	log.Debugf("dispatch %s from %q", call.Method, CallerFrom(ctx))

	resp, err := r.Dispatch(ctx, call)
	if err != nil {
		return nil, err
	}
	return r.codec.EncodeResponse(resp)
}
