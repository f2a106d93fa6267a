// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func echoHandler(ctx context.Context, args ...Value) (Params, error) {
	return Many(args...), nil
}

func startServer(t testing.TB, ctx context.Context, opts ...ServerOption) *Server {
	t.Helper()
	server, err := Listen("127.0.0.1:0", opts...)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	go server.Serve(ctx)
	return server
}

func TestZAPRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := startServer(t, ctx)
	if _, err := server.Register("echo", echoHandler); err != nil {
		t.Fatalf("Register: %v", err)
	}

	client, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	args := []Value{
		Int(2),
		String("hello world"),
		Map{{Key: "a", Value: Int(1)}, {Key: "b", Value: List{Bool(true), String("x")}}},
	}
	got, err := client.CallMethod(ctx, server.Addr(), "echo", Many(args...))
	if err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
	if !EqualValues(got, args) {
		t.Errorf("got %#v, want %#v", got, args)
	}
}

func TestZAPConcurrentCalls(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := startServer(t, ctx)
	server.Register("double", func(ctx context.Context, args ...Value) (Params, error) {
		return Single(args[0].(Int) * 2), nil
	})

	client, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	errs := make(chan error, 32)
	for i := 0; i < cap(errs); i++ {
		go func(n int) {
			got, err := client.CallMethod(ctx, server.Addr(), "double", Single(Int(n)))
			if err == nil && (len(got) != 1 || !Equal(got[0], Int(2*n))) {
				err = errors.New("wrong result")
			}
			errs <- err
		}(i)
	}
	for i := 0; i < cap(errs); i++ {
		if err := <-errs; err != nil {
			t.Fatalf("call: %v", err)
		}
	}
}

func TestZAPRemoteFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := startServer(t, ctx)
	client, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	_, err = client.CallMethod(ctx, server.Addr(), "missing", Many())
	if !errors.Is(err, ErrTransport) || !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrTransport and ErrNotRegistered", err)
	}
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %T, want *RemoteError", err)
	}
	if remote.Method != "missing" || !strings.Contains(remote.Message, "not registered") {
		t.Errorf("unexpected remote error %+v", remote)
	}
}

func TestZAPRemoteFailureClasses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := startServer(t, ctx)
	server.Register("deny", echoHandler, WithAuthorization(func(string) bool { return false }))
	server.Register("fail", func(ctx context.Context, args ...Value) (Params, error) {
		return nil, errors.New("disk on fire")
	})

	client, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	_, err = client.CallMethod(ctx, server.Addr(), "deny", Many())
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, ErrTransport) {
		t.Errorf("deny: err = %v, want ErrUnauthorized and ErrTransport", err)
	}
	if errors.Is(err, ErrNotRegistered) {
		t.Errorf("deny: err = %v matches ErrNotRegistered", err)
	}

	_, err = client.CallMethod(ctx, server.Addr(), "fail", Many())
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Cause != nil {
		t.Errorf("fail: err = %v, want unclassified *RemoteError", err)
	}
	if !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("fail: message lost in %q", err)
	}
}

func TestZAPMethodNameTooLong(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := startServer(t, ctx)
	zc, err := ZAPDial(ctx, server.Addr())
	if err != nil {
		t.Fatalf("ZAPDial: %v", err)
	}
	defer zc.Close()

	if _, err := zc.Call(ctx, strings.Repeat("m", 1<<16), nil); err == nil {
		t.Fatal("Call accepted a method name longer than the length field")
	}
}

func TestZAPUnreachablePeer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := server.Addr()
	server.Close()

	client, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if _, err := client.CallMethod(ctx, addr, "echo", Many()); !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func BenchmarkZAPRoundTrip(b *testing.B) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := startServer(b, ctx)
	server.Register("echo", echoHandler)

	client, err := NewClient()
	if err != nil {
		b.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	args := Many(String(strings.Repeat("x", 1024)), Int(42))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := client.CallMethod(ctx, server.Addr(), "echo", args); err != nil {
			b.Fatal(err)
		}
	}
}
