// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/rpc/v2/json2"
)

func TestHTTPRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := startServer(t, ctx, WithServerTransport(TransportHTTP))
	server.Register("greet", func(ctx context.Context, args ...Value) (Params, error) {
		return Single(String("hello " + string(args[0].(String)))), nil
	})

	client, err := NewClient(WithTransport(TransportHTTP))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	got, err := client.CallMethod(ctx, server.Addr(), "greet", Single(String("agent")))
	if err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
	if !EqualValues(got, []Value{String("hello agent")}) {
		t.Errorf("got %#v", got)
	}

	// full URLs are accepted as peer addresses too
	got, err = client.CallMethod(ctx, "http://"+server.Addr()+httpPath, "greet", Single(String("url")))
	if err != nil {
		t.Fatalf("CallMethod by URL: %v", err)
	}
	if !EqualValues(got, []Value{String("hello url")}) {
		t.Errorf("got %#v", got)
	}
}

func TestHTTPRemoteFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := startServer(t, ctx, WithServerTransport(TransportHTTP))
	server.Register("deny", echoHandler, WithAuthorization(func(string) bool { return false }))

	client, err := NewClient(WithTransport(TransportHTTP))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	_, err = client.CallMethod(ctx, server.Addr(), "deny", Many())
	var remote *RemoteError
	if !errors.As(err, &remote) || !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want *RemoteError", err)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	if !strings.Contains(remote.Message, "not authorized") {
		t.Errorf("message = %q", remote.Message)
	}

	_, err = client.CallMethod(ctx, server.Addr(), "missing", Many())
	if !errors.Is(err, ErrNotRegistered) || !errors.Is(err, ErrTransport) {
		t.Errorf("missing: err = %v, want ErrNotRegistered and ErrTransport", err)
	}
}

func TestHTTPErrorClass(t *testing.T) {
	for _, sentinel := range remoteClasses {
		code := json2.E_SERVER - json2.ErrorCode(errorClass(sentinel))
		if got := httpErrorClass(code); got != sentinel {
			t.Errorf("class of %v came back as %v", sentinel, got)
		}
	}
	for _, code := range []json2.ErrorCode{json2.E_SERVER, json2.E_PARSE, json2.E_NO_METHOD, json2.E_SERVER + 1} {
		if got := httpErrorClass(code); got != nil {
			t.Errorf("httpErrorClass(%d) = %v, want nil", code, got)
		}
	}
}

func TestPeerURL(t *testing.T) {
	if got := peerURL("127.0.0.1:80"); got != "http://127.0.0.1:80/xrpc" {
		t.Errorf("got %q", got)
	}
	if got := peerURL("https://peer.example.org/rpc"); got != "https://peer.example.org/rpc" {
		t.Errorf("got %q", got)
	}
}

func TestAvailableTransports(t *testing.T) {
	got := strings.Join(AvailableTransports(), ",")
	if got != "grpc,http,zap" {
		t.Errorf("AvailableTransports() = %s", got)
	}
	if HasTransport("carrier-pigeon") {
		t.Error("unknown transport reported available")
	}
	if _, err := NewClient(WithTransport("carrier-pigeon")); err == nil {
		t.Error("NewClient accepted an unknown transport")
	}
	if _, err := Listen(":0", WithServerTransport("carrier-pigeon")); err == nil {
		t.Error("Listen accepted an unknown transport")
	}
}
