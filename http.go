// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	rpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
)

const (
	httpPath          = "/xrpc"
	httpServiceMethod = "Envelope.Call"
)

func init() {
	registerTransport(TransportHTTP, dialHTTP, listenHTTP)
}

// EnvelopeArgs carries an encoded call envelope inside a JSON-RPC request.
type EnvelopeArgs struct {
	Method  string `json:"method"`
	Payload string `json:"payload"`
}

// EnvelopeReply carries an encoded response envelope inside a JSON-RPC
// response.
type EnvelopeReply struct {
	Payload string `json:"payload"`
}

// EnvelopeService is the JSON-RPC service that hands envelopes to a
// RawHandler.
type EnvelopeService struct {
	handler RawHandler
}

// Call dispatches one envelope. The caller identity is the HTTP remote
// address.
func (s *EnvelopeService) Call(r *http.Request, args *EnvelopeArgs, reply *EnvelopeReply) error {
	ctx := WithCaller(r.Context(), r.RemoteAddr)
	out, err := s.handler(ctx, args.Method, []byte(args.Payload))
	if err != nil {
		return &json2.Error{
			Code:    json2.E_SERVER - json2.ErrorCode(errorClass(err)),
			Message: err.Error(),
		}
	}
	reply.Payload = string(out)
	return nil
}

// newHTTPClient creates an HTTP client without connection reuse.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// CleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
// See: https://github.com/golang/go/issues/46071
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// peerURL accepts either a full URL or a bare host:port.
func peerURL(peer string) string {
	if strings.HasPrefix(peer, "http://") || strings.HasPrefix(peer, "https://") {
		return peer
	}
	return "http://" + peer + httpPath
}

type httpTransport struct {
	client *http.Client
}

func dialHTTP(o *dialOptions) (Transport, error) {
	return &httpTransport{client: newHTTPClient()}, nil
}

func (t *httpTransport) Send(ctx context.Context, peer, method string, payload []byte) ([]byte, error) {
	body, err := json2.EncodeClientRequest(httpServiceMethod, &EnvelopeArgs{
		Method:  method,
		Payload: string(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, peerURL(peer), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to issue request: %w", err)
	}
	defer CleanlyCloseBody(resp.Body)

	var reply EnvelopeReply
	if err := json2.DecodeClientResponse(resp.Body, &reply); err != nil {
		var rpcErr *json2.Error
		if errors.As(err, &rpcErr) {
			return nil, &RemoteError{
				Peer:    peer,
				Method:  method,
				Message: rpcErr.Message,
				Cause:   httpErrorClass(rpcErr.Code),
			}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("received status code: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode client response: %w", err)
	}
	return []byte(reply.Payload), nil
}

// httpErrorClass reverses the server error codes Call assigns:
// E_SERVER minus the failure class.
func httpErrorClass(code json2.ErrorCode) error {
	class := json2.E_SERVER - code
	if class <= 0 || class > math.MaxUint8 {
		return nil
	}
	return classError(uint8(class))
}

func (t *httpTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

type httpListener struct {
	listener net.Listener
	server   *http.Server
}

func listenHTTP(addr string, o *serverOptions) (Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &httpListener{
		listener: listener,
		server:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
	}, nil
}

func (l *httpListener) Serve(ctx context.Context, h RawHandler) error {
	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	if err := s.RegisterService(&EnvelopeService{handler: h}, "Envelope"); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(httpPath, s)
	l.server.Handler = mux

	stop := context.AfterFunc(ctx, func() { l.server.Close() })
	defer stop()

	err := l.server.Serve(l.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (l *httpListener) Close() error {
	if err := l.server.Close(); err != nil {
		return err
	}
	// Serve may not have started; the listener is closed either way.
	if err := l.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (l *httpListener) Addr() string {
	return l.listener.Addr().String()
}
