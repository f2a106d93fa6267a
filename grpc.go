// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The envelope service uses protobuf wrapper types so no generated code
// is needed. Proto equivalent:
//
//	service Envelope { rpc Call(google.protobuf.BytesValue) returns (google.protobuf.BytesValue); }
const (
	grpcServiceName = "xrpc.v1.Envelope"
	grpcCallMethod  = "/xrpc.v1.Envelope/Call"
	grpcMethodKey   = "xrpc-method"
)

func init() {
	registerTransport(TransportGRPC, dialGRPC, listenGRPC)
}

// envelopeServer is the server API of the gRPC envelope service
type envelopeServer interface {
	Call(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func _Envelope_Call_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(envelopeServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: grpcCallMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(envelopeServer).Call(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var envelopeServiceDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*envelopeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: _Envelope_Call_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "xrpc/envelope.proto",
}

// grpcEnvelopeServer hands envelopes to a RawHandler. The caller identity
// is the gRPC peer address.
type grpcEnvelopeServer struct {
	handler RawHandler
}

func (s *grpcEnvelopeServer) Call(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		ctx = WithCaller(ctx, p.Addr.String())
	}
	var method string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(grpcMethodKey); len(vals) > 0 {
			method = vals[0]
		}
	}
	out, err := s.handler(ctx, method, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(out), nil
}

// codeError is the inverse of mapErr for the failure classes.
func codeError(code codes.Code) error {
	switch code {
	case codes.NotFound:
		return ErrNotRegistered
	case codes.PermissionDenied:
		return ErrUnauthorized
	case codes.InvalidArgument:
		return ErrUnsupportedType
	case codes.FailedPrecondition:
		return ErrDuplicateKey
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrNotRegistered):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrUnsupportedType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrDuplicateKey):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}

// grpcTransport keeps one ClientConn per peer address.
type grpcTransport struct {
	mu       sync.Mutex
	conns    map[string]*grpc.ClientConn
	dialOpts []grpc.DialOption
}

func dialGRPC(o *dialOptions) (Transport, error) {
	return newGRPCTransport(grpc.WithTransportCredentials(insecure.NewCredentials())), nil
}

func newGRPCTransport(opts ...grpc.DialOption) *grpcTransport {
	return &grpcTransport{
		conns:    make(map[string]*grpc.ClientConn),
		dialOpts: opts,
	}
}

func (t *grpcTransport) conn(peer string) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conns == nil {
		return nil, errors.New("grpc: transport closed")
	}
	if cc, ok := t.conns[peer]; ok {
		return cc, nil
	}
	cc, err := grpc.NewClient(peer, t.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	t.conns[peer] = cc
	return cc, nil
}

func (t *grpcTransport) Send(ctx context.Context, peer, method string, payload []byte) ([]byte, error) {
	cc, err := t.conn(peer)
	if err != nil {
		return nil, err
	}
	ctx = metadata.AppendToOutgoingContext(ctx, grpcMethodKey, method)
	out := new(wrapperspb.BytesValue)
	if err := cc.Invoke(ctx, grpcCallMethod, wrapperspb.Bytes(payload), out); err != nil {
		if st, ok := status.FromError(err); ok && st.Code() != codes.Unavailable &&
			st.Code() != codes.Canceled && st.Code() != codes.DeadlineExceeded {
			return nil, &RemoteError{
				Peer:    peer,
				Method:  method,
				Message: st.Message(),
				Cause:   codeError(st.Code()),
			}
		}
		return nil, err
	}
	return out.GetValue(), nil
}

func (t *grpcTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, cc := range t.conns {
		errs = append(errs, cc.Close())
	}
	t.conns = nil
	return errors.Join(errs...)
}

type grpcListener struct {
	listener net.Listener
	server   *grpc.Server
}

func listenGRPC(addr string, o *serverOptions) (Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return newGRPCListener(listener), nil
}

func newGRPCListener(listener net.Listener) *grpcListener {
	return &grpcListener{listener: listener, server: grpc.NewServer()}
}

func (l *grpcListener) Serve(ctx context.Context, h RawHandler) error {
	l.server.RegisterService(&envelopeServiceDesc, &grpcEnvelopeServer{handler: h})

	stop := context.AfterFunc(ctx, l.server.Stop)
	defer stop()

	err := l.server.Serve(l.listener)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func (l *grpcListener) Close() error {
	l.server.Stop()
	if err := l.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (l *grpcListener) Addr() string {
	return l.listener.Addr().String()
}
