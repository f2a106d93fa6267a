// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrZAPClosed      = errors.New("zap: connection closed")
	ErrZAPInvalidResp = errors.New("zap: invalid response")
)

const zapMaxFrame = 64 * 1024 * 1024 // 64MB

// MessageType identifies ZAP message types
type MessageType uint8

const (
	MsgRequest  MessageType = 0x01
	MsgResponse MessageType = 0x02
	MsgError    MessageType = 0x03
)

// ZAPConn is a client connection to one peer. Calls are multiplexed by
// request id and may complete in any order.
type ZAPConn struct {
	conn     net.Conn
	peer     string
	writeMu  sync.Mutex
	pending  sync.Map // requestID -> chan *ZAPResponse
	nextID   atomic.Uint32
	closed   atomic.Bool
	readDone chan struct{}
}

// ZAPResponse holds a response from a ZAP call
type ZAPResponse struct {
	Data []byte
	Err  error
}

// ZAPDial connects to a ZAP server
func ZAPDial(ctx context.Context, addr string) (*ZAPConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("zap dial: %w", err)
	}

	zc := &ZAPConn{
		conn:     conn,
		peer:     addr,
		readDone: make(chan struct{}),
	}
	go zc.readLoop()
	return zc, nil
}

// Call sends one request frame and waits for the matching response.
func (z *ZAPConn) Call(ctx context.Context, method string, payload []byte) ([]byte, error) {
	if z.closed.Load() {
		return nil, ErrZAPClosed
	}
	if len(method) > math.MaxUint16 {
		return nil, fmt.Errorf("zap: method name of %d bytes exceeds %d", len(method), math.MaxUint16)
	}

	requestID := z.nextID.Add(1)
	respCh := make(chan *ZAPResponse, 1)
	z.pending.Store(requestID, respCh)
	defer z.pending.Delete(requestID)

	// [1 type][4 reqID][2 methodLen][method][payload]
	body := make([]byte, 7, 7+len(method)+len(payload))
	body[0] = byte(MsgRequest)
	binary.BigEndian.PutUint32(body[1:5], requestID)
	binary.BigEndian.PutUint16(body[5:7], uint16(len(method)))
	body = append(body, method...)
	body = append(body, payload...)

	z.writeMu.Lock()
	err := writeFrame(z.conn, body)
	z.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("zap write: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-respCh:
		if resp.Err != nil {
			return nil, resp.Err
		}
		return resp.Data, nil
	case <-z.readDone:
		return nil, ErrZAPClosed
	}
}

func (z *ZAPConn) readLoop() {
	defer close(z.readDone)

	for {
		msg, err := readFrame(z.conn)
		if err != nil {
			return
		}
		if len(msg) < 5 {
			continue
		}

		msgType := MessageType(msg[0])
		requestID := binary.BigEndian.Uint32(msg[1:5])
		payload := msg[5:]

		ch, ok := z.pending.Load(requestID)
		if !ok {
			continue
		}
		respCh := ch.(chan *ZAPResponse)
		switch msgType {
		case MsgResponse:
			respCh <- &ZAPResponse{Data: payload}
		case MsgError:
			// [1 class][message]
			if len(payload) < 1 {
				respCh <- &ZAPResponse{Err: ErrZAPInvalidResp}
				continue
			}
			respCh <- &ZAPResponse{Err: &RemoteError{
				Peer:    z.peer,
				Message: string(payload[1:]),
				Cause:   classError(payload[0]),
			}}
		default:
			respCh <- &ZAPResponse{Err: ErrZAPInvalidResp}
		}
	}
}

// Done is closed once the connection stops reading
func (z *ZAPConn) Done() <-chan struct{} {
	return z.readDone
}

// Close closes the connection
func (z *ZAPConn) Close() error {
	if z.closed.Swap(true) {
		return nil
	}
	return z.conn.Close()
}

func writeFrame(w io.Writer, body []byte) error {
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(body)))
	copy(buf[4:], body)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	msgLen := binary.BigEndian.Uint32(header[:])
	if msgLen == 0 || msgLen > zapMaxFrame {
		return nil, fmt.Errorf("zap: frame length %d out of range", msgLen)
	}
	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// zapTransport keeps one ZAPConn per peer address and redials peers
// whose connection has dropped.
type zapTransport struct {
	mu    sync.Mutex
	conns map[string]*ZAPConn
}

func dialZAP(o *dialOptions) (Transport, error) {
	return &zapTransport{conns: make(map[string]*ZAPConn)}, nil
}

func (t *zapTransport) conn(ctx context.Context, peer string) (*ZAPConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conns == nil {
		return nil, ErrZAPClosed
	}
	if zc, ok := t.conns[peer]; ok {
		select {
		case <-zc.Done():
			zc.Close()
			delete(t.conns, peer)
		default:
			return zc, nil
		}
	}
	zc, err := ZAPDial(ctx, peer)
	if err != nil {
		return nil, err
	}
	t.conns[peer] = zc
	return zc, nil
}

func (t *zapTransport) Send(ctx context.Context, peer, method string, payload []byte) ([]byte, error) {
	zc, err := t.conn(ctx, peer)
	if err != nil {
		return nil, err
	}
	resp, err := zc.Call(ctx, method, payload)
	var remote *RemoteError
	if errors.As(err, &remote) {
		remote.Method = method
	}
	return resp, err
}

func (t *zapTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, zc := range t.conns {
		zc.Close()
	}
	t.conns = nil
	return nil
}

// ZAPServer handles incoming ZAP RPC requests
type ZAPServer struct {
	listener net.Listener
	handler  RawHandler
	conns    sync.Map
	closed   atomic.Bool
}

// NewZAPServer creates a new ZAP server
func NewZAPServer(listener net.Listener, handler RawHandler) *ZAPServer {
	return &ZAPServer{
		listener: listener,
		handler:  handler,
	}
}

// Serve accepts connections until ctx is cancelled or the server closed.
func (s *ZAPServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("zap accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *ZAPServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	s.conns.Store(conn, struct{}{})
	defer s.conns.Delete(conn)

	ctx = WithCaller(ctx, conn.RemoteAddr().String())
	var writeMu sync.Mutex

	for {
		msg, err := readFrame(conn)
		if err != nil {
			return
		}
		if len(msg) < 7 || MessageType(msg[0]) != MsgRequest {
			continue
		}
		requestID := binary.BigEndian.Uint32(msg[1:5])
		methodLen := int(binary.BigEndian.Uint16(msg[5:7]))
		if len(msg) < 7+methodLen {
			continue
		}
		method := string(msg[7 : 7+methodLen])
		payload := msg[7+methodLen:]

		go func() {
			respData, err := s.handler(ctx, method, payload)
			writeMu.Lock()
			defer writeMu.Unlock()
			s.sendResponse(conn, requestID, respData, err)
		}()
	}
}

func (s *ZAPServer) sendResponse(conn net.Conn, requestID uint32, data []byte, err error) {
	msgType, payload := MsgResponse, data
	if err != nil {
		msgType = MsgError
		payload = append([]byte{errorClass(err)}, err.Error()...)
	}

	body := make([]byte, 5, 5+len(payload))
	body[0] = byte(msgType)
	binary.BigEndian.PutUint32(body[1:5], requestID)
	body = append(body, payload...)

	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	if err := writeFrame(conn, body); err != nil {
		log.Warningf("zap: response to %s dropped: %v", conn.RemoteAddr(), err)
	}
}

// Close closes the server
func (s *ZAPServer) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.conns.Range(func(key, _ interface{}) bool {
		key.(net.Conn).Close()
		return true
	})
	return s.listener.Close()
}

// Addr returns the listener address
func (s *ZAPServer) Addr() net.Addr {
	return s.listener.Addr()
}

// zapListener adapts ZAPServer to Listener
type zapListener struct {
	listener net.Listener
	server   atomic.Pointer[ZAPServer]
}

func listenZAP(addr string, o *serverOptions) (Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &zapListener{listener: listener}, nil
}

func (l *zapListener) Serve(ctx context.Context, h RawHandler) error {
	s := NewZAPServer(l.listener, h)
	if !l.server.CompareAndSwap(nil, s) {
		return errors.New("zap: already serving")
	}
	return s.Serve(ctx)
}

func (l *zapListener) Close() error {
	if s := l.server.Load(); s != nil {
		return s.Close()
	}
	return l.listener.Close()
}

func (l *zapListener) Addr() string {
	return l.listener.Addr().String()
}
