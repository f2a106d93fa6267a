// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType   = errors.New("xrpc: unsupported type")
	ErrDuplicateKey      = errors.New("xrpc: duplicate key")
	ErrDuplicateKind     = errors.New("xrpc: duplicate kind in type table")
	ErrTransport         = errors.New("xrpc: transport error")
	ErrNotRegistered     = errors.New("xrpc: method not registered")
	ErrAlreadyRegistered = errors.New("xrpc: method already registered")
	ErrUnauthorized      = errors.New("xrpc: caller not authorized")
)

// RemoteError is a failure the peer reported while dispatching a call.
// It matches ErrTransport and, when the peer reported one, the sentinel
// in Cause.
type RemoteError struct {
	Peer    string
	Method  string
	Message string
	Cause   error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("xrpc: %s on %s failed: %s", e.Method, e.Peer, e.Message)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrTransport
}

func (e *RemoteError) Unwrap() error { return e.Cause }

// remoteClasses are the failures a peer reports by class. Class i+1 on
// the wire is remoteClasses[i]; class 0 carries no sentinel.
var remoteClasses = [...]error{
	ErrNotRegistered,
	ErrUnauthorized,
	ErrUnsupportedType,
	ErrDuplicateKey,
}

func errorClass(err error) uint8 {
	for i, sentinel := range remoteClasses {
		if errors.Is(err, sentinel) {
			return uint8(i + 1)
		}
	}
	return 0
}

func classError(class uint8) error {
	if class == 0 || int(class) > len(remoteClasses) {
		return nil
	}
	return remoteClasses[class-1]
}

func transportError(err error) error {
	if errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
