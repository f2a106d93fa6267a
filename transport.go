// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"sort"
	"sync"
)

// Transport types
const (
	TransportZAP  = "zap"  // Length-prefixed frames over TCP, default
	TransportGRPC = "grpc" // Unary gRPC carrying envelope bytes
	TransportHTTP = "http" // JSON-RPC 2.0 over HTTP carrying envelope text
)

// DefaultTransport is the default transport type (ZAP)
const DefaultTransport = TransportZAP

type dialFunc func(o *dialOptions) (Transport, error)
type listenFunc func(addr string, o *serverOptions) (Listener, error)

type transportEntry struct {
	dial   dialFunc
	listen listenFunc
}

var (
	transportsMu sync.RWMutex
	transports   = map[string]transportEntry{
		TransportZAP: {dialZAP, listenZAP},
	}
)

// registerTransport makes a transport selectable by name
func registerTransport(name string, dial dialFunc, listen listenFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = transportEntry{dial, listen}
}

func lookupTransport(name string) (transportEntry, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	e, ok := transports[name]
	return e, ok
}

// AvailableTransports returns the sorted list of transport types
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	_, ok := lookupTransport(name)
	return ok
}
