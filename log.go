// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("xrpc")

// Until SetupLogging runs, the package only reports warnings and worse.
func init() {
	logging.SetLevel(logging.WARNING, "xrpc")
}

var stderrFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} %{module} ▶ %{message}%{color:reset}`,
)

// SetupLogging routes package logs to stderr. The level comes from
// XRPC_LOG_LEVEL (CRITICAL, ERROR, WARNING, NOTICE, INFO, DEBUG) and falls
// back to defaultLevel. It replaces the go-logging backend, which also
// drops the WARNING default installed at init.
func SetupLogging(prefix string, defaultLevel logging.Level) *logging.Logger {
	backend := logging.NewLogBackend(os.Stderr, prefix, 0)
	formatted := logging.NewBackendFormatter(backend, stderrFormat)
	leveled := logging.AddModuleLevel(formatted)

	level := defaultLevel
	if env := os.Getenv("XRPC_LOG_LEVEL"); env != "" {
		if parsed, err := logging.LogLevel(env); err == nil {
			level = parsed
		}
	}
	leveled.SetLevel(level, "")

	logging.SetBackend(leveled)
	return log
}
