// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package xrpc

import (
	"testing"

	"github.com/op/go-logging"
)

func TestDefaultLogLevel(t *testing.T) {
	if got := logging.GetLevel("xrpc"); got != logging.WARNING {
		t.Errorf("default level = %s, want WARNING", got)
	}
	if log.IsEnabledFor(logging.NOTICE) {
		t.Error("notices are logged before SetupLogging")
	}
	if !log.IsEnabledFor(logging.ERROR) {
		t.Error("errors are dropped before SetupLogging")
	}
}
