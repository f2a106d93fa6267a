// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"github.com/fatih/color"
)

func Cyan(s string) string {
	return color.New(color.FgHiCyan).SprintFunc()(s)
}

func Green(s string) string {
	return color.New(color.FgHiGreen).SprintFunc()(s)
}

func Red(s string) string {
	return color.New(color.FgHiRed).SprintFunc()(s)
}
