// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision
//
// Fathom - depth camera flash and firmware tool.

package main

import (
	"os"

	"github.com/halcyonvision/fathom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
