// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

// Package logger holds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var L zerolog.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

// Init configures the global logger. An empty path logs to stderr; the
// level string follows zerolog's names ("trace".."error").
func Init(path, level string) error {
	var w io.Writer = os.Stderr
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w = file
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	L = log.Output(zerolog.ConsoleWriter{Out: w}).Level(lvl)
	return nil
}
