// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Halcyon Vision

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/halcyonvision/fathom/internal/config"
	"github.com/halcyonvision/fathom/internal/logger"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "fathom",
	Short: "Depth camera flash and firmware tool",
	Long: `Fathom - command transport and firmware-update tool for depth cameras.

Talks to the camera's on-board microcontroller over a serial port or a
WebSocket bridge, and drives flash backup, firmware update, and DFU
transitions.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the FATHOM_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell
history.

Defaults for connection and journal settings can be placed in fathom.yaml
(current directory or ~/.fathom/).`,
	Version: "1.2.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Init()
		if portName == "" {
			portName = cfg.Port
		}
		if !cmd.Flags().Changed("baud") && cfg.Baud != 0 {
			baudRate = cfg.Baud
		}
		if wsURL == "" {
			wsURL = cfg.URL
		}
		if wsUsername == "" {
			wsUsername = cfg.Username
		}
		return logger.Init(cfg.LogPath, cfg.LogLevel)
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
