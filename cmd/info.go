// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Halcyon Vision

package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonvision/fathom/internal/logger"
	"github.com/halcyonvision/fathom/pkg/hwmon"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Query device version and identity",
	Long: `Read the device's version block and print the firmware version and
serial number.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	mon := hwmon.NewMonitor(conn, logger.L)
	payload, err := mon.Send(cmd.Context(), hwmon.NewVersionCommand())
	if err != nil {
		return err
	}
	if len(payload) < 4 {
		return fmt.Errorf("version block too short: %d bytes", len(payload))
	}

	fmt.Printf("Connection: %s\n", connInfo)
	// Firmware version is stored least-significant byte first
	fmt.Printf("Firmware:   %d.%d.%d.%d\n", payload[3], payload[2], payload[1], payload[0])
	if len(payload) >= 12 {
		fmt.Printf("Serial:     %s\n", hex.EncodeToString(payload[4:12]))
	}
	return nil
}
