// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Halcyon Vision

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonvision/fathom/internal/logger"
	"github.com/halcyonvision/fathom/pkg/hwmon"
	"github.com/halcyonvision/fathom/pkg/update"
)

var dfuCmd = &cobra.Command{
	Use:   "dfu",
	Short: "Switch the device into firmware-update (DFU) state",
	Long: `Ask the device to drop into its firmware-update state.

The device disconnects and re-enumerates as an update target, so this
command waits for the current connection to disappear rather than for a
protocol reply. It always exits successfully; if the device does not
disappear within the wait window a warning is logged and the device is
assumed to have switched anyway.`,
	RunE: runDFU,
}

func init() {
	rootCmd.AddCommand(dfuCmd)
}

func runDFU(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	mon := hwmon.NewMonitor(conn, logger.L)
	u := update.New(mon,
		update.WithLogger(logger.L),
		update.WithPresenceProber(func() bool { return serialPresent(portName) }),
	)

	fmt.Printf("Connection: %s\n", connInfo)
	u.EnterUpdateState(cmd.Context())
	fmt.Println("Device switched to firmware-update state.")
	return nil
}
