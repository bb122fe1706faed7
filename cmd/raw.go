// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Halcyon Vision

package cmd

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/halcyonvision/fathom/internal/logger"
	"github.com/halcyonvision/fathom/pkg/hwmon"
)

var (
	rawParams  []int32
	rawDataHex string
	rawFrame   bool
)

var rawCmd = &cobra.Command{
	Use:   "raw <opcode>",
	Short: "Send a single command and print the raw response",
	Long: `Send one framed command to the device and hex-dump the response payload.

The opcode is parsed as decimal or, with an 0x prefix, hexadecimal. Up to
four signed parameters can be given with --param; an optional payload is
supplied as a hex string with --data.

With --frame, the single argument is instead a hex string of a complete
pre-built frame (magic, header, payload, CRC) that is sent verbatim and the
response returned without opcode checking. Useful for exercising vendor
commands the tool does not know about.

Example:
  fathom raw 0x10 --port /dev/ttyUSB0
  fathom raw 0x09 --param 0 --param 256 --port /dev/ttyUSB0`,
	Args: cobra.ExactArgs(1),
	RunE: runRaw,
}

func init() {
	rawCmd.Flags().Int32SliceVar(&rawParams, "param", nil, "Command parameter (repeat up to 4 times)")
	rawCmd.Flags().StringVar(&rawDataHex, "data", "", "Payload as a hex string")
	rawCmd.Flags().BoolVar(&rawFrame, "frame", false, "Treat the argument as a complete frame in hex")
	rootCmd.AddCommand(rawCmd)
}

func runRaw(cmd *cobra.Command, args []string) error {
	if rawFrame {
		return runRawFrame(cmd, args[0])
	}

	op, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid opcode %q: %v", args[0], err)
	}
	if len(rawParams) > 4 {
		return fmt.Errorf("at most 4 parameters allowed, got %d", len(rawParams))
	}

	var data []byte
	if rawDataHex != "" {
		data, err = hex.DecodeString(rawDataHex)
		if err != nil {
			return fmt.Errorf("invalid payload hex: %v", err)
		}
	}

	c := hwmon.Command{
		Opcode:          hwmon.Opcode(op),
		Data:            data,
		RequireResponse: true,
	}
	params := []*int32{&c.Param1, &c.Param2, &c.Param3, &c.Param4}
	for i, v := range rawParams {
		*params[i] = v
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	mon := hwmon.NewMonitor(conn, logger.L)
	payload, err := mon.Send(cmd.Context(), c)
	if err != nil {
		return err
	}

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Response (%d bytes):\n", len(payload))
	if len(payload) > 0 {
		fmt.Print(hex.Dump(payload))
	}
	return nil
}

func runRawFrame(cmd *cobra.Command, frameHex string) error {
	frame, err := hex.DecodeString(frameHex)
	if err != nil {
		return fmt.Errorf("invalid frame hex: %v", err)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	mon := hwmon.NewMonitor(conn, logger.L)
	payload, err := mon.RawSend(cmd.Context(), frame)
	if err != nil {
		return err
	}

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Response (%d bytes):\n", len(payload))
	if len(payload) > 0 {
		fmt.Print(hex.Dump(payload))
	}
	return nil
}
