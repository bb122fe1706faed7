// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Halcyon Vision

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halcyonvision/fathom/internal/config"
	"github.com/halcyonvision/fathom/internal/journal"
	"github.com/halcyonvision/fathom/internal/logger"
	"github.com/halcyonvision/fathom/pkg/hwmon"
	"github.com/halcyonvision/fathom/pkg/update"
)

var (
	updateModeName string
	updateYes      bool
)

var updateCmd = &cobra.Command{
	Use:   "update <image-file>",
	Short: "Write a firmware image to the device flash",
	Long: `Program a full flash image onto the device.

Modes:
  full      rewrite the entire flash with the candidate image
  update    back up the current flash first and carry its calibration
            tables into the candidate before writing (default)
  read-only like update, but also rewrite the read-only section
  alt       stream the image through the device's block-transfer protocol

After a successful write the device is reset so the new firmware boots.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVarP(&updateModeName, "mode", "m", "update", "Update mode: full, update, read-only, alt")
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	mode, err := update.ParseMode(updateModeName)
	if err != nil {
		return err
	}

	img, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	if !updateYes {
		ok, err := confirm(fmt.Sprintf("This will rewrite the device flash with %s (%d bytes, mode %s). Continue?",
			args[0], len(img), mode))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := journal.Open(config.Get().JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %v", err)
	}
	defer store.Close()

	sess, err := store.Begin(journal.OpUpdate, mode.String(), connInfo, len(img))
	if err != nil {
		return fmt.Errorf("record session: %v", err)
	}

	mon := hwmon.NewMonitor(conn, logger.L)
	u := update.New(mon,
		update.WithLogger(logger.L),
		update.WithPresenceProber(func() bool { return serialPresent(portName) }),
	)

	opErr := runWithProgress(cmd.Context(), fmt.Sprintf("Updating firmware (%s mode)", mode),
		func(ctx context.Context, p update.ProgressFunc) error {
			return u.Update(ctx, img, mode, p)
		})

	if err := store.Finish(sess, opErr); err != nil {
		logger.L.Warn().Err(err).Msg("failed to record session result")
	}
	if opErr != nil {
		return opErr
	}

	fmt.Println("Firmware update complete; device is resetting.")
	return nil
}

// confirm prompts on stdin for a yes/no answer, defaulting to no.
func confirm(prompt string) (bool, error) {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
