// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Halcyon Vision

package cmd

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/halcyonvision/fathom/internal/config"
	"github.com/halcyonvision/fathom/internal/journal"
	"github.com/halcyonvision/fathom/internal/logger"
	"github.com/halcyonvision/fathom/pkg/hwmon"
	"github.com/halcyonvision/fathom/pkg/update"
)

var restoreYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Write a previous flash dump back to the device",
	Long: `Restore the device flash from a dump taken with the backup command.

If a <backup-file>.manifest sidecar exists, the dump's checksum is verified
against it before anything is written. The dump is programmed as a full
image: every sector is rewritten exactly as it was captured.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	img, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := verifyManifest(args[0], img); err != nil {
		return err
	}

	if !restoreYes {
		ok, err := confirm(fmt.Sprintf("This will restore the device flash from %s (%d bytes). Continue?",
			args[0], len(img)))
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

	sess, err := store.Begin(journal.OpUpdate, update.ModeFull.String(), connInfo, len(img))
	if err != nil {
		return fmt.Errorf("record session: %v", err)
	}

	mon := hwmon.NewMonitor(conn, logger.L)
	u := update.New(mon, update.WithLogger(logger.L))

	opErr := runWithProgress(cmd.Context(), "Restoring flash",
		func(ctx context.Context, p update.ProgressFunc) error {
			return u.Update(ctx, img, update.ModeFull, p)
		})

	if err := store.Finish(sess, opErr); err != nil {
		logger.L.Warn().Err(err).Msg("failed to record session result")
	}
	if opErr != nil {
		return opErr
	}

	fmt.Println("Flash restored; device is resetting.")
	return nil
}

// verifyManifest checks img against the CBOR sidecar written by backup, if
// one is present. A missing sidecar is not an error; a corrupt or
// mismatching one is.
func verifyManifest(path string, img []byte) error {
	blob, err := os.ReadFile(path + ".manifest")
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var manifest backupManifest
	if err := cbor.Unmarshal(blob, &manifest); err != nil {
		return fmt.Errorf("decode manifest: %v", err)
	}
	if manifest.Size != len(img) {
		return fmt.Errorf("manifest size %d does not match dump size %d", manifest.Size, len(img))
	}
	sum := sha256.Sum256(img)
	if !bytes.Equal(sum[:], manifest.SHA256) {
		return fmt.Errorf("dump checksum does not match manifest (dump modified since backup?)")
	}
	return nil
}
