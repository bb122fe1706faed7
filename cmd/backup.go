// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Halcyon Vision

package cmd

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/halcyonvision/fathom/internal/config"
	"github.com/halcyonvision/fathom/internal/journal"
	"github.com/halcyonvision/fathom/internal/logger"
	"github.com/halcyonvision/fathom/pkg/hwmon"
	"github.com/halcyonvision/fathom/pkg/update"
)

// backupManifest is the CBOR sidecar written next to a flash dump. It ties
// the dump to the session that produced it so old dumps stay auditable.
type backupManifest struct {
	ID         string    `cbor:"id"`
	Connection string    `cbor:"connection"`
	Size       int       `cbor:"size"`
	SHA256     []byte    `cbor:"sha256"`
	CreatedAt  time.Time `cbor:"created_at"`
}

var backupCmd = &cobra.Command{
	Use:   "backup <output-file>",
	Short: "Read the entire device flash into a file",
	Long: `Dump the full flash contents to a file.

The flash is read in small chunks with per-chunk retries, so a transient
communication glitch does not abort the dump. A CBOR manifest with the
dump's checksum and origin is written alongside as <output-file>.manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
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

	sess, err := store.Begin(journal.OpBackup, "", connInfo, 0)
	if err != nil {
		return fmt.Errorf("record session: %v", err)
	}

	mon := hwmon.NewMonitor(conn, logger.L)
	u := update.New(mon, update.WithLogger(logger.L))

	var img []byte
	opErr := runWithProgress(cmd.Context(), "Backing up flash",
		func(ctx context.Context, p update.ProgressFunc) error {
			var err error
			img, err = u.Backup(ctx, p)
			return err
		})

	if opErr == nil {
		sess.ImageBytes = len(img)
		opErr = writeBackup(args[0], img, connInfo)
	}

	if err := store.Finish(sess, opErr); err != nil {
		logger.L.Warn().Err(err).Msg("failed to record session result")
	}
	if opErr != nil {
		return opErr
	}

	fmt.Printf("Wrote %d bytes to %s\n", len(img), args[0])
	return nil
}

func writeBackup(path string, img []byte, connInfo string) error {
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return err
	}

	sum := sha256.Sum256(img)
	manifest := backupManifest{
		ID:         uuid.NewString(),
		Connection: connInfo,
		Size:       len(img),
		SHA256:     sum[:],
		CreatedAt:  time.Now().UTC(),
	}
	blob, err := cbor.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %v", err)
	}
	return os.WriteFile(path+".manifest", blob, 0o644)
}
