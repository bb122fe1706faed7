// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Halcyon Vision

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonvision/fathom/internal/config"
	"github.com/halcyonvision/fathom/internal/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent update and backup sessions",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := journal.Open(config.Get().JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %v", err)
	}
	defer store.Close()

	sessions, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No recorded sessions.")
		return nil
	}

	fmt.Printf("%-19s  %-7s  %-8s  %-9s  %10s  %s\n",
		"STARTED", "OP", "MODE", "STATUS", "BYTES", "CONNECTION")
	for _, s := range sessions {
		mode := s.Mode
		if mode == "" {
			mode = "-"
		}
		fmt.Printf("%-19s  %-7s  %-8s  %-9s  %10d  %s\n",
			s.StartedAt.Format("2006-01-02 15:04:05"), s.Operation, mode, s.Status, s.ImageBytes, s.Connection)
		if s.Error != "" {
			fmt.Printf("    error: %s\n", s.Error)
		}
	}
	return nil
}
