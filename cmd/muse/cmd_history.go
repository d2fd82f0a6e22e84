/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/friendsincode/muse/internal/history"
	"github.com/friendsincode/muse/internal/store"
)

var historyCount int

var historyCmd = &cobra.Command{
	Use:   "history [bucket]",
	Short: "Print recently played history from the store",
	Long: `Print one recently played bucket, most recent first.

Buckets: files, albums, artists, composers, genres, forms, instruments.
Use "played" for the detailed playlist log.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 20, "Number of entries to print (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cmd); err != nil {
		return err
	}
	bucket := string(history.BucketFiles)
	if len(args) == 1 {
		bucket = args[0]
	}

	st, closeStore, err := store.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	var values []string
	if bucket == "played" {
		played := history.NewPlayedLog(cfg.HistoryCapacity)
		if err := played.Restore(cmd.Context(), st); err != nil {
			return fmt.Errorf("restore played log: %w", err)
		}
		values = played.Details()
	} else {
		if !slices.Contains(history.AllBuckets(), history.Bucket(bucket)) {
			return fmt.Errorf("unknown bucket %q", bucket)
		}
		h := history.New(cfg.HistoryCapacity)
		if err := h.Restore(cmd.Context(), st); err != nil {
			return fmt.Errorf("restore history: %w", err)
		}
		values = h.Snapshot(history.Bucket(bucket))
	}

	if historyCount > 0 && historyCount < len(values) {
		values = values[:historyCount]
	}
	out := cmd.OutOrStdout()
	for i, v := range values {
		fmt.Fprintf(out, "%3d. %s\n", i+1, v)
	}
	return nil
}
