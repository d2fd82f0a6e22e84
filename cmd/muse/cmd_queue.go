/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/friendsincode/muse/internal/master"
	"github.com/friendsincode/muse/internal/server"
)

var (
	queueCount   int
	queueAdvance bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Print the upcoming tracks",
	Long: `Assemble the sources and print the tracks the master would play next.

Examples:
  # Show the next ten tracks
  muse queue -n 10

  # Play the next five tracks, recording them in the history store
  muse queue -n 5 --advance
`,
	RunE: runQueue,
}

func init() {
	queueCmd.Flags().IntVarP(&queueCount, "count", "n", 10, "Number of tracks to print")
	queueCmd.Flags().BoolVar(&queueAdvance, "advance", false, "Advance the master and persist the played tracks")
	rootCmd.AddCommand(queueCmd)
}

func runQueue(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cmd); err != nil {
		return err
	}
	if queueCount < 1 {
		return fmt.Errorf("count must be positive, got %d", queueCount)
	}

	srv, err := server.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("cleanup failed")
		}
	}()

	m := srv.Station().Master
	out := cmd.OutOrStdout()
	if !queueAdvance {
		for i, sel := range m.Upcoming(queueCount) {
			printSelection(out, i+1, sel)
		}
		return nil
	}

	for i := 0; i < queueCount; i++ {
		sel, ok := m.Next(cmd.Context())
		if !ok {
			fmt.Fprintln(out, "-- all sources exhausted")
			break
		}
		printSelection(out, i+1, sel)
	}
	return nil
}

func printSelection(w io.Writer, n int, sel master.Selection) {
	source := sel.Source
	if sel.Override {
		source = "override"
	}
	if sel.Boundary != nil {
		fmt.Fprintf(w, "   == %s\n", sel.Boundary.New)
	}
	fmt.Fprintf(w, "%3d. [%s] %s\n", n, source, sel.Track.Detail())
}
