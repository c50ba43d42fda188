// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMimic/services/rollout"
)

func runStatsCommand(cmd *cobra.Command, args []string) {
	if err := runStats(os.Stdout, args[0]); err != nil {
		logger.Error("stats failed", "path", args[0], "error", err)
		os.Exit(CLIExitError)
	}
}

// runStats loads a trajectory set and writes its summary statistics.
func runStats(w io.Writer, path string) error {
	trajectories, err := rollout.LoadTrajectories(path)
	if err != nil {
		return fmt.Errorf("load trajectories: %w", err)
	}

	stats, err := rollout.Stats(trajectories)
	if err != nil {
		return fmt.Errorf("compute stats: %w", err)
	}

	if outputJSON {
		return writeJSON(w, "stats", stats)
	}
	writeMetrics(w, stats)
	return nil
}
