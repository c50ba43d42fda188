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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	outputJSON    bool
	outputCompact bool

	expertPath    string
	predictedPath string
	configPath    string
	excludeInfos  bool

	rootCmd = &cobra.Command{
		Use:   "mimic",
		Short: "A cli for trajectory collection and matching-loss evaluation",
		Long: `Mimic works with recorded demonstration trajectories: it reports
summary statistics over a trajectory set, flattens trajectories into
transition batches for training, and evaluates the multi-hypothesis
matching loss between expert and predicted batches.`,
	}

	// --- Trajectories ---
	statsCmd = &cobra.Command{
		Use:   "stats [trajectories.json]",
		Short: "Print return and length statistics for a trajectory set",
		Args:  cobra.ExactArgs(1),
		Run:   runStatsCommand, // Defined in cmd_stats.go
	}
	flattenCmd = &cobra.Command{
		Use:   "flatten [trajectories.json] [transitions.json]",
		Short: "Flatten a trajectory set into a transitions batch",
		Args:  cobra.ExactArgs(2),
		Run:   runFlattenCommand, // Defined in cmd_flatten.go
	}

	// --- Matching Loss ---
	lossCmd = &cobra.Command{
		Use:   "loss",
		Short: "Evaluate the matching loss between expert and predicted batches",
		Run:   runLossCommand, // Defined in cmd_loss.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVar(&outputCompact, "compact", false, "JSON output without indentation")

	flattenCmd.Flags().BoolVar(&excludeInfos, "exclude-infos", false, "Drop per-step info maps from the output")

	lossCmd.Flags().StringVar(&expertPath, "expert", "", "JSON file with the expert hypothesis batch")
	lossCmd.Flags().StringVar(&predictedPath, "predicted", "", "JSON file with the predicted hypothesis batch")
	lossCmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file (matching section)")
	_ = lossCmd.MarkFlagRequired("expert")
	_ = lossCmd.MarkFlagRequired("predicted")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(lossCmd)
}
