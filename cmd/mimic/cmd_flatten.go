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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMimic/services/rollout"
)

func runFlattenCommand(cmd *cobra.Command, args []string) {
	if err := runFlatten(args[0], args[1], excludeInfos); err != nil {
		logger.Error("flatten failed", "input", args[0], "output", args[1], "error", err)
		os.Exit(CLIExitError)
	}
}

// runFlatten loads a trajectory set, flattens it into one transitions
// batch, and writes the batch as JSON to outPath.
func runFlatten(inPath, outPath string, stripInfos bool) error {
	trajectories, err := rollout.LoadTrajectories(inPath)
	if err != nil {
		return fmt.Errorf("load trajectories: %w", err)
	}

	transitions := rollout.FlattenTrajectories(trajectories)
	if stripInfos {
		transitions.Infos = nil
	}

	data, err := json.Marshal(transitions)
	if err != nil {
		return fmt.Errorf("encode transitions: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write transitions: %w", err)
	}

	logger.Info("flattened trajectories",
		"n_traj", len(trajectories),
		"n_transitions", transitions.Len(),
		"output", outPath,
	)
	return nil
}
