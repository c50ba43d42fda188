// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command mimic is the CLI for the behavioral cloning toolkit: it
// inspects recorded trajectory sets, flattens them into transition
// batches for training, and evaluates the hypothesis-matching loss
// between expert and predicted batches.
//
// Usage:
//
//	mimic stats trajectories.json
//	mimic flatten trajectories.json transitions.json
//	mimic loss --expert expert.json --predicted predicted.json --config config.yaml
package main

import (
	"os"

	"github.com/AleutianAI/AleutianMimic/pkg/logging"
)

var logger *logging.Logger

func main() {
	logger = logging.Default()
	defer logger.Close()
	logger.SetAsDefault()

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(CLIExitError)
	}
}
