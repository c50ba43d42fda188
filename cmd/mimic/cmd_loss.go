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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMimic/services/config"
	"github.com/AleutianAI/AleutianMimic/services/matching"
)

func runLossCommand(cmd *cobra.Command, args []string) {
	if err := runLoss(cmd.Context(), os.Stdout, expertPath, predictedPath, configPath); err != nil {
		logger.Error("loss evaluation failed", "error", err)
		os.Exit(CLIExitError)
	}
}

// loadBatch reads a hypothesis batch from a JSON file. The expected
// shape is [batch][hypotheses][dims].
func loadBatch(path string) ([][][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var batch [][][]float64
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}
	return batch, nil
}

// defaultLossConfig builds a usable configuration from the batch shape
// when no config file is given: all but the trailing duration value are
// treated as position control points.
func defaultLossConfig(expert [][][]float64) (matching.Config, error) {
	if len(expert) == 0 || len(expert[0]) == 0 || len(expert[0][0]) < 2 {
		return matching.Config{}, fmt.Errorf("expert batch too small to infer hypothesis layout")
	}
	return matching.Config{
		PosCtrlPoints: len(expert[0][0]) - 1,
		YawScaling:    1.0,
		Strategy:      matching.StrategyExact,
	}, nil
}

// runLoss evaluates the matching loss between two hypothesis batches
// and writes the diagnostics.
func runLoss(ctx context.Context, w io.Writer, expertPath, predictedPath, configPath string) error {
	expert, err := loadBatch(expertPath)
	if err != nil {
		return err
	}
	predicted, err := loadBatch(predictedPath)
	if err != nil {
		return err
	}

	var cfg matching.Config
	if configPath != "" {
		training, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = training.Matching
	} else {
		cfg, err = defaultLossConfig(expert)
		if err != nil {
			return err
		}
	}
	cfg.ComputeDiagnostics = true

	result, err := matching.ComputeLoss(ctx, cfg, expert, predicted)
	if err != nil {
		return fmt.Errorf("compute loss: %w", err)
	}

	if outputJSON {
		return writeJSON(w, "loss", result.Diagnostics)
	}
	writeMetrics(w, result.Diagnostics)
	return nil
}
