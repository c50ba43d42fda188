// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rollout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// SaveTrajectories persists trajectories as a JSON list. With
// excludeInfos set, the per-step info records are stripped first; they
// dominate the on-disk size and are rarely needed downstream.
func SaveTrajectories(path string, trajectories []Trajectory, excludeInfos bool) error {
	if excludeInfos {
		stripped := make([]Trajectory, len(trajectories))
		for i, t := range trajectories {
			t.Infos = nil
			stripped[i] = t
		}
		trajectories = stripped
	}

	data, err := json.Marshal(trajectories)
	if err != nil {
		return fmt.Errorf("encoding trajectories: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadTrajectories reads a JSON trajectory list written by
// SaveTrajectories and revalidates the length invariant of every
// record. A file that fails the invariant was not produced by this
// package and is rejected rather than trusted.
func LoadTrajectories(path string) ([]Trajectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var trajectories []Trajectory
	if err := json.Unmarshal(data, &trajectories); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	for i := range trajectories {
		t := &trajectories[i]
		if len(t.Obs) != len(t.Acts)+1 || len(t.Rews) != len(t.Acts) {
			return nil, fmt.Errorf("decoding %s: trajectory %d field lengths disagree: obs=%d acts=%d rews=%d",
				path, i, len(t.Obs), len(t.Acts), len(t.Rews))
		}
	}
	return trajectories, nil
}

// RolloutAndSave generates trajectories with the driver and persists
// them, logging summary statistics first. Infos are excluded by
// default; pass excludeInfos=false to keep them.
func (d *Driver) RolloutAndSave(ctx context.Context, path string, excludeInfos bool) error {
	trajectories, err := d.GenerateTrajectories(ctx)
	if err != nil {
		return err
	}

	stats, err := Stats(trajectories)
	if err != nil {
		return err
	}
	slog.Info("saving rollout",
		slog.String("path", path),
		slog.Int("trajectories", len(trajectories)),
		slog.Float64("return_mean", stats["return_mean"]),
		slog.Float64("len_mean", stats["len_mean"]),
	)

	return SaveTrajectories(path, trajectories, excludeInfos)
}
