// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clonePredicted deep-copies a predicted batch so tests can perturb
// single entries.
func clonePredicted(p [][][]float64) [][][]float64 {
	out := make([][][]float64, len(p))
	for b := range p {
		out[b] = make([][]float64, len(p[b]))
		for k := range p[b] {
			out[b][k] = append([]float64(nil), p[b][k]...)
		}
	}
	return out
}

// TestComputeLoss_KnownValue checks the combined scalar against a hand
// computed batch: identical yaw and duration, positions off by one in
// each coordinate.
func TestComputeLoss_KnownValue(t *testing.T) {
	cfg := testConfig()
	cfg.YawScaling = 1.0
	cfg.ComputeDiagnostics = true

	expert := [][][]float64{{
		{0, 0, 0, 1},
		{10, 10, 0, 2},
	}}
	predicted := [][][]float64{{
		{1, 1, 0, 1},
		{9, 9, 0, 2},
	}}

	res, err := ComputeLoss(context.Background(), cfg, expert, predicted)
	require.NoError(t, err)

	// Exact matching pairs each expert with the near prediction. Each
	// pair has position MSE 1; the sum over two pairs divided by two
	// non-duplicate rows is 1. Yaw and duration contribute nothing.
	assert.InDelta(t, 1.0, res.Loss, 1e-12)
	assert.InDelta(t, 1.0, res.Diagnostics["pos_loss"], 1e-12)
	assert.InDelta(t, 0.0, res.Diagnostics["yaw_loss"], 1e-12)
	assert.InDelta(t, 0.0, res.Diagnostics["time_loss"], 1e-12)
	assert.InDelta(t, res.Loss, res.Diagnostics["loss_exact"], 1e-12)
}

// TestComputeLoss_ClosedFormHeads drops position and yaw components
// from the combined loss while keeping their diagnostics.
func TestComputeLoss_ClosedFormHeads(t *testing.T) {
	cfg := testConfig()
	cfg.YawScaling = 1.0
	cfg.PosClosedForm = true
	cfg.YawClosedForm = true

	expert := [][][]float64{{
		{0, 0, 0.5, 1.0},
		{10, 10, 0.5, 2.0},
	}}
	predicted := [][][]float64{{
		{1, 1, 0.7, 1.5},
		{9, 9, 0.7, 2.5},
	}}

	res, err := ComputeLoss(context.Background(), cfg, expert, predicted)
	require.NoError(t, err)

	// Only the duration term survives: (0.5)^2 per pair, two pairs,
	// over two rows.
	assert.InDelta(t, 0.25, res.Loss, 1e-12)
	assert.InDelta(t, 1.0, res.Diagnostics["pos_loss"], 1e-12, "still reported")

	// Gradient for the closed-form slices must be zero.
	for b := range res.Gradient {
		for j := range res.Gradient[b] {
			for d := 0; d < cfg.PosCtrlPoints+cfg.YawCtrlPoints; d++ {
				assert.Zero(t, res.Gradient[b][j][d], "closed-form slice at (%d,%d,%d)", b, j, d)
			}
		}
	}
}

// TestComputeLoss_DuplicateNormalization: duplicate expert rows do not
// dilute the per-hypothesis normalization.
func TestComputeLoss_DuplicateNormalization(t *testing.T) {
	cfg := testConfig()
	cfg.YawScaling = 1.0

	expert := [][][]float64{{
		{0, 0, 0, 1},
		{0, 0, 0, 1}, // duplicate
		{10, 10, 0, 1},
	}}
	predicted := [][][]float64{{
		{1, 1, 0, 1},
		{9, 9, 0, 1},
		{5, 5, 0, 1},
	}}

	res, err := ComputeLoss(context.Background(), cfg, expert, predicted)
	require.NoError(t, err)

	// Two real modes match predictions 0 and 1 at position MSE 1 each;
	// the normalizer is 2 non-duplicate rows, not 3.
	assert.InDelta(t, 1.0, res.Loss, 1e-12)
}

// TestComputeLoss_GradientMatchesFiniteDifference verifies the analytic
// gradient against central differences for each strategy. The modes are
// far apart so the winner structure is stable under the perturbation.
func TestComputeLoss_GradientMatchesFiniteDifference(t *testing.T) {
	expert := [][][]float64{
		{
			{0, 0, 0.4, 1.0},
			{10, 10, 0.8, 2.0},
			{-10, 5, -0.2, 3.0},
		},
		{
			{3, -3, 0.1, 1.5},
			{3, -3, 0.9, 2.5}, // duplicate position
			{-6, 0, 0.3, 0.5},
		},
	}
	predicted := [][][]float64{
		{
			{10.5, 9.5, 0.7, 2.1},
			{-9.5, 5.5, -0.1, 2.9},
			{0.5, 0.5, 0.5, 1.1},
		},
		{
			{2.5, -2.5, 0.2, 1.4},
			{-5.5, 0.5, 0.2, 0.6},
			{1.0, 1.0, 0.0, 1.0},
		},
	}

	const h = 1e-6
	for _, strategy := range []Strategy{StrategyExact, StrategyRelaxedRow, StrategyRelaxedColumn} {
		t.Run(string(strategy), func(t *testing.T) {
			cfg := testConfig()
			cfg.Strategy = strategy

			res, err := ComputeLoss(context.Background(), cfg, expert, predicted)
			require.NoError(t, err)
			require.NotNil(t, res.Gradient)

			for b := range predicted {
				for j := range predicted[b] {
					for d := range predicted[b][j] {
						plus := clonePredicted(predicted)
						plus[b][j][d] += h
						minus := clonePredicted(predicted)
						minus[b][j][d] -= h

						rp, err := ComputeLoss(context.Background(), cfg, expert, plus)
						require.NoError(t, err)
						rm, err := ComputeLoss(context.Background(), cfg, expert, minus)
						require.NoError(t, err)

						numeric := (rp.Loss - rm.Loss) / (2 * h)
						assert.InDelta(t, numeric, res.Gradient[b][j][d], 1e-4,
							"entry (%d,%d,%d)", b, j, d)
					}
				}
			}
		})
	}
}

// TestComputeLoss_DiagnosticVariants reports the combined loss of every
// variant when diagnostics are enabled.
func TestComputeLoss_DiagnosticVariants(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy = StrategyRelaxedColumn
	cfg.ComputeDiagnostics = true

	expert := [][][]float64{{
		{0, 0, 0.1, 1},
		{10, 10, 0.2, 2},
	}}
	predicted := [][][]float64{{
		{9, 9, 0.2, 2},
		{1, 1, 0.1, 1},
	}}

	res, err := ComputeLoss(context.Background(), cfg, expert, predicted)
	require.NoError(t, err)

	for _, key := range []string{"loss", "loss_exact", "loss_rwta_row", "loss_rwta_column", "pos_loss", "yaw_loss", "time_loss"} {
		assert.Contains(t, res.Diagnostics, key)
	}
	assert.InDelta(t, res.Loss, res.Diagnostics["loss_rwta_column"], 1e-12,
		"chosen strategy diagnostic matches the scalar")
}

// TestComputeLoss_PropagatesPipelineErrors surfaces shape problems from
// the distance stage.
func TestComputeLoss_PropagatesPipelineErrors(t *testing.T) {
	cfg := testConfig()
	_, err := ComputeLoss(context.Background(), cfg, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}
