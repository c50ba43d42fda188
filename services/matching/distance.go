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
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// validateBatchShapes checks that the expert and predicted batches agree
// on batch size, per-sample hypothesis count, and hypothesis vector
// length, and that the vector length matches the configured layout.
//
// These are fatal preconditions: nothing downstream may run on
// mis-shaped batches.
func validateBatchShapes(cfg Config, expert, predicted [][][]float64) error {
	if len(expert) == 0 || len(predicted) == 0 {
		return fmt.Errorf("%w: expert=%d predicted=%d samples", ErrEmptyBatch, len(expert), len(predicted))
	}
	if len(expert) != len(predicted) {
		return fmt.Errorf("%w: batch sizes differ, expert=%d predicted=%d", ErrShapeMismatch, len(expert), len(predicted))
	}
	want := cfg.HypothesisLen()
	for b := range expert {
		if len(expert[b]) == 0 {
			return fmt.Errorf("%w: sample %d has no expert hypotheses", ErrShapeMismatch, b)
		}
		if len(expert[b]) != len(predicted[b]) {
			return fmt.Errorf("%w: sample %d hypothesis counts differ, expert=%d predicted=%d",
				ErrShapeMismatch, b, len(expert[b]), len(predicted[b]))
		}
		for k := range expert[b] {
			if len(expert[b][k]) != want {
				return fmt.Errorf("%w: sample %d expert hypothesis %d has length %d, want %d",
					ErrShapeMismatch, b, k, len(expert[b][k]), want)
			}
			if len(predicted[b][k]) != want {
				return fmt.Errorf("%w: sample %d predicted hypothesis %d has length %d, want %d",
					ErrShapeMismatch, b, k, len(predicted[b][k]), want)
			}
		}
	}
	return nil
}

// meanSquaredError returns the mean of elementwise squared differences.
// scale is applied to the a side (used for expert yaw rescaling).
func meanSquaredError(a, b []float64, scale float64) float64 {
	if len(a) == 0 {
		return 0
	}
	sum := 0.0
	for i := range a {
		d := a[i]*scale - b[i]
		sum += d * d
	}
	return sum / float64(len(a))
}

// BuildDistances computes the four per-family distance matrices between
// an expert and a predicted hypothesis batch, both shaped (B, K, P+Y+1).
//
// For every sample and every (expert i, predicted j) pair it computes
// the MSE over the full vector, the position slice, the yaw slice
// (expert yaw multiplied by Config.YawScaling first) and the trailing
// duration scalar. The expert side is treated as constant: gradients of
// the eventual loss flow only into the predicted values (see
// lossGradient).
//
// Returns ErrShapeMismatch or ErrEmptyBatch before computing anything
// when the batches are unusable.
func BuildDistances(cfg Config, expert, predicted [][][]float64) (*DistanceSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateBatchShapes(cfg, expert, predicted); err != nil {
		return nil, err
	}

	p := cfg.PosCtrlPoints
	y := cfg.YawCtrlPoints
	batch := len(expert)

	ds := &DistanceSet{
		Full:     make([]*mat.Dense, batch),
		Position: make([]*mat.Dense, batch),
		Yaw:      make([]*mat.Dense, batch),
		Time:     make([]*mat.Dense, batch),
	}

	for b := 0; b < batch; b++ {
		k := len(expert[b])
		full := mat.NewDense(k, k, nil)
		pos := mat.NewDense(k, k, nil)
		yaw := mat.NewDense(k, k, nil)
		tim := mat.NewDense(k, k, nil)

		for i := 0; i < k; i++ {
			ei := expert[b][i]
			for j := 0; j < k; j++ {
				sj := predicted[b][j]
				pos.Set(i, j, meanSquaredError(ei[:p], sj[:p], 1))
				yaw.Set(i, j, meanSquaredError(ei[p:p+y], sj[p:p+y], cfg.YawScaling))
				tim.Set(i, j, meanSquaredError(ei[p+y:], sj[p+y:], 1))

				// The full-vector distance compares the raw stored
				// vectors, yaw unscaled, matching the expert storage
				// layout.
				full.Set(i, j, meanSquaredError(ei, sj, 1))
			}
		}

		ds.Full[b] = full
		ds.Position[b] = pos
		ds.Yaw[b] = yaw
		ds.Time[b] = tim
	}

	return ds, nil
}
