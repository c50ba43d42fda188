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

// Strategy selects which assignment variant drives the gradient.
type Strategy string

const (
	// StrategyExact solves the minimum-cost bipartite assignment between
	// non-duplicate expert rows and predicted columns. Provably optimal
	// per sample.
	StrategyExact Strategy = "exact"

	// StrategyRelaxedRow is relaxed winner-take-all normalized over rows:
	// each non-duplicate expert row gives weight (1-epsilon) to its
	// nearest predicted column and spreads epsilon over the rest.
	StrategyRelaxedRow Strategy = "rwta_row"

	// StrategyRelaxedColumn is relaxed winner-take-all normalized over
	// columns: each predicted column gives weight (1-epsilon) to its
	// nearest non-duplicate expert row and spreads epsilon over the rest.
	StrategyRelaxedColumn Strategy = "rwta_column"
)

// DefaultDuplicateThreshold is the position-only MSE below which two
// expert hypotheses are considered the same mode.
const DefaultDuplicateThreshold = 1e-7

// Config is the configuration surface of the matching loss.
//
// A zero-value Config is not usable; call Validate before use. The yaml
// tags match the `matching:` section of the service configuration file.
type Config struct {
	// PosCtrlPoints is the number of position control-point values at the
	// front of each hypothesis vector.
	PosCtrlPoints int `yaml:"pos_ctrl_points"`

	// YawCtrlPoints is the number of yaw control-point values following
	// the position block.
	YawCtrlPoints int `yaml:"yaw_ctrl_points"`

	// YawScaling rescales expert yaw values before comparison. Expert
	// pipelines store yaw divided by this factor.
	YawScaling float64 `yaml:"yaw_scaling"`

	// Strategy selects the assignment variant used for the combined loss.
	Strategy Strategy `yaml:"strategy"`

	// Epsilon controls relaxation strength of the RWTA variants.
	// Epsilon of zero degenerates them to hard winner-take-all.
	Epsilon float64 `yaml:"epsilon"`

	// DuplicateThreshold is the position-only MSE below which an expert
	// hypothesis is flagged as a duplicate of an earlier one. Zero means
	// DefaultDuplicateThreshold.
	DuplicateThreshold float64 `yaml:"duplicate_threshold"`

	// PosClosedForm omits the position component from the combined loss
	// (the position head is closed-form, not learned).
	PosClosedForm bool `yaml:"pos_closed_form"`

	// YawClosedForm omits the yaw component from the combined loss (the
	// yaw head is closed-form, not learned).
	YawClosedForm bool `yaml:"yaw_closed_form"`

	// ComputeDiagnostics also computes the assignment variants that do
	// not drive the gradient, purely for logging. Training semantics are
	// unchanged either way.
	ComputeDiagnostics bool `yaml:"compute_diagnostics"`
}

// HypothesisLen returns the expected length of one hypothesis vector:
// position control points, yaw control points, and the duration scalar.
func (c Config) HypothesisLen() int {
	return c.PosCtrlPoints + c.YawCtrlPoints + 1
}

// duplicateThreshold returns the configured threshold or the default.
func (c Config) duplicateThreshold() float64 {
	if c.DuplicateThreshold == 0 {
		return DefaultDuplicateThreshold
	}
	return c.DuplicateThreshold
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.PosCtrlPoints <= 0 {
		return fmt.Errorf("%w: pos_ctrl_points must be positive, got %d", ErrInvalidConfig, c.PosCtrlPoints)
	}
	if c.YawCtrlPoints < 0 {
		return fmt.Errorf("%w: yaw_ctrl_points must be non-negative, got %d", ErrInvalidConfig, c.YawCtrlPoints)
	}
	if c.YawScaling == 0 {
		return fmt.Errorf("%w: yaw_scaling must be non-zero", ErrInvalidConfig)
	}
	if c.Epsilon < 0 || c.Epsilon >= 1 {
		return fmt.Errorf("%w: epsilon must be in [0, 1), got %g", ErrInvalidConfig, c.Epsilon)
	}
	if c.DuplicateThreshold < 0 {
		return fmt.Errorf("%w: duplicate_threshold must be non-negative, got %g", ErrInvalidConfig, c.DuplicateThreshold)
	}
	switch c.Strategy {
	case StrategyExact, StrategyRelaxedRow, StrategyRelaxedColumn:
	case "":
		return fmt.Errorf("%w: strategy is required", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy)
	}
	return nil
}

// DistanceSet holds the pairwise distance matrices for one batch, one
// K×K matrix per sample and component family. Entry (i, j) is the MSE
// between expert hypothesis i and predicted hypothesis j over that
// family's slice of the hypothesis vector.
type DistanceSet struct {
	// Full covers the entire hypothesis vector.
	Full []*mat.Dense

	// Position covers the position control points only. This family
	// drives duplicate detection and assignment.
	Position []*mat.Dense

	// Yaw covers the yaw control points, expert side rescaled by
	// Config.YawScaling.
	Yaw []*mat.Dense

	// Time covers the trailing duration scalar.
	Time []*mat.Dense
}

// Len returns the number of samples in the set.
func (d *DistanceSet) Len() int { return len(d.Position) }

// AssignmentSet holds the per-sample assignment weight matrices for a
// batch, one K×K matrix per sample and variant. Variants not requested
// from Solve are nil.
type AssignmentSet struct {
	// Exact holds 0/1 bipartite matchings: every non-duplicate expert
	// row has exactly one column with weight 1.
	Exact []*mat.Dense

	// RelaxedRow holds RWTA matrices whose non-duplicate rows each sum
	// to 1.
	RelaxedRow []*mat.Dense

	// RelaxedColumn holds RWTA matrices whose columns each sum to 1 over
	// non-duplicate rows.
	RelaxedColumn []*mat.Dense

	// Duplicates is the duplicate mask the solver operated under.
	Duplicates [][]bool

	// NonDuplicates is the total count of non-duplicate expert rows over
	// the batch. Loss components are normalized by this count: it is the
	// number of real hypotheses the expert produced, not B*K.
	NonDuplicates int
}

// variant returns the weight matrices for the given strategy.
func (a *AssignmentSet) variant(s Strategy) []*mat.Dense {
	switch s {
	case StrategyExact:
		return a.Exact
	case StrategyRelaxedRow:
		return a.RelaxedRow
	case StrategyRelaxedColumn:
		return a.RelaxedColumn
	default:
		return nil
	}
}

// LossResult is the output of a loss computation.
type LossResult struct {
	// Loss is the combined scalar the optimizer should descend.
	Loss float64

	// Diagnostics maps named scalar statistics for logging.
	Diagnostics map[string]float64

	// Gradient is d(Loss)/d(predicted), shaped like the predicted batch
	// (B, K, P+Y+1). Nil for loss paths that do not differentiate
	// through hypothesis distances.
	Gradient [][][]float64
}
