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
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gonum.org/v1/gonum/mat"
)

// componentLosses holds the assignment-weighted loss of each component
// family for one assignment variant.
type componentLosses struct {
	pos  float64
	yaw  float64
	time float64
}

// combined sums the components active under the configuration. The
// duration component is always learned; position and yaw drop out when
// the corresponding head is closed-form rather than a network output.
func (c componentLosses) combined(cfg Config) float64 {
	loss := c.time
	if !cfg.PosClosedForm {
		loss += c.pos
	}
	if !cfg.YawClosedForm {
		loss += c.yaw
	}
	return loss
}

// weightedSum returns sum_b sum_ij A_b[i,j] * D_b[i,j] / n.
func weightedSum(assign, dist []*mat.Dense, n int) float64 {
	total := 0.0
	for b := range assign {
		k, _ := assign[b].Dims()
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				if w := assign[b].At(i, j); w != 0 {
					total += w * dist[b].At(i, j)
				}
			}
		}
	}
	return total / float64(n)
}

// variantLosses reduces one assignment variant against the distance
// families, normalized by the batch-wide non-duplicate hypothesis count.
func variantLosses(assign []*mat.Dense, ds *DistanceSet, n int) componentLosses {
	return componentLosses{
		pos:  weightedSum(assign, ds.Position, n),
		yaw:  weightedSum(assign, ds.Yaw, n),
		time: weightedSum(assign, ds.Time, n),
	}
}

// ComputeLoss runs the full matching pipeline on one training batch:
// distances, duplicate detection, assignment, and reduction to a scalar
// with its gradient.
//
// Each component loss is the assignment-weighted distance summed over
// the batch, divided by the total number of non-duplicate expert
// hypotheses in the batch. Normalizing by real hypotheses rather than
// B*K keeps samples with padded duplicate hypotheses from diluting the
// loss.
//
// The returned gradient is d(Loss)/d(predicted) for the strategy chosen
// in cfg; diagnostic variants never contribute to it. Expert values act
// as constants throughout.
func ComputeLoss(ctx context.Context, cfg Config, expert, predicted [][][]float64) (*LossResult, error) {
	ctx, span := solverTracer.Start(ctx, "matching.ComputeLoss")
	defer span.End()

	ds, err := BuildDistances(cfg, expert, predicted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	duplicates := DetectDuplicates(cfg, expert)
	assignments, err := Solve(ctx, cfg, ds, duplicates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	n := assignments.NonDuplicates
	chosen := assignments.variant(cfg.Strategy)
	if chosen == nil {
		err := fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	losses := variantLosses(chosen, ds, n)
	result := &LossResult{
		Loss: losses.combined(cfg),
		Diagnostics: map[string]float64{
			"loss":      losses.combined(cfg),
			"pos_loss":  losses.pos,
			"yaw_loss":  losses.yaw,
			"time_loss": losses.time,
		},
		Gradient: lossGradient(cfg, expert, predicted, chosen, n),
	}

	if cfg.ComputeDiagnostics {
		for _, alt := range []struct {
			name   string
			assign []*mat.Dense
		}{
			{"loss_exact", assignments.Exact},
			{"loss_rwta_row", assignments.RelaxedRow},
			{"loss_rwta_column", assignments.RelaxedColumn},
		} {
			if alt.assign == nil {
				continue
			}
			result.Diagnostics[alt.name] = variantLosses(alt.assign, ds, n).combined(cfg)
		}
	}

	span.SetAttributes(attribute.Float64("loss", result.Loss))
	span.SetStatus(codes.Ok, "")
	slog.Debug("matching loss computed",
		slog.Float64("loss", result.Loss),
		slog.Int("batch_size", len(expert)),
		slog.Int("non_duplicate_rows", n),
	)
	return result, nil
}

// lossGradient computes d(combined loss)/d(predicted) analytically.
//
// The MSE over a slice of length L contributes 2*(s_d - e_d)/L per
// element, weighted by the assignment entry and the 1/n normalizer.
// Families excluded from the combined loss contribute nothing.
func lossGradient(cfg Config, expert, predicted [][][]float64, assign []*mat.Dense, n int) [][][]float64 {
	p := cfg.PosCtrlPoints
	y := cfg.YawCtrlPoints
	d := cfg.HypothesisLen()
	inv := 1.0 / float64(n)

	grad := make([][][]float64, len(predicted))
	for b := range predicted {
		k := len(predicted[b])
		grad[b] = make([][]float64, k)
		for j := range grad[b] {
			grad[b][j] = make([]float64, d)
		}

		for i := 0; i < k; i++ {
			ei := expert[b][i]
			for j := 0; j < k; j++ {
				w := assign[b].At(i, j)
				if w == 0 {
					continue
				}
				sj := predicted[b][j]
				gj := grad[b][j]

				if !cfg.PosClosedForm {
					scale := w * inv * 2 / float64(p)
					for c := 0; c < p; c++ {
						gj[c] += scale * (sj[c] - ei[c])
					}
				}
				if !cfg.YawClosedForm && y > 0 {
					scale := w * inv * 2 / float64(y)
					for c := p; c < p+y; c++ {
						gj[c] += scale * (sj[c] - ei[c]*cfg.YawScaling)
					}
				}
				// Duration slice has length one.
				scale := w * inv * 2
				for c := p + y; c < d; c++ {
					gj[c] += scale * (sj[c] - ei[c])
				}
			}
		}
	}
	return grad
}
