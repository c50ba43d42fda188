// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package matching implements the multi-hypothesis matching loss used to
// train a student trajectory planner from expert demonstrations.
//
// A demonstration pairs one observation with several simultaneously valid
// expert trajectory hypotheses (e.g. flying left or right around the same
// obstacle). The student predicts the same number of hypotheses, and the
// loss must first decide which predicted hypothesis is credited with
// matching which expert hypothesis before any distance can be reduced to
// a scalar. This package provides that pipeline:
//
//  1. BuildDistances - pairwise mean-squared-error matrices between expert
//     and predicted hypotheses, per component family (full vector,
//     position control points, yaw control points, duration).
//  2. DetectDuplicates - masks expert hypotheses that repeat an earlier
//     one (a common artifact of expert pipelines that pad with copies).
//  3. Solve - turns the position distances into assignment weight
//     matrices under three strategies: an exact minimum-cost bipartite
//     assignment, and two relaxed winner-take-all variants (row- and
//     column-normalized).
//  4. ComputeLoss - reduces assignment-weighted distances into component
//     losses, one combined scalar, and the analytic gradient with respect
//     to the predicted hypotheses.
//
// A secondary loss path, ComputeNLLLoss, serves stochastic policies that
// expose log-probabilities instead of raw regression outputs.
//
// # Batch layout
//
// Hypothesis batches are shaped (B, K, P+Y+1): B samples, K hypotheses
// per sample, and each hypothesis laid out as position control points (P
// values), yaw control points (Y values) and a trailing duration scalar.
// Expert yaw is stored pre-scaled and is multiplied by Config.YawScaling
// before comparison.
//
// # Thread Safety
//
// All exported functions are safe for concurrent use; they share no
// mutable state. Solve additionally parallelizes across the batch
// dimension internally, since samples are independent.
package matching
