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
	"math"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

var solverTracer = otel.Tracer("matching.solver")

// sumTolerance bounds the defensive row/column sum checks on the
// relaxed variants. A violation is an algorithmic defect, not bad data.
const sumTolerance = 1e-9

// Solve computes assignment weight matrices for every sample in the
// batch, operating on the position-only distances after masking
// duplicate expert rows.
//
// The variant selected by cfg.Strategy is always computed; when
// cfg.ComputeDiagnostics is set the other two are computed as well so
// they can be logged. Samples are independent, so the batch is solved
// in parallel.
//
// Duplicate rows are kept in place (weight zero everywhere) rather than
// physically removed, preserving stable indexing into the K×K space.
//
// Panics when a sample has zero non-duplicate expert rows (the expert
// pipeline must guarantee at least one distinct hypothesis) or when a
// relaxed variant violates its sum invariant after construction.
func Solve(ctx context.Context, cfg Config, ds *DistanceSet, duplicates [][]bool) (*AssignmentSet, error) {
	ctx, span := solverTracer.Start(ctx, "matching.Solve",
		trace.WithAttributes(
			attribute.Int("batch_size", ds.Len()),
			attribute.String("strategy", string(cfg.Strategy)),
		),
	)
	defer span.End()

	if err := cfg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(duplicates) != ds.Len() {
		err := fmt.Errorf("%w: %d duplicate masks for %d samples", ErrShapeMismatch, len(duplicates), ds.Len())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	batch := ds.Len()
	wantAll := cfg.ComputeDiagnostics
	out := &AssignmentSet{
		Duplicates: duplicates,
	}
	if wantAll || cfg.Strategy == StrategyExact {
		out.Exact = make([]*mat.Dense, batch)
	}
	if wantAll || cfg.Strategy == StrategyRelaxedRow {
		out.RelaxedRow = make([]*mat.Dense, batch)
	}
	if wantAll || cfg.Strategy == StrategyRelaxedColumn {
		out.RelaxedColumn = make([]*mat.Dense, batch)
	}

	for b := range duplicates {
		out.NonDuplicates += countNonDuplicates(duplicates[b])
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for b := 0; b < batch; b++ {
		b := b
		g.Go(func() error {
			return solveSample(cfg, ds.Position[b], duplicates[b], out, b)
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("non_duplicate_rows", out.NonDuplicates))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// solveSample fills sample b of the requested variants. Results go to
// disjoint per-sample slices, so no synchronization is needed.
func solveSample(cfg Config, pos *mat.Dense, dup []bool, out *AssignmentSet, b int) error {
	k, _ := pos.Dims()

	nonDup := countNonDuplicates(dup)
	if nonDup == 0 {
		// The data-generation side guarantees at least one distinct
		// hypothesis; reaching this state means the guarantee broke
		// upstream and the matrices are meaningless.
		panic(fmt.Sprintf("matching: sample %d has zero non-duplicate expert hypotheses", b))
	}

	if k == 1 {
		// Trivial assignment, identical for every variant.
		one := func() *mat.Dense { return mat.NewDense(1, 1, []float64{1}) }
		if out.Exact != nil {
			out.Exact[b] = one()
		}
		if out.RelaxedRow != nil {
			out.RelaxedRow[b] = one()
		}
		if out.RelaxedColumn != nil {
			out.RelaxedColumn[b] = one()
		}
		return nil
	}

	if out.Exact != nil {
		a, err := solveExact(pos, dup, nonDup)
		if err != nil {
			return fmt.Errorf("sample %d: %w", b, err)
		}
		out.Exact[b] = a
	}
	if out.RelaxedColumn != nil {
		out.RelaxedColumn[b] = solveRelaxedColumn(cfg, pos, dup, nonDup, b)
	}
	if out.RelaxedRow != nil {
		out.RelaxedRow[b] = solveRelaxedRow(cfg, pos, dup, b)
	}
	return nil
}

// solveExact computes the minimum-cost bipartite matching between the
// non-duplicate expert rows and all predicted columns, then maps the
// solution back into the full K×K index space.
func solveExact(pos *mat.Dense, dup []bool, nonDup int) (*mat.Dense, error) {
	k, _ := pos.Dims()

	// Restrict the cost matrix to non-duplicate rows, remembering the
	// real row index of each kept row.
	realRow := make([]int, 0, nonDup)
	cost := make([][]float64, 0, nonDup)
	for i := 0; i < k; i++ {
		if dup[i] {
			continue
		}
		realRow = append(realRow, i)
		cost = append(cost, pos.RawRowView(i))
	}

	cols, err := minCostAssignment(cost)
	if err != nil {
		return nil, fmt.Errorf("exact assignment: %w", err)
	}

	a := mat.NewDense(k, k, nil)
	for r, j := range cols {
		a.Set(realRow[r], j, 1)
	}
	return a, nil
}

// solveRelaxedColumn computes the RWTA variant whose columns each sum
// to 1 over non-duplicate rows. For every predicted column the nearest
// non-duplicate expert row receives weight 1-epsilon and the remaining
// non-duplicate rows split epsilon evenly; with a single non-duplicate
// row that row receives the full weight.
func solveRelaxedColumn(cfg Config, pos *mat.Dense, dup []bool, nonDup int, b int) *mat.Dense {
	k, _ := pos.Dims()
	a := mat.NewDense(k, k, nil)

	base := 0.0
	winner := 1.0
	if nonDup > 1 {
		base = cfg.Epsilon / float64(nonDup-1)
		winner = 1 - cfg.Epsilon
	}

	for j := 0; j < k; j++ {
		best := -1
		bestDist := math.Inf(1)
		for i := 0; i < k; i++ {
			if dup[i] {
				continue
			}
			a.Set(i, j, base)
			if d := pos.At(i, j); d < bestDist {
				bestDist = d
				best = i
			}
		}
		a.Set(best, j, winner)
	}

	// Column sums over non-duplicate rows must be exactly one; anything
	// else is a solver defect and the loss would be corrupted.
	for j := 0; j < k; j++ {
		sum := 0.0
		for i := 0; i < k; i++ {
			sum += a.At(i, j)
		}
		if math.Abs(sum-1) > sumTolerance {
			panic(fmt.Sprintf("matching: RWTA column invariant violated at sample %d column %d: sum=%g", b, j, sum))
		}
	}
	return a
}

// solveRelaxedRow computes the RWTA variant whose non-duplicate rows
// each sum to 1. For every non-duplicate expert row the nearest
// predicted column receives weight 1-epsilon and the remaining columns
// split epsilon evenly; with a single predicted column it receives the
// full weight. Duplicate rows are identically zero.
func solveRelaxedRow(cfg Config, pos *mat.Dense, dup []bool, b int) *mat.Dense {
	k, _ := pos.Dims()
	a := mat.NewDense(k, k, nil)

	base := 0.0
	winner := 1.0
	if k > 1 {
		base = cfg.Epsilon / float64(k-1)
		winner = 1 - cfg.Epsilon
	}

	for i := 0; i < k; i++ {
		if dup[i] {
			continue
		}
		best := 0
		bestDist := math.Inf(1)
		for j := 0; j < k; j++ {
			a.Set(i, j, base)
			if d := pos.At(i, j); d < bestDist {
				bestDist = d
				best = j
			}
		}
		a.Set(i, best, winner)
	}

	for i := 0; i < k; i++ {
		if dup[i] {
			continue
		}
		sum := 0.0
		for j := 0; j < k; j++ {
			sum += a.At(i, j)
		}
		if math.Abs(sum-1) > sumTolerance {
			panic(fmt.Sprintf("matching: RWTA row invariant violated at sample %d row %d: sum=%g", b, i, sum))
		}
	}
	return a
}
