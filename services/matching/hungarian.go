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
	"math"
)

// minCostAssignment solves the rectangular minimum-cost bipartite
// assignment problem: every row is matched to a distinct column so that
// the total cost is minimal. Requires rows <= cols; surplus columns stay
// unassigned.
//
// The implementation is the shortest-augmenting-path formulation of the
// Hungarian method with dual potentials (Jonker-Volgenant style),
// O(rows^2 * cols). Costs must be finite.
//
// Returns a slice of length rows where entry i is the column assigned
// to row i.
func minCostAssignment(cost [][]float64) ([]int, error) {
	n := len(cost)
	if n == 0 {
		return nil, nil
	}
	m := len(cost[0])
	if n > m {
		return nil, fmt.Errorf("assignment requires rows <= cols, got %dx%d", n, m)
	}
	for i := range cost {
		if len(cost[i]) != m {
			return nil, fmt.Errorf("ragged cost matrix at row %d", i)
		}
		for j := range cost[i] {
			if math.IsNaN(cost[i][j]) || math.IsInf(cost[i][j], 0) {
				return nil, fmt.Errorf("non-finite cost at (%d, %d)", i, j)
			}
		}
	}

	// 1-based potentials over rows (u) and columns (v). rowOf[j] is the
	// row currently matched to column j, 0 when free.
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	rowOf := make([]int, m+1)
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		rowOf[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		// Grow the alternating tree until a free column is reached.
		for {
			used[j0] = true
			i0 := rowOf[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[rowOf[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if rowOf[j0] == 0 {
				break
			}
		}

		// Augment along the found path.
		for j0 != 0 {
			j1 := way[j0]
			rowOf[j0] = rowOf[j1]
			j0 = j1
		}
	}

	assigned := make([]int, n)
	for j := 1; j <= m; j++ {
		if rowOf[j] > 0 {
			assigned[rowOf[j]-1] = j - 1
		}
	}
	return assigned, nil
}
