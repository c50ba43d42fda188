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

// DetectDuplicates flags expert hypotheses that repeat an earlier one.
//
// For every sample it compares the position control points of every
// ordered pair (i, j) with i < j and marks j as duplicate when their MSE
// falls below Config.DuplicateThreshold. The comparison is made against
// every earlier index, duplicate or not, so a run of repeated hypotheses
// collapses onto its first occurrence and assignment credit is never
// split across copies of the same mode. Only position is compared; yaw
// and duration are deliberately ignored.
//
// The returned mask is shaped (B, K). Index 0 is never a duplicate, so
// at least one non-duplicate hypothesis survives per sample. Detection
// is idempotent: masking already-masked rows changes nothing.
func DetectDuplicates(cfg Config, expert [][][]float64) [][]bool {
	p := cfg.PosCtrlPoints
	threshold := cfg.duplicateThreshold()

	mask := make([][]bool, len(expert))
	for b := range expert {
		k := len(expert[b])
		rep := make([]bool, k)
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if rep[j] {
					continue
				}
				if meanSquaredError(expert[b][i][:p], expert[b][j][:p], 1) < threshold {
					rep[j] = true
				}
			}
		}
		mask[b] = rep
	}
	return mask
}

// countNonDuplicates returns the number of false entries in one sample's
// duplicate mask.
func countNonDuplicates(mask []bool) int {
	n := 0
	for _, dup := range mask {
		if !dup {
			n++
		}
	}
	return n
}
