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
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// describe writes min/mean/std/max of vals into out under
// "<name>_<stat>" keys.
func describe(out map[string]float64, name string, vals []float64) {
	out[name+"_min"] = floats.Min(vals)
	out[name+"_mean"] = stat.Mean(vals, nil)
	out[name+"_std"] = stat.PopStdDev(vals, nil)
	out[name+"_max"] = floats.Max(vals)
}

// Stats summarizes a set of trajectories: n_traj, episode return
// statistics (return_{min,mean,std,max}) and length statistics
// (len_{min,mean,std,max}).
//
// When trajectories carry monitor-style infos (an "episode" record with
// an "r" return on the final step), monitor_return_* statistics and a
// monitor_return_len count are included as well. Monitor returns may be
// missing from some episodes; the summary covers whichever are present.
func Stats(trajectories []Trajectory) (map[string]float64, error) {
	if len(trajectories) == 0 {
		return nil, fmt.Errorf("%w: stats need at least one trajectory", ErrNoTrajectories)
	}

	returns := make([]float64, len(trajectories))
	lengths := make([]float64, len(trajectories))
	var monitorReturns []float64
	for i := range trajectories {
		t := &trajectories[i]
		returns[i] = t.Return()
		lengths[i] = float64(t.Len())

		if len(t.Infos) > 0 {
			if ep, ok := t.Infos[len(t.Infos)-1]["episode"].(map[string]any); ok {
				if r, ok := ep["r"].(float64); ok {
					monitorReturns = append(monitorReturns, r)
				}
			}
		}
	}

	out := map[string]float64{"n_traj": float64(len(trajectories))}
	describe(out, "return", returns)
	describe(out, "len", lengths)
	if len(monitorReturns) > 0 {
		out["monitor_return_len"] = float64(len(monitorReturns))
		describe(out, "monitor_return", monitorReturns)
	}
	return out, nil
}

// MeanReturn rolls out the driver once and returns the mean episode
// return of the generated trajectories.
func (d *Driver) MeanReturn(ctx context.Context) (float64, error) {
	trajectories, err := d.GenerateTrajectories(ctx)
	if err != nil {
		return 0, err
	}
	stats, err := Stats(trajectories)
	if err != nil {
		return 0, err
	}
	return stats["return_mean"], nil
}

// DiscountedSum computes sum_t gamma^t * arr[t], the discounted return
// when arr holds rewards. The first entry is undiscounted. Evaluated as
// a polynomial in gamma by Horner's rule rather than materializing the
// powers.
func DiscountedSum(arr []float64, gamma float64) float64 {
	if gamma == 1.0 {
		return floats.Sum(arr)
	}
	sum := 0.0
	for t := len(arr) - 1; t >= 0; t-- {
		sum = sum*gamma + arr[t]
	}
	return sum
}
