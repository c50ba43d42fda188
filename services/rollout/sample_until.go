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

import "fmt"

// SampleUntil decides whether enough trajectories have been collected.
// It is evaluated by the driver after every tick over all finished
// trajectories so far.
type SampleUntil func(trajectories []Trajectory) bool

// MinEpisodes terminates after collecting n episodes. May overshoot
// when several episodes complete in the same tick.
func MinEpisodes(n int) SampleUntil {
	return func(trajectories []Trajectory) bool {
		return len(trajectories) >= n
	}
}

// MinTimesteps terminates at the first episode boundary after
// collecting n timesteps. May overshoot to the nearest boundary.
func MinTimesteps(n int) SampleUntil {
	return func(trajectories []Trajectory) bool {
		timesteps := 0
		for i := range trajectories {
			timesteps += trajectories[i].Len()
		}
		return timesteps >= n
	}
}

// MakeSampleUntil builds the conjunction of the given bounds; a zero
// bound is treated as absent. At least one bound must be given and
// bounds must be positive, otherwise ErrInvalidSampleUntil is returned.
func MakeSampleUntil(minTimesteps, minEpisodes int) (SampleUntil, error) {
	if minTimesteps == 0 && minEpisodes == 0 {
		return nil, fmt.Errorf("%w: at least one of min_timesteps and min_episodes is required", ErrInvalidSampleUntil)
	}
	if minTimesteps < 0 {
		return nil, fmt.Errorf("%w: min_timesteps=%d must be positive", ErrInvalidSampleUntil, minTimesteps)
	}
	if minEpisodes < 0 {
		return nil, fmt.Errorf("%w: min_episodes=%d must be positive", ErrInvalidSampleUntil, minEpisodes)
	}

	var conditions []SampleUntil
	if minTimesteps > 0 {
		conditions = append(conditions, MinTimesteps(minTimesteps))
	}
	if minEpisodes > 0 {
		conditions = append(conditions, MinEpisodes(minEpisodes))
	}

	return func(trajectories []Trajectory) bool {
		for _, cond := range conditions {
			if !cond(trajectories) {
				return false
			}
		}
		return true
	}, nil
}
