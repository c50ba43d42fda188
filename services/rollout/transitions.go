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
)

// FlattenTrajectories concatenates trajectories into one batch of
// transitions. For a trajectory of T steps it contributes obs[:T] as
// observations, obs[1:] as next observations, and a done vector that is
// false everywhere except the last step, which carries the trajectory's
// terminal flag. Trajectories without infos contribute empty records so
// the fields stay aligned.
func FlattenTrajectories(trajectories []Trajectory) *Transitions {
	total := 0
	for i := range trajectories {
		total += trajectories[i].Len()
	}

	tr := &Transitions{
		Obs:     make([][]float64, 0, total),
		NextObs: make([][]float64, 0, total),
		Acts:    make([][]float64, 0, total),
		Dones:   make([]bool, 0, total),
		Rews:    make([]float64, 0, total),
		Infos:   make([]Info, 0, total),
	}

	for i := range trajectories {
		t := &trajectories[i]
		n := t.Len()
		for s := 0; s < n; s++ {
			tr.Obs = append(tr.Obs, t.Obs[s])
			tr.NextObs = append(tr.NextObs, t.Obs[s+1])
			tr.Acts = append(tr.Acts, t.Acts[s])
			tr.Rews = append(tr.Rews, t.Rews[s])
			tr.Dones = append(tr.Dones, s == n-1 && t.Terminal)
			if t.Infos != nil {
				tr.Infos = append(tr.Infos, t.Infos[s])
			} else {
				tr.Infos = append(tr.Infos, Info{})
			}
		}
	}
	return tr
}

// truncate drops transitions beyond n, keeping every field aligned.
func (tr *Transitions) truncate(n int) {
	if n >= tr.Len() {
		return
	}
	tr.Obs = tr.Obs[:n]
	tr.NextObs = tr.NextObs[:n]
	tr.Acts = tr.Acts[:n]
	tr.Dones = tr.Dones[:n]
	tr.Rews = tr.Rews[:n]
	tr.Infos = tr.Infos[:n]
}

// GenerateTransitions rolls out until at least nTimesteps transitions
// are collected and returns them flattened. The count may overshoot to
// episode boundaries; with truncate set the surplus is dropped so
// exactly nTimesteps are returned. The driver's configured sample-until
// predicate is overridden for the duration of the call.
func (d *Driver) GenerateTransitions(ctx context.Context, nTimesteps int, truncate bool) (*Transitions, error) {
	if nTimesteps <= 0 {
		return nil, fmt.Errorf("%w: n_timesteps=%d must be positive", ErrInvalidSampleUntil, nTimesteps)
	}

	saved := d.cfg.SampleUntil
	d.cfg.SampleUntil = MinTimesteps(nTimesteps)
	defer func() { d.cfg.SampleUntil = saved }()

	trajectories, err := d.GenerateTrajectories(ctx)
	if err != nil {
		return nil, err
	}

	tr := FlattenTrajectories(trajectories)
	if truncate {
		tr.truncate(nTimesteps)
	}
	return tr, nil
}
