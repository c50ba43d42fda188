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
	"fmt"

	"github.com/google/uuid"
)

// partialTrajectory is one slot's in-progress buffer: the seed
// observation plus the full steps accumulated since.
type partialTrajectory struct {
	seed  []float64
	steps []Step
}

// TrajectoryAccumulator assembles trajectories step by step across
// several independent slots, keyed by slot index.
//
// Each slot moves through Seed -> AddStep* -> FinishTrajectory, after
// which the buffer is destroyed and the slot may be reseeded for the
// next episode. Misuse (adding to or finishing an unseeded slot,
// seeding twice) is a programming error and panics; the driver owns the
// call order and must never get it wrong.
//
// Not safe for concurrent use: buffers are touched only by the single
// driver loop.
type TrajectoryAccumulator struct {
	partial map[int]*partialTrajectory
}

// NewTrajectoryAccumulator returns an accumulator with no active slots.
func NewTrajectoryAccumulator() *TrajectoryAccumulator {
	return &TrajectoryAccumulator{partial: make(map[int]*partialTrajectory)}
}

// Seed starts a fresh buffer for key with the episode's initial
// observation. Only the initial observation is stored at this point;
// every later observation arrives with its step, so none is duplicated.
func (a *TrajectoryAccumulator) Seed(key int, obs []float64) {
	if _, ok := a.partial[key]; ok {
		panic(fmt.Sprintf("rollout: slot %d seeded twice without finishing", key))
	}
	a.partial[key] = &partialTrajectory{seed: obs}
}

// AddStep appends one full transition to the slot's buffer. The slot
// must have been seeded first.
func (a *TrajectoryAccumulator) AddStep(key int, step Step) {
	p, ok := a.partial[key]
	if !ok {
		panic(fmt.Sprintf("rollout: AddStep on unseeded slot %d", key))
	}
	p.steps = append(p.steps, step)
}

// FinishTrajectory destroys the slot's buffer and returns the assembled
// Trajectory: observations stacked into one sequence of length T+1, and
// actions, rewards and infos of length T. Panics when the slot was
// never seeded or the stacked fields disagree in length.
func (a *TrajectoryAccumulator) FinishTrajectory(key int, terminal bool) Trajectory {
	p, ok := a.partial[key]
	if !ok {
		panic(fmt.Sprintf("rollout: FinishTrajectory on unseeded slot %d", key))
	}
	delete(a.partial, key)

	n := len(p.steps)
	traj := Trajectory{
		ID:       uuid.New(),
		Obs:      make([][]float64, 0, n+1),
		Acts:     make([][]float64, 0, n),
		Rews:     make([]float64, 0, n),
		Infos:    make([]Info, 0, n),
		Terminal: terminal,
	}
	traj.Obs = append(traj.Obs, p.seed)
	for _, s := range p.steps {
		traj.Obs = append(traj.Obs, s.Obs)
		traj.Acts = append(traj.Acts, s.Act)
		traj.Rews = append(traj.Rews, s.Rew)
		traj.Infos = append(traj.Infos, s.Info)
	}
	traj.mustValidate()
	return traj
}

// AddStepsAndAutoFinish feeds one batched environment step into every
// slot and finalizes those that reported done.
//
// When dones[i] is true, obs[i] is already the first observation of the
// next episode; the true terminal observation is taken from
// infos[i][TerminalObservationKey] and the slot is immediately reseeded
// with obs[i]. Returns the trajectories completed this tick, one per
// true entry in dones, in slot order.
func (a *TrajectoryAccumulator) AddStepsAndAutoFinish(
	acts, obs [][]float64,
	rews []float64,
	dones []bool,
	infos []Info,
) []Trajectory {
	n := len(obs)
	if len(acts) != n || len(rews) != n || len(dones) != n || len(infos) != n {
		panic(fmt.Sprintf("rollout: batched step field lengths disagree: acts=%d obs=%d rews=%d dones=%d infos=%d",
			len(acts), n, len(rews), len(dones), len(infos)))
	}

	var finished []Trajectory
	for i := 0; i < n; i++ {
		stepObs := obs[i]
		if dones[i] {
			terminal, ok := infos[i][TerminalObservationKey].([]float64)
			if !ok {
				panic(fmt.Sprintf("rollout: slot %d done without %q info", i, TerminalObservationKey))
			}
			stepObs = terminal
		}

		a.AddStep(i, Step{
			Act:  acts[i],
			Obs:  stepObs,
			Rew:  rews[i],
			Info: infos[i],
		})

		if dones[i] {
			finished = append(finished, a.FinishTrajectory(i, true))
			a.Seed(i, obs[i])
		}
	}
	return finished
}

// Active returns the number of slots currently holding a buffer.
func (a *TrajectoryAccumulator) Active() int { return len(a.partial) }
