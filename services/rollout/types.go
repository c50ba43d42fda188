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
	"gonum.org/v1/gonum/floats"
)

// Info carries per-step environment metadata.
type Info map[string]any

// TerminalObservationKey is the info key under which a vectorized
// environment reports the true final observation of an episode. When a
// slot signals done, the observation returned by Step is already the
// first observation after reset; the real terminal one travels here.
const TerminalObservationKey = "terminal_observation"

// Step is one full environment transition as stored by the accumulator:
// the action taken, the observation that followed it, the reward, and
// the step's info record.
type Step struct {
	Act  []float64
	Obs  []float64
	Rew  float64
	Info Info
}

// Trajectory is one completed episode.
//
// Invariant: len(Obs) == len(Acts)+1 == len(Rews)+1. Obs holds the
// initial observation plus one observation per step; Terminal reports
// whether the episode ended naturally rather than being cut off. Infos
// is optional and may be nil (it is stripped before persistence to save
// space).
type Trajectory struct {
	ID       uuid.UUID   `json:"id"`
	Obs      [][]float64 `json:"obs"`
	Acts     [][]float64 `json:"acts"`
	Rews     []float64   `json:"rews"`
	Terminal bool        `json:"terminal"`
	Infos    []Info      `json:"infos,omitempty"`
}

// Len returns the number of steps T.
func (t *Trajectory) Len() int { return len(t.Acts) }

// Return is the undiscounted sum of rewards.
func (t *Trajectory) Return() float64 { return floats.Sum(t.Rews) }

// mustValidate panics when the length invariant is broken. Called at
// finalize time; a violation is a programming error in the accumulator
// or the environment collaborator, not recoverable input.
func (t *Trajectory) mustValidate() {
	if len(t.Obs) != len(t.Acts)+1 || len(t.Rews) != len(t.Acts) {
		panic(fmt.Sprintf("rollout: trajectory %s field lengths disagree: obs=%d acts=%d rews=%d",
			t.ID, len(t.Obs), len(t.Acts), len(t.Rews)))
	}
	if t.Infos != nil && len(t.Infos) != len(t.Acts) {
		panic(fmt.Sprintf("rollout: trajectory %s has %d infos for %d steps",
			t.ID, len(t.Infos), len(t.Acts)))
	}
}

// Transitions is a batch of flattened (s, a, s') tuples drawn from one
// or more trajectories. All slices share the same length.
type Transitions struct {
	Obs     [][]float64 `json:"obs"`
	NextObs [][]float64 `json:"next_obs"`
	Acts    [][]float64 `json:"acts"`
	Dones   []bool      `json:"dones"`
	Rews    []float64   `json:"rews"`
	Infos   []Info      `json:"infos,omitempty"`
}

// Len returns the number of transitions.
func (tr *Transitions) Len() int { return len(tr.Acts) }
