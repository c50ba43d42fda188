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
	"time"
)

// fakeVecEnv is a scripted environment: slot i runs fixed-length
// episodes of epLens[i] steps, emits observation {slot, t}, reward 1,
// and supports the remote methods the driver issues.
type fakeVecEnv struct {
	epLens []int
	t      []int // step within the current episode, per slot

	forceDone bool
	resets    int
	steps     int
	recorded  map[int]int // saveInBag calls per slot

	// extraInfo, when set, merges additional entries into each slot's
	// step info.
	extraInfo func(slot int) Info
}

func newFakeVecEnv(epLens []int) *fakeVecEnv {
	return &fakeVecEnv{
		epLens:   epLens,
		t:        make([]int, len(epLens)),
		recorded: make(map[int]int),
	}
}

func (e *fakeVecEnv) obsFor(slot int) []float64 {
	return []float64{float64(slot), float64(e.t[slot])}
}

func (e *fakeVecEnv) NumEnvs() int { return len(e.epLens) }

func (e *fakeVecEnv) Reset(context.Context) ([][]float64, error) {
	e.resets++
	obs := make([][]float64, e.NumEnvs())
	for i := range obs {
		e.t[i] = 0
		obs[i] = e.obsFor(i)
	}
	return obs, nil
}

func (e *fakeVecEnv) Step(_ context.Context, acts [][]float64) ([][]float64, []float64, []bool, []Info, error) {
	n := e.NumEnvs()
	if len(acts) != n {
		return nil, nil, nil, nil, fmt.Errorf("fake env: %d actions for %d slots", len(acts), n)
	}
	e.steps++

	obs := make([][]float64, n)
	rews := make([]float64, n)
	dones := make([]bool, n)
	infos := make([]Info, n)
	for i := 0; i < n; i++ {
		e.t[i]++
		rews[i] = 1.0
		infos[i] = Info{}
		if e.extraInfo != nil {
			for k, v := range e.extraInfo(i) {
				infos[i][k] = v
			}
		}

		done := e.forceDone || e.t[i] >= e.epLens[i]
		dones[i] = done
		if done {
			infos[i][TerminalObservationKey] = e.obsFor(i)
			e.t[i] = 0
		}
		obs[i] = e.obsFor(i)
	}
	e.forceDone = false
	return obs, rews, dones, infos, nil
}

func (e *fakeVecEnv) CallMethod(_ context.Context, name string, _ ...any) ([]any, error) {
	switch name {
	case MethodForceDone:
		e.forceDone = true
	case MethodObstacleCount:
	default:
		return nil, fmt.Errorf("fake env: unknown method %q", name)
	}
	out := make([]any, e.NumEnvs())
	for i := range out {
		out[i] = 1
	}
	return out, nil
}

func (e *fakeVecEnv) CallMethodAt(_ context.Context, slot int, name string, _ ...any) (any, error) {
	if name != MethodRecordAction {
		return nil, fmt.Errorf("fake env: unknown slot method %q", name)
	}
	e.recorded[slot]++
	return nil, nil
}

// constantProvider returns a fixed action vector for every slot.
func constantProvider(act []float64) ActionProvider {
	return ProviderFunc(func(_ context.Context, obs [][]float64, _ []any, _ bool) ([][]float64, time.Duration, error) {
		acts := make([][]float64, len(obs))
		for i := range acts {
			acts[i] = act
		}
		return acts, time.Millisecond, nil
	})
}

// slotProvider returns per-slot actions from a function of the slot
// index.
func slotProvider(f func(slot int) []float64) ActionProvider {
	return ProviderFunc(func(_ context.Context, obs [][]float64, _ []any, _ bool) ([][]float64, time.Duration, error) {
		acts := make([][]float64, len(obs))
		for i := range acts {
			acts[i] = f(i)
		}
		return acts, time.Millisecond, nil
	})
}
