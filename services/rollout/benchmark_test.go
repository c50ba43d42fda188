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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchmark_RequiresDemoTarget(t *testing.T) {
	d, err := NewDriver(newFakeVecEnv([]int{5}), constantProvider([]float64{1}), DriverConfig{})
	require.NoError(t, err)

	_, err = d.Benchmark(context.Background())
	assert.ErrorIs(t, err, ErrInvalidDriverConfig)
}

// TestBenchmark_Counters runs three fixed-horizon trials with one
// healthy and one degenerate slot and checks every counter.
func TestBenchmark_Counters(t *testing.T) {
	env := newFakeVecEnv([]int{10, 10})
	env.extraInfo = func(slot int) Info {
		if slot == 0 {
			return Info{InfoObstacleViolation: true}
		}
		return Info{InfoTransViolation: true, InfoYawViolation: true}
	}

	provider := slotProvider(func(slot int) []float64 {
		if slot == 1 {
			return []float64{math.NaN()}
		}
		return []float64{1}
	})

	d, err := NewDriver(env, provider, DriverConfig{DemoTarget: 3})
	require.NoError(t, err)

	res, err := d.Benchmark(context.Background())
	require.NoError(t, err)

	// One demo per iteration from slot 0; three iterations to reach
	// the target.
	assert.Equal(t, 3, res.Demos)
	assert.Equal(t, 3, res.DegenerateActions)
	assert.Equal(t, 3, res.ObstacleViolations)
	assert.Equal(t, 3, res.TransViolations)
	assert.Equal(t, 3, res.YawViolations)

	// Every iteration saw a degenerate action, so the combined count
	// holds only those; violations are not double-counted on NaN ticks.
	assert.Equal(t, 3, res.Failures)

	assert.Len(t, res.ComputationTimes, 3)
	assert.Len(t, res.Costs, 6, "one cost per slot per iteration")
	for _, c := range res.Costs {
		assert.Equal(t, -1.0, c, "cost is the negated reward")
	}

	assert.Equal(t, 3, env.resets, "benchmark resets every iteration")
	assert.Equal(t, 3, env.recorded[0], "record-action issued per slot per iteration")
	assert.Equal(t, 3, env.recorded[1])
}

// TestBenchmark_ViolationFailures: on ticks with no degenerate action,
// any violated slot counts one combined failure.
func TestBenchmark_ViolationFailures(t *testing.T) {
	env := newFakeVecEnv([]int{10, 10})
	env.extraInfo = func(slot int) Info {
		if slot == 0 {
			return Info{InfoYawViolation: true}
		}
		return Info{}
	}

	d, err := NewDriver(env, constantProvider([]float64{1}), DriverConfig{DemoTarget: 4})
	require.NoError(t, err)

	res, err := d.Benchmark(context.Background())
	require.NoError(t, err)

	// Two demos per iteration, two iterations.
	assert.Equal(t, 4, res.Demos)
	assert.Equal(t, 0, res.DegenerateActions)
	assert.Equal(t, 2, res.YawViolations)
	assert.Equal(t, 2, res.Failures)
}

func TestBenchmark_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := NewDriver(newFakeVecEnv([]int{5}), constantProvider([]float64{1}), DriverConfig{DemoTarget: 1})
	require.NoError(t, err)

	_, err = d.Benchmark(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
