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
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriver_Validation(t *testing.T) {
	env := newFakeVecEnv([]int{2})
	provider := constantProvider([]float64{0})

	_, err := NewDriver(nil, provider, DriverConfig{})
	assert.ErrorIs(t, err, ErrInvalidDriverConfig)

	_, err = NewDriver(env, nil, DriverConfig{})
	assert.ErrorIs(t, err, ErrInvalidDriverConfig)

	_, err = NewDriver(env, provider, DriverConfig{DemoTarget: -1})
	assert.ErrorIs(t, err, ErrInvalidDriverConfig)

	d, err := NewDriver(env, provider, DriverConfig{SampleUntil: MinEpisodes(1)})
	require.NoError(t, err)
	require.NotNil(t, d)
}

func TestGenerateTrajectories_RequiresSampleUntil(t *testing.T) {
	d, err := NewDriver(newFakeVecEnv([]int{2}), constantProvider([]float64{0}), DriverConfig{})
	require.NoError(t, err)

	_, err = d.GenerateTrajectories(context.Background())
	assert.ErrorIs(t, err, ErrInvalidDriverConfig)
}

// TestGenerateTrajectories_FourSlots: with four slots and a two-episode
// target, the two slots that finish together are deactivated while the
// longer two run to completion, and no slot contributes twice.
func TestGenerateTrajectories_FourSlots(t *testing.T) {
	env := newFakeVecEnv([]int{2, 2, 5, 5})
	d, err := NewDriver(env, constantProvider([]float64{1}), DriverConfig{
		SampleUntil: MinEpisodes(2),
		Seed:        7,
	})
	require.NoError(t, err)

	trajectories, err := d.GenerateTrajectories(context.Background())
	require.NoError(t, err)
	require.Len(t, trajectories, 4)

	// Slots 0 and 1 report done again two ticks after deactivation;
	// exactly one trajectory per slot proves the mask held.
	bySlot := map[float64]int{}
	lengths := make([]int, 0, 4)
	for _, traj := range trajectories {
		assert.True(t, traj.Terminal)
		bySlot[traj.Obs[0][0]]++
		lengths = append(lengths, traj.Len())
	}
	for slot, count := range bySlot {
		assert.Equal(t, 1, count, "slot %v", slot)
	}
	sort.Ints(lengths)
	assert.Equal(t, []int{2, 2, 5, 5}, lengths)

	assert.Equal(t, 1, env.resets, "continuous rollout resets once")
}

// TestGenerateTrajectories_ShuffleDeterministic: identical seeds give
// an identical order, over the same set of episodes.
func TestGenerateTrajectories_ShuffleDeterministic(t *testing.T) {
	run := func(seed int64) []float64 {
		d, err := NewDriver(newFakeVecEnv([]int{2, 3, 4, 5}), constantProvider([]float64{1}), DriverConfig{
			SampleUntil: MinEpisodes(3),
			Seed:        seed,
		})
		require.NoError(t, err)
		trajectories, err := d.GenerateTrajectories(context.Background())
		require.NoError(t, err)

		slots := make([]float64, len(trajectories))
		for i, traj := range trajectories {
			slots[i] = traj.Obs[0][0]
		}
		return slots
	}

	first := run(42)
	second := run(42)
	assert.Equal(t, first, second)

	sorted := append([]float64(nil), first...)
	sort.Float64s(sorted)
	assert.Equal(t, []float64{0, 0, 1, 1, 2, 3}, sorted,
		"fast slots finish twice before the long episodes complete")
}

// TestGenerateTrajectories_DemoTargetForceDone: once the demo quota is
// met every slot is told to finish, so no partial episode is dropped.
func TestGenerateTrajectories_DemoTargetForceDone(t *testing.T) {
	env := newFakeVecEnv([]int{10, 10})
	d, err := NewDriver(env, constantProvider([]float64{1}), DriverConfig{
		DemoTarget:  3,
		SampleUntil: MinEpisodes(100),
	})
	require.NoError(t, err)

	trajectories, err := d.GenerateTrajectories(context.Background())
	require.NoError(t, err)

	require.Len(t, trajectories, 2, "both slots force-terminated")
	for _, traj := range trajectories {
		assert.Equal(t, 2, traj.Len(), "quota met on the second tick")
	}
}

// TestGenerateTrajectories_DegenerateActionsNotCounted: NaN actions are
// excluded from the demo counter, so the quota is not met by failures.
func TestGenerateTrajectories_DegenerateActionsNotCounted(t *testing.T) {
	nan := []float64{math.NaN()}
	d, err := NewDriver(newFakeVecEnv([]int{2, 2}), constantProvider(nan), DriverConfig{
		DemoTarget:  1,
		SampleUntil: MinEpisodes(2),
	})
	require.NoError(t, err)

	trajectories, err := d.GenerateTrajectories(context.Background())
	require.NoError(t, err)

	// Were NaN actions counted, the quota would force-terminate after
	// one tick; instead both episodes run their full two steps.
	require.Len(t, trajectories, 2)
	for _, traj := range trajectories {
		assert.Equal(t, 2, traj.Len())
	}
}

func TestGenerateTrajectories_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := NewDriver(newFakeVecEnv([]int{5}), constantProvider([]float64{1}), DriverConfig{
		SampleUntil: MinEpisodes(1),
	})
	require.NoError(t, err)

	_, err = d.GenerateTrajectories(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateTrajectories_ProviderError(t *testing.T) {
	failing := ProviderFunc(func(context.Context, [][]float64, []any, bool) ([][]float64, time.Duration, error) {
		return nil, 0, assert.AnError
	})
	d, err := NewDriver(newFakeVecEnv([]int{2}), failing, DriverConfig{SampleUntil: MinEpisodes(1)})
	require.NoError(t, err)

	_, err = d.GenerateTrajectories(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestGenerateTrajectories_ProviderBatchMismatch(t *testing.T) {
	short := ProviderFunc(func(_ context.Context, obs [][]float64, _ []any, _ bool) ([][]float64, time.Duration, error) {
		return [][]float64{{1}}, 0, nil
	})
	d, err := NewDriver(newFakeVecEnv([]int{2, 2}), short, DriverConfig{SampleUntil: MinEpisodes(1)})
	require.NoError(t, err)

	_, err = d.GenerateTrajectories(context.Background())
	assert.ErrorIs(t, err, ErrBatchMismatch)
}

func TestRandomProvider(t *testing.T) {
	_, err := NewRandomProvider([]float64{0, 0}, []float64{1}, 1)
	assert.ErrorIs(t, err, ErrInvalidDriverConfig)

	_, err = NewRandomProvider([]float64{2}, []float64{1}, 1)
	assert.ErrorIs(t, err, ErrInvalidDriverConfig)

	p, err := NewRandomProvider([]float64{-1, 0}, []float64{1, 0.5}, 1)
	require.NoError(t, err)

	acts, _, err := p.Predict(context.Background(), [][]float64{{0}, {0}, {0}}, nil, false)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	for _, act := range acts {
		require.Len(t, act, 2)
		assert.GreaterOrEqual(t, act[0], -1.0)
		assert.LessOrEqual(t, act[0], 1.0)
		assert.GreaterOrEqual(t, act[1], 0.0)
		assert.LessOrEqual(t, act[1], 0.5)
	}
}
