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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trajOfLen makes a trajectory with n steps for predicate tests.
func trajOfLen(n int) Trajectory {
	t := Trajectory{Obs: make([][]float64, n+1), Acts: make([][]float64, n), Rews: make([]float64, n)}
	return t
}

func TestMinEpisodes(t *testing.T) {
	until := MinEpisodes(2)
	assert.False(t, until(nil))
	assert.False(t, until([]Trajectory{trajOfLen(5)}))
	assert.True(t, until([]Trajectory{trajOfLen(5), trajOfLen(1)}))
}

func TestMinTimesteps(t *testing.T) {
	until := MinTimesteps(6)
	assert.False(t, until([]Trajectory{trajOfLen(5)}))
	assert.True(t, until([]Trajectory{trajOfLen(5), trajOfLen(1)}))
	assert.True(t, until([]Trajectory{trajOfLen(10)}))
}

func TestMakeSampleUntil(t *testing.T) {
	tests := []struct {
		name         string
		minTimesteps int
		minEpisodes  int
		wantErr      bool
	}{
		{name: "both bounds", minTimesteps: 4, minEpisodes: 2},
		{name: "timesteps only", minTimesteps: 4},
		{name: "episodes only", minEpisodes: 2},
		{name: "neither bound", wantErr: true},
		{name: "negative timesteps", minTimesteps: -1, wantErr: true},
		{name: "negative episodes", minEpisodes: -3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			until, err := MakeSampleUntil(tt.minTimesteps, tt.minEpisodes)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSampleUntil)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, until)
		})
	}
}

// TestMakeSampleUntil_Conjunction: both bounds must hold.
func TestMakeSampleUntil_Conjunction(t *testing.T) {
	until, err := MakeSampleUntil(6, 2)
	require.NoError(t, err)

	assert.False(t, until([]Trajectory{trajOfLen(10)}), "episodes unmet")
	assert.False(t, until([]Trajectory{trajOfLen(2), trajOfLen(2)}), "timesteps unmet")
	assert.True(t, until([]Trajectory{trajOfLen(4), trajOfLen(3)}))
}
