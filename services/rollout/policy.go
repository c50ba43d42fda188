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
	"math/rand"
	"time"
)

// ActionProvider is the single capability the driver needs from a
// policy: batched observations in, batched actions out. Concrete
// providers adapt learned policies, external predictors, or random
// stand-ins behind this one contract; the variant is resolved once at
// driver construction, never per call.
type ActionProvider interface {
	// Predict maps one observation per slot to one action per slot. aux
	// carries opaque per-slot metadata some providers need (for example
	// per-slot obstacle counts); providers that do not use it ignore
	// it. deterministic selects the sampling mode for stochastic
	// policies. The returned duration is the mean per-slot computation
	// time, zero when the provider does not measure it.
	Predict(ctx context.Context, obs [][]float64, aux []any, deterministic bool) (acts [][]float64, meanTime time.Duration, err error)
}

// ProviderFunc adapts a plain function to the ActionProvider interface.
type ProviderFunc func(ctx context.Context, obs [][]float64, aux []any, deterministic bool) ([][]float64, time.Duration, error)

// Predict implements ActionProvider.
func (f ProviderFunc) Predict(ctx context.Context, obs [][]float64, aux []any, deterministic bool) ([][]float64, time.Duration, error) {
	return f(ctx, obs, aux, deterministic)
}

// RandomProvider samples actions uniformly from a box action space. It
// stands in for a policy when collecting exploratory data or exercising
// an environment.
type RandomProvider struct {
	// Low and High bound each action dimension. Both must have the same
	// length, the action dimensionality.
	Low, High []float64

	rng *rand.Rand
}

// NewRandomProvider returns a provider sampling uniformly in
// [low, high] per dimension, driven by the given seed.
func NewRandomProvider(low, high []float64, seed int64) (*RandomProvider, error) {
	if len(low) == 0 || len(low) != len(high) {
		return nil, fmt.Errorf("%w: bounds have lengths %d and %d", ErrInvalidDriverConfig, len(low), len(high))
	}
	for d := range low {
		if low[d] > high[d] {
			return nil, fmt.Errorf("%w: low[%d]=%g above high[%d]=%g", ErrInvalidDriverConfig, d, low[d], d, high[d])
		}
	}
	return &RandomProvider{
		Low:  low,
		High: high,
		rng:  rand.New(rand.NewSource(seed)),
	}, nil
}

// Predict implements ActionProvider. The deterministic flag is ignored:
// random sampling has no deterministic mode.
func (p *RandomProvider) Predict(_ context.Context, obs [][]float64, _ []any, _ bool) ([][]float64, time.Duration, error) {
	acts := make([][]float64, len(obs))
	for i := range obs {
		act := make([]float64, len(p.Low))
		for d := range act {
			act[d] = p.Low[d] + p.rng.Float64()*(p.High[d]-p.Low[d])
		}
		acts[i] = act
	}
	return acts, 0, nil
}
