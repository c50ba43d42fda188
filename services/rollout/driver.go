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
	"log/slog"
	"math"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var driverTracer = otel.Tracer("rollout.driver")

// DriverConfig configures trajectory generation.
type DriverConfig struct {
	// DemoTarget caps the number of well-formed action demonstrations
	// collected in one run. Zero means unlimited for trajectory
	// generation; benchmark mode requires it.
	DemoTarget int `yaml:"demo_target"`

	// Deterministic selects the provider's sampling mode.
	Deterministic bool `yaml:"deterministic"`

	// Seed drives the final trajectory shuffle.
	Seed int64 `yaml:"seed"`

	// SampleUntil is the termination predicate over finished
	// trajectories. Required for GenerateTrajectories; ignored in
	// benchmark mode.
	SampleUntil SampleUntil `yaml:"-"`
}

// Driver rolls a vectorized environment forward with actions from an
// ActionProvider and collects the completed episodes.
type Driver struct {
	env      VecEnv
	provider ActionProvider
	cfg      DriverConfig
	rng      *rand.Rand
}

// NewDriver wires an environment and a provider together. The provider
// variant is resolved here, once, not per call.
func NewDriver(env VecEnv, provider ActionProvider, cfg DriverConfig) (*Driver, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil environment", ErrInvalidDriverConfig)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: nil action provider", ErrInvalidDriverConfig)
	}
	if cfg.DemoTarget < 0 {
		return nil, fmt.Errorf("%w: demo_target=%d must be non-negative", ErrInvalidDriverConfig, cfg.DemoTarget)
	}
	return &Driver{
		env:      env,
		provider: provider,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// isDegenerate reports whether an action vector contains a NaN. A
// degenerate action signals a per-sample policy failure: it is excluded
// from the demo counter but the run continues.
func isDegenerate(act []float64) bool {
	for _, v := range act {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func anyActive(active []bool) bool {
	for _, a := range active {
		if a {
			return true
		}
	}
	return false
}

// auxiliary queries each slot's obstacle count for the provider. Some
// providers need it to strip padded observations; the result is passed
// through opaquely.
func (d *Driver) auxiliary(ctx context.Context) ([]any, error) {
	aux, err := d.env.CallMethod(ctx, MethodObstacleCount)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", MethodObstacleCount, err)
	}
	return aux, nil
}

// predict queries the provider and validates the returned batch size.
func (d *Driver) predict(ctx context.Context, obs [][]float64, aux []any) ([][]float64, time.Duration, error) {
	acts, meanTime, err := d.provider.Predict(ctx, obs, aux, d.cfg.Deterministic)
	if err != nil {
		return nil, 0, fmt.Errorf("predicting actions: %w", err)
	}
	if len(acts) != d.env.NumEnvs() {
		return nil, 0, fmt.Errorf("%w: provider returned %d actions for %d slots",
			ErrBatchMismatch, len(acts), d.env.NumEnvs())
	}
	return acts, meanTime, nil
}

// GenerateTrajectories drives all environment slots until the
// termination predicate holds and every slot still mid-episode has run
// to completion.
//
// Stopping the instant the predicate held would bias the sample toward
// short episodes, since long ones are more likely to still be active.
// Instead, once the predicate holds, only the slots that finished that
// same tick are deactivated; the rest continue until they too finish.
// A deactivated slot's later done signals are masked out so it can
// never contribute again.
//
// When DemoTarget is set, well-formed (non-NaN) actions are counted and
// every slot is told to force-terminate its episode once the target is
// met, so no partial episode is dropped.
//
// The returned list is shuffled (a permutation of references, not of
// content) because earlier-finishing episodes would otherwise
// systematically appear first.
func (d *Driver) GenerateTrajectories(ctx context.Context) ([]Trajectory, error) {
	ctx, span := driverTracer.Start(ctx, "rollout.GenerateTrajectories",
		trace.WithAttributes(attribute.Int("num_envs", d.env.NumEnvs())),
	)
	defer span.End()

	if d.cfg.SampleUntil == nil {
		err := fmt.Errorf("%w: sample-until predicate is required", ErrInvalidDriverConfig)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	n := d.env.NumEnvs()
	target := d.cfg.DemoTarget
	if target == 0 {
		target = math.MaxInt
	}

	obs, err := d.env.Reset(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("resetting environment: %w", err)
	}
	if len(obs) != n {
		err := fmt.Errorf("%w: reset returned %d observations for %d slots", ErrBatchMismatch, len(obs), n)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	accum := NewTrajectoryAccumulator()
	for i, ob := range obs {
		accum.Seed(i, ob)
	}

	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	var trajectories []Trajectory
	demos := 0

	for anyActive(active) && demos < target {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		aux, err := d.auxiliary(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		acts, _, err := d.predict(ctx, obs, aux)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		for i := range acts {
			if !isDegenerate(acts[i]) {
				demos++
			}
		}
		if demos >= target {
			// Quota met: terminate every running episode instead of
			// dropping it mid-flight.
			if _, err := d.env.CallMethod(ctx, MethodForceDone); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("broadcasting %s: %w", MethodForceDone, err)
			}
		}

		var rews []float64
		var dones []bool
		var infos []Info
		obs, rews, dones, infos, err = d.env.Step(ctx, acts)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("stepping environment: %w", err)
		}
		if len(obs) != n || len(dones) != n {
			err := fmt.Errorf("%w: step returned %d observations and %d dones for %d slots",
				ErrBatchMismatch, len(obs), len(dones), n)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		// A deactivated slot keeps running (and resetting) but must
		// never look newly done again.
		for i := range dones {
			dones[i] = dones[i] && active[i]
		}

		finished := accum.AddStepsAndAutoFinish(acts, obs, rews, dones, infos)
		trajectories = append(trajectories, finished...)

		if d.cfg.SampleUntil(trajectories) {
			// Deactivate exactly the slots that finished this tick;
			// the rest run their episodes to completion.
			for i := range active {
				if dones[i] {
					active[i] = false
				}
			}
		}
	}

	d.rng.Shuffle(len(trajectories), func(i, j int) {
		trajectories[i], trajectories[j] = trajectories[j], trajectories[i]
	})

	span.SetAttributes(
		attribute.Int("trajectories", len(trajectories)),
		attribute.Int("demos", demos),
	)
	span.SetStatus(codes.Ok, "")
	slog.Info("rollout complete",
		slog.Int("trajectories", len(trajectories)),
		slog.Int("demos", demos),
		slog.Int("num_envs", n),
	)
	return trajectories, nil
}
