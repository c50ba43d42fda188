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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BenchmarkResult aggregates the counters of one benchmark run.
type BenchmarkResult struct {
	// Demos is the number of well-formed action demonstrations.
	Demos int

	// DegenerateActions counts NaN action vectors returned by the
	// provider.
	DegenerateActions int

	// ObstacleViolations, TransViolations and YawViolations count the
	// environment-reported violations of each kind.
	ObstacleViolations int
	TransViolations    int
	YawViolations      int

	// Failures is the combined failure count: every degenerate action,
	// plus every slot that violated any limit on a tick whose actions
	// were all well-formed.
	Failures int

	// ComputationTimes holds the provider's mean per-slot computation
	// time, one entry per iteration.
	ComputationTimes []time.Duration

	// Costs holds per-slot step costs (negative rewards), appended
	// every iteration.
	Costs []float64
}

// infoFlag reads a boolean info entry, treating absence as false.
func infoFlag(info Info, key string) bool {
	v, ok := info[key].(bool)
	return ok && v
}

// Benchmark measures the provider against fixed-horizon trials: every
// iteration resets all slots, queries one action batch, steps once, and
// accounts failures instead of accumulating trajectories. Each slot is
// also handed its chosen action through a record-action call for
// external logging. The run stops when the demo target is reached.
func (d *Driver) Benchmark(ctx context.Context) (*BenchmarkResult, error) {
	ctx, span := driverTracer.Start(ctx, "rollout.Benchmark",
		trace.WithAttributes(
			attribute.Int("num_envs", d.env.NumEnvs()),
			attribute.Int("demo_target", d.cfg.DemoTarget),
		),
	)
	defer span.End()

	if d.cfg.DemoTarget <= 0 {
		err := fmt.Errorf("%w: benchmark mode requires a positive demo_target", ErrInvalidDriverConfig)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	n := d.env.NumEnvs()
	res := &BenchmarkResult{}

	for res.Demos < d.cfg.DemoTarget {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		// Fresh trial: every slot starts from reset so runs are
		// comparable.
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

		aux, err := d.auxiliary(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		acts, meanTime, err := d.predict(ctx, obs, aux)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		sawDegenerate := false
		for i := range acts {
			if isDegenerate(acts[i]) {
				res.DegenerateActions++
				res.Failures++
				sawDegenerate = true
				benchmarkFailures.WithLabelValues("degenerate_action").Inc()
			} else {
				res.Demos++
				benchmarkDemos.Inc()
			}
		}

		if res.Demos >= d.cfg.DemoTarget {
			if _, err := d.env.CallMethod(ctx, MethodForceDone); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("broadcasting %s: %w", MethodForceDone, err)
			}
		}

		_, rews, _, infos, err := d.env.Step(ctx, acts)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("stepping environment: %w", err)
		}

		for i := 0; i < n; i++ {
			if _, err := d.env.CallMethodAt(ctx, i, MethodRecordAction, acts[i]); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("recording action for slot %d: %w", i, err)
			}
		}

		for i := range infos {
			obstacle := infoFlag(infos[i], InfoObstacleViolation)
			trans := infoFlag(infos[i], InfoTransViolation)
			yaw := infoFlag(infos[i], InfoYawViolation)
			if obstacle {
				res.ObstacleViolations++
				benchmarkViolations.WithLabelValues("obstacle_avoidance").Inc()
			}
			if trans {
				res.TransViolations++
				benchmarkViolations.WithLabelValues("translational").Inc()
			}
			if yaw {
				res.YawViolations++
				benchmarkViolations.WithLabelValues("yaw").Inc()
			}
			if !sawDegenerate && (obstacle || trans || yaw) {
				res.Failures++
				benchmarkFailures.WithLabelValues("violation").Inc()
			}
		}

		res.ComputationTimes = append(res.ComputationTimes, meanTime)
		benchmarkComputationTime.Observe(meanTime.Seconds())
		for _, r := range rews {
			res.Costs = append(res.Costs, -r)
		}
	}

	span.SetAttributes(
		attribute.Int("demos", res.Demos),
		attribute.Int("failures", res.Failures),
	)
	span.SetStatus(codes.Ok, "")
	slog.Info("benchmark complete",
		slog.Int("demos", res.Demos),
		slog.Int("failures", res.Failures),
		slog.Int("obstacle_violations", res.ObstacleViolations),
		slog.Int("trans_violations", res.TransViolations),
		slog.Int("yaw_violations", res.YawViolations),
	)
	return res, nil
}
