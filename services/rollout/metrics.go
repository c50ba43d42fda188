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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Benchmark Runs
// =============================================================================

var (
	// benchmarkDemos counts well-formed action demonstrations.
	benchmarkDemos = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mimic",
		Subsystem: "rollout",
		Name:      "benchmark_demos_total",
		Help:      "Total well-formed action demonstrations collected in benchmark mode",
	})

	// benchmarkFailures counts combined benchmark failures.
	// Labels: reason (degenerate_action, violation)
	benchmarkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mimic",
		Subsystem: "rollout",
		Name:      "benchmark_failures_total",
		Help:      "Total benchmark failures by reason",
	}, []string{"reason"})

	// benchmarkViolations counts environment-reported violations.
	// Labels: type (obstacle_avoidance, translational, yaw)
	benchmarkViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mimic",
		Subsystem: "rollout",
		Name:      "benchmark_violations_total",
		Help:      "Total dynamics and obstacle violations by type",
	}, []string{"type"})

	// benchmarkComputationTime observes per-step policy computation
	// time in seconds.
	benchmarkComputationTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mimic",
		Subsystem: "rollout",
		Name:      "benchmark_computation_seconds",
		Help:      "Per-step mean policy computation time in benchmark mode",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})
)
