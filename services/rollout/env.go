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

import "context"

// Remote method names understood by the environment collaborator. These
// are wire-level identifiers, part of the environment contract.
const (
	// MethodForceDone asks a slot to terminate its current episode at
	// the next step, so partial episodes are not silently dropped once
	// the demo quota is met.
	MethodForceDone = "forceDone"

	// MethodRecordAction hands a slot the chosen action for external
	// logging.
	MethodRecordAction = "saveInBag"

	// MethodObstacleCount queries a slot for its current obstacle
	// count, auxiliary input some providers need.
	MethodObstacleCount = "get_num_obs"
)

// Info keys reported by the environment on dynamics or obstacle
// violations, counted in benchmark mode.
const (
	InfoObstacleViolation = "obst_avoidance_violation"
	InfoTransViolation    = "trans_dyn_lim_violation"
	InfoYawViolation      = "yaw_dyn_lim_violation"
)

// VecEnv is a vectorized environment: N slots stepped together through
// batched calls. All batch slices are indexed by slot.
//
// The driver treats Reset and Step as synchronous; whatever transport
// sits behind the interface must block until every slot has responded.
type VecEnv interface {
	// NumEnvs returns the slot count N.
	NumEnvs() int

	// Reset restarts every slot and returns their initial observations.
	Reset(ctx context.Context) ([][]float64, error)

	// Step advances every slot with its action. For a slot whose
	// episode ended this tick, dones is true, obs is already the first
	// observation after reset, and infos carries the true final
	// observation under TerminalObservationKey.
	Step(ctx context.Context, acts [][]float64) (obs [][]float64, rews []float64, dones []bool, infos []Info, err error)

	// CallMethod invokes a named method on every slot and returns one
	// result per slot.
	CallMethod(ctx context.Context, name string, args ...any) ([]any, error)

	// CallMethodAt invokes a named method on a single slot.
	CallMethodAt(ctx context.Context, slot int, name string, args ...any) (any, error)
}
