// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rollout collects, analyzes and persists trajectory rollouts
// from a vectorized environment.
//
// A Driver steps N environment slots with actions from an
// ActionProvider and assembles completed episodes through a
// TrajectoryAccumulator. Sampling continues until a caller-supplied
// termination predicate over the finished trajectories holds; slots
// that are mid-episode when it does are allowed to run to completion so
// the result is not biased toward short episodes. The driver also has a
// benchmark mode that resets every iteration and reports failure
// counters instead of trajectories.
//
// Control flow is single-threaded: the N slots are data-parallel
// through batched VecEnv calls, and the accumulator's per-slot buffers
// are touched only by the driver loop.
package rollout
