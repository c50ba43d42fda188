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

import "errors"

// Sentinel errors for the rollout package.
var (
	// ErrInvalidSampleUntil indicates a termination predicate with no
	// usable bounds.
	ErrInvalidSampleUntil = errors.New("invalid sample-until bounds")

	// ErrBatchMismatch indicates the environment or provider returned a
	// batch whose size disagrees with the slot count.
	ErrBatchMismatch = errors.New("batch size mismatch")

	// ErrNoTrajectories indicates an operation that needs at least one
	// trajectory received none.
	ErrNoTrajectories = errors.New("no trajectories")

	// ErrInvalidDriverConfig indicates an unusable driver configuration.
	ErrInvalidDriverConfig = errors.New("invalid driver config")
)
