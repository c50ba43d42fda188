// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matching

import "errors"

// Sentinel errors for the matching package.
var (
	// ErrInvalidConfig indicates the matching configuration is unusable.
	ErrInvalidConfig = errors.New("invalid matching config")

	// ErrShapeMismatch indicates expert/predicted batches disagree on
	// batch size, hypothesis count, or hypothesis vector length.
	ErrShapeMismatch = errors.New("hypothesis shape mismatch")

	// ErrEmptyBatch indicates a batch with no samples.
	ErrEmptyBatch = errors.New("empty hypothesis batch")

	// ErrUnknownStrategy indicates an unrecognized assignment strategy.
	ErrUnknownStrategy = errors.New("unknown assignment strategy")
)
