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

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ActionEvaluator scores expert actions under the current policy
// distribution. Implementations wrap whatever model backend is in use;
// the loss layer only needs per-sample log-probabilities and entropies.
type ActionEvaluator interface {
	// Evaluate returns, for each (observation, action) pair, the log
	// probability of the action under the policy and the entropy of the
	// policy distribution at that observation. Both slices have one
	// entry per sample.
	Evaluate(ctx context.Context, obs, acts [][]float64) (logProbs, entropies []float64, err error)

	// ParameterL2 returns the L2 norm of the policy parameters, used
	// for weight regularization. Implementations without accessible
	// parameters return 0.
	ParameterL2() float64
}

// NLLConfig controls the negative-log-likelihood loss path used by
// single-hypothesis policies.
type NLLConfig struct {
	// EntropyWeight scales the entropy bonus. Zero disables it.
	EntropyWeight float64 `yaml:"entropy_weight"`
	// L2Weight scales the parameter L2 regularizer. Zero disables it.
	L2Weight float64 `yaml:"l2_weight"`
}

// Validate rejects weights that would flip the sign of a penalty term.
func (c NLLConfig) Validate() error {
	if c.EntropyWeight < 0 {
		return fmt.Errorf("%w: entropy_weight must be >= 0, got %g", ErrInvalidConfig, c.EntropyWeight)
	}
	if c.L2Weight < 0 {
		return fmt.Errorf("%w: l2_weight must be >= 0, got %g", ErrInvalidConfig, c.L2Weight)
	}
	return nil
}

// ComputeNLLLoss evaluates the behavioral-cloning loss for policies
// that emit a single action distribution instead of a hypothesis set:
// mean negative log-likelihood of the expert actions, minus a weighted
// entropy bonus, plus weighted L2 regularization.
//
// Diagnostics carry the individual terms plus the mean probability
// assigned to the true actions.
func ComputeNLLLoss(ctx context.Context, cfg NLLConfig, eval ActionEvaluator, obs, acts [][]float64) (*LossResult, error) {
	ctx, span := solverTracer.Start(ctx, "matching.ComputeNLLLoss")
	defer span.End()

	if err := cfg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(obs) == 0 {
		err := fmt.Errorf("%w: no samples", ErrEmptyBatch)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(obs) != len(acts) {
		err := fmt.Errorf("%w: %d observations vs %d actions", ErrShapeMismatch, len(obs), len(acts))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logProbs, entropies, err := eval.Evaluate(ctx, obs, acts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("evaluating actions: %w", err)
	}
	if len(logProbs) != len(obs) || len(entropies) != len(obs) {
		err := fmt.Errorf("%w: evaluator returned %d log-probs and %d entropies for %d samples",
			ErrShapeMismatch, len(logProbs), len(entropies), len(obs))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	n := float64(len(obs))
	var sumLogProb, sumEntropy, sumProb float64
	for i := range logProbs {
		sumLogProb += logProbs[i]
		sumEntropy += entropies[i]
		sumProb += math.Exp(logProbs[i])
	}

	neglogp := -sumLogProb / n
	entropy := sumEntropy / n
	entLoss := -cfg.EntropyWeight * entropy
	l2Norm := eval.ParameterL2()
	l2Loss := cfg.L2Weight * l2Norm
	loss := neglogp + entLoss + l2Loss

	span.SetAttributes(attribute.Float64("loss", loss))
	span.SetStatus(codes.Ok, "")
	return &LossResult{
		Loss: loss,
		Diagnostics: map[string]float64{
			"loss":          loss,
			"neglogp":       neglogp,
			"entropy":       entropy,
			"ent_loss":      entLoss,
			"prob_true_act": sumProb / n,
			"l2_norm":       l2Norm,
			"l2_loss":       l2Loss,
		},
	}, nil
}
