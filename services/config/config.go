// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the training configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianMimic/services/matching"
	"github.com/AleutianAI/AleutianMimic/services/rollout"
)

// MaxYAMLFileSize is the maximum allowed configuration file size (1MB).
// Prevents memory issues from large files.
const MaxYAMLFileSize = 1024 * 1024

// Sentinel errors for the config package.
var (
	// ErrFileTooLarge indicates the configuration file exceeds
	// MaxYAMLFileSize.
	ErrFileTooLarge = errors.New("config file too large")

	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = errors.New("invalid training config")
)

// RolloutConfig is the `rollout:` section of the configuration file.
type RolloutConfig struct {
	// DemoTarget caps well-formed demonstrations per run; zero means
	// unlimited during trajectory generation.
	DemoTarget int `yaml:"demo_target"`

	// Deterministic selects the policy's sampling mode.
	Deterministic bool `yaml:"deterministic"`

	// Seed drives the trajectory shuffle and random providers.
	Seed int64 `yaml:"seed"`

	// MinEpisodes and MinTimesteps bound the sample-until predicate.
	// Zero means the bound is absent; at least one must be set.
	MinEpisodes  int `yaml:"min_episodes"`
	MinTimesteps int `yaml:"min_timesteps"`

	// Gamma is the discount factor for return computations.
	Gamma float64 `yaml:"gamma"`

	// ExcludeInfos strips per-step infos before persisting rollouts.
	ExcludeInfos bool `yaml:"exclude_infos"`
}

// SampleUntil builds the termination predicate from the configured
// bounds.
func (c RolloutConfig) SampleUntil() (rollout.SampleUntil, error) {
	return rollout.MakeSampleUntil(c.MinTimesteps, c.MinEpisodes)
}

// DriverConfig assembles the rollout driver configuration, including
// the sample-until predicate.
func (c RolloutConfig) DriverConfig() (rollout.DriverConfig, error) {
	until, err := c.SampleUntil()
	if err != nil {
		return rollout.DriverConfig{}, err
	}
	return rollout.DriverConfig{
		DemoTarget:    c.DemoTarget,
		Deterministic: c.Deterministic,
		Seed:          c.Seed,
		SampleUntil:   until,
	}, nil
}

// Validate checks the rollout section.
func (c RolloutConfig) Validate() error {
	if c.DemoTarget < 0 {
		return fmt.Errorf("%w: rollout.demo_target must be non-negative, got %d", ErrInvalidConfig, c.DemoTarget)
	}
	if c.MinEpisodes < 0 || c.MinTimesteps < 0 {
		return fmt.Errorf("%w: rollout bounds must be non-negative", ErrInvalidConfig)
	}
	if c.MinEpisodes == 0 && c.MinTimesteps == 0 {
		return fmt.Errorf("%w: at least one of rollout.min_episodes and rollout.min_timesteps is required", ErrInvalidConfig)
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("%w: rollout.gamma must be in (0, 1], got %g", ErrInvalidConfig, c.Gamma)
	}
	return nil
}

// TrainingConfig is the full configuration surface of the service.
type TrainingConfig struct {
	Matching matching.Config `yaml:"matching"`
	Rollout  RolloutConfig   `yaml:"rollout"`
}

// applyDefaults fills unset fields with working values.
func (c *TrainingConfig) applyDefaults() {
	if c.Matching.Strategy == "" {
		c.Matching.Strategy = matching.StrategyExact
	}
	if c.Matching.YawScaling == 0 {
		c.Matching.YawScaling = 1.0
	}
	if c.Rollout.Gamma == 0 {
		c.Rollout.Gamma = 1.0
	}
	if c.Rollout.MinEpisodes == 0 && c.Rollout.MinTimesteps == 0 {
		c.Rollout.MinEpisodes = 1
	}
}

// Validate checks the whole configuration.
func (c *TrainingConfig) Validate() error {
	if err := c.Matching.Validate(); err != nil {
		return err
	}
	return c.Rollout.Validate()
}

// Load reads a YAML configuration file, applies defaults, and
// validates. The file must not exceed MaxYAMLFileSize.
func Load(path string) (*TrainingConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), MaxYAMLFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg TrainingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
