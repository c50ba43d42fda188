// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess = 0 // Operation completed successfully
	CLIExitError   = 2 // Operation failed
)

// CommandResult wraps command output with metadata for JSON mode.
type CommandResult struct {
	APIVersion string    `json:"api_version"`
	Command    string    `json:"command"`
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// writeJSON encodes a CommandResult to w.
func writeJSON(w io.Writer, command string, data any) error {
	result := CommandResult{
		APIVersion: "v1",
		Command:    command,
		Timestamp:  time.Now().UTC(),
		Success:    true,
		Data:       data,
	}
	encoder := json.NewEncoder(w)
	if !outputCompact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(result)
}

// writeMetrics prints a float map in stable key order, one metric per
// line, for human consumption.
func writeMetrics(w io.Writer, metrics map[string]float64) {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-24s %g\n", k, metrics[k])
	}
}
