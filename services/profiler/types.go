// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profiler

import (
	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/profiling"
)

// FunctionProfile is one function's row in a profiling response.
type FunctionProfile struct {
	// Calls is the number of profiling samples attributed to the function.
	Calls int64 `json:"calls"`

	// Time is the CPU time attributed to the function in milliseconds.
	Time float64 `json:"time"`

	// File is the source file that defines the function.
	File string `json:"file,omitempty"`
}

// MemoryProfile is the heap allocation delta for a profiling window.
type MemoryProfile struct {
	// AllocBytes is the number of bytes allocated during the window.
	AllocBytes int64 `json:"alloc_bytes"`

	// AllocObjects is the number of objects allocated during the window.
	AllocObjects int64 `json:"alloc_objects"`
}

// ProfileResponse is the response for GET /profile.
type ProfileResponse struct {
	// Profile maps function names to their call counts and times.
	Profile map[string]FunctionProfile `json:"profile"`

	// TotalCalls is the total number of samples across all functions.
	TotalCalls int64 `json:"total_calls"`

	// TotalTime is the wall-clock width of the profiling window in
	// milliseconds.
	TotalTime float64 `json:"total_time"`

	// Memory is the heap allocation delta. Present only when memory
	// tracing is enabled.
	Memory *MemoryProfile `json:"memory,omitempty"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /ready.
type ReadyResponse struct {
	// Status is "ready" or "unavailable".
	Status string `json:"status"`

	// Checks reports per-subsystem readiness.
	Checks map[string]bool `json:"checks"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}

// newProfileResponse converts a profiling summary into the wire shape.
func newProfileResponse(summary *profiling.Summary) ProfileResponse {
	resp := ProfileResponse{
		Profile:    make(map[string]FunctionProfile, len(summary.Functions)),
		TotalCalls: summary.TotalCalls,
		TotalTime:  summary.TotalTimeMillis(),
	}
	for _, fn := range summary.Functions {
		resp.Profile[fn.Name] = FunctionProfile{
			Calls: fn.Calls,
			Time:  fn.TimeMillis(),
			File:  fn.File,
		}
	}
	if summary.Memory != nil {
		resp.Memory = &MemoryProfile{
			AllocBytes:   summary.Memory.AllocBytes,
			AllocObjects: summary.Memory.AllocObjects,
		}
	}
	return resp
}
