// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profiling

import "errors"

// Sentinel errors for capture operations. Handlers distinguish workload
// failures from profiler failures with errors.Is.
var (
	// ErrProfilerStart is returned when the CPU profiler cannot be started,
	// typically because another profile is already active in the process.
	ErrProfilerStart = errors.New("cpu profiler start failed")

	// ErrProfilerStop is returned when the CPU profiler fails to stop or
	// flush its captured data.
	ErrProfilerStop = errors.New("cpu profiler stop failed")

	// ErrSummarize is returned when captured profile data cannot be parsed
	// or aggregated. The capture window was still closed cleanly.
	ErrSummarize = errors.New("profile summarization failed")

	// ErrWorkload wraps an error returned by the profiled workload.
	// The capture window was still closed cleanly.
	ErrWorkload = errors.New("workload failed")

	// ErrNilWorkload is returned when Capture is called without a workload.
	ErrNilWorkload = errors.New("nil workload")
)
