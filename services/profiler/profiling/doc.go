// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package profiling captures CPU profiles around a workload and summarizes
// them into per-function call counts and times.
//
// # Capture Model
//
// The platform primitive (runtime/pprof CPU profiling) is process-global:
// only one CPU profile can be active in the process at a time. The package
// hides that constraint behind two pieces:
//
//   - CPUProfiler: a narrow start/stop interface over the global profiler,
//     so tests can substitute a deterministic fake.
//   - Engine: owns the capture window. Concurrent Capture calls are
//     coalesced; the first caller runs the workload under the profiler and
//     every concurrent caller shares the resulting Summary. A Summary is
//     immutable once built, so sharing is safe.
//
// # Summarization
//
// Captured pprof protobuf data is parsed with github.com/google/pprof.
// Each sample is attributed to its leaf frame: a function's call count is
// the number of samples whose leaf is that function, and its time is the
// summed CPU time of those samples. The summary's total time is the
// wall-clock width of the capture window, which for a single-goroutine
// workload is always at least any per-function CPU time.
//
// # Memory Tracing
//
// When enabled, the engine snapshots the heap profile before and after the
// workload and merges the two profiles with the earlier one negated,
// yielding the allocation delta for the window.
package profiling
