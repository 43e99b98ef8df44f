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

import (
	"io"
	"runtime"
	"runtime/pprof"
)

// CPUProfiler starts and stops a CPU profiling capture.
//
// Description:
//
//	Abstracts the process-global runtime/pprof CPU profiler behind a
//	start/stop pair so the capture engine can be tested with a
//	deterministic fake. Implementations write pprof protobuf data to the
//	writer passed to Start; the data is complete once Stop returns.
//
// Thread Safety: Implementations are NOT required to be safe for
// concurrent use. The Engine serializes all access.
type CPUProfiler interface {
	// Start begins a capture, streaming pprof data to w. It fails if a
	// capture is already active.
	Start(w io.Writer) error

	// Stop ends the capture and flushes remaining data to the writer
	// passed to Start.
	Stop() error
}

// HeapProfiler takes a point-in-time snapshot of heap allocation data.
//
// Description:
//
//	Writes a pprof-format heap profile to w. Used in pairs by the capture
//	engine to compute the allocation delta across a profiling window.
//
// Thread Safety: Implementations are NOT required to be safe for
// concurrent use. The Engine serializes all access.
type HeapProfiler interface {
	Snapshot(w io.Writer) error
}

// RuntimeCPUProfiler is the production CPUProfiler backed by runtime/pprof.
//
// The runtime permits one active CPU profile per process; Start returns an
// error if profiling is already enabled elsewhere.
type RuntimeCPUProfiler struct{}

// Start begins CPU profiling, streaming protobuf data to w.
func (RuntimeCPUProfiler) Start(w io.Writer) error {
	return pprof.StartCPUProfile(w)
}

// Stop ends CPU profiling and flushes buffered samples. The runtime's stop
// cannot fail, so the error is always nil.
func (RuntimeCPUProfiler) Stop() error {
	pprof.StopCPUProfile()
	return nil
}

// RuntimeHeapProfiler is the production HeapProfiler backed by the
// runtime's heap profile.
type RuntimeHeapProfiler struct{}

// Snapshot forces a GC so allocation accounting is current, then writes
// the heap profile to w in pprof protobuf format.
func (RuntimeHeapProfiler) Snapshot(w io.Writer) error {
	runtime.GC()
	return pprof.Lookup("heap").WriteTo(w, 0)
}
