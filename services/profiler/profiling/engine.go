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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// captureKey coalesces all concurrent captures; the profiler is
// process-global, so there is never more than one meaningful window.
const captureKey = "cpu-capture"

// Workload is the function profiled by a capture. It runs exactly once per
// capture window and must respect context cancellation in any waiting
// phase.
type Workload func(ctx context.Context) error

// Engine owns the process-global profiling window.
//
// Description:
//
//	Serializes access to the CPU profiler and performs the full capture
//	sequence: optional pre-window heap snapshot, profiler start, workload,
//	profiler stop, summarization, optional post-window heap delta.
//	Concurrent Capture calls are coalesced: one caller runs the sequence
//	and the rest share its Summary and error. Callers arriving after a
//	window closes start a fresh one.
//
// Thread Safety: Safe for concurrent use.
type Engine struct {
	cpu    CPUProfiler
	heap   HeapProfiler
	memory bool
	logger *slog.Logger
	flight singleflight.Group
}

// NewEngine creates a capture engine.
//
// Inputs:
//
//	cpu - CPU profiler implementation. Nil selects RuntimeCPUProfiler.
//	heap - Heap profiler implementation. Nil selects RuntimeHeapProfiler.
//	memoryTracing - When true, each capture also reports the heap
//	  allocation delta for its window.
//	logger - Structured logger. Nil selects slog.Default().
func NewEngine(cpu CPUProfiler, heap HeapProfiler, memoryTracing bool, logger *slog.Logger) *Engine {
	if cpu == nil {
		cpu = RuntimeCPUProfiler{}
	}
	if heap == nil {
		heap = RuntimeHeapProfiler{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cpu:    cpu,
		heap:   heap,
		memory: memoryTracing,
		logger: logger,
	}
}

// Capture profiles one execution of the workload and summarizes it.
//
// Description:
//
//	Runs the capture sequence under singleflight: concurrent callers
//	share the window started by the first one, including its error. The
//	capture window is always closed, even when the workload fails or
//	panics. A workload error is reported as ErrWorkload and still closes
//	the window cleanly, so an immediately following Capture succeeds.
//
// Inputs:
//
//	ctx - Context passed to the workload. Cancellation is observed by
//	  the workload's waiting phases, not by the profiler itself.
//	workload - The function to profile. Must be non-nil.
//
// Outputs:
//
//	*Summary - Per-function stats plus the wall-clock window width.
//	  Shared between coalesced callers; must not be modified.
//	error - ErrNilWorkload, ErrProfilerStart, ErrWorkload,
//	  ErrProfilerStop, or ErrSummarize.
//
// Example:
//
//	summary, err := engine.Capture(ctx, func(ctx context.Context) error {
//	    return runner.Run(ctx)
//	})
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) Capture(ctx context.Context, workload Workload) (*Summary, error) {
	if workload == nil {
		return nil, ErrNilWorkload
	}

	result, err, shared := e.flight.Do(captureKey, func() (interface{}, error) {
		return e.capture(ctx, workload)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.Debug("profile capture coalesced with concurrent request")
	}
	return result.(*Summary), nil
}

// capture runs one full window. Only ever executed by the singleflight
// winner, so profiler access needs no further locking.
func (e *Engine) capture(ctx context.Context, workload Workload) (*Summary, error) {
	var preHeap []byte
	if e.memory {
		snap, err := e.snapshotHeap()
		if err != nil {
			// Memory stats are additive; a failed snapshot degrades the
			// summary instead of failing the capture.
			e.logger.Warn("pre-window heap snapshot failed",
				slog.String("error", err.Error()))
		} else {
			preHeap = snap
		}
	}

	var buf bytes.Buffer
	if err := e.cpu.Start(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfilerStart, err)
	}

	// The window must close even if the workload panics.
	stopped := false
	var stopErr error
	stop := func() {
		if !stopped {
			stopped = true
			stopErr = e.cpu.Stop()
		}
	}
	defer stop()

	start := time.Now()
	workloadErr := workload(ctx)
	stop()
	elapsed := time.Since(start)

	if workloadErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkload, workloadErr)
	}
	if stopErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfilerStop, stopErr)
	}

	summary, err := Summarize(buf.Bytes())
	if err != nil {
		return nil, err
	}
	summary.TotalTime = elapsed

	if e.memory && preHeap != nil {
		postHeap, err := e.snapshotHeap()
		if err != nil {
			e.logger.Warn("post-window heap snapshot failed",
				slog.String("error", err.Error()))
		} else if delta, err := HeapDelta(preHeap, postHeap); err != nil {
			e.logger.Warn("heap delta computation failed",
				slog.String("error", err.Error()))
		} else {
			summary.Memory = delta
		}
	}

	e.logger.Debug("profile capture complete",
		slog.Int("functions", len(summary.Functions)),
		slog.Int64("total_calls", summary.TotalCalls),
		slog.Duration("window", summary.TotalTime))

	return summary, nil
}

// snapshotHeap captures one heap profile as raw pprof bytes.
func (e *Engine) snapshotHeap() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.heap.Snapshot(&buf); err != nil {
		return nil, fmt.Errorf("heap snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
