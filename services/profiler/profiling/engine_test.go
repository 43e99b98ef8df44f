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
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

// fakeCPU is a deterministic CPUProfiler. It writes canned pprof bytes on
// Stop and tracks window bookkeeping so tests can assert that at most one
// window is ever open.
type fakeCPU struct {
	data     []byte
	startErr error
	stopErr  error

	mu        sync.Mutex
	w         io.Writer
	starts    int
	stops     int
	active    int
	maxActive int
}

func (f *fakeCPU) Start(w io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.w = w
	return nil
}

func (f *fakeCPU) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.active--
	if f.w != nil && f.data != nil {
		_, _ = f.w.Write(f.data)
	}
	return f.stopErr
}

func (f *fakeCPU) counts() (starts, stops, maxActive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.maxActive
}

// fakeHeap replays one canned snapshot per call.
type fakeHeap struct {
	snapshots [][]byte
	err       error
	calls     int
}

func (f *fakeHeap) Snapshot(w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	if f.calls < len(f.snapshots) {
		_, _ = w.Write(f.snapshots[f.calls])
	}
	f.calls++
	return nil
}

func noopWorkload(ctx context.Context) error { return nil }

// -----------------------------------------------------------------------------
// Engine Tests
// -----------------------------------------------------------------------------

func TestEngine_Capture(t *testing.T) {
	data := buildCPUProfile(t,
		cpuSample{stack: []string{"main.busyLoop"}, count: 5, cpu: 40 * time.Millisecond},
		cpuSample{stack: []string{"main.simulateIO", "main.busyLoop"}, count: 1, cpu: 2 * time.Millisecond},
	)
	cpu := &fakeCPU{data: data}
	engine := NewEngine(cpu, nil, false, nil)

	ran := false
	summary, err := engine.Capture(context.Background(), func(ctx context.Context) error {
		ran = true
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.True(t, ran, "workload did not run")
	require.Len(t, summary.Functions, 2)
	assert.Equal(t, int64(6), summary.TotalCalls)
	assert.GreaterOrEqual(t, summary.TotalTime, 5*time.Millisecond)
	assert.Nil(t, summary.Memory, "memory stats without memory tracing")

	starts, stops, _ := cpu.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
}

func TestEngine_Capture_NilWorkload(t *testing.T) {
	engine := NewEngine(&fakeCPU{}, nil, false, nil)

	_, err := engine.Capture(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilWorkload)
}

func TestEngine_Capture_WorkloadError(t *testing.T) {
	data := buildCPUProfile(t,
		cpuSample{stack: []string{"main.busyLoop"}, count: 1, cpu: time.Millisecond},
	)
	cpu := &fakeCPU{data: data}
	engine := NewEngine(cpu, nil, false, nil)

	workloadErr := errors.New("simulated failure")
	_, err := engine.Capture(context.Background(), func(ctx context.Context) error {
		return workloadErr
	})

	assert.ErrorIs(t, err, ErrWorkload)
	assert.NotErrorIs(t, err, ErrProfilerStart)

	// The window must have closed despite the failure
	starts, stops, _ := cpu.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)

	// An immediately following capture succeeds
	summary, err := engine.Capture(context.Background(), noopWorkload)
	require.NoError(t, err)
	assert.NotNil(t, summary)
}

func TestEngine_Capture_WorkloadPanic(t *testing.T) {
	data := buildCPUProfile(t,
		cpuSample{stack: []string{"main.busyLoop"}, count: 1, cpu: time.Millisecond},
	)
	cpu := &fakeCPU{data: data}
	engine := NewEngine(cpu, nil, false, nil)

	require.Panics(t, func() {
		_, _ = engine.Capture(context.Background(), func(ctx context.Context) error {
			panic("workload blew up")
		})
	})

	// The deferred stop must have closed the window during unwind
	starts, stops, _ := cpu.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)

	summary, err := engine.Capture(context.Background(), noopWorkload)
	require.NoError(t, err)
	assert.NotNil(t, summary)
}

func TestEngine_Capture_StartError(t *testing.T) {
	cpu := &fakeCPU{startErr: errors.New("profiler already active")}
	engine := NewEngine(cpu, nil, false, nil)

	ran := false
	_, err := engine.Capture(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.ErrorIs(t, err, ErrProfilerStart)
	assert.False(t, ran, "workload must not run when the profiler fails to start")
}

func TestEngine_Capture_StopError(t *testing.T) {
	data := buildCPUProfile(t,
		cpuSample{stack: []string{"main.busyLoop"}, count: 1, cpu: time.Millisecond},
	)
	cpu := &fakeCPU{data: data, stopErr: errors.New("flush failed")}
	engine := NewEngine(cpu, nil, false, nil)

	_, err := engine.Capture(context.Background(), noopWorkload)
	assert.ErrorIs(t, err, ErrProfilerStop)
}

func TestEngine_Capture_SummarizeError(t *testing.T) {
	cpu := &fakeCPU{data: []byte("not pprof data")}
	engine := NewEngine(cpu, nil, false, nil)

	_, err := engine.Capture(context.Background(), noopWorkload)
	assert.ErrorIs(t, err, ErrSummarize)

	// Window closed cleanly despite the bad data
	starts, stops, _ := cpu.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
}

func TestEngine_Capture_MemoryTracing(t *testing.T) {
	data := buildCPUProfile(t,
		cpuSample{stack: []string{"main.busyLoop"}, count: 1, cpu: time.Millisecond},
	)

	t.Run("reports allocation delta", func(t *testing.T) {
		cpu := &fakeCPU{data: data}
		heap := &fakeHeap{snapshots: [][]byte{
			buildHeapProfile(t, 10, 1000),
			buildHeapProfile(t, 30, 9000),
		}}
		engine := NewEngine(cpu, heap, true, nil)

		summary, err := engine.Capture(context.Background(), noopWorkload)
		require.NoError(t, err)

		require.NotNil(t, summary.Memory)
		assert.Equal(t, int64(20), summary.Memory.AllocObjects)
		assert.Equal(t, int64(8000), summary.Memory.AllocBytes)
		assert.Equal(t, 2, heap.calls)
	})

	t.Run("disabled leaves memory nil", func(t *testing.T) {
		cpu := &fakeCPU{data: data}
		heap := &fakeHeap{snapshots: [][]byte{
			buildHeapProfile(t, 10, 1000),
			buildHeapProfile(t, 30, 9000),
		}}
		engine := NewEngine(cpu, heap, false, nil)

		summary, err := engine.Capture(context.Background(), noopWorkload)
		require.NoError(t, err)

		assert.Nil(t, summary.Memory)
		assert.Equal(t, 0, heap.calls, "heap profiler must not run when tracing is off")
	})

	t.Run("snapshot failure degrades instead of failing", func(t *testing.T) {
		cpu := &fakeCPU{data: data}
		heap := &fakeHeap{err: errors.New("lookup failed")}
		engine := NewEngine(cpu, heap, true, nil)

		summary, err := engine.Capture(context.Background(), noopWorkload)
		require.NoError(t, err)
		assert.Nil(t, summary.Memory)
	})
}

func TestEngine_Capture_Coalescing(t *testing.T) {
	data := buildCPUProfile(t,
		cpuSample{stack: []string{"main.busyLoop"}, count: 2, cpu: 10 * time.Millisecond},
	)
	cpu := &fakeCPU{data: data}
	engine := NewEngine(cpu, nil, false, nil)

	const callers = 5
	gate := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*Summary, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Capture(context.Background(), func(ctx context.Context) error {
				<-gate
				return nil
			})
		}(i)
	}

	// Give every goroutine time to join the in-flight capture, then
	// release the workload.
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		require.NotNil(t, results[i], "caller %d", i)
	}

	// One window served everyone, and windows never overlapped
	starts, stops, maxActive := cpu.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
	assert.Equal(t, 1, maxActive)

	// Coalesced callers share the same immutable summary
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestEngine_Capture_SequentialWindows(t *testing.T) {
	data := buildCPUProfile(t,
		cpuSample{stack: []string{"main.busyLoop"}, count: 1, cpu: time.Millisecond},
	)
	cpu := &fakeCPU{data: data}
	engine := NewEngine(cpu, nil, false, nil)

	first, err := engine.Capture(context.Background(), noopWorkload)
	require.NoError(t, err)
	second, err := engine.Capture(context.Background(), noopWorkload)
	require.NoError(t, err)

	// Sequential captures open fresh windows
	starts, stops, _ := cpu.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 2, stops)
	assert.NotSame(t, first, second)
}

func TestEngine_Capture_RuntimeProfiler(t *testing.T) {
	// End to end against the real runtime profiler. Sample counts depend
	// on the scheduler, so only the window contract is asserted.
	engine := NewEngine(nil, nil, false, nil)

	summary, err := engine.Capture(context.Background(), func(ctx context.Context) error {
		deadline := time.Now().Add(50 * time.Millisecond)
		x := 0
		for time.Now().Before(deadline) {
			x++
		}
		_ = x
		return nil
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, summary.TotalTime, 50*time.Millisecond)
	for _, fn := range summary.Functions {
		assert.LessOrEqual(t, fn.Time, summary.TotalTime,
			"function %s reports more time than the window", fn.Name)
	}
}
