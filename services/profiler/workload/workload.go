// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workload provides the synthetic work the demo endpoints perform:
// a bounded arithmetic loop followed by a short simulated-IO wait.
package workload

import (
	"context"
	"time"
)

const (
	// DefaultIterations matches the original demo's arithmetic loop; the
	// resulting sum (499999500000) is exported as a span attribute.
	DefaultIterations = 1_000_000

	// DefaultProfileIterations is sized so a profiling capture at the
	// runtime's sampling rate observes the loop. The tiny default loop
	// finishes in well under one sampling period.
	DefaultProfileIterations = 50_000_000

	// DefaultIOWait matches the original demo's simulated IO pause.
	DefaultIOWait = 100 * time.Millisecond
)

// Runner executes one unit of synthetic work and reports its arithmetic
// result.
type Runner interface {
	Run(ctx context.Context) (int64, error)
}

// Synthetic is the standard workload: sum the integers 0..N-1, then wait
// out a simulated IO pause. The wait respects context cancellation; the
// arithmetic phase is deliberately unbounded by the context so it shows
// up in CPU profiles as a contiguous burn.
type Synthetic struct {
	iterations int
	ioWait     time.Duration
}

// NewSynthetic creates a workload runner. Non-positive arguments select
// DefaultIterations and DefaultIOWait.
func NewSynthetic(iterations int, ioWait time.Duration) *Synthetic {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if ioWait <= 0 {
		ioWait = DefaultIOWait
	}
	return &Synthetic{iterations: iterations, ioWait: ioWait}
}

// Run performs the arithmetic loop and the simulated IO wait.
//
// Outputs:
//
//	int64 - The loop's sum, 0..iterations-1.
//	error - The context's error if cancelled during the IO phase.
func (s *Synthetic) Run(ctx context.Context) (int64, error) {
	sum := busyLoop(s.iterations)
	if err := simulateIO(ctx, s.ioWait); err != nil {
		return 0, err
	}
	return sum, nil
}

// busyLoop sums 0..n-1 the slow way. Kept as a real loop, not the closed
// form, so profiling captures have CPU samples to attribute.
func busyLoop(n int) int64 {
	var sum int64
	for i := 0; i < n; i++ {
		sum += int64(i)
	}
	return sum
}

// simulateIO blocks for d or until the context is cancelled.
func simulateIO(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
