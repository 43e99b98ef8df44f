// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workload

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSynthetic_Run(t *testing.T) {
	tests := []struct {
		name       string
		iterations int
		want       int64
	}{
		{"ten iterations", 10, 45},
		{"one iteration", 1, 0},
		{"hundred iterations", 100, 4950},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthetic(tt.iterations, time.Millisecond)

			got, err := s.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Run() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSynthetic_Run_DefaultSum(t *testing.T) {
	// The default loop's sum is the value exported as the
	// calculation.result span attribute.
	s := NewSynthetic(0, time.Millisecond)

	got, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != 499999500000 {
		t.Errorf("Run() = %d, want 499999500000", got)
	}
}

func TestSynthetic_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSynthetic(10, time.Minute)

	_, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestSynthetic_Run_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s := NewSynthetic(10, time.Minute)

	start := time.Now()
	_, err := s.Run(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Run() blocked %v after cancellation", elapsed)
	}
}

func TestNewSynthetic_Defaults(t *testing.T) {
	s := NewSynthetic(0, 0)

	if s.iterations != DefaultIterations {
		t.Errorf("iterations = %d, want %d", s.iterations, DefaultIterations)
	}
	if s.ioWait != DefaultIOWait {
		t.Errorf("ioWait = %v, want %v", s.ioWait, DefaultIOWait)
	}
}

func TestBusyLoop(t *testing.T) {
	if got := busyLoop(0); got != 0 {
		t.Errorf("busyLoop(0) = %d, want 0", got)
	}
	if got := busyLoop(1_000_000); got != 499999500000 {
		t.Errorf("busyLoop(1_000_000) = %d, want 499999500000", got)
	}
}
