// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the profiler service.
//
// Description:
//
//	Provides the workload and profiling instruments (function.* and
//	profile.* names, recorded by the handlers) plus HTTP request
//	instruments (profiler_http_* names, recorded by MetricsMiddleware).
//	Durations under function.* and profile.* are milliseconds; HTTP
//	durations are seconds.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- Workload Metrics ---

	// FunctionDuration records workload execution duration in milliseconds.
	FunctionDuration metric.Float64Histogram

	// FunctionCalls counts workload invocations.
	FunctionCalls metric.Int64Counter

	// --- Profile Metrics ---

	// ProfileFunctionCalls records the per-function sample count of a
	// profiling window, tagged with function.name and function.file.
	ProfileFunctionCalls metric.Int64Histogram

	// ProfileFunctionTime records per-function CPU time in milliseconds,
	// tagged with function.name and function.file.
	ProfileFunctionTime metric.Float64Histogram

	// ProfileTotalTime records the total profiling window time in milliseconds.
	ProfileTotalTime metric.Float64Histogram

	// ProfileHeapAlloc records heap bytes allocated during a profiling
	// window. Only recorded when memory tracing is enabled.
	ProfileHeapAlloc metric.Int64Histogram

	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks currently active HTTP requests.
	HTTPActiveRequests metric.Int64UpDownCounter
}

// NewMetrics creates a new Metrics instance with all instruments registered.
//
// Description:
//
//	Registers all pre-defined instruments with the provided meter.
//	Returns an error if any registration fails.
//
// Inputs:
//
//	meter - The OTel meter to use for instrument registration.
//
// Outputs:
//
//	*Metrics - The metrics instance with all instruments initialized.
//	error - Non-nil if instrument registration fails.
//
// Example:
//
//	meter := otel.Meter("profiler.service")
//	metrics, err := telemetry.NewMetrics(meter)
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
//	metrics.FunctionCalls.Add(ctx, 1)
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- Workload Metrics ---
	m.FunctionDuration, err = meter.Float64Histogram(
		"function.duration",
		metric.WithDescription("Duration of function execution"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500),
	)
	if err != nil {
		return nil, fmt.Errorf("create function.duration: %w", err)
	}

	m.FunctionCalls, err = meter.Int64Counter(
		"function.calls",
		metric.WithDescription("Number of function calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("create function.calls: %w", err)
	}

	// --- Profile Metrics ---
	m.ProfileFunctionCalls, err = meter.Int64Histogram(
		"profile.function.calls",
		metric.WithDescription("Number of calls per function"),
		metric.WithUnit("calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile.function.calls: %w", err)
	}

	m.ProfileFunctionTime, err = meter.Float64Histogram(
		"profile.function.time",
		metric.WithDescription("Time spent in each function"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile.function.time: %w", err)
	}

	m.ProfileTotalTime, err = meter.Float64Histogram(
		"profile.total.time",
		metric.WithDescription("Total profiling time"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile.total.time: %w", err)
	}

	m.ProfileHeapAlloc, err = meter.Int64Histogram(
		"profile.heap.alloc",
		metric.WithDescription("Heap bytes allocated during the profiling window"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile.heap.alloc: %w", err)
	}

	// --- HTTP Metrics ---
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"profiler_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"profiler_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"profiler_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	return m, nil
}
