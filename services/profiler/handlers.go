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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/profiling"
	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/telemetry"
)

// ServiceVersion is the profiler service version.
const ServiceVersion = "1.0.0"

// tracerName identifies this service's tracer and meter.
const tracerName = "profiler.service"

// Handlers contains the HTTP handlers for the profiler service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleHello handles GET /.
//
// Description:
//
//	Runs the bounded synthetic workload inside a span, records the
//	workload duration and call-count metrics, and returns a fixed
//	greeting. Telemetry export failures never reach the caller.
//
// Response:
//
//	200 OK: "Hello World!" text
//	500 Internal Server Error: workload failure
func (h *Handlers) HandleHello(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	ctx, span := telemetry.StartSpan(c.Request.Context(), tracerName, "hello-operation")
	defer span.End()
	span.SetAttributes(attribute.String("custom.attribute", "Hello World!"))

	logger := telemetry.LoggerWithTrace(ctx,
		slog.With("request_id", requestID, "handler", "HandleHello"))

	sum, elapsed, err := h.svc.Hello(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Error("Hello workload failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "WORKLOAD_FAILED",
		})
		return
	}

	span.SetAttributes(attribute.Int64("calculation.result", sum))
	telemetry.SetSpanOK(span)

	attrs := metric.WithAttributes(attribute.String("function.name", "hello"))
	h.svc.metrics.FunctionDuration.Record(ctx, durationMillis(elapsed), attrs)
	h.svc.metrics.FunctionCalls.Add(ctx, 1, attrs)

	logger.Debug("Hello workload complete",
		"sum", sum,
		"duration_ms", durationMillis(elapsed))

	c.String(http.StatusOK, "Hello World!")
}

// HandleProfile handles GET /profile.
//
// Description:
//
//	Captures one profiling window around the profiling workload and
//	returns the per-function summary. The capture window is always
//	closed, even when the workload fails. Concurrent requests share a
//	single window.
//
// Response:
//
//	200 OK: ProfileResponse
//	429 Too Many Requests: Rate limit exceeded
//	500 Internal Server Error: Workload or profiler failure
//	503 Service Unavailable: Profiling disabled by configuration
func (h *Handlers) HandleProfile(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	ctx, span := telemetry.StartSpan(c.Request.Context(), tracerName, "profile-generation")
	defer span.End()

	logger := telemetry.LoggerWithTrace(ctx,
		slog.With("request_id", requestID, "handler", "HandleProfile"))

	summary, err := h.svc.Profile(ctx)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "PROFILER_FAILED"

		if errors.Is(err, ErrProfilingDisabled) {
			statusCode = http.StatusServiceUnavailable
			errCode = "PROFILING_DISABLED"
		} else if errors.Is(err, ErrRateLimited) {
			statusCode = http.StatusTooManyRequests
			errCode = "RATE_LIMITED"
			c.Header("Retry-After", "1")
		} else if errors.Is(err, profiling.ErrWorkload) {
			errCode = "WORKLOAD_FAILED"
		}

		telemetry.RecordError(span, err)
		logger.Error("Profile capture failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	h.exportSummary(ctx, summary)
	telemetry.SetSpanOK(span)

	logger.Info("Profile capture complete",
		"functions", len(summary.Functions),
		"total_calls", summary.TotalCalls,
		"total_time_ms", summary.TotalTimeMillis())

	c.JSON(http.StatusOK, newProfileResponse(summary))
}

// exportSummary emits the metric points for a completed profiling window
// under a profile-stats-export span: one call-count and one time point
// per function, one total-time point, and the heap delta when present.
func (h *Handlers) exportSummary(ctx context.Context, summary *profiling.Summary) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "profile-stats-export")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("profile.total_calls", summary.TotalCalls),
		attribute.Float64("profile.total_time", summary.TotalTimeMillis()),
	)

	m := h.svc.metrics
	for _, fn := range summary.Functions {
		attrs := metric.WithAttributes(
			attribute.String("function.name", fn.Name),
			attribute.String("function.file", fn.File),
		)
		m.ProfileFunctionCalls.Record(ctx, fn.Calls, attrs)
		m.ProfileFunctionTime.Record(ctx, fn.TimeMillis(), attrs)
	}
	m.ProfileTotalTime.Record(ctx, summary.TotalTimeMillis())

	if summary.Memory != nil {
		m.ProfileHeapAlloc.Record(ctx, summary.Memory.AllocBytes)
	}
}

// HandleHealth handles GET /health.
//
// Description:
//
//	Returns the health status of the service. Always returns 200 if
//	running.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /ready.
//
// Description:
//
//	Returns the readiness status of the service. Returns 503 Service
//	Unavailable once shutdown has begun.
//
// Response:
//
//	200 OK: ReadyResponse (status "ready")
//	503 Service Unavailable: ReadyResponse (status "unavailable")
func (h *Handlers) HandleReady(c *gin.Context) {
	ready := h.svc.Ready()

	resp := ReadyResponse{
		Status: "ready",
		Checks: map[string]bool{
			"service":   ready,
			"profiling": h.svc.config.ProfilingEnabled,
		},
	}

	if !ready {
		resp.Status = "unavailable"
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// durationMillis converts a duration to float milliseconds.
func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
