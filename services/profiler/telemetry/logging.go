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
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// LoggerWithTrace returns a logger with trace context injected.
//
// Description:
//
//	Extracts trace_id and span_id from the context and adds them as
//	structured log fields. This enables log correlation in Grafana/Loki
//	with traces in the collector's backend.
//
// Inputs:
//
//	ctx - Context containing span context. May be nil or have no active span.
//	logger - Base logger to enhance. Must not be nil.
//
// Outputs:
//
//	*slog.Logger - Logger with trace_id and span_id fields added if available.
//	              Returns the original logger if no valid span context.
//
// Example:
//
//	func (h *Handlers) HandleProfile(c *gin.Context) {
//	    logger := telemetry.LoggerWithTrace(c.Request.Context(), h.logger)
//	    logger.Info("profile capture requested")
//	    // Log output: {"level":"INFO","msg":"profile capture requested","trace_id":"abc123","span_id":"def456"}
//	}
//
// Thread Safety: Safe for concurrent use.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		return logger
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}

	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// LoggerWithRequest returns a logger with trace context and request ID.
//
// Description:
//
//	Combines LoggerWithTrace with the request identifier so every log line
//	from one request can be grouped even when tracing is disabled.
//
// Inputs:
//
//	ctx - Context containing span context.
//	logger - Base logger to enhance.
//	requestID - Unique request identifier (X-Request-ID or generated).
//
// Outputs:
//
//	*slog.Logger - Logger with trace_id, span_id, and request_id fields.
//
// Example:
//
//	logger := telemetry.LoggerWithRequest(ctx, h.logger, requestID)
//	logger.Info("workload complete", slog.Int64("result", result))
//
// Thread Safety: Safe for concurrent use.
func LoggerWithRequest(ctx context.Context, logger *slog.Logger, requestID string) *slog.Logger {
	return LoggerWithTrace(ctx, logger).With(
		slog.String("request_id", requestID),
	)
}
