// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command profiler starts the OpenTelemetry profiler demo server.
//
// The server exposes a small instrumented workload for exercising an
// observability pipeline end to end:
//   - GET /         runs the hello workload inside a traced span
//   - GET /profile  captures a CPU profile of a synthetic workload
//   - GET /health   liveness probe
//   - GET /ready    readiness probe
//
// Usage:
//
//	go run ./cmd/profiler
//	go run ./cmd/profiler -port 9090
//	go run ./cmd/profiler -config profiler.yaml
//
// With a local collector:
//
//	OTEL_EXPORTER_OTLP_ENDPOINT=localhost:4317 go run ./cmd/profiler
//
// Without a collector (stdout exporters):
//
//	OTEL_TRACES_EXPORTER=stdout OTEL_METRICS_EXPORTER=stdout go run ./cmd/profiler
//
// With a Prometheus scrape endpoint:
//
//	OTEL_METRICS_EXPORTER=prometheus go run ./cmd/profiler
//	curl http://localhost:8080/metrics
//
// Example requests:
//
//	# Traced hello workload
//	curl http://localhost:8080/
//
//	# Capture and summarize a CPU profile
//	curl http://localhost:8080/profile | jq
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/OtelProfilerDemo/pkg/logging"
	"github.com/AleutianAI/OtelProfilerDemo/services/profiler"
	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/telemetry"
)

func main() {
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	configPath := flag.String("config", "", "Path to a YAML config file")
	logJSON := flag.Bool("log-json", true, "Log in JSON format")
	logLevel := flag.String("log-level", "info", "Minimum log level (debug|info|warn|error)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("invalid -log-level: %v", err)
	}
	slog.SetDefault(logging.New(logging.Config{
		Level:   level,
		JSON:    *logJSON,
		Service: "profiler",
	}))

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := profiler.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), cfg.Telemetry)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Error("failed to shutdown telemetry", "error", err)
		}
	}()
	slog.Info("Telemetry initialized",
		slog.String("trace_exporter", cfg.Telemetry.TraceExporter),
		slog.String("metric_exporter", cfg.Telemetry.MetricExporter),
		slog.String("otlp_endpoint", cfg.Telemetry.OTLPEndpoint))

	svc, err := profiler.NewService(cfg)
	if err != nil {
		log.Fatalf("failed to create service: %v", err)
	}
	slog.Info("Service constructed",
		slog.Bool("memory_tracing", cfg.MemoryTracingEnabled),
		slog.Int("profile_iterations", cfg.ProfileIterations))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      svc.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Starting profiler server",
			slog.String("address", server.Addr),
			slog.String("environment", cfg.Telemetry.Environment),
			slog.Bool("profiling_enabled", cfg.ProfilingEnabled))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case sig := <-quit:
		slog.Info("Received shutdown signal", slog.String("signal", sig.String()))
	}

	// Stop advertising readiness before the listener closes so load
	// balancers drain traffic first.
	svc.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", slog.String("error", err.Error()))
		server.Close()
	}

	slog.Info("Server exited gracefully")
}
