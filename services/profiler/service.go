// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package profiler provides the OTel profiler demo HTTP service.
//
// The service exposes endpoints for:
//   - A traced hello workload ("/")
//   - On-demand CPU profiling with summarized results ("/profile")
//   - Health and readiness probes
//
// Every request emits OpenTelemetry spans and metric points; export
// failures are logged, never surfaced to callers.
package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/profiling"
	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/telemetry"
	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/workload"
)

// ServiceOption is a functional option for configuring the Service.
type ServiceOption func(*Service)

// Service is the profiler demo service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Multiple goroutines can call
//	any combination of methods simultaneously; concurrent profiling
//	captures are coalesced by the engine.
type Service struct {
	config  Config
	engine  *profiling.Engine
	hello   workload.Runner
	profile workload.Runner
	metrics *telemetry.Metrics
	limiter *rate.Limiter
	logger  *slog.Logger
	ready   atomic.Bool
}

// NewService creates a new profiler service.
//
// Description:
//
//	Creates a service with the given configuration. Zero-valued tuning
//	fields are replaced with defaults. Dependencies not supplied via
//	options are constructed: a capture engine backed by the runtime
//	profiler, synthetic workload runners, a token-bucket limiter, and
//	instruments registered on the global meter.
//
// Inputs:
//
//	config - Service configuration.
//	opts - Optional dependency overrides, used by tests.
//
// Outputs:
//
//	*Service - The configured service, marked ready.
//	error - Non-nil if instrument registration fails.
func NewService(config Config, opts ...ServiceOption) (*Service, error) {
	applyConfigDefaults(&config)

	s := &Service{
		config: config,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		m, err := telemetry.NewMetrics(otel.Meter("profiler.service"))
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		s.metrics = m
	}
	if s.engine == nil {
		s.engine = profiling.NewEngine(nil, nil, config.MemoryTracingEnabled, s.logger)
	}
	if s.hello == nil {
		s.hello = workload.NewSynthetic(config.HelloIterations, config.IOWait)
	}
	if s.profile == nil {
		s.profile = workload.NewSynthetic(config.ProfileIterations, config.IOWait)
	}
	if s.limiter == nil {
		s.limiter = rate.NewLimiter(rate.Limit(config.ProfileRate), config.ProfileBurst)
	}

	s.ready.Store(true)
	return s, nil
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the telemetry instruments recorded by the handlers.
func WithMetrics(metrics *telemetry.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// WithEngine sets the profiling capture engine.
func WithEngine(engine *profiling.Engine) ServiceOption {
	return func(s *Service) { s.engine = engine }
}

// WithHelloRunner sets the workload executed by the hello endpoint.
func WithHelloRunner(r workload.Runner) ServiceOption {
	return func(s *Service) { s.hello = r }
}

// WithProfileRunner sets the workload executed inside profiling windows.
func WithProfileRunner(r workload.Runner) ServiceOption {
	return func(s *Service) { s.profile = r }
}

// applyConfigDefaults fills zero values with defaults.
func applyConfigDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.HelloIterations <= 0 {
		cfg.HelloIterations = workload.DefaultIterations
	}
	if cfg.ProfileIterations <= 0 {
		cfg.ProfileIterations = workload.DefaultProfileIterations
	}
	if cfg.IOWait <= 0 {
		cfg.IOWait = workload.DefaultIOWait
	}
	if cfg.ProfileRate <= 0 {
		cfg.ProfileRate = DefaultProfileRate
	}
	if cfg.ProfileBurst <= 0 {
		cfg.ProfileBurst = DefaultProfileBurst
	}
}

// Config returns the effective service configuration.
func (s *Service) Config() Config {
	return s.config
}

// Ready reports whether the service is accepting traffic.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// SetReady toggles readiness. The binary flips this off when shutdown
// begins so load balancers stop routing before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Hello runs the synthetic hello workload.
//
// Outputs:
//
//	int64 - The workload's arithmetic sum.
//	time.Duration - Wall time of the run including the simulated IO.
//	error - Non-nil if the workload was cancelled.
func (s *Service) Hello(ctx context.Context) (int64, time.Duration, error) {
	start := time.Now()
	sum, err := s.hello.Run(ctx)
	return sum, time.Since(start), err
}

// Profile captures one profiling window around the profiling workload.
//
// Description:
//
//	Checks the profiling gate and the rate limiter, then delegates to
//	the capture engine. Concurrent callers may share one window; each
//	still receives the same immutable summary.
//
// Outputs:
//
//	*profiling.Summary - Per-function stats for the window.
//	error - ErrProfilingDisabled, ErrRateLimited, or a wrapped engine
//	error (profiling.ErrWorkload, ErrProfilerStart, ErrProfilerStop,
//	ErrSummarize).
func (s *Service) Profile(ctx context.Context) (*profiling.Summary, error) {
	if !s.config.ProfilingEnabled {
		return nil, ErrProfilingDisabled
	}
	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}

	return s.engine.Capture(ctx, func(ctx context.Context) error {
		_, err := s.profile.Run(ctx)
		return err
	})
}
