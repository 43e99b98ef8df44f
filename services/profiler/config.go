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
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/telemetry"
	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/workload"
)

const (
	// DefaultPort is the HTTP listen port.
	DefaultPort = 8080

	// DefaultProfileRate is the sustained /profile capture rate per second.
	DefaultProfileRate = 1.0

	// DefaultProfileBurst is the /profile burst allowance.
	DefaultProfileBurst = 5

	// maxConfigBytes caps the size of a config file read from disk.
	maxConfigBytes = 1 << 20
)

// configValidate is the shared validator instance for config structs.
var configValidate = validator.New()

// Config configures the profiler service.
type Config struct {
	// Port is the HTTP listen port. Default: 8080.
	Port int `yaml:"port" validate:"gte=0,lte=65535"`

	// ProfilingEnabled gates the /profile endpoint. When false the
	// endpoint answers 503 without touching the profiler. Default: true.
	ProfilingEnabled bool `yaml:"profiling_enabled"`

	// MemoryTracingEnabled adds a heap allocation delta to each profiling
	// window. Default: false.
	MemoryTracingEnabled bool `yaml:"memory_tracing_enabled"`

	// HelloIterations is the arithmetic loop bound for the hello workload.
	// Default: workload.DefaultIterations.
	HelloIterations int `yaml:"hello_iterations" validate:"gte=0"`

	// ProfileIterations is the arithmetic loop bound for the profiling
	// workload. Larger than HelloIterations so the sampling profiler
	// observes it. Default: workload.DefaultProfileIterations.
	ProfileIterations int `yaml:"profile_iterations" validate:"gte=0"`

	// IOWait is the simulated IO pause appended to each workload run.
	// Default: workload.DefaultIOWait.
	IOWait time.Duration `yaml:"io_wait" validate:"gte=0"`

	// ProfileRate is the sustained /profile capture rate per second.
	// Default: 1.
	ProfileRate float64 `yaml:"profile_rate" validate:"gte=0"`

	// ProfileBurst is the /profile burst allowance. Default: 5.
	ProfileBurst int `yaml:"profile_burst" validate:"gte=0"`

	// Telemetry configures exporters, sampling, and the collector
	// endpoint.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// DefaultConfig returns defaults seeded from the environment.
//
// Environment variables:
//   - PROFILER_PORT: HTTP listen port
//   - PROFILING_ENABLED: gate for the /profile endpoint
//   - MEMORY_TRACING_ENABLED: heap delta capture
//
// The embedded telemetry config reads its own OTEL_* variables, see
// telemetry.DefaultConfig.
func DefaultConfig() Config {
	return Config{
		Port:                 getEnvInt("PROFILER_PORT", DefaultPort),
		ProfilingEnabled:     getEnvBool("PROFILING_ENABLED", true),
		MemoryTracingEnabled: getEnvBool("MEMORY_TRACING_ENABLED", false),
		HelloIterations:      workload.DefaultIterations,
		ProfileIterations:    workload.DefaultProfileIterations,
		IOWait:               workload.DefaultIOWait,
		ProfileRate:          DefaultProfileRate,
		ProfileBurst:         DefaultProfileBurst,
		Telemetry:            telemetry.DefaultConfig(),
	}
}

// LoadConfig loads configuration with priority: env > file > defaults.
//
// Description:
//
//	Starts from DefaultConfig, overlays the optional YAML file with a
//	strict decode (unknown keys are errors, 1 MiB size cap), re-asserts
//	environment variables over file values, and validates the result.
//	An empty path skips the file step.
//
// Inputs:
//
//	path - Path to a YAML config file (optional, can be empty).
//
// Outputs:
//
//	Config - The merged configuration.
//	error - Non-nil if the file is unreadable or invalid, or if the
//	merged config fails validation.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config against its struct tags.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(io.LimitReader(f, maxConfigBytes))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty file is a valid no-op config.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides re-asserts environment variables over file values.
// The precedence is flags > env > file > defaults; flags are applied by
// the caller after LoadConfig returns.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROFILER_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Port = i
		}
	}
	if v := os.Getenv("PROFILING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ProfilingEnabled = b
		}
	}
	if v := os.Getenv("MEMORY_TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MemoryTracingEnabled = b
		}
	}
	if v := os.Getenv("PROFILER_ENV"); v != "" {
		cfg.Telemetry.Environment = v
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TraceExporter = v
	}
	if v := os.Getenv("OTEL_METRICS_EXPORTER"); v != "" {
		cfg.Telemetry.MetricExporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
