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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/workload"
)

// clearConfigEnv blanks every variable the loader reads so expectations
// do not depend on the host environment.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PROFILER_PORT",
		"PROFILING_ENABLED",
		"MEMORY_TRACING_ENABLED",
		"PROFILER_ENV",
		"OTEL_TRACES_EXPORTER",
		"OTEL_METRICS_EXPORTER",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiler.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	clearConfigEnv(t)

	cfg := DefaultConfig()

	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}
	if !cfg.ProfilingEnabled {
		t.Error("expected profiling enabled by default")
	}
	if cfg.MemoryTracingEnabled {
		t.Error("expected memory tracing disabled by default")
	}
	if cfg.HelloIterations != workload.DefaultIterations {
		t.Errorf("expected hello iterations %d, got %d", workload.DefaultIterations, cfg.HelloIterations)
	}
	if cfg.ProfileIterations != workload.DefaultProfileIterations {
		t.Errorf("expected profile iterations %d, got %d", workload.DefaultProfileIterations, cfg.ProfileIterations)
	}
	if cfg.IOWait != workload.DefaultIOWait {
		t.Errorf("expected io wait %v, got %v", workload.DefaultIOWait, cfg.IOWait)
	}
	if cfg.ProfileRate != DefaultProfileRate {
		t.Errorf("expected profile rate %v, got %v", DefaultProfileRate, cfg.ProfileRate)
	}
	if cfg.ProfileBurst != DefaultProfileBurst {
		t.Errorf("expected profile burst %d, got %d", DefaultProfileBurst, cfg.ProfileBurst)
	}
	if cfg.Telemetry.TraceExporter != "otlp" {
		t.Errorf("expected otlp trace exporter, got %q", cfg.Telemetry.TraceExporter)
	}
}

func TestDefaultConfig_EnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PROFILER_PORT", "9090")
	t.Setenv("PROFILING_ENABLED", "false")
	t.Setenv("MEMORY_TRACING_ENABLED", "true")

	cfg := DefaultConfig()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.ProfilingEnabled {
		t.Error("expected profiling disabled via env")
	}
	if !cfg.MemoryTracingEnabled {
		t.Error("expected memory tracing enabled via env")
	}
}

func TestDefaultConfig_BadEnvFallsBack(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PROFILER_PORT", "not-a-number")
	t.Setenv("PROFILING_ENABLED", "not-a-bool")

	cfg := DefaultConfig()

	if cfg.Port != DefaultPort {
		t.Errorf("expected fallback port %d, got %d", DefaultPort, cfg.Port)
	}
	if !cfg.ProfilingEnabled {
		t.Error("expected fallback profiling enabled")
	}
}

func TestLoadConfig_NoPath(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}
}

func TestLoadConfig_File(t *testing.T) {
	clearConfigEnv(t)

	path := writeConfigFile(t, `port: 9191
profiling_enabled: false
profile_burst: 9
telemetry:
  trace_exporter: stdout
  otlp_endpoint: collector:4317
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != 9191 {
		t.Errorf("expected port 9191, got %d", cfg.Port)
	}
	if cfg.ProfilingEnabled {
		t.Error("expected profiling disabled via file")
	}
	if cfg.ProfileBurst != 9 {
		t.Errorf("expected profile burst 9, got %d", cfg.ProfileBurst)
	}
	if cfg.Telemetry.TraceExporter != "stdout" {
		t.Errorf("expected stdout trace exporter, got %q", cfg.Telemetry.TraceExporter)
	}
	if cfg.Telemetry.OTLPEndpoint != "collector:4317" {
		t.Errorf("expected endpoint collector:4317, got %q", cfg.Telemetry.OTLPEndpoint)
	}

	// Keys absent from the file keep their defaults.
	if cfg.ProfileRate != DefaultProfileRate {
		t.Errorf("expected default profile rate %v, got %v", DefaultProfileRate, cfg.ProfileRate)
	}
}

func TestLoadConfig_EnvWinsOverFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PROFILER_PORT", "7070")

	path := writeConfigFile(t, "port: 9191\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != 7070 {
		t.Errorf("expected env port 7070 to win, got %d", cfg.Port)
	}
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	clearConfigEnv(t)

	path := writeConfigFile(t, "bogus_key: 1\n")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for unknown keys")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearConfigEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	clearConfigEnv(t)

	path := writeConfigFile(t, "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearConfigEnv(t)

	path := writeConfigFile(t, "port: 99999\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected a validation error for an out-of-range port")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected an invalid config error, got %v", err)
	}
}
