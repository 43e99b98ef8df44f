// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging configures structured logging for the profiler service.
//
// The service logs to stdout so the container runtime can collect the
// stream. JSON is the default format because the log pipeline is
// machine-first; text output exists for local development.
//
// # Basic Usage
//
// The binary builds one logger at startup and installs it globally:
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    JSON:    true,
//	    Service: "profiler",
//	})
//	slog.SetDefault(logger)
//
// Handlers then derive request-scoped loggers from the default:
//
//	logger := slog.With("request_id", requestID)
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - Debug: development troubleshooting, verbose output
//   - Info: normal operations (request start/end, state changes)
//   - Warn: recoverable issues (export failures, degraded mode)
//   - Error: operation failures (but the service continues)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents log severity levels.
//
// Levels follow the slog convention and are ordered by severity:
// Debug < Info < Warn < Error. Setting a minimum level filters out all
// logs below that level.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for potentially problematic situations.
	LevelWarn

	// LevelError is for error conditions.
	LevelError
)

// String returns the human-readable name of the level.
//
// Returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel converts our Level to slog.Level.
//
// Unknown levels default to Info.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" to a Level.
//
// Matching is case-insensitive and tolerates surrounding whitespace;
// "warning" is accepted as an alias for "warn".
//
// Returns:
//   - Level: The parsed level (LevelInfo when the name is unknown)
//   - error: Non-nil when the name is not a known level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Config controls logger construction.
type Config struct {
	// Level sets the minimum log level.
	//
	// Messages below this level are discarded.
	// Default: LevelInfo
	Level Level

	// JSON enables JSON output format.
	//
	// When true, logs are formatted as JSON objects (machine-parseable).
	// When false, logs are formatted as human-readable text.
	//
	// Default: false (text format)
	JSON bool

	// Service identifies the component generating logs.
	//
	// This value is included in every log entry as the "service"
	// attribute, making it easy to filter logs by component in
	// aggregated systems.
	//
	// Default: "" (no service attribute)
	Service string

	// Output is the destination stream.
	//
	// Default: os.Stdout
	Output io.Writer
}

// New creates a slog.Logger from the given configuration.
//
// The returned logger owns no resources; there is nothing to close.
//
// Parameters:
//   - config: Logger configuration (see Config for options)
//
// Returns:
//   - *slog.Logger: Configured logger ready for use
//
// Example:
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    JSON:    true,
//	    Service: "profiler",
//	})
//	slog.SetDefault(logger)
func New(config Config) *slog.Logger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: config.Level.toSlogLevel(),
	}

	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	// Add service attribute to all logs
	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", config.Service),
		})
	}

	return slog.New(handler)
}

// Default returns a logger with default settings.
//
// The default configuration:
//   - Level: Info
//   - Format: JSON
//   - Service: "profiler"
//   - Output: stdout
//
// Returns:
//   - *slog.Logger: Default-configured logger
func Default() *slog.Logger {
	return New(Config{
		Level:   LevelInfo,
		JSON:    true,
		Service: "profiler",
	})
}
