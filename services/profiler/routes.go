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
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/OtelProfilerDemo/services/profiler/telemetry"
)

// RegisterRoutes registers all profiler routes with the router.
//
// Description:
//
//	Registers the service endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically the engine root)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET  / - Traced hello workload
//	GET  /profile - CPU profiling capture
//
// Health Endpoints:
//
//	GET  /health - Liveness probe
//	GET  /ready - Readiness probe
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.GET("/", handlers.HandleHello)
	rg.GET("/profile", handlers.HandleProfile)
	rg.GET("/health", handlers.HandleHealth)
	rg.GET("/ready", handlers.HandleReady)
}

// Router assembles the service's Gin engine.
//
// Description:
//
//	Builds a gin.Engine with panic recovery, per-request server spans
//	(otelgin), the HTTP metrics middleware, and all service routes.
//	When the prometheus metric exporter is active, the exposition
//	handler is mounted at /metrics.
//
// Outputs:
//
//	*gin.Engine - Ready to serve.
func (s *Service) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(s.config.Telemetry.ServiceName))
	router.Use(telemetry.MetricsMiddleware(s.metrics))

	RegisterRoutes(&router.RouterGroup, NewHandlers(s))

	// Only set in prometheus mode.
	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}

	return router
}
