// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gateway

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers all filter routes with the router group.
//
// Description:
//
//	Registers all /v1/filter/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/filter/query - Query-time access decision
//	POST /v1/filter/response - Screen a generated response
//	POST /v1/filter/context - Filter retrieved document context
//	GET  /v1/filter/audit/recent - Recent audit entries
//	GET  /v1/filter/audit/user/:email - Audit entries for one user
//	GET  /v1/filter/health - Health check
//
// Example:
//
//	handlers := gateway.NewHandlers(filter, auditLog, logger)
//	v1 := router.Group("/v1")
//	gateway.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	filter := rg.Group("/filter")
	{
		filter.POST("/query", handlers.HandleFilterQuery)
		filter.POST("/response", handlers.HandleFilterResponse)
		filter.POST("/context", handlers.HandleFilterContext)

		filter.GET("/audit/recent", handlers.HandleAuditRecent)
		filter.GET("/audit/user/:email", handlers.HandleAuditForUser)

		filter.GET("/health", handlers.HandleHealth)
	}
}

// NewRouter builds the gateway router with tracing middleware, the /v1
// filter API, and the Prometheus scrape endpoint.
func NewRouter(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("finfilter-gateway"))

	RegisterRoutes(router.Group("/v1"), handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
