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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TechConsultAI/FinFilter/services/audit"
	"github.com/TechConsultAI/FinFilter/services/finfilter"
)

// Handlers holds the HTTP handlers for the filter API.
//
// Thread Safety: Safe for concurrent use; all state is read-only after
// construction.
type Handlers struct {
	filter   *finfilter.ContentFilter
	auditLog *audit.JSONLSink
	logger   *slog.Logger
}

// NewHandlers creates the handler set.
//
// Inputs:
//   - filter: The content filter. Required.
//   - auditLog: The JSONL audit sink backing the audit read endpoints.
//     May be nil; the audit endpoints then return 404.
//   - logger: Structured logger. Nil falls back to slog.Default().
func NewHandlers(filter *finfilter.ContentFilter, auditLog *audit.JSONLSink, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{filter: filter, auditLog: auditLog, logger: logger}
}

// HandleFilterQuery handles POST /v1/filter/query.
//
// Description:
//
//	Runs the query-time pipeline and returns the decision plus the
//	next-step flags. The decision is audited before the response is
//	written.
//
// Response:
//
//	200 OK: FilterQueryResponse
//	400 Bad Request: Missing fields or empty query
//	503 Service Unavailable: Filter disabled by configuration
func (h *Handlers) HandleFilterQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleFilterQuery")

	var req FilterQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	result, err := h.filter.ProcessQuery(c.Request.Context(), req.Query, req.UserEmail, req.UserRole)
	if err != nil {
		writeFilterError(c, err)
		return
	}

	logger.Info("Filter decision",
		slog.String("action", result.Decision.Action.String()),
		slog.String("role", result.Analysis.UserRole.String()),
	)

	c.JSON(http.StatusOK, FilterQueryResponse{
		RequestID:           result.RequestID,
		Action:              result.Decision.Action.String(),
		Reason:              result.Decision.Reason,
		Analysis:            result.Analysis,
		ShouldFilterContext: result.ShouldFilterContext,
		ShouldVerifyEmail:   result.ShouldVerifyEmail,
		AuditEntryID:        result.AuditEntryID,
	})
}

// HandleFilterResponse handles POST /v1/filter/response.
//
// Description:
//
//	Re-derives the decision for the query and applies it to the generated
//	response text: deny replaces it with the refusal message, redaction
//	and screening strip financial amounts.
//
// Response:
//
//	200 OK: FilterResponseResponse
//	400 Bad Request: Missing fields
//	503 Service Unavailable: Filter disabled by configuration
func (h *Handlers) HandleFilterResponse(c *gin.Context) {
	var req FilterResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	result, err := h.filter.ProcessQuery(c.Request.Context(), req.Query, req.UserEmail, req.UserRole)
	if err != nil {
		writeFilterError(c, err)
		return
	}

	filtered, wasFiltered := h.filter.FilterResponse(c.Request.Context(), req.Response, result.Analysis, result.Decision)
	c.JSON(http.StatusOK, FilterResponseResponse{
		Response:    filtered,
		WasFiltered: wasFiltered,
		Action:      result.Decision.Action.String(),
	})
}

// HandleFilterContext handles POST /v1/filter/context.
//
// Description:
//
//	Re-derives the decision and applies it to retrieved document context
//	before it reaches generation. When the decision requires the email
//	check, verification runs against the supplied context; a failed check
//	empties the context.
//
// Response:
//
//	200 OK: FilterContextResponse
//	400 Bad Request: Missing fields
//	503 Service Unavailable: Filter disabled by configuration
func (h *Handlers) HandleFilterContext(c *gin.Context) {
	var req FilterContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	result, err := h.filter.ProcessQuery(c.Request.Context(), req.Query, req.UserEmail, req.UserRole)
	if err != nil {
		writeFilterError(c, err)
		return
	}

	resp := FilterContextResponse{Action: result.Decision.Action.String()}
	if result.ShouldVerifyEmail {
		verified := h.filter.VerifyEmailInContext(req.UserEmail, req.Context)
		resp.EmailVerified = &verified
		if !verified {
			resp.Context = ""
			resp.WasFiltered = true
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	resp.Context, resp.WasFiltered = h.filter.FilterContext(req.Context, result.Decision)
	c.JSON(http.StatusOK, resp)
}

// HandleAuditRecent handles GET /v1/filter/audit/recent.
//
// Query Parameters:
//
//	limit: Maximum entries to return, default 50 (optional)
//
// Response:
//
//	200 OK: []audit.Entry, newest first
//	404 Not Found: No audit file configured
func (h *Handlers) HandleAuditRecent(c *gin.Context) {
	if h.auditLog == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no audit file configured", Code: "AUDIT_DISABLED"})
		return
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.auditLog.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "AUDIT_READ_FAILED"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// HandleAuditForUser handles GET /v1/filter/audit/user/:email.
//
// Response:
//
//	200 OK: []audit.Entry for the user, newest first
//	404 Not Found: No audit file configured
func (h *Handlers) HandleAuditForUser(c *gin.Context) {
	if h.auditLog == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no audit file configured", Code: "AUDIT_DISABLED"})
		return
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.auditLog.ForUser(c.Param("email"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "AUDIT_READ_FAILED"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// HandleHealth handles GET /v1/filter/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		AuditEnabled: h.auditLog != nil,
	})
}

// writeFilterError maps filter sentinel errors onto HTTP statuses.
func writeFilterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, finfilter.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "EMPTY_QUERY"})
	case errors.Is(err, finfilter.ErrFilterDisabled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "FILTER_DISABLED"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL_ERROR"})
	}
}

// getOrCreateRequestID returns the inbound X-Request-ID header or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}
