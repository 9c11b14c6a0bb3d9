// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gateway exposes the content filter over HTTP.
//
// The API is stateless: every endpoint carries the query and requester
// identity, and the filter re-derives the decision per call. This keeps the
// gateway horizontally scalable with no session store.
package gateway

import "github.com/TechConsultAI/FinFilter/services/finfilter"

// FilterQueryRequest is the body of POST /v1/filter/query.
type FilterQueryRequest struct {
	Query     string `json:"query" binding:"required"`
	UserEmail string `json:"user_email"`
	UserRole  string `json:"user_role" binding:"required"`
}

// FilterQueryResponse returns the query-time decision.
type FilterQueryResponse struct {
	RequestID           string                  `json:"request_id"`
	Action              string                  `json:"action"`
	Reason              string                  `json:"reason"`
	Analysis            finfilter.QueryAnalysis `json:"analysis"`
	ShouldFilterContext bool                    `json:"should_filter_context"`
	ShouldVerifyEmail   bool                    `json:"should_verify_email"`
	AuditEntryID        string                  `json:"audit_entry_id,omitempty"`
}

// FilterResponseRequest is the body of POST /v1/filter/response.
type FilterResponseRequest struct {
	Query     string `json:"query" binding:"required"`
	Response  string `json:"response" binding:"required"`
	UserEmail string `json:"user_email"`
	UserRole  string `json:"user_role" binding:"required"`
}

// FilterResponseResponse returns the screened response text.
type FilterResponseResponse struct {
	Response    string `json:"response"`
	WasFiltered bool   `json:"was_filtered"`
	Action      string `json:"action"`
}

// FilterContextRequest is the body of POST /v1/filter/context.
type FilterContextRequest struct {
	Query     string `json:"query" binding:"required"`
	Context   string `json:"context" binding:"required"`
	UserEmail string `json:"user_email"`
	UserRole  string `json:"user_role" binding:"required"`
}

// FilterContextResponse returns the filtered document context.
type FilterContextResponse struct {
	Context     string `json:"context"`
	WasFiltered bool   `json:"was_filtered"`
	Action      string `json:"action"`

	// EmailVerified is set only when the decision required the
	// email-verification step.
	EmailVerified *bool `json:"email_verified,omitempty"`
}

// HealthResponse is the body of GET /v1/filter/health.
type HealthResponse struct {
	Status       string `json:"status"`
	AuditEnabled bool   `json:"audit_enabled"`
}

// ErrorResponse is the standard error envelope for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
