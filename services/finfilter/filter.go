// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package finfilter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/TechConsultAI/FinFilter/services/audit"
	"github.com/TechConsultAI/FinFilter/services/classifier"
)

var tracer = otel.Tracer("finfilter")

// ContentFilter is the financial content access-control filter.
//
// Description:
//
//	Holds the compiled pattern library, the optional intent classifier, the
//	optional response screener, and the auditor. Construct once at startup
//	and share; all methods are safe for concurrent use.
//
// Thread Safety: Safe for concurrent use after construction.
type ContentFilter struct {
	patterns   *PatternLibrary
	classifier classifier.Classifier
	screener   ResponseScreener
	auditor    *audit.Auditor
	logger     *slog.Logger

	enabled      bool
	auditEnabled bool
}

// FilterOption configures a ContentFilter.
type FilterOption func(*ContentFilter)

// WithClassifier attaches an intent classifier for analysis enrichment.
// Without one, analysis is pure regex.
func WithClassifier(c classifier.Classifier) FilterOption {
	return func(f *ContentFilter) {
		f.classifier = c
	}
}

// WithResponseScreener attaches the guardrails second redaction pass used
// by ActionAllowWithRedaction.
func WithResponseScreener(s ResponseScreener) FilterOption {
	return func(f *ContentFilter) {
		f.screener = s
	}
}

// WithAuditor attaches the audit recorder. Without one, decisions are only
// logged.
func WithAuditor(a *audit.Auditor) FilterOption {
	return func(f *ContentFilter) {
		f.auditor = a
	}
}

// WithFilterLogger overrides the filter's logger.
func WithFilterLogger(l *slog.Logger) FilterOption {
	return func(f *ContentFilter) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithAuditDisabled turns off audit entry emission (decision logging
// remains).
func WithAuditDisabled() FilterOption {
	return func(f *ContentFilter) {
		f.auditEnabled = false
	}
}

// WithFilterDisabled disables the filter entirely; ProcessQuery then
// returns ErrFilterDisabled and callers must treat content as unfiltered.
func WithFilterDisabled() FilterOption {
	return func(f *ContentFilter) {
		f.enabled = false
	}
}

// NewContentFilter creates a filter over the given pattern library.
//
// Inputs:
//   - patterns: The compiled pattern library (see LoadDefaultPatterns).
//   - opts: Optional configuration.
//
// Outputs:
//   - *ContentFilter: The configured filter.
func NewContentFilter(patterns *PatternLibrary, opts ...FilterOption) *ContentFilter {
	f := &ContentFilter{
		patterns:     patterns,
		logger:       slog.Default(),
		enabled:      true,
		auditEnabled: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ProcessQuery is the complete query-time pipeline: analyze, decide, audit.
//
// Description:
//
//	Runs Analyze and DetermineAction, emits the audit entry, and tells the
//	caller what to do next: whether retrieved context and the generated
//	response must pass through the redaction engine, and whether the
//	email-verification step is required before disclosure.
//
//	The audit entry records the decision as made at query time;
//	ResponseFiltered is false here because response filtering has not
//	happened yet.
//
// Inputs:
//   - ctx: Context for tracing and the classifier call.
//   - query: The user query. Must be non-empty.
//   - userEmail: The requester's email.
//   - userRole: The requester's role string (unknown roles parse to
//     junior).
//
// Outputs:
//   - ProcessResult: Analysis, decision, audit ID, and next-step flags.
//   - error: ErrFilterDisabled or ErrEmptyQuery. Classifier and audit
//     failures are degraded internally, never returned.
//
// Thread Safety: This method is safe for concurrent use.
func (f *ContentFilter) ProcessQuery(ctx context.Context, query, userEmail, userRole string) (ProcessResult, error) {
	if !f.enabled {
		return ProcessResult{}, ErrFilterDisabled
	}
	if strings.TrimSpace(query) == "" {
		return ProcessResult{}, ErrEmptyQuery
	}

	ctx, span := tracer.Start(ctx, "finfilter.ProcessQuery",
		trace.WithAttributes(attribute.String("finfilter.user_role", userRole)))
	defer span.End()

	start := time.Now()
	requestID := uuid.NewString()

	analysis := f.Analyze(ctx, query, userEmail, userRole)
	decision := f.DetermineAction(analysis)

	decisionsTotal.WithLabelValues(analysis.UserRole.String(), decision.Action.String()).Inc()
	span.SetAttributes(
		attribute.String("finfilter.action", decision.Action.String()),
		attribute.Bool("finfilter.is_financial", analysis.IsFinancial),
		attribute.Bool("finfilter.is_salary_related", analysis.IsSalaryRelated),
	)

	var auditID string
	if f.auditEnabled && f.auditor != nil {
		auditID = f.auditor.Record(ctx, audit.Entry{
			UserEmail:        orUnknown(userEmail),
			UserRole:         analysis.UserRole.String(),
			Query:            query,
			IsFinancial:      analysis.IsFinancial,
			IsSalaryRelated:  analysis.IsSalaryRelated,
			TargetPerson:     analysis.TargetPerson,
			ActionTaken:      decision.Action.String(),
			Reason:           decision.Reason,
			ResponseFiltered: false,
		})
	}

	f.logger.Debug("Processed query",
		slog.String("request_id", requestID),
		slog.String("action", decision.Action.String()),
		slog.String("reason", decision.Reason),
		slog.String("role", analysis.UserRole.String()),
	)
	processLatency.Observe(time.Since(start).Seconds())

	return ProcessResult{
		RequestID:           requestID,
		Analysis:            analysis,
		Decision:            decision,
		AuditEntryID:        auditID,
		ShouldFilterContext: decision.Action.RequiresFiltering(),
		ShouldVerifyEmail:   decision.Action == ActionAllowWithEmailCheck,
	}, nil
}

// VerifyEmailInContext checks whether the requester's identity appears in
// the retrieved document context.
//
// Description:
//
//	Used for ActionAllowWithEmailCheck. Matches the full email address
//	case-insensitively, then falls back to the email's username prefix when
//	it is long enough to be distinctive (more than two characters).
//
// Outputs:
//   - bool: True when the user's identity was found in the context.
func (f *ContentFilter) VerifyEmailInContext(userEmail, docContext string) bool {
	if userEmail == "" || docContext == "" {
		emailVerificationsTotal.WithLabelValues("rejected").Inc()
		return false
	}

	contextLower := strings.ToLower(docContext)
	if strings.Contains(contextLower, strings.ToLower(userEmail)) {
		emailVerificationsTotal.WithLabelValues("verified").Inc()
		return true
	}

	username := strings.ToLower(strings.SplitN(userEmail, "@", 2)[0])
	if len(username) > 2 && strings.Contains(contextLower, username) {
		emailVerificationsTotal.WithLabelValues("verified").Inc()
		return true
	}

	emailVerificationsTotal.WithLabelValues("rejected").Inc()
	return false
}

// IdentityVerification is the result of VerifyUserIdentity.
type IdentityVerification struct {
	EmailFound             bool `json:"email_found"`
	VerificationSuccessful bool `json:"verification_successful"`
}

// VerifyUserIdentity verifies the requester against employee documents
// using a strict full-email match (no username-prefix fallback).
func (f *ContentFilter) VerifyUserIdentity(userEmail, docContext string) IdentityVerification {
	var result IdentityVerification
	if userEmail == "" || docContext == "" {
		return result
	}
	if strings.Contains(strings.ToLower(docContext), strings.ToLower(userEmail)) {
		result.EmailFound = true
		result.VerificationSuccessful = true
	}
	return result
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
