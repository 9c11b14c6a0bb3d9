// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package finfilter implements the financial content access-control filter:
// a rule-based policy engine that decides, per query and per response,
// whether sensitive compensation data may be disclosed to a given user,
// and redacts the sensitive spans when partial disclosure is allowed.
//
// The pipeline is two-stage: a query-time decision (Analyze +
// DetermineAction) followed by context/response-time redaction
// (FilterContext / FilterResponse). Every decision produces an audit entry.
//
// Thread Safety:
//
//	All exported types are safe for concurrent use unless documented otherwise.
package finfilter

import (
	"errors"
	"strings"

	"github.com/TechConsultAI/FinFilter/services/classifier"
)

// Role is the access-control role of the requesting user.
//
// Roles form a total order (junior < senior < manager < admin) for policy
// and general content, but NOT for person-specific salary data: individual
// compensation is gated separately (see DetermineAction).
type Role string

const (
	// RoleJunior has the least access. Unknown roles parse to RoleJunior.
	RoleJunior Role = "junior"

	// RoleSenior has the same financial-data access as RoleJunior.
	RoleSenior Role = "senior"

	// RoleManager may view individual records with salary redaction.
	RoleManager Role = "manager"

	// RoleAdmin has the same financial-data access as RoleManager.
	RoleAdmin Role = "admin"
)

// String returns the lowercase role name.
func (r Role) String() string {
	return string(r)
}

// CanViewIndividualRecords reports whether the role may see person-specific
// records at all (with salary redaction applied). Only Manager and Admin may.
func (r Role) CanViewIndividualRecords() bool {
	return r == RoleManager || r == RoleAdmin
}

// ParseRole converts a user-supplied role string to a Role.
//
// Inputs:
//   - s: The role string (any case, surrounding whitespace allowed).
//
// Outputs:
//   - Role: The matching role. Defaults to RoleJunior for unknown strings
//     (fail-safe: unrecognized roles get the least access).
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	case "senior":
		return RoleSenior
	case "junior":
		return RoleJunior
	default:
		// Fail-safe: unknown roles are treated as junior
		return RoleJunior
	}
}

// FilterAction is the closed set of actions the filter can take for a query.
type FilterAction string

const (
	// ActionAllow passes content through unmodified.
	ActionAllow FilterAction = "allow"

	// ActionAllowWithRedaction passes content through with every
	// financial-amount span replaced by the redaction marker.
	ActionAllowWithRedaction FilterAction = "allow_with_redaction"

	// ActionAllowWithEmailCheck defers the decision to an email-match step
	// performed by the caller against the retrieved document context.
	ActionAllowWithEmailCheck FilterAction = "allow_with_email_check"

	// ActionAllowWithScreening passes content through a light redaction
	// pass, as a safety net against leakage from retrieved context.
	ActionAllowWithScreening FilterAction = "allow_with_screening"

	// ActionDeny blocks the content entirely: responses get a fixed refusal
	// message, context becomes empty.
	ActionDeny FilterAction = "deny"
)

// String returns the action's wire name.
func (a FilterAction) String() string {
	return string(a)
}

// RequiresFiltering reports whether the action requires the caller to run
// the redaction engine over retrieved context and the generated response.
func (a FilterAction) RequiresFiltering() bool {
	return a == ActionDeny || a == ActionAllowWithRedaction || a == ActionAllowWithScreening
}

// DeniedResponseMessage is the fixed user-visible refusal for ActionDeny.
// Decision reasons are operator-facing and must never be surfaced verbatim
// to the end user.
const DeniedResponseMessage = "I cannot provide that information due to access restrictions."

// RedactionMarker replaces each matched financial-amount span. The marker
// itself matches none of the financial-amount patterns, which makes
// redaction idempotent.
const RedactionMarker = "[SALARY INFORMATION REDACTED]"

// QueryAnalysis describes what kind of sensitive request a query is.
//
// Created once per request by Analyze, never mutated afterwards, and
// discarded after the audit entry is emitted. Only the audit entry persists.
//
// Invariants:
//   - IsPolicyContext == true forces IsFinancial == false.
//   - IsAggregateSalaryQuery == true implies IsSalaryRelated == true and
//     results in an unconditional ActionDeny for every role.
//   - IsPersonSalaryQuery == IsAboutPerson && IsSalaryRelated.
type QueryAnalysis struct {
	// OriginalQuery is the unmodified user query.
	OriginalQuery string `json:"original_query"`

	// IsFinancial is true when the query touches financial subject matter.
	IsFinancial bool `json:"is_financial"`

	// IsSalaryRelated is true when the query specifically concerns
	// compensation amounts.
	IsSalaryRelated bool `json:"is_salary_related"`

	// IsSelfDataRequest is true when the query asks about the requester's
	// own data.
	IsSelfDataRequest bool `json:"is_self_data_request"`

	// IsAboutPerson is true when the query names or references a specific
	// third party.
	IsAboutPerson bool `json:"is_about_person"`

	// IsPersonSalaryQuery is the conjunction of IsAboutPerson and
	// IsSalaryRelated.
	IsPersonSalaryQuery bool `json:"is_person_salary_query"`

	// IsAggregateSalaryQuery is true for rankings/extremes/averages across
	// multiple people's pay. Always denied, for every role.
	IsAggregateSalaryQuery bool `json:"is_aggregate_salary_query"`

	// TargetPerson is the extracted name when IsAboutPerson is set. Empty
	// when no name could be recovered (best-effort heuristic).
	TargetPerson string `json:"target_person,omitempty"`

	// IsPolicyContext is true when the query concerns a documented
	// procedure (expense policy, leave policy). Mutually exclusive with
	// financial sensitivity.
	IsPolicyContext bool `json:"is_policy_context"`

	// UserEmail is the requester's email address.
	UserEmail string `json:"user_email"`

	// UserRole is the requester's access-control role.
	UserRole Role `json:"user_role"`

	// Classification is the optional enrichment classifier result. Nil when
	// the classifier was not consulted or was unavailable.
	Classification *classifier.Result `json:"classification,omitempty"`
}

// PolicyDecision is the outcome of DetermineAction for one query.
//
// Reason is a human-auditable explanation string for operator-facing logs.
// It is never machine-parsed and never shown verbatim to end users on deny.
type PolicyDecision struct {
	Action FilterAction `json:"action"`
	Reason string       `json:"reason"`
}

// ProcessResult is the output of ProcessQuery: the analysis, the decision,
// the audit entry handed to the sink, and two booleans telling the caller
// what to do next.
type ProcessResult struct {
	// RequestID uniquely identifies this filter evaluation for audit and
	// tracing correlation.
	RequestID string `json:"request_id"`

	Analysis QueryAnalysis  `json:"analysis"`
	Decision PolicyDecision `json:"decision"`

	// AuditEntryID is the sink-assigned ID of the audit entry, empty when
	// the sink write failed (the failure is logged and swallowed).
	AuditEntryID string `json:"audit_entry_id,omitempty"`

	// ShouldFilterContext is true when the caller must run FilterContext
	// over retrieved documents and FilterResponse over the generated text.
	ShouldFilterContext bool `json:"should_filter_context"`

	// ShouldVerifyEmail is true when the caller must perform the
	// email-match step before disclosing self-data.
	ShouldVerifyEmail bool `json:"should_verify_email"`
}

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrFilterDisabled is returned by ProcessQuery when the filter has been
	// switched off by configuration.
	ErrFilterDisabled = errors.New("finfilter: filter disabled by configuration")

	// ErrEmptyQuery is returned when ProcessQuery receives an empty query.
	ErrEmptyQuery = errors.New("finfilter: query must not be empty")
)
