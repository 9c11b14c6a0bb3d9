// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classifier provides the pluggable intent-classification capability
// used by the financial content filter to enrich regex analysis.
//
// Two interchangeable variants implement the same Classifier contract: a
// UnifiedAnalyzer (classification + risk + recommendation in one backend
// call) and a SplitClassifier (classification and guardrails as two
// independent calls). Both degrade to a deterministic regex fallback when
// the backend is absent, times out, or produces unusable output — a
// classification failure is never surfaced to callers as an error.
//
// Thread Safety:
//
//	All exported types are safe for concurrent use unless documented otherwise.
package classifier

import (
	"context"
	"strings"
)

// Intent is the structured category assigned to a query.
type Intent string

const (
	// IntentPolicyProcedure covers company policies, procedures, and how-to
	// guides.
	IntentPolicyProcedure Intent = "policy_procedure"

	// IntentFinancialData covers specific financial numbers, budgets, and
	// revenues.
	IntentFinancialData Intent = "financial_data"

	// IntentPersonalData covers individual employee information, salaries,
	// and personal details.
	IntentPersonalData Intent = "personal_data"

	// IntentGeneralInfo covers non-sensitive general company information.
	IntentGeneralInfo Intent = "general_info"

	// IntentUnknown is the fail-safe category for unparseable backend output.
	IntentUnknown Intent = "unknown"
)

// String returns the intent's wire name.
func (i Intent) String() string {
	return string(i)
}

// ParseIntent converts a backend category string to an Intent.
//
// Inputs:
//   - s: The category string (any case, e.g. "POLICY_PROCEDURE").
//
// Outputs:
//   - Intent: The matching intent. Defaults to IntentUnknown for
//     unrecognized strings (fail-safe).
func ParseIntent(s string) Intent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "policy_procedure":
		return IntentPolicyProcedure
	case "financial_data":
		return IntentFinancialData
	case "personal_data":
		return IntentPersonalData
	case "general_info":
		return IntentGeneralInfo
	default:
		return IntentUnknown
	}
}

// RiskLevel is the guardrails risk assessment for a query/response pair.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low_risk"
	RiskMedium   RiskLevel = "medium_risk"
	RiskHigh     RiskLevel = "high_risk"
	RiskCritical RiskLevel = "critical_risk"
)

// String returns the risk level's wire name.
func (r RiskLevel) String() string {
	return string(r)
}

// ParseRiskLevel converts a backend risk string to a RiskLevel.
// Unknown strings map to RiskHigh (fail-safe: unparseable risk is treated
// as high, mirroring the conservative default of the decision engine).
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low_risk":
		return RiskLow
	case "medium_risk":
		return RiskMedium
	case "high_risk":
		return RiskHigh
	case "critical_risk":
		return RiskCritical
	default:
		return RiskHigh
	}
}

// FallbackConfidence is the fixed confidence assigned by the deterministic
// regex fallback. It sits below the enrichment short-circuit threshold so a
// fallback result never suppresses the full regex analysis downstream.
const FallbackConfidence = 0.7

// fallbackReasoning is the fixed reasoning string for fallback results.
const fallbackReasoning = "Fallback pattern-based classification"

// Result is the combined classification + risk outcome for one query.
//
// The classification fields are always populated. The risk fields are
// populated by the UnifiedAnalyzer and by the fallback; the SplitClassifier
// leaves them at their zero values because its guardrails analysis runs as a
// separate call at filtering time.
//
// Thread Safety: Result is a value type. Safe to copy.
type Result struct {
	// Intent is the assigned category.
	Intent Intent `json:"intent"`

	// Confidence is the backend's self-reported confidence in [0, 1].
	// Fallback results carry the fixed FallbackConfidence.
	Confidence float64 `json:"confidence"`

	// Reasoning explains the categorization. Operator-facing only.
	Reasoning string `json:"reasoning"`

	// Keywords are the terms the backend keyed on. May be empty.
	Keywords []string `json:"keywords,omitempty"`

	// IsPolicyRelated is true when the query concerns documented procedure.
	IsPolicyRelated bool `json:"is_policy_related"`

	// IsFinancialSensitive is true when the query touches sensitive
	// financial data.
	IsFinancialSensitive bool `json:"is_financial_sensitive"`

	// OverallRisk is the guardrails risk assessment (unified/fallback only).
	OverallRisk RiskLevel `json:"overall_risk,omitempty"`

	// ContainsSensitiveData is the guardrails sensitivity flag.
	ContainsSensitiveData bool `json:"contains_sensitive_data"`

	// DetectedIssues lists guardrails findings. May be empty.
	DetectedIssues []string `json:"detected_issues,omitempty"`

	// Recommendation is the guardrails allow/screen/deny recommendation
	// string. Advisory only — the policy decision engine is authoritative.
	Recommendation string `json:"recommendation,omitempty"`

	// ShouldAllow is the backend's unified allow recommendation. Advisory.
	ShouldAllow bool `json:"should_allow"`

	// FromFallback is true when this result came from the deterministic
	// regex path rather than the backend.
	FromFallback bool `json:"from_fallback"`
}

// Classifier is the capability contract shared by the unified and split
// variants. Implementations never return an error and never panic: any
// backend failure transparently degrades to the deterministic fallback.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Classifier interface {
	// Classify categorizes a query (and optionally a response) for the
	// given user role. The call is bounded by the implementation's timeout;
	// on timeout or backend error the fallback result is returned. At most
	// one backend attempt is made per call.
	Classify(ctx context.Context, query, response, role string) Result
}
