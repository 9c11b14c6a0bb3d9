// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import (
	"context"
	"regexp"
	"strings"
)

// Keyword sets for the deterministic fallback path. Personal keywords are
// checked before policy and financial keywords; the first matching set wins.
var (
	fallbackPersonalKeywords  = []string{"salary", "compensation", "pay", "earn", "makes", "income"}
	fallbackPolicyKeywords    = []string{"policy", "procedure", "how to", "submit", "deadline", "guidelines"}
	fallbackFinancialKeywords = []string{"salary", "compensation", "pay", "earn", "income", "money", "budget", "revenue"}
)

// capitalizedWordPattern detects a capitalized word, used as a weak signal
// that a query names a person. Deliberately case-sensitive.
var capitalizedWordPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// FallbackClassify is the deterministic regex classification used when no
// backend is available or the backend call fails.
//
// Description:
//
//	Pure keyword matching over the lowercased query. Behaviorally
//	deterministic, never fails: repeated calls with the same inputs return
//	identical results. Confidence is always the fixed FallbackConfidence
//	and the reasoning string is fixed, so callers can recognize a degraded
//	result without inspecting internals.
//
// Inputs:
//   - query: The user query.
//   - role: The requester's role string (compared case-insensitively).
//
// Outputs:
//   - Result: The classification. FromFallback is always true.
//
// Thread Safety: Stateless. Safe for concurrent use.
func FallbackClassify(query, role string) Result {
	lower := strings.ToLower(query)
	privileged := isPrivilegedRole(role)

	switch {
	case containsAny(lower, fallbackPersonalKeywords) && capitalizedWordPattern.MatchString(query):
		return fallbackResult(IntentPersonalData, true, RiskHigh, false, "deny")
	case containsAny(lower, fallbackPolicyKeywords):
		return fallbackResult(IntentPolicyProcedure, false, RiskLow, true, "allow")
	case containsAny(lower, fallbackFinancialKeywords):
		action := "deny"
		if privileged {
			action = "allow_with_screening"
		}
		return fallbackResult(IntentFinancialData, true, RiskMedium, privileged, action)
	default:
		return fallbackResult(IntentGeneralInfo, false, RiskLow, true, "allow")
	}
}

func fallbackResult(intent Intent, sensitive bool, risk RiskLevel, allow bool, action string) Result {
	var issues []string
	if sensitive {
		issues = []string{"Potential sensitive content"}
	}
	return Result{
		Intent:                intent,
		Confidence:            FallbackConfidence,
		Reasoning:             fallbackReasoning,
		IsPolicyRelated:       intent == IntentPolicyProcedure,
		IsFinancialSensitive:  sensitive,
		OverallRisk:           risk,
		ContainsSensitiveData: sensitive,
		DetectedIssues:        issues,
		Recommendation:        strings.ToUpper(action),
		ShouldAllow:           allow,
		FromFallback:          true,
	}
}

func isPrivilegedRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "manager", "admin":
		return true
	default:
		return false
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// FallbackClassifier implements Classifier using only FallbackClassify.
//
// Description:
//
//	Used when no backend is configured (classifier mode "off") so the rest
//	of the filter can hold a non-nil Classifier without nil checks. Also the
//	reference implementation for the fallback-determinism property.
//
// Thread Safety: Safe for concurrent use.
type FallbackClassifier struct{}

// NewFallbackClassifier creates a classifier that always uses the
// deterministic regex path.
func NewFallbackClassifier() *FallbackClassifier {
	return &FallbackClassifier{}
}

// Classify implements Classifier.
func (c *FallbackClassifier) Classify(_ context.Context, query, _, role string) Result {
	return FallbackClassify(query, role)
}
