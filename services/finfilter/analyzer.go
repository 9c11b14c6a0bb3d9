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
	"strings"
)

// classifierConfidenceThreshold gates the classifier short-circuit: only a
// classification STRICTLY above this confidence may skip the full regex
// analysis. Fallback results carry 0.7 and therefore never qualify.
const classifierConfidenceThreshold = 0.8

// Analyze inspects a query and produces the signal set the decision engine
// keys on.
//
// Description:
//
//	Multi-stage analysis with short-circuits, cheapest signals first:
//
//	 1. Expense-policy patterns: a match ends analysis as policy context.
//	 2. Safe policy keywords without compensation blockers: policy context.
//	 3. Aggregate salary patterns: a match ends analysis (always denied
//	    downstream).
//	 4. Fast path: no financial keyword and none of the leading financial
//	    patterns match, the query is non-financial (person extraction still
//	    runs so screening decisions know a person was named).
//	 5. Optional classifier enrichment. Intent maps onto the signal flags;
//	    a classification strictly above the confidence threshold completes
//	    analysis after person/self extraction. At or below the threshold
//	    the full regex analysis still runs over the enriched flags.
//	 6. Full regex analysis: financial, salary, self-reference, and person
//	    signals, plus a capitalized-bigram scan to recover a person name
//	    the shape patterns missed.
//
// Inputs:
//   - ctx: Context passed to the classifier.
//   - query: The user query.
//   - userEmail: The requester's email, carried into the analysis.
//   - userRole: The requester's role string (parsed fail-safe).
//
// Outputs:
//   - QueryAnalysis: The populated analysis. Never fails; a degraded
//     classifier simply leaves Classification at its fallback value.
//
// Thread Safety: This method is safe for concurrent use.
func (f *ContentFilter) Analyze(ctx context.Context, query, userEmail, userRole string) QueryAnalysis {
	queryLower := strings.ToLower(query)

	analysis := QueryAnalysis{
		OriginalQuery: query,
		UserEmail:     userEmail,
		UserRole:      ParseRole(userRole),
	}

	// Stage 1: expense-policy questions mention money but are procedure.
	if matchesAny(f.patterns.expensePolicy, query) {
		analysis.IsPolicyContext = true
		return analysis
	}

	// Stage 2: generic policy wording without any compensation term.
	if containsAnyKeyword(queryLower, f.patterns.safePolicyKeywords) &&
		!containsAnyKeyword(queryLower, f.patterns.policyBlockerKeywords) {
		analysis.IsPolicyContext = true
		return analysis
	}

	// Stage 3: aggregate shapes are terminal; downstream denies them for
	// every role.
	if matchesAny(f.patterns.aggregate, query) {
		analysis.IsAggregateSalaryQuery = true
		analysis.IsSalaryRelated = true
		analysis.IsFinancial = true
		return analysis
	}

	// Stage 4: fast path for clearly non-financial queries.
	hasFinancialKeywords := containsAnyKeyword(queryLower, f.patterns.financialKeywords)
	hasFinancialPatterns := matchesAny(f.patterns.financial[:fastPathPatternCount], query)
	if !hasFinancialKeywords && !hasFinancialPatterns {
		f.extractPersonDetails(query, &analysis)
		return analysis
	}

	// Stage 5: classifier enrichment.
	if f.classifier != nil {
		result := f.classifier.Classify(ctx, query, "", string(analysis.UserRole))
		analysis.Classification = &result

		switch result.Intent {
		case "policy_procedure":
			analysis.IsPolicyContext = true
			analysis.IsFinancial = false
		case "financial_data":
			analysis.IsFinancial = true
		case "personal_data":
			analysis.IsFinancial = true
			analysis.IsSalaryRelated = true
			analysis.IsAboutPerson = true
		}

		if result.Confidence > classifierConfidenceThreshold {
			f.extractPersonDetails(query, &analysis)
			f.checkSelfReference(query, &analysis)

			// A high-confidence personal-data classification can arrive
			// without the regex salary flags; confirm them from keywords so
			// the person-salary gate fires.
			if result.Intent == "personal_data" && result.IsFinancialSensitive {
				if containsAnyKeyword(queryLower, f.patterns.classifierSalaryKeywords) {
					analysis.IsSalaryRelated = true
					analysis.IsFinancial = true
					if analysis.IsAboutPerson && analysis.TargetPerson != "" {
						analysis.IsPersonSalaryQuery = true
					}
				}
			}
			return analysis
		}
	}

	// Stage 6: full regex analysis.
	if hasFinancialKeywords {
		analysis.IsFinancial = true
	}
	for _, pattern := range f.patterns.financial {
		if pattern.MatchString(query) {
			analysis.IsFinancial = true
			analysis.IsSalaryRelated = true
		}
	}
	if containsAnyKeyword(queryLower, f.patterns.salaryKeywords) {
		analysis.IsSalaryRelated = true
	}

	f.checkSelfReference(query, &analysis)
	if !analysis.IsSelfDataRequest && matchesAny(f.patterns.selfIdentity, query) {
		analysis.IsSelfDataRequest = true
	}

	f.extractPersonDetails(query, &analysis)

	if analysis.IsAboutPerson && analysis.IsSalaryRelated {
		analysis.IsPersonSalaryQuery = true
	}

	// Bigram recovery: a salary query with a "First Last" shape the person
	// patterns missed still targets that person. Only the first word is
	// kept, matching the capture the shape patterns would have made.
	if analysis.TargetPerson == "" && analysis.IsSalaryRelated {
		if m := f.patterns.fullNamePattern.FindStringSubmatch(query); m != nil {
			analysis.TargetPerson = m[1]
			analysis.IsAboutPerson = true
			analysis.IsPersonSalaryQuery = true
		}
	}

	if !analysis.IsFinancial {
		if matchesAny(f.patterns.financial, query) {
			analysis.IsFinancial = true
		}
		if analysis.IsSalaryRelated &&
			(analysis.IsSelfDataRequest || analysis.IsAboutPerson) &&
			!analysis.IsPolicyContext {
			analysis.IsFinancial = true
		}
	}

	return analysis
}

// extractPersonDetails runs the person shape patterns (most specific
// first) and records the first captured name.
func (f *ContentFilter) extractPersonDetails(query string, analysis *QueryAnalysis) {
	for _, pattern := range f.patterns.person {
		m := pattern.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		analysis.IsAboutPerson = true
		if len(m) > 1 && m[1] != "" {
			analysis.TargetPerson = strings.TrimSpace(m[1])
		} else if name := f.patterns.capitalizedNamePattern.FindString(m[0]); name != "" {
			analysis.TargetPerson = name
		}
		return
	}
}

// checkSelfReference sets the self-data flag from the self-reference
// patterns.
func (f *ContentFilter) checkSelfReference(query string, analysis *QueryAnalysis) {
	if matchesAny(f.patterns.selfReference, query) {
		analysis.IsSelfDataRequest = true
	}
}
