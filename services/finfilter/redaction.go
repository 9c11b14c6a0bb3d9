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
	"regexp"

	"github.com/TechConsultAI/FinFilter/services/classifier"
)

// ResponseScreener is the optional second redaction pass, backed by the
// guardrails content validator. The split classifier satisfies it.
type ResponseScreener interface {
	ValidateContent(ctx context.Context, text, queryContext string) classifier.ContentValidation
}

// guardrailsRedactionPatterns back the screener-triggered second pass.
// Kept in lockstep with the guardrails fallback validation patterns so a
// positive validation always has something here to redact.
var guardrailsRedactionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$[\d,]+`),
	regexp.MustCompile(`(?i)[\d,]+\s*(?:dollars|USD)`),
	regexp.MustCompile(`(?i)salary\s+(?:is|of|equals|:)\s+[\$€£¥]?\d+`),
	regexp.MustCompile(`(?i)annual\s+salary\s+(?:is|of)\s+[\$€£¥]?\d+`),
	regexp.MustCompile(`(?i)(?:makes|earns)\s+\$[\d,]+`),
}

// guardrailsRedactionMarker replaces screener-flagged spans. Distinct from
// RedactionMarker so audits can tell which pass fired.
const guardrailsRedactionMarker = "[REDACTED]"

// FilterResponse applies the decided action to a generated response.
//
// Description:
//
//	ActionAllow and ActionAllowWithEmailCheck pass the response through
//	(the email check happens before generation; by this point it has
//	already succeeded). ActionDeny replaces the whole response with the
//	fixed refusal message. Redaction and screening both run the financial
//	pattern pass; redaction additionally consults the response screener,
//	when one is configured, and applies its stricter second pass.
//
// Inputs:
//   - ctx: Context for the optional screener call.
//   - response: The generated response text.
//   - analysis: The query analysis (supplies screener context).
//   - decision: The action decided for this query.
//
// Outputs:
//   - string: The filtered response.
//   - bool: True when any filtering modified (or replaced) the response.
//
// Thread Safety: This method is safe for concurrent use.
func (f *ContentFilter) FilterResponse(ctx context.Context, response string, analysis QueryAnalysis, decision PolicyDecision) (string, bool) {
	switch decision.Action {
	case ActionAllow, ActionAllowWithEmailCheck:
		return response, false

	case ActionDeny:
		redactionsTotal.WithLabelValues("response").Inc()
		return DeniedResponseMessage, true

	case ActionAllowWithRedaction:
		filtered, wasFiltered := f.redactFinancial(response)
		if f.screener != nil {
			validation := f.screener.ValidateContent(ctx, response, analysis.OriginalQuery)
			if validation.ContainsSensitiveData {
				var guarded bool
				filtered, guarded = applyGuardrailsRedaction(filtered)
				wasFiltered = wasFiltered || guarded
			}
		}
		if wasFiltered {
			redactionsTotal.WithLabelValues("response").Inc()
		}
		return filtered, wasFiltered

	case ActionAllowWithScreening:
		filtered, wasFiltered := f.redactFinancial(response)
		if wasFiltered {
			redactionsTotal.WithLabelValues("response").Inc()
		}
		return filtered, wasFiltered
	}

	return response, false
}

// FilterContext applies the decided action to retrieved document context
// BEFORE it reaches the generation step.
//
// Description:
//
//	Deny empties the context entirely. Redaction and screening share the
//	financial pattern pass. Allow and email-check pass context through
//	(for email-check the context must stay intact so the verification step
//	can find the user's email in it).
//
// Outputs:
//   - string: The filtered context.
//   - bool: True when filtering modified the context.
func (f *ContentFilter) FilterContext(docContext string, decision PolicyDecision) (string, bool) {
	switch decision.Action {
	case ActionAllow, ActionAllowWithEmailCheck:
		return docContext, false

	case ActionDeny:
		redactionsTotal.WithLabelValues("context").Inc()
		return "", true

	case ActionAllowWithRedaction, ActionAllowWithScreening:
		filtered, wasFiltered := f.redactFinancial(docContext)
		if wasFiltered {
			redactionsTotal.WithLabelValues("context").Inc()
		}
		return filtered, wasFiltered
	}

	return docContext, false
}

// redactFinancial replaces every financial-amount span with the redaction
// marker.
//
// Idempotent: the marker matches none of the financial patterns, so
// re-running the pass over already-redacted text changes nothing.
func (f *ContentFilter) redactFinancial(text string) (string, bool) {
	wasFiltered := false
	for _, pattern := range f.patterns.financial {
		if pattern.MatchString(text) {
			text = pattern.ReplaceAllString(text, RedactionMarker)
			wasFiltered = true
		}
	}
	return text, wasFiltered
}

func applyGuardrailsRedaction(text string) (string, bool) {
	redacted := false
	for _, pattern := range guardrailsRedactionPatterns {
		if pattern.MatchString(text) {
			text = pattern.ReplaceAllString(text, guardrailsRedactionMarker)
			redacted = true
		}
	}
	return text, redacted
}
