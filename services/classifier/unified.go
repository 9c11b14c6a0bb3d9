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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/TechConsultAI/FinFilter/services/llm"
)

// =============================================================================
// Unified Analyzer
// =============================================================================

const (
	defaultAnalysisTimeout = 10 * time.Second

	unifiedSystemPrompt = "You are a security expert and intent classifier. " +
		"Always respond with valid JSON. Be thorough but concise."
)

var (
	unifiedTemperature float32 = 0.1
	unifiedMaxTokens           = 600
)

// unifiedWireResponse mirrors the JSON schema the model is instructed to
// emit. Field tags match the prompt exactly so a well-behaved model round
// trips cleanly.
type unifiedWireResponse struct {
	IntentClassification struct {
		Category           string   `json:"category"`
		Confidence         float64  `json:"confidence"`
		Reasoning          string   `json:"reasoning"`
		Keywords           []string `json:"keywords"`
		IsPolicyRelated    bool     `json:"is_policy_related"`
		IsFinancialSensitive bool   `json:"is_financial_sensitive"`
	} `json:"intent_classification"`
	SecurityAnalysis struct {
		OverallRisk          string   `json:"overall_risk"`
		ContainsSensitiveData bool    `json:"contains_sensitive_data"`
		DetectedIssues       []string `json:"detected_issues"`
		Recommendation       string   `json:"recommendation"`
		SecurityNotes        string   `json:"security_notes"`
	} `json:"security_analysis"`
	UnifiedDecision struct {
		ShouldAllow    bool   `json:"should_allow"`
		FilterAction   string `json:"filter_action"`
		FinalReasoning string `json:"final_reasoning"`
	} `json:"unified_decision"`
}

// UnifiedAnalyzer performs intent classification and content risk analysis
// in a single model call.
//
// Description:
//
//	Sends one combined prompt covering both the intent classification task
//	and the security assessment task, halving the number of upstream calls
//	compared to running the two classifiers separately. Results are cached
//	by normalized query. Any backend failure (transport error, timeout,
//	unparseable output) degrades to the deterministic pattern fallback so
//	the caller always receives a usable Result.
//
// Thread Safety: UnifiedAnalyzer is safe for concurrent use.
type UnifiedAnalyzer struct {
	backend llm.Client
	cache   *Cache
	timeout time.Duration
	logger  *slog.Logger
}

// UnifiedAnalyzerOption configures a UnifiedAnalyzer.
type UnifiedAnalyzerOption func(*UnifiedAnalyzer)

// WithAnalysisTimeout overrides the per-call model timeout.
func WithAnalysisTimeout(d time.Duration) UnifiedAnalyzerOption {
	return func(u *UnifiedAnalyzer) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// WithCache overrides the result cache (nil disables caching).
func WithCache(c *Cache) UnifiedAnalyzerOption {
	return func(u *UnifiedAnalyzer) {
		u.cache = c
	}
}

// WithLogger overrides the analyzer's logger.
func WithLogger(l *slog.Logger) UnifiedAnalyzerOption {
	return func(u *UnifiedAnalyzer) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUnifiedAnalyzer creates a UnifiedAnalyzer backed by the given model
// client.
//
// Description:
//
//	A nil backend is valid: the analyzer then answers every call from the
//	pattern fallback, which keeps the filter operational when no model is
//	configured.
//
// Inputs:
//   - backend: The model client, or nil to run fallback-only.
//   - opts: Optional configuration.
//
// Outputs:
//   - *UnifiedAnalyzer: The configured analyzer.
func NewUnifiedAnalyzer(backend llm.Client, opts ...UnifiedAnalyzerOption) *UnifiedAnalyzer {
	u := &UnifiedAnalyzer{
		backend: backend,
		cache:   NewCache(0, 0),
		timeout: defaultAnalysisTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	if backend == nil {
		u.logger.Warn("Unified analyzer has no model backend; using pattern fallback only")
	}
	return u
}

// Classify implements Classifier.
//
// Description:
//
//	Checks the cache first, then performs one unified model call. Every
//	failure path falls back to deterministic pattern classification; the
//	method never returns an error to the caller.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - query: The user's query.
//   - response: Optional model response to screen alongside the query.
//   - role: The user's role string for role-aware decisions.
//
// Outputs:
//   - Result: The classification, from model, cache, or fallback.
//
// Thread Safety: This method is safe for concurrent use.
func (u *UnifiedAnalyzer) Classify(ctx context.Context, query, response, role string) Result {
	classifierRequestsTotal.WithLabelValues("unified").Inc()

	// Cache only pure query classifications; response screening results
	// depend on the response text and must not be reused.
	cacheable := response == "" && u.cache != nil
	if cacheable {
		if cached, ok := u.cache.Get(query); ok {
			classifierCacheHitsTotal.Inc()
			return cached
		}
		classifierCacheMissesTotal.Inc()
	}

	if u.backend == nil {
		classifierFallbacksTotal.WithLabelValues("no_backend").Inc()
		return FallbackClassify(query, role)
	}

	result, err := u.modelAnalysis(ctx, query, response, role)
	if err != nil {
		u.logger.Warn("Unified analysis failed; using pattern fallback",
			slog.String("error", err.Error()),
			slog.String("role", role),
		)
		classifierFallbacksTotal.WithLabelValues("model_error").Inc()
		return FallbackClassify(query, role)
	}

	classifierModelCallsTotal.WithLabelValues("ok").Inc()
	if cacheable {
		u.cache.Store(query, result)
	}
	return result
}

func (u *UnifiedAnalyzer) modelAnalysis(ctx context.Context, query, response, role string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	start := time.Now()
	raw, err := u.backend.Generate(ctx, buildUnifiedPrompt(query, response, role), llm.GenerationParams{
		SystemPrompt: unifiedSystemPrompt,
		Temperature:  &unifiedTemperature,
		MaxTokens:    &unifiedMaxTokens,
	})
	classifierModelLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		classifierModelCallsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("unified analysis backend call: %w", err)
	}

	wire, err := parseUnifiedResponse(raw)
	if err != nil {
		classifierModelCallsTotal.WithLabelValues("parse_error").Inc()
		return Result{}, fmt.Errorf("unified analysis response parse: %w", err)
	}

	return Result{
		Intent:               ParseIntent(strings.ToLower(wire.IntentClassification.Category)),
		Confidence:           wire.IntentClassification.Confidence,
		Reasoning:            wire.IntentClassification.Reasoning,
		Keywords:             wire.IntentClassification.Keywords,
		IsPolicyRelated:      wire.IntentClassification.IsPolicyRelated,
		IsFinancialSensitive: wire.IntentClassification.IsFinancialSensitive,
		OverallRisk:          ParseRiskLevel(strings.ToLower(wire.SecurityAnalysis.OverallRisk)),
		ContainsSensitiveData: wire.SecurityAnalysis.ContainsSensitiveData,
		DetectedIssues:       wire.SecurityAnalysis.DetectedIssues,
		Recommendation:       wire.SecurityAnalysis.Recommendation,
		ShouldAllow:          wire.UnifiedDecision.ShouldAllow,
		FromFallback:         false,
	}, nil
}

// parseUnifiedResponse extracts the analysis JSON from raw model output.
//
// Description:
//
//	Models frequently wrap JSON in markdown fences or emit trailing commas.
//	The raw text is run through jsonrepair before unmarshaling so minor
//	formatting damage does not force a fallback.
func parseUnifiedResponse(raw string) (*unifiedWireResponse, error) {
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("repairing model JSON: %w", err)
	}
	var wire unifiedWireResponse
	if err := json.Unmarshal([]byte(repaired), &wire); err != nil {
		return nil, fmt.Errorf("unmarshaling model JSON: %w", err)
	}
	if wire.IntentClassification.Category == "" {
		return nil, fmt.Errorf("model JSON missing intent_classification.category")
	}
	return &wire, nil
}

func buildUnifiedPrompt(query, response, role string) string {
	var b strings.Builder
	b.WriteString("You are an expert AI security analyst for a corporate knowledge management system.\n")
	b.WriteString("Perform BOTH intent classification AND security analysis in a single comprehensive evaluation.\n\n")
	fmt.Fprintf(&b, "USER QUERY: %q\n", query)
	fmt.Fprintf(&b, "USER RESPONSE: %q\n", response)
	fmt.Fprintf(&b, "USER ROLE: %s\n\n", role)
	b.WriteString(`TASK 1 - INTENT CLASSIFICATION:
Classify the query into ONE category:
1. POLICY_PROCEDURE - Company policies, procedures, how-to guides
2. FINANCIAL_DATA - Specific financial numbers, budgets, revenues
3. PERSONAL_DATA - Individual employee information, salaries, personal details
4. GENERAL_INFO - General company information, non-sensitive data

TASK 2 - SECURITY ANALYSIS:
Assess security risks and sensitive content:
- Does content contain salary amounts, compensation details?
- Are there privacy concerns with employee data?
- Should access be restricted based on user role?

TASK 3 - UNIFIED DECISION:
Make a final recommendation: ALLOW, ALLOW_WITH_SCREENING, or DENY

Guidelines:
- PERSONAL_DATA queries about salaries = HIGH_RISK, usually DENY
- POLICY_PROCEDURE queries = LOW_RISK, usually ALLOW
- Consider user role: Admin has more access than Junior
- Be conservative with financial/personal data

Respond with JSON only:
{
    "intent_classification": {
        "category": "POLICY_PROCEDURE|FINANCIAL_DATA|PERSONAL_DATA|GENERAL_INFO",
        "confidence": 0.95,
        "reasoning": "Why this category was chosen",
        "keywords": ["key", "terms"],
        "is_policy_related": true/false,
        "is_financial_sensitive": true/false
    },
    "security_analysis": {
        "overall_risk": "LOW_RISK|MEDIUM_RISK|HIGH_RISK|CRITICAL_RISK",
        "contains_sensitive_data": true/false,
        "detected_issues": ["issue1", "issue2"],
        "recommendation": "ALLOW|ALLOW_WITH_SCREENING|DENY",
        "security_notes": "Brief security assessment"
    },
    "unified_decision": {
        "should_allow": true/false,
        "filter_action": "allow|allow_with_screening|deny",
        "final_reasoning": "Combined analysis reasoning"
    }
}
`)
	return b.String()
}
