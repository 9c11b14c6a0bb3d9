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
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/TechConsultAI/FinFilter/services/llm"
)

// =============================================================================
// Split-Mode Classifier
// =============================================================================

const (
	intentSystemPrompt     = "You are a precise query classifier. Always respond with valid JSON."
	guardrailsSystemPrompt = "You are a security expert. Always respond with valid JSON. " +
		"Be conservative - when in doubt, mark as sensitive."
)

var (
	intentMaxTokens     = 300
	guardrailsMaxTokens = 400
)

// intentWireResponse mirrors the classification-only JSON schema.
type intentWireResponse struct {
	Category             string   `json:"category"`
	Confidence           float64  `json:"confidence"`
	Reasoning            string   `json:"reasoning"`
	Keywords             []string `json:"keywords"`
	IsPolicyRelated      bool     `json:"is_policy_related"`
	IsFinancialSensitive bool     `json:"is_financial_sensitive"`
}

// ContentValidation is the guardrails assessment of a single piece of text.
type ContentValidation struct {
	ContainsSensitiveData bool     `json:"contains_sensitive_data"`
	SensitivityLevel      string   `json:"sensitivity_level"`
	DetectedIssues        []string `json:"detected_issues"`
	Confidence            float64  `json:"confidence"`
	Reasoning             string   `json:"reasoning"`
}

// SplitClassifier runs intent classification and guardrails content
// validation as two independent backend calls.
//
// Description:
//
//	The legacy two-call variant, kept selectable for operators who want
//	the narrower, more focused prompts. Costs one extra backend round trip
//	per query compared to UnifiedAnalyzer. Shares the same cache and
//	fallback behavior.
//
// Thread Safety: SplitClassifier is safe for concurrent use.
type SplitClassifier struct {
	backend llm.Client
	cache   *Cache
	timeout time.Duration
	logger  *slog.Logger
}

// NewSplitClassifier creates a SplitClassifier backed by the given model
// client. A nil backend runs fallback-only.
func NewSplitClassifier(backend llm.Client, opts ...SplitClassifierOption) *SplitClassifier {
	s := &SplitClassifier{
		backend: backend,
		cache:   NewCache(0, 0),
		timeout: defaultAnalysisTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if backend == nil {
		s.logger.Warn("Split classifier has no model backend; using pattern fallback only")
	}
	return s
}

// SplitClassifierOption configures a SplitClassifier.
type SplitClassifierOption func(*SplitClassifier)

// WithSplitTimeout overrides the per-call backend timeout.
func WithSplitTimeout(d time.Duration) SplitClassifierOption {
	return func(s *SplitClassifier) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSplitCache overrides the result cache (nil disables caching).
func WithSplitCache(c *Cache) SplitClassifierOption {
	return func(s *SplitClassifier) {
		s.cache = c
	}
}

// WithSplitLogger overrides the classifier's logger.
func WithSplitLogger(l *slog.Logger) SplitClassifierOption {
	return func(s *SplitClassifier) {
		if l != nil {
			s.logger = l
		}
	}
}

// Classify implements Classifier.
//
// Description:
//
//	Runs the intent call first, then the guardrails call when a response
//	body is supplied. Each call independently degrades to its deterministic
//	fallback, so a guardrails failure never discards a successful intent
//	classification.
func (s *SplitClassifier) Classify(ctx context.Context, query, response, role string) Result {
	classifierRequestsTotal.WithLabelValues("split").Inc()

	result := s.classifyIntent(ctx, query, role)

	if response != "" {
		validation := s.ValidateContent(ctx, response, query)
		result.ContainsSensitiveData = result.ContainsSensitiveData || validation.ContainsSensitiveData
		result.DetectedIssues = append(result.DetectedIssues, validation.DetectedIssues...)
		if validation.ContainsSensitiveData {
			result.OverallRisk = RiskHigh
			result.Recommendation = "BLOCK - Response contains sensitive financial data"
		}
	}

	return result
}

func (s *SplitClassifier) classifyIntent(ctx context.Context, query, role string) Result {
	cacheable := s.cache != nil
	if cacheable {
		if cached, ok := s.cache.Get(query); ok {
			classifierCacheHitsTotal.Inc()
			return cached
		}
		classifierCacheMissesTotal.Inc()
	}

	if s.backend == nil {
		classifierFallbacksTotal.WithLabelValues("no_backend").Inc()
		return enhancedFallbackClassify(query, role)
	}

	result, err := s.intentCall(ctx, query)
	if err != nil {
		s.logger.Warn("Intent classification failed; using pattern fallback",
			slog.String("error", err.Error()),
		)
		classifierFallbacksTotal.WithLabelValues("model_error").Inc()
		return enhancedFallbackClassify(query, role)
	}

	classifierModelCallsTotal.WithLabelValues("ok").Inc()
	if cacheable {
		s.cache.Store(query, result)
	}
	return result
}

func (s *SplitClassifier) intentCall(ctx context.Context, query string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.backend.Generate(ctx, buildIntentPrompt(query), llm.GenerationParams{
		SystemPrompt: intentSystemPrompt,
		Temperature:  &unifiedTemperature,
		MaxTokens:    &intentMaxTokens,
	})
	classifierModelLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		classifierModelCallsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("intent backend call: %w", err)
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		classifierModelCallsTotal.WithLabelValues("parse_error").Inc()
		return Result{}, fmt.Errorf("repairing intent JSON: %w", err)
	}
	var wire intentWireResponse
	if err := json.Unmarshal([]byte(repaired), &wire); err != nil {
		classifierModelCallsTotal.WithLabelValues("parse_error").Inc()
		return Result{}, fmt.Errorf("unmarshaling intent JSON: %w", err)
	}
	if wire.Category == "" {
		classifierModelCallsTotal.WithLabelValues("parse_error").Inc()
		return Result{}, fmt.Errorf("intent JSON missing category")
	}

	return Result{
		Intent:               ParseIntent(wire.Category),
		Confidence:           wire.Confidence,
		Reasoning:            wire.Reasoning,
		Keywords:             wire.Keywords,
		IsPolicyRelated:      wire.IsPolicyRelated,
		IsFinancialSensitive: wire.IsFinancialSensitive,
	}, nil
}

// ValidateContent runs guardrails content sensitivity validation on a piece
// of text.
//
// Description:
//
//	Asks the backend whether the text contains sensitive financial data,
//	with the originating query supplied as context. Falls back to
//	deterministic pattern validation on any failure.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - text: The content to validate (typically a model response).
//   - queryContext: The originating query, for context.
//
// Outputs:
//   - ContentValidation: The assessment. Never fails.
//
// Thread Safety: This method is safe for concurrent use.
func (s *SplitClassifier) ValidateContent(ctx context.Context, text, queryContext string) ContentValidation {
	if s.backend == nil {
		return FallbackContentValidation(text, queryContext)
	}

	validation, err := s.guardrailsCall(ctx, text, queryContext)
	if err != nil {
		s.logger.Warn("Guardrails validation failed; using pattern fallback",
			slog.String("error", err.Error()),
		)
		classifierFallbacksTotal.WithLabelValues("model_error").Inc()
		return FallbackContentValidation(text, queryContext)
	}
	return validation
}

func (s *SplitClassifier) guardrailsCall(ctx context.Context, text, queryContext string) (ContentValidation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.backend.Generate(ctx, buildGuardrailsPrompt(text, queryContext), llm.GenerationParams{
		SystemPrompt: guardrailsSystemPrompt,
		Temperature:  &unifiedTemperature,
		MaxTokens:    &guardrailsMaxTokens,
	})
	classifierModelLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		classifierModelCallsTotal.WithLabelValues("error").Inc()
		return ContentValidation{}, fmt.Errorf("guardrails backend call: %w", err)
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		classifierModelCallsTotal.WithLabelValues("parse_error").Inc()
		return ContentValidation{}, fmt.Errorf("repairing guardrails JSON: %w", err)
	}
	var validation ContentValidation
	if err := json.Unmarshal([]byte(repaired), &validation); err != nil {
		classifierModelCallsTotal.WithLabelValues("parse_error").Inc()
		return ContentValidation{}, fmt.Errorf("unmarshaling guardrails JSON: %w", err)
	}
	classifierModelCallsTotal.WithLabelValues("ok").Inc()
	return validation, nil
}

// =============================================================================
// Deterministic Fallbacks
// =============================================================================

// Enhanced fallback patterns for the split intent path. Priority order
// matters: person-salary detection wins over policy, policy over financial,
// financial over bare personal keywords.
var (
	splitPolicyKeywords = []string{
		"how to", "how do i", "policy", "procedure", "process", "submit", "deadline", "guidelines",
		"can i claim", "are expenses reimbursable", "expense report", "reimbursement", "approval",
	}
	splitFinancialKeywords = []string{
		"budget", "revenue", "profit", "cost", "spent", "total", "amount", "q3", "quarterly",
	}
	splitPersonalKeywords = []string{
		"salary", "compensation", "pay", "earn", "makes", "income", "make", "annually", "yearly",
	}
	splitSalaryKeywords = []string{
		"how much does", "what does", "how much money does", "what is", "salary",
		"tell me what", "annually", "yearly", "bracket", "figure range", "100k+", "$100k",
	}

	splitSalaryContextPatterns = []*regexp.Regexp{
		regexp.MustCompile(`how much does .+ make`),
		regexp.MustCompile(`what does .+ earn`),
		regexp.MustCompile(`tell me what .+ annually`),
		regexp.MustCompile(`what .+ annually`),
		regexp.MustCompile(`.+ salary`),
		regexp.MustCompile(`.+ in the .+ bracket`),
		regexp.MustCompile(`.+ in the .+ range`),
		regexp.MustCompile(`does .+ fall in`),
		regexp.MustCompile(`is .+ in the`),
	}

	splitPersonNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`),
		regexp.MustCompile(`\b[A-Z][a-z]+\b`),
	}
)

// enhancedFallbackClassify is the split variant's deterministic fallback.
// It is stricter about person-salary detection than FallbackClassify: a
// capitalized name plus salary context is personal data regardless of role.
func enhancedFallbackClassify(query, role string) Result {
	lower := strings.ToLower(query)

	hasPerson := false
	for _, p := range splitPersonNamePatterns {
		if p.MatchString(query) {
			hasPerson = true
			break
		}
	}
	hasSalaryContext := false
	for _, p := range splitSalaryContextPatterns {
		if p.MatchString(lower) {
			hasSalaryContext = true
			break
		}
	}
	hasSalaryKeywords := containsAny(lower, splitSalaryKeywords)

	var (
		intent    Intent
		policy    bool
		sensitive bool
		reasoning string
	)
	switch {
	case hasPerson && (hasSalaryContext || hasSalaryKeywords):
		intent, sensitive = IntentPersonalData, true
		reasoning = "Detected salary query about person (fallback classification)"
	case containsAny(lower, splitPolicyKeywords):
		intent, policy = IntentPolicyProcedure, true
		reasoning = "Detected policy/procedure query (fallback classification)"
	case containsAny(lower, splitFinancialKeywords):
		intent, sensitive = IntentFinancialData, true
		reasoning = "Detected financial data query (fallback classification)"
	case containsAny(lower, splitPersonalKeywords):
		intent, sensitive = IntentPersonalData, true
		reasoning = "Detected personal data query (fallback classification)"
	default:
		intent = IntentGeneralInfo
		reasoning = "General information query (fallback classification)"
	}

	risk := RiskLow
	allow := true
	if sensitive {
		risk = RiskHigh
		allow = isPrivilegedRole(role) && intent == IntentFinancialData
	}

	var issues []string
	if sensitive {
		issues = []string{"Potential sensitive content"}
	}
	return Result{
		Intent:                intent,
		Confidence:            FallbackConfidence,
		Reasoning:             reasoning,
		IsPolicyRelated:       policy,
		IsFinancialSensitive:  sensitive,
		OverallRisk:           risk,
		ContainsSensitiveData: sensitive,
		DetectedIssues:        issues,
		ShouldAllow:           allow,
		FromFallback:          true,
	}
}

// Guardrails fallback patterns. Salary amounts escalate to highly
// sensitive; personal financial references to sensitive_personal.
var (
	guardrailsSalaryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\$[\d,]+`),
		regexp.MustCompile(`(?i)[\d,]+\s*(?:dollars|USD)`),
		regexp.MustCompile(`(?i)salary\s+(?:is|of|equals|:)\s+[\$€£¥]?\d+`),
		regexp.MustCompile(`(?i)annual\s+salary\s+(?:is|of)\s+[\$€£¥]?\d+`),
	}
	guardrailsPersonalFinancialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\s+(?:makes|earns|salary|compensation)`),
		regexp.MustCompile(`(?i)(?:makes|earns)\s+\$[\d,]+`),
		regexp.MustCompile(`(?i)salary\s+of\s+\$[\d,]+`),
	}
)

// FallbackContentValidation is the deterministic guardrails validation used
// when no backend is available or the backend call fails.
//
// Description:
//
//	Pure pattern matching. The redaction pass also uses these patterns
//	directly, so fallback validation and fallback redaction agree on what
//	counts as sensitive.
//
// Inputs:
//   - text: The content to validate.
//   - queryContext: The originating query (unused by the pattern path but
//     kept for signature parity with the backend path).
//
// Outputs:
//   - ContentValidation: The assessment.
//
// Thread Safety: Stateless. Safe for concurrent use.
func FallbackContentValidation(text, queryContext string) ContentValidation {
	_ = queryContext
	var issues []string
	sensitive := false
	level := "safe"

	for _, p := range guardrailsSalaryPatterns {
		if p.MatchString(text) {
			issues = append(issues, fmt.Sprintf("Salary amount detected: %s", p.String()))
			sensitive = true
			level = "highly_sensitive"
		}
	}
	for _, p := range guardrailsPersonalFinancialPatterns {
		if p.MatchString(text) {
			issues = append(issues, fmt.Sprintf("Personal financial data detected: %s", p.String()))
			sensitive = true
			if level == "safe" {
				level = "sensitive_personal"
			}
		}
	}

	return ContentValidation{
		ContainsSensitiveData: sensitive,
		SensitivityLevel:      level,
		DetectedIssues:        issues,
		Confidence:            0.8,
		Reasoning:             "Pattern-based fallback validation",
	}
}

// =============================================================================
// Prompts
// =============================================================================

func buildIntentPrompt(query string) string {
	var b strings.Builder
	b.WriteString(`You are an expert at classifying employee queries for a corporate knowledge management system.

Classify this query into ONE of these categories:

1. POLICY_PROCEDURE - Questions about company policies, procedures, how-to guides, processes
   Examples:
   - "How do I submit expense reports?"
   - "What's the vacation policy?"
   - "Can I claim expenses for professional development?"
   - "What's the deadline for submitting expenses?"
   - "Are personal expenses reimbursable?"

2. FINANCIAL_DATA - Requests for specific financial numbers, budgets, revenues, costs, actual amounts
   Examples:
   - "What was our Q3 revenue?"
   - "What's the marketing budget?"
   - "How much did we spend on office supplies?"

3. PERSONAL_DATA - Questions about individual employee information, salaries, personal details
   Examples:
   - "What's John's salary?"
   - "Who reports to Sarah?"
   - "What's my salary?" (if asking for specific amount)

4. GENERAL_INFO - General questions about company, people, departments, non-sensitive information
   Examples:
   - "Who is the HR manager?"
   - "What does the sales team do?"
   - "Who is Lisa Park?" (general info, not salary)

Key Guidelines:
- Questions about PROCEDURES/POLICIES for expenses = POLICY_PROCEDURE
- Questions about ACTUAL AMOUNTS/NUMBERS = FINANCIAL_DATA
- Focus on the INTENT, not just keywords
- "Expense" in context of procedures = POLICY_PROCEDURE
- "Expense" in context of amounts/budgets = FINANCIAL_DATA

`)
	fmt.Fprintf(&b, "Query: %q\n\n", query)
	b.WriteString(`Respond with JSON only:
{
    "category": "POLICY_PROCEDURE|FINANCIAL_DATA|PERSONAL_DATA|GENERAL_INFO",
    "confidence": 0.95,
    "reasoning": "Brief explanation of why this category was chosen",
    "keywords": ["key", "terms", "identified"],
    "is_policy_related": true/false,
    "is_financial_sensitive": true/false
}
`)
	return b.String()
}

func buildGuardrailsPrompt(text, queryContext string) string {
	var b strings.Builder
	b.WriteString("You are a corporate security expert analyzing content for sensitive financial information.\n\n")
	b.WriteString("CRITICAL QUESTION: Does the content include sensitive financial data such as salaries, compensation, or personal financial information? (yes/no)\n\n")
	fmt.Fprintf(&b, "Content to analyze: %q\n", text)
	fmt.Fprintf(&b, "Original query context: %q\n\n", queryContext)
	b.WriteString(`Analyze for:
1. Specific salary amounts (e.g., "$68,000", "125k")
2. Personal compensation details
3. Individual financial information
4. Salary comparisons or ranges
5. Financial data about specific employees

Respond with JSON only:
{
    "contains_sensitive_data": true/false,
    "sensitivity_level": "safe|sensitive_financial|sensitive_personal|highly_sensitive",
    "detected_issues": ["issue1", "issue2"],
    "confidence": 0.95,
    "reasoning": "Brief explanation of why this is/isn't sensitive"
}
`)
	return b.String()
}
