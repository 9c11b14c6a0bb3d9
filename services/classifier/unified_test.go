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
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TechConsultAI/FinFilter/services/llm"
)

// mockBackend implements llm.Client for tests.
type mockBackend struct {
	response string
	err      error
	delay    time.Duration
	calls    atomic.Int64
}

func (m *mockBackend) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockBackend) Chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
	return m.Generate(ctx, "", params)
}

const validUnifiedJSON = `{
  "intent_classification": {
    "category": "PERSONAL_DATA",
    "confidence": 0.93,
    "reasoning": "Query asks for an individual's salary",
    "keywords": ["salary", "Lisa Park"],
    "is_policy_related": false,
    "is_financial_sensitive": true
  },
  "security_analysis": {
    "overall_risk": "HIGH_RISK",
    "contains_sensitive_data": true,
    "detected_issues": ["individual compensation request"],
    "recommendation": "DENY",
    "security_notes": "Individual salary data"
  },
  "unified_decision": {
    "should_allow": false,
    "filter_action": "deny",
    "final_reasoning": "Personal salary data must not be disclosed"
  }
}`

func TestUnifiedAnalyzer_ValidModelResponse(t *testing.T) {
	backend := &mockBackend{response: validUnifiedJSON}
	analyzer := NewUnifiedAnalyzer(backend)

	got := analyzer.Classify(context.Background(), "what is Lisa Park's salary", "", "junior")

	if got.Intent != IntentPersonalData {
		t.Errorf("intent = %v, want personal_data", got.Intent)
	}
	if got.Confidence != 0.93 {
		t.Errorf("confidence = %v, want 0.93", got.Confidence)
	}
	if got.OverallRisk != RiskHigh {
		t.Errorf("risk = %v, want high_risk", got.OverallRisk)
	}
	if got.ShouldAllow {
		t.Error("should_allow should be false")
	}
	if got.FromFallback {
		t.Error("model-derived result must not be marked fallback")
	}
}

func TestUnifiedAnalyzer_RepairsMalformedJSON(t *testing.T) {
	// Markdown fences and a trailing comma: typical model damage that
	// jsonrepair handles without a fallback.
	damaged := "```json\n" + strings.Replace(validUnifiedJSON,
		`"final_reasoning": "Personal salary data must not be disclosed"`,
		`"final_reasoning": "Personal salary data must not be disclosed",`, 1) + "\n```"
	backend := &mockBackend{response: damaged}
	analyzer := NewUnifiedAnalyzer(backend)

	got := analyzer.Classify(context.Background(), "what is Lisa Park's salary", "", "junior")
	if got.FromFallback {
		t.Fatal("repairable JSON should not trigger the fallback")
	}
	if got.Intent != IntentPersonalData {
		t.Errorf("intent = %v, want personal_data", got.Intent)
	}
}

func TestUnifiedAnalyzer_GibberishFallsBack(t *testing.T) {
	backend := &mockBackend{response: "I cannot answer that in JSON, sorry!"}
	analyzer := NewUnifiedAnalyzer(backend)

	got := analyzer.Classify(context.Background(), "what is Lisa Park's salary", "", "admin")
	if !got.FromFallback {
		t.Fatal("unusable model output must fall back")
	}
	// The fallback still recognizes the person-salary shape.
	if got.Intent != IntentPersonalData {
		t.Errorf("fallback intent = %v, want personal_data", got.Intent)
	}
	if got.Confidence != FallbackConfidence {
		t.Errorf("fallback confidence = %v, want %v", got.Confidence, FallbackConfidence)
	}
}

func TestUnifiedAnalyzer_BackendErrorFallsBack(t *testing.T) {
	backend := &mockBackend{err: errors.New("upstream 503")}
	analyzer := NewUnifiedAnalyzer(backend)

	got := analyzer.Classify(context.Background(), "how to submit expense reports", "", "junior")
	if !got.FromFallback {
		t.Fatal("backend error must fall back")
	}
	if got.Intent != IntentPolicyProcedure {
		t.Errorf("fallback intent = %v, want policy_procedure", got.Intent)
	}
}

func TestUnifiedAnalyzer_TimeoutFallsBack(t *testing.T) {
	backend := &mockBackend{response: validUnifiedJSON, delay: 200 * time.Millisecond}
	analyzer := NewUnifiedAnalyzer(backend, WithAnalysisTimeout(20*time.Millisecond))

	start := time.Now()
	got := analyzer.Classify(context.Background(), "what is Lisa Park's salary", "", "junior")
	if !got.FromFallback {
		t.Fatal("timeout must fall back")
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("classification took %v; timeout did not bound the call", elapsed)
	}
	// Exactly one attempt, no retry.
	if calls := backend.calls.Load(); calls != 1 {
		t.Errorf("backend calls = %d, want 1", calls)
	}
}

func TestUnifiedAnalyzer_NilBackendUsesFallback(t *testing.T) {
	analyzer := NewUnifiedAnalyzer(nil)

	got := analyzer.Classify(context.Background(), "what was the q3 revenue", "", "manager")
	if !got.FromFallback {
		t.Fatal("nil backend must use fallback")
	}
	if got.Intent != IntentFinancialData {
		t.Errorf("intent = %v, want financial_data", got.Intent)
	}
}

func TestUnifiedAnalyzer_CachesQueryClassifications(t *testing.T) {
	backend := &mockBackend{response: validUnifiedJSON}
	analyzer := NewUnifiedAnalyzer(backend)

	analyzer.Classify(context.Background(), "what is Lisa Park's salary", "", "junior")
	analyzer.Classify(context.Background(), "what is Lisa Park's salary", "", "junior")

	if calls := backend.calls.Load(); calls != 1 {
		t.Errorf("backend calls = %d, want 1 (second call should hit cache)", calls)
	}
}

func TestUnifiedAnalyzer_ResponseScreeningBypassesCache(t *testing.T) {
	backend := &mockBackend{response: validUnifiedJSON}
	analyzer := NewUnifiedAnalyzer(backend)

	analyzer.Classify(context.Background(), "query", "response A", "junior")
	analyzer.Classify(context.Background(), "query", "response B", "junior")

	if calls := backend.calls.Load(); calls != 2 {
		t.Errorf("backend calls = %d, want 2 (response screening must not be cached)", calls)
	}
}

func TestBuildUnifiedPrompt_ContainsInputs(t *testing.T) {
	prompt := buildUnifiedPrompt("what is Lisa Park's salary", "some response", "manager")
	for _, want := range []string{"Lisa Park", "some response", "USER ROLE: manager", "intent_classification", "unified_decision"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
