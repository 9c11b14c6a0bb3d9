// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Chat_Success(t *testing.T) {
	var captured openaiRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization header = %q, want %q", got, "Bearer test-key")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		resp := openaiResponse{
			ID: "chatcmpl-1",
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "hello back"}, FinishReason: "stop"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	client := NewOpenAIClientWithConfig("test-key", "gpt-4o-mini", srv.URL)
	got, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hello"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if got != "hello back" {
		t.Errorf("Chat = %q, want %q", got, "hello back")
	}
	if captured.Model != "gpt-4o-mini" {
		t.Errorf("request model = %q, want gpt-4o-mini", captured.Model)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("request messages = %d, want 2", len(captured.Messages))
	}
}

func TestOpenAIClient_Chat_MapsUnknownRoleToUser(t *testing.T) {
	var captured openaiRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: "ok"}}},
		})
	})

	client := NewOpenAIClientWithConfig("test-key", "gpt-4o-mini", srv.URL)
	_, err := client.Chat(context.Background(), []Message{
		{Role: "tool", Content: "something"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if captured.Messages[0].Role != "user" {
		t.Errorf("unknown role mapped to %q, want user", captured.Messages[0].Role)
	}
}

func TestOpenAIClient_Chat_APIErrorStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit","message":"slow down"}}`))
	})

	client := NewOpenAIClientWithConfig("test-key", "gpt-4o-mini", srv.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	if err == nil {
		t.Fatal("expected error for 429 status, got nil")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error %q should mention status 429", err.Error())
	}
}

func TestOpenAIClient_Chat_NoChoices(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{})
	})

	client := NewOpenAIClientWithConfig("test-key", "gpt-4o-mini", srv.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	if err == nil {
		t.Fatal("expected error for empty choices, got nil")
	}
}

func TestOpenAIClient_Generate_WrapsSystemPrompt(t *testing.T) {
	var captured openaiRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: "done"}}},
		})
	})

	client := NewOpenAIClientWithConfig("test-key", "gpt-4o-mini", srv.URL)
	_, err := client.Generate(context.Background(), "classify this", GenerationParams{
		SystemPrompt: "You are a classifier.",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("request messages = %d, want 2", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != "You are a classifier." {
		t.Errorf("system message = %+v", captured.Messages[0])
	}
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != "classify this" {
		t.Errorf("user message = %+v", captured.Messages[1])
	}
}

func TestOpenAIClient_Chat_ModelOverride(t *testing.T) {
	var captured openaiRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: "ok"}}},
		})
	})

	client := NewOpenAIClientWithConfig("test-key", "gpt-4o-mini", srv.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{
		ModelOverride: "gpt-4o",
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if captured.Model != "gpt-4o" {
		t.Errorf("request model = %q, want gpt-4o", captured.Model)
	}
}

func TestSafeLogString_RedactsSecrets(t *testing.T) {
	cases := []struct {
		name  string
		input string
		leak  string
	}{
		{"bearer token", "failed: Bearer abc123def456token", "abc123def456token"},
		{"openai key", "invalid key sk-aaaabbbbccccddddeeeeffff provided", "sk-aaaabbbb"},
		{"email", "user jane.doe@example.com not found", "jane.doe@example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SafeLogString(tc.input)
			if strings.Contains(got, tc.leak) {
				t.Errorf("SafeLogString(%q) = %q, still contains %q", tc.input, got, tc.leak)
			}
			if !strings.Contains(got, "[REDACTED]") {
				t.Errorf("SafeLogString(%q) = %q, expected [REDACTED] marker", tc.input, got)
			}
		})
	}
}

func TestSafeLogString_TruncatesLongBodies(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := SafeLogString(long)
	if len(got) > maxSafeLogLength+len("...(truncated)") {
		t.Errorf("SafeLogString left %d chars, want at most %d", len(got), maxSafeLogLength)
	}
	if !strings.HasSuffix(got, "...(truncated)") {
		t.Error("expected truncation suffix")
	}
}
