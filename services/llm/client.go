// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the text-generation backend used by the enrichment
// classifier. A single OpenAI-compatible client over raw net/http — no
// third-party SDK — plus log-safe secret redaction.
package llm

import (
	"context"
)

// Message is one turn of a conversation sent to the backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams tunes a single generation call. Nil pointer fields mean
// "use the backend default".
type GenerationParams struct {
	// Temperature controls sampling randomness. Classification calls use a
	// low value (0.1) for stable output.
	Temperature *float32

	// MaxTokens caps the completion length.
	MaxTokens *int

	// TopP is the nucleus sampling parameter.
	TopP *float32

	// Stop lists stop sequences.
	Stop []string

	// ModelOverride selects a different model than the client default.
	ModelOverride string

	// SystemPrompt replaces the default system message for Generate calls.
	SystemPrompt string
}

// Client is the text-generation contract consumed by the classifier.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Client interface {
	// Generate produces a completion for a single prompt. The context
	// bounds the call; implementations must honor cancellation.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat produces a completion for a multi-turn conversation.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}
