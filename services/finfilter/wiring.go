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
	"fmt"
	"log/slog"
	"time"

	"github.com/TechConsultAI/FinFilter/services/audit"
	"github.com/TechConsultAI/FinFilter/services/classifier"
	"github.com/TechConsultAI/FinFilter/services/llm"
)

// BuildContentFilter assembles a fully wired ContentFilter from configuration.
//
// Description:
//
//	Loads the pattern library (embedded rules or FINFILTER_RULES_PATH
//	override), builds the configured classifier variant, and wires the
//	audit sink. A missing or unreachable model backend is not fatal: the
//	filter degrades to regex-only classification.
//
// Inputs:
//   - cfg: Validated filter configuration.
//   - logger: Structured logger shared by all components.
//
// Outputs:
//   - *ContentFilter: Ready-to-use filter.
//   - func() error: Cleanup closure releasing the audit sink.
//   - error: Non-nil on pattern load or audit sink failure.
func BuildContentFilter(cfg *FilterConfig, logger *slog.Logger) (*ContentFilter, func() error, error) {
	patterns, err := loadConfiguredPatterns(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []FilterOption{WithFilterLogger(logger)}
	if !cfg.Enabled {
		opts = append(opts, WithFilterDisabled())
	}

	cleanup := func() error { return nil }
	if cfg.AuditEnabled {
		sink, sinkCleanup, err := buildAuditSink(cfg)
		if err != nil {
			return nil, nil, err
		}
		cleanup = sinkCleanup
		opts = append(opts, WithAuditor(audit.NewAuditor(sink, logger)))
	} else {
		opts = append(opts, WithAuditDisabled())
	}

	backend := buildModelBackend(cfg, logger)
	timeout := time.Duration(cfg.ClassifierTimeoutMS) * time.Millisecond
	cache := classifier.NewCache(cfg.CacheCapacity, time.Duration(cfg.CacheTTLHours)*time.Hour)

	switch cfg.ClassifierMode {
	case "unified":
		opts = append(opts, WithClassifier(classifier.NewUnifiedAnalyzer(backend,
			classifier.WithAnalysisTimeout(timeout),
			classifier.WithCache(cache),
			classifier.WithLogger(logger),
		)))
	case "split":
		split := classifier.NewSplitClassifier(backend,
			classifier.WithSplitTimeout(timeout),
			classifier.WithSplitCache(cache),
			classifier.WithSplitLogger(logger),
		)
		opts = append(opts, WithClassifier(split), WithResponseScreener(split))
	case "off":
		opts = append(opts, WithClassifier(classifier.NewFallbackClassifier()))
	default:
		return nil, nil, fmt.Errorf("unknown classifier mode %q", cfg.ClassifierMode)
	}

	return NewContentFilter(patterns, opts...), cleanup, nil
}

func loadConfiguredPatterns(cfg *FilterConfig) (*PatternLibrary, error) {
	if cfg.RulesPath != "" {
		return LoadPatternsFromFile(cfg.RulesPath)
	}
	return LoadDefaultPatterns()
}

func buildAuditSink(cfg *FilterConfig) (audit.Sink, func() error, error) {
	if cfg.AuditPath == "" {
		sink := audit.NewMemorySink()
		return sink, sink.Close, nil
	}
	sink, err := audit.NewJSONLSink(cfg.AuditPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening audit log: %w", err)
	}
	return sink, sink.Close, nil
}

// buildModelBackend returns nil when no API key is configured. Classifiers
// treat a nil backend as a signal to use pattern fallback.
func buildModelBackend(cfg *FilterConfig, logger *slog.Logger) llm.Client {
	if cfg.ClassifierMode == "off" {
		return nil
	}
	client, err := llm.NewOpenAIClient()
	if err != nil {
		logger.Warn("model backend unavailable, using pattern fallback", "error", err)
		return nil
	}
	return client
}
