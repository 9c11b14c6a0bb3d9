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
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// FilterConfig holds all configuration for the content filter service.
//
// Description:
//
//	Loaded from environment variables at startup via LoadFilterConfig().
//	All fields have safe defaults (filter enabled, audit enabled, unified
//	classifier, embedded rules).
//
// Thread Safety: FilterConfig is a value type. Safe to copy and share
// after loading.
type FilterConfig struct {
	// Enabled controls the global kill switch. When false, ProcessQuery
	// refuses to run and callers must treat all content as unfiltered.
	// Env: FINFILTER_ENABLED (default: "true")
	Enabled bool

	// AuditEnabled controls whether decisions emit audit entries.
	// Env: FINFILTER_AUDIT_ENABLED (default: "true")
	AuditEnabled bool

	// AuditPath is the JSONL audit log path. Empty keeps audits in memory.
	// Env: FINFILTER_AUDIT_PATH (default: "")
	AuditPath string

	// ClassifierMode selects the enrichment variant: "unified" (one model
	// call), "split" (separate intent and guardrails calls), or "off"
	// (regex fallback only).
	// Env: FINFILTER_CLASSIFIER_MODE (default: "unified")
	ClassifierMode string `validate:"oneof=unified split off"`

	// ClassifierTimeoutMS bounds each classifier backend call.
	// Env: FINFILTER_CLASSIFIER_TIMEOUT_MS (default: 10000)
	ClassifierTimeoutMS int `validate:"gt=0"`

	// CacheCapacity bounds the classification cache entry count.
	// Env: FINFILTER_CACHE_CAPACITY (default: 1000)
	CacheCapacity int `validate:"gt=0"`

	// CacheTTLHours is the classification cache entry lifetime.
	// Env: FINFILTER_CACHE_TTL_HOURS (default: 24)
	CacheTTLHours int `validate:"gt=0"`

	// RulesPath optionally overrides the embedded classification rule file.
	// Env: FINFILTER_RULES_PATH (default: "")
	RulesPath string

	// ListenAddr is the HTTP gateway bind address.
	// Env: FINFILTER_LISTEN_ADDR (default: ":8090")
	ListenAddr string `validate:"required"`
}

// LoadFilterConfig reads filter configuration from environment variables.
//
// Outputs:
//   - *FilterConfig: Fully populated configuration with defaults applied.
func LoadFilterConfig() *FilterConfig {
	return &FilterConfig{
		Enabled:             envBool("FINFILTER_ENABLED", true),
		AuditEnabled:        envBool("FINFILTER_AUDIT_ENABLED", true),
		AuditPath:           os.Getenv("FINFILTER_AUDIT_PATH"),
		ClassifierMode:      envString("FINFILTER_CLASSIFIER_MODE", "unified"),
		ClassifierTimeoutMS: envInt("FINFILTER_CLASSIFIER_TIMEOUT_MS", 10000),
		CacheCapacity:       envInt("FINFILTER_CACHE_CAPACITY", 1000),
		CacheTTLHours:       envInt("FINFILTER_CACHE_TTL_HOURS", 24),
		RulesPath:           os.Getenv("FINFILTER_RULES_PATH"),
		ListenAddr:          envString("FINFILTER_LISTEN_ADDR", ":8090"),
	}
}

// Validate checks the configuration for internally consistent values.
//
// Outputs:
//   - error: Non-nil with field-level detail on the first invalid value.
func (c *FilterConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid filter configuration: %w", err)
	}
	return nil
}

// envBool reads a boolean environment variable with a default value.
func envBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// envInt reads an integer environment variable with a default value.
func envInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// envString reads a string environment variable with a default value.
func envString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
