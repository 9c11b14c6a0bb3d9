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
	"log/slog"
	"path/filepath"
	"testing"
)

func TestLoadFilterConfigDefaults(t *testing.T) {
	cfg := LoadFilterConfig()

	if !cfg.Enabled || !cfg.AuditEnabled {
		t.Error("filter and audit should default to enabled")
	}
	if cfg.ClassifierMode != "unified" {
		t.Errorf("classifier mode = %q, want unified", cfg.ClassifierMode)
	}
	if cfg.ClassifierTimeoutMS != 10000 || cfg.CacheCapacity != 1000 || cfg.CacheTTLHours != 24 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFilterConfigFromEnv(t *testing.T) {
	t.Setenv("FINFILTER_ENABLED", "false")
	t.Setenv("FINFILTER_CLASSIFIER_MODE", "split")
	t.Setenv("FINFILTER_CLASSIFIER_TIMEOUT_MS", "2500")
	t.Setenv("FINFILTER_LISTEN_ADDR", ":9999")

	cfg := LoadFilterConfig()
	if cfg.Enabled {
		t.Error("FINFILTER_ENABLED=false should disable the filter")
	}
	if cfg.ClassifierMode != "split" || cfg.ClassifierTimeoutMS != 2500 || cfg.ListenAddr != ":9999" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadFilterConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("FINFILTER_ENABLED", "not-a-bool")
	t.Setenv("FINFILTER_CACHE_CAPACITY", "lots")

	cfg := LoadFilterConfig()
	if !cfg.Enabled || cfg.CacheCapacity != 1000 {
		t.Errorf("malformed values should fall back to defaults, got %+v", cfg)
	}
}

func TestFilterConfigValidate(t *testing.T) {
	cfg := LoadFilterConfig()
	cfg.ClassifierMode = "telepathy"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown classifier mode should fail validation")
	}

	cfg = LoadFilterConfig()
	cfg.ClassifierTimeoutMS = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero timeout should fail validation")
	}
}

func TestBuildContentFilterModes(t *testing.T) {
	for _, mode := range []string{"unified", "split", "off"} {
		cfg := LoadFilterConfig()
		cfg.ClassifierMode = mode
		cfg.AuditPath = filepath.Join(t.TempDir(), "audit.jsonl")

		f, cleanup, err := BuildContentFilter(cfg, slog.Default())
		if err != nil {
			t.Fatalf("mode %s: %v", mode, err)
		}
		if f == nil {
			t.Fatalf("mode %s: nil filter", mode)
		}
		if err := cleanup(); err != nil {
			t.Errorf("mode %s: cleanup: %v", mode, err)
		}
	}
}

func TestBuildContentFilterRulesOverride(t *testing.T) {
	cfg := LoadFilterConfig()
	cfg.AuditEnabled = false
	cfg.ClassifierMode = "off"
	cfg.RulesPath = filepath.Join(t.TempDir(), "missing.yaml")

	if _, _, err := BuildContentFilter(cfg, slog.Default()); err == nil {
		t.Error("unreadable rules override should fail the build")
	}
}
