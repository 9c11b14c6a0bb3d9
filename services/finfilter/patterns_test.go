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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultPatterns(t *testing.T) {
	lib, err := LoadDefaultPatterns()
	if err != nil {
		t.Fatalf("LoadDefaultPatterns: %v", err)
	}
	if len(lib.financial) < fastPathPatternCount {
		t.Fatalf("financial patterns = %d, want at least %d", len(lib.financial), fastPathPatternCount)
	}
	if len(lib.person) == 0 || len(lib.aggregate) == 0 || len(lib.expensePolicy) == 0 {
		t.Fatal("default rule file should populate every pattern set")
	}
	if len(lib.financialKeywords) == 0 || len(lib.salaryKeywords) == 0 {
		t.Fatal("default rule file should populate the keyword sets")
	}
}

func TestCompileInsensitiveExpandsNamePlaceholder(t *testing.T) {
	compiled, err := compileInsensitive([]string{"salary of {NAME}"})
	if err != nil {
		t.Fatalf("compileInsensitive: %v", err)
	}
	m := compiled[0].FindStringSubmatch("What is the salary of Lisa Park?")
	if m == nil {
		t.Fatal("expanded pattern should match a two-word capitalized name")
	}
	if m[1] != "Lisa Park" {
		t.Errorf("captured name = %q, want %q", m[1], "Lisa Park")
	}

	// Single-word names match too; the second word is optional.
	m = compiled[0].FindStringSubmatch("salary of Priya")
	if m == nil || m[1] != "Priya" {
		t.Errorf("single-word capture = %v, want Priya", m)
	}
}

func TestCompileInsensitiveCaseInsensitive(t *testing.T) {
	compiled, err := compileInsensitive([]string{"who is {NAME}"})
	if err != nil {
		t.Fatalf("compileInsensitive: %v", err)
	}
	if !compiled[0].MatchString("WHO IS lisa park") {
		t.Error("compiled patterns should be case-insensitive")
	}
}

func TestLoadPatternsRejectsTooFewFinancialPatterns(t *testing.T) {
	_, err := LoadPatterns([]byte("financial_patterns:\n  - 'a'\n  - 'b'\n"))
	if err == nil {
		t.Fatal("expected error for rule file with too few financial patterns")
	}
}

func TestLoadPatternsRejectsBadRegex(t *testing.T) {
	yaml := `
financial_patterns: ['a', 'b', 'c', 'd', 'e']
person_reference_templates: ['(unclosed']
`
	_, err := LoadPatterns([]byte(yaml))
	if err == nil {
		t.Fatal("expected compile error for invalid regex")
	}
	if !strings.Contains(err.Error(), "person_reference_templates") {
		t.Errorf("error should name the failing set, got %v", err)
	}
}

func TestLoadPatternsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yaml := `
financial_patterns: ['\$\d+', 'x1', 'x2', 'x3', 'x4']
person_reference_templates: ['salary of {NAME}']
financial_keywords: [salary]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	lib, err := LoadPatternsFromFile(path)
	if err != nil {
		t.Fatalf("LoadPatternsFromFile: %v", err)
	}
	if !lib.financial[0].MatchString("$500") {
		t.Error("financial pattern from file should compile and match")
	}

	if _, err := LoadPatternsFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing rule file")
	}
}
