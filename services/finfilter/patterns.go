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
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TechConsultAI/FinFilter/services/finfilter/rules"
)

// fastPathPatternCount is how many leading financial patterns the analyzer
// probes on its fast path for non-financial queries.
const fastPathPatternCount = 5

// nameCapture is the capture group substituted for the {NAME} placeholder
// in rule templates: an optionally two-word capitalized name. The
// surrounding patterns compile case-insensitively, so the capitalization in
// the class is a shape hint, not a hard requirement.
const nameCapture = `([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`

// namePlaceholder marks the subject position in rule templates.
const namePlaceholder = "{NAME}"

// ruleFile is the YAML shape of a classification rule file.
type ruleFile struct {
	FinancialPatterns        []string `yaml:"financial_patterns"`
	SelfReferencePatterns    []string `yaml:"self_reference_patterns"`
	SelfIdentityPatterns     []string `yaml:"self_identity_patterns"`
	PersonReferenceTemplates []string `yaml:"person_reference_templates"`
	AggregateSalaryPatterns  []string `yaml:"aggregate_salary_patterns"`
	ExpensePolicyPatterns    []string `yaml:"expense_policy_patterns"`
	PersonInfoPatterns       []string `yaml:"person_info_patterns"`

	FinancialKeywords        []string `yaml:"financial_keywords"`
	SafePolicyKeywords       []string `yaml:"safe_policy_keywords"`
	PolicyBlockerKeywords    []string `yaml:"policy_blocker_keywords"`
	SalaryKeywords           []string `yaml:"salary_keywords"`
	ClassifierSalaryKeywords []string `yaml:"classifier_salary_keywords"`
}

// PatternLibrary holds the compiled rule sets the analyzer, decision
// engine, and redaction engine share.
//
// Description:
//
//	All regexes are compiled once at construction with a case-insensitive
//	flag. Pattern order within a set is preserved from the rule file;
//	person_reference_patterns rely on most-specific-first ordering.
//
// Thread Safety: Immutable after construction. Safe for concurrent use.
type PatternLibrary struct {
	financial     []*regexp.Regexp
	selfReference []*regexp.Regexp
	selfIdentity  []*regexp.Regexp
	person        []*regexp.Regexp
	aggregate     []*regexp.Regexp
	expensePolicy []*regexp.Regexp
	personInfo    []*regexp.Regexp

	// fullNamePattern recovers a candidate name when no person pattern
	// captured one. Deliberately case-sensitive: it keys on capitalization.
	fullNamePattern *regexp.Regexp

	// capitalizedNamePattern recovers a name from a whole-pattern match
	// that has no capture group.
	capitalizedNamePattern *regexp.Regexp

	financialKeywords        []string
	safePolicyKeywords       []string
	policyBlockerKeywords    []string
	salaryKeywords           []string
	classifierSalaryKeywords []string
}

// LoadDefaultPatterns builds the pattern library from the embedded rule
// file.
func LoadDefaultPatterns() (*PatternLibrary, error) {
	return LoadPatterns(rules.ClassificationPatterns)
}

// LoadPatternsFromFile builds the pattern library from an external rule
// file, letting operators extend the sets without a rebuild.
func LoadPatternsFromFile(path string) (*PatternLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}
	return LoadPatterns(data)
}

// LoadPatterns builds the pattern library from YAML rule data.
//
// Inputs:
//   - data: YAML of the same shape as the embedded default rule file.
//
// Outputs:
//   - *PatternLibrary: The compiled library.
//   - error: Non-nil on YAML or regex compilation failure. No partial
//     libraries: one bad pattern fails the whole load.
func LoadPatterns(data []byte) (*PatternLibrary, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}
	if len(file.FinancialPatterns) < fastPathPatternCount {
		return nil, fmt.Errorf("rule file needs at least %d financial patterns, got %d",
			fastPathPatternCount, len(file.FinancialPatterns))
	}

	lib := &PatternLibrary{
		fullNamePattern:          regexp.MustCompile(`\b([A-Z][a-z]+)\s+([A-Z][a-z]+)\b`),
		capitalizedNamePattern:   regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
		financialKeywords:        file.FinancialKeywords,
		safePolicyKeywords:       file.SafePolicyKeywords,
		policyBlockerKeywords:    file.PolicyBlockerKeywords,
		salaryKeywords:           file.SalaryKeywords,
		classifierSalaryKeywords: file.ClassifierSalaryKeywords,
	}

	sets := []struct {
		name     string
		patterns []string
		dst      *[]*regexp.Regexp
	}{
		{"financial_patterns", file.FinancialPatterns, &lib.financial},
		{"self_reference_patterns", file.SelfReferencePatterns, &lib.selfReference},
		{"self_identity_patterns", file.SelfIdentityPatterns, &lib.selfIdentity},
		{"person_reference_templates", file.PersonReferenceTemplates, &lib.person},
		{"aggregate_salary_patterns", file.AggregateSalaryPatterns, &lib.aggregate},
		{"expense_policy_patterns", file.ExpensePolicyPatterns, &lib.expensePolicy},
		{"person_info_patterns", file.PersonInfoPatterns, &lib.personInfo},
	}
	for _, set := range sets {
		compiled, err := compileInsensitive(set.patterns)
		if err != nil {
			return nil, fmt.Errorf("compiling %s: %w", set.name, err)
		}
		*set.dst = compiled
	}

	return lib, nil
}

// compileInsensitive expands {NAME} placeholders and compiles each pattern
// case-insensitively, preserving order.
func compileInsensitive(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		expanded := strings.ReplaceAll(p, namePlaceholder, nameCapture)
		re, err := regexp.Compile("(?i)" + expanded)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// matchesAny reports whether any pattern in the set matches s.
func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// containsAnyKeyword reports whether the lowercased haystack contains any
// of the keywords as a substring.
func containsAnyKeyword(lowerHaystack string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lowerHaystack, k) {
			return true
		}
	}
	return false
}
