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
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/TechConsultAI/FinFilter/services/audit"
)

func newAuditedFilter(t *testing.T) (*ContentFilter, *audit.MemorySink) {
	t.Helper()
	sink := audit.NewMemorySink()
	f := newTestFilter(t, WithAuditor(audit.NewAuditor(sink, slog.Default())))
	return f, sink
}

func TestProcessQueryPersonSalaryDeniedForJunior(t *testing.T) {
	f, sink := newAuditedFilter(t)

	res, err := f.ProcessQuery(context.Background(),
		"Is Siddarth Bandi in the $100k+ bracket?", "dev@corp.com", "junior")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}

	if res.Decision.Action != ActionDeny {
		t.Errorf("action = %v, want deny", res.Decision.Action)
	}
	if !res.Analysis.IsPersonSalaryQuery || res.Analysis.TargetPerson != "Siddarth Bandi" {
		t.Errorf("analysis should target Siddarth Bandi, got %+v", res.Analysis)
	}
	if !res.ShouldFilterContext {
		t.Error("deny requires context filtering")
	}
	if res.RequestID == "" {
		t.Error("request ID should be assigned")
	}

	entries := sink.Entries()
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ActionTaken != "deny" || e.TargetPerson != "Siddarth Bandi" || e.UserEmail != "dev@corp.com" {
		t.Errorf("audit entry mismatch: %+v", e)
	}
	if res.AuditEntryID == "" || res.AuditEntryID != e.ID {
		t.Errorf("result audit ID %q should match the recorded entry %q", res.AuditEntryID, e.ID)
	}
}

func TestProcessQuerySelfDataWantsEmailCheck(t *testing.T) {
	f, _ := newAuditedFilter(t)

	res, err := f.ProcessQuery(context.Background(), "What is my salary?", "lisa@corp.com", "junior")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}

	if res.Decision.Action != ActionAllowWithEmailCheck {
		t.Fatalf("action = %v, want allow_with_email_check", res.Decision.Action)
	}
	if !res.ShouldVerifyEmail {
		t.Error("caller should be told to verify the email")
	}
	if res.ShouldFilterContext {
		t.Error("email-check does not require context filtering")
	}
}

func TestProcessQueryRoleAsymmetry(t *testing.T) {
	f, _ := newAuditedFilter(t)
	query := "What is Lisa Park's salary?"

	junior, err := f.ProcessQuery(context.Background(), query, "a@corp.com", "junior")
	if err != nil {
		t.Fatal(err)
	}
	manager, err := f.ProcessQuery(context.Background(), query, "b@corp.com", "manager")
	if err != nil {
		t.Fatal(err)
	}

	if junior.Decision.Action != ActionDeny {
		t.Errorf("junior action = %v, want deny", junior.Decision.Action)
	}
	if manager.Decision.Action != ActionAllowWithRedaction {
		t.Errorf("manager action = %v, want allow_with_redaction", manager.Decision.Action)
	}
	if !manager.ShouldFilterContext {
		t.Error("redaction requires context filtering")
	}
}

func TestProcessQueryAuditCompleteness(t *testing.T) {
	f, sink := newAuditedFilter(t)
	queries := []string{
		"How do I submit expense reports?",
		"Who is the highest paid employee?",
		"What was the Q3 revenue?",
		"What is my salary?",
	}

	for _, q := range queries {
		if _, err := f.ProcessQuery(context.Background(), q, "u@corp.com", "junior"); err != nil {
			t.Fatalf("ProcessQuery(%q): %v", q, err)
		}
	}

	entries := sink.Entries()
	if len(entries) != len(queries) {
		t.Fatalf("audit entries = %d, want %d (every decision must be audited)", len(entries), len(queries))
	}
	for i, e := range entries {
		if e.Query != queries[i] {
			t.Errorf("entry %d query = %q, want %q", i, e.Query, queries[i])
		}
		if e.ActionTaken == "" || e.Reason == "" {
			t.Errorf("entry %d missing action or reason: %+v", i, e)
		}
	}
}

func TestProcessQueryAnonymousUserAuditsAsUnknown(t *testing.T) {
	f, sink := newAuditedFilter(t)

	if _, err := f.ProcessQuery(context.Background(), "What was the Q3 revenue?", "", "junior"); err != nil {
		t.Fatal(err)
	}
	if got := sink.Entries()[0].UserEmail; got != "unknown" {
		t.Errorf("audit email = %q, want unknown", got)
	}
}

func TestProcessQueryEmptyQuery(t *testing.T) {
	f := newTestFilter(t)
	_, err := f.ProcessQuery(context.Background(), "   ", "u@corp.com", "junior")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestProcessQueryDisabled(t *testing.T) {
	f := newTestFilter(t, WithFilterDisabled())
	_, err := f.ProcessQuery(context.Background(), "What is Lisa Park's salary?", "u@corp.com", "junior")
	if !errors.Is(err, ErrFilterDisabled) {
		t.Errorf("err = %v, want ErrFilterDisabled", err)
	}
}

func TestVerifyEmailInContext(t *testing.T) {
	f := newTestFilter(t)
	docs := "Employee record: Lisa Park <Lisa.Park@corp.com>, platform team."

	if !f.VerifyEmailInContext("lisa.park@corp.com", docs) {
		t.Error("full email should match case-insensitively")
	}
	if !f.VerifyEmailInContext("lisa.park@otherhost.com", docs) {
		t.Error("username prefix longer than two characters should match")
	}
	if f.VerifyEmailInContext("zz@corp.com", docs) {
		t.Error("two-character prefixes are too short for the fallback")
	}
	if f.VerifyEmailInContext("", docs) || f.VerifyEmailInContext("lisa.park@corp.com", "") {
		t.Error("empty inputs should never verify")
	}
}

func TestVerifyUserIdentityStrict(t *testing.T) {
	f := newTestFilter(t)
	docs := "Employee record: lisa.park@corp.com, platform team."

	got := f.VerifyUserIdentity("Lisa.Park@corp.com", docs)
	if !got.EmailFound || !got.VerificationSuccessful {
		t.Errorf("full-email match should verify, got %+v", got)
	}

	// No username-prefix fallback here: identity needs the exact address.
	got = f.VerifyUserIdentity("lisa.park@otherhost.com", docs)
	if got.EmailFound || got.VerificationSuccessful {
		t.Errorf("prefix-only match must not verify identity, got %+v", got)
	}
}

func TestEndToEndDenyPipeline(t *testing.T) {
	f, _ := newAuditedFilter(t)
	ctx := context.Background()

	res, err := f.ProcessQuery(ctx, "How much money does Lisa Park make?", "dev@corp.com", "senior")
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision.Action != ActionDeny {
		t.Fatalf("action = %v, want deny", res.Decision.Action)
	}

	docs, _ := f.FilterContext("Lisa Park, engineer, salary of $95,000.", res.Decision)
	if docs != "" {
		t.Errorf("denied context should be empty, got %q", docs)
	}

	response, filtered := f.FilterResponse(ctx, "Lisa Park makes $95,000.", res.Analysis, res.Decision)
	if !filtered || response != DeniedResponseMessage {
		t.Errorf("denied response should be the refusal message, got %q", response)
	}
	if strings.Contains(response, "95,000") {
		t.Error("amount leaked through the deny path")
	}
}
