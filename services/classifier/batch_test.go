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
	"testing"
)

func TestBatchClassify_PreservesOrder(t *testing.T) {
	queries := []string{
		"what is Lisa Park's salary",
		"how to submit expense reports",
		"what was the q3 revenue",
		"who leads the design group",
	}
	wantIntents := []Intent{
		IntentPersonalData,
		IntentPolicyProcedure,
		IntentFinancialData,
		IntentGeneralInfo,
	}

	results := BatchClassify(context.Background(), NewFallbackClassifier(), queries, "junior")

	if len(results) != len(queries) {
		t.Fatalf("got %d results, want %d", len(results), len(queries))
	}
	for i, want := range wantIntents {
		if results[i].Intent != want {
			t.Errorf("results[%d].Intent = %v, want %v (query %q)", i, results[i].Intent, want, queries[i])
		}
	}
}

func TestBatchClassify_Empty(t *testing.T) {
	results := BatchClassify(context.Background(), NewFallbackClassifier(), nil, "junior")
	if len(results) != 0 {
		t.Errorf("got %d results for empty batch", len(results))
	}
}

func TestBatchClassify_LargeBatchBounded(t *testing.T) {
	queries := make([]string, 100)
	for i := range queries {
		queries[i] = "how to submit expense reports"
	}

	results := BatchClassify(context.Background(), NewFallbackClassifier(), queries, "senior")
	for i, r := range results {
		if r.Intent != IntentPolicyProcedure {
			t.Fatalf("results[%d] = %v, want policy_procedure", i, r.Intent)
		}
	}
}
