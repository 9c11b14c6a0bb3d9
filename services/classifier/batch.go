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

	"golang.org/x/sync/errgroup"
)

// defaultBatchConcurrency bounds concurrent backend calls during batch
// classification so a large batch cannot exhaust upstream rate limits.
const defaultBatchConcurrency = 8

// BatchClassify classifies multiple queries concurrently.
//
// Description:
//
//	Fans the queries out over a bounded worker group and returns results in
//	input order. Because Classify never fails (it degrades to the fallback),
//	the group never aborts early; context cancellation is observed per
//	in-flight call by the underlying classifier.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - c: The classifier to use.
//   - queries: The queries to classify.
//   - role: The requester's role, applied to every query.
//
// Outputs:
//   - []Result: One result per query, in input order.
func BatchClassify(ctx context.Context, c Classifier, queries []string, role string) []Result {
	results := make([]Result, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultBatchConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = c.Classify(ctx, q, "", role)
			return nil
		})
	}
	// Workers never return errors; Wait just joins them.
	_ = g.Wait()

	return results
}
