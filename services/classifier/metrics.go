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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	classifierRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finfilter_classifier_requests_total",
			Help: "Total classification requests by variant (unified, split, fallback_only).",
		},
		[]string{"variant"},
	)

	classifierModelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finfilter_classifier_model_calls_total",
			Help: "Backend model calls by outcome (ok, error, parse_error).",
		},
		[]string{"outcome"},
	)

	classifierFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finfilter_classifier_fallbacks_total",
			Help: "Degradations to the deterministic regex fallback by reason (no_backend, model_error).",
		},
		[]string{"reason"},
	)

	classifierCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finfilter_classifier_cache_hits_total",
			Help: "Classification cache hits.",
		},
	)

	classifierCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finfilter_classifier_cache_misses_total",
			Help: "Classification cache misses (including expired entries).",
		},
	)

	classifierModelLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finfilter_classifier_model_latency_seconds",
			Help:    "Latency of backend model calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
