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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finfilter_decisions_total",
			Help: "Filtering decisions by user role and action.",
		},
		[]string{"role", "action"},
	)

	redactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finfilter_redactions_total",
			Help: "Texts modified by the redaction engine, by stage (context, response).",
		},
		[]string{"stage"},
	)

	emailVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finfilter_email_verifications_total",
			Help: "Self-data email verification attempts by outcome (verified, rejected).",
		},
		[]string{"outcome"},
	)

	processLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finfilter_process_query_seconds",
			Help:    "End-to-end ProcessQuery latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
