// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit records access-control decisions for compliance review.
//
// Every query decision made by the content filter produces one Entry,
// written to a Sink. Audit emission is best-effort: a sink failure is
// logged and swallowed so auditing can never block or fail a user query.
package audit

import "time"

// Entry is one audit record for a filtering decision.
//
// Thread Safety: Entry is a value type. Safe to copy.
type Entry struct {
	// ID uniquely identifies the entry. Assigned by the Auditor.
	ID string `json:"id"`

	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`

	// UserEmail identifies the requester ("unknown" when absent).
	UserEmail string `json:"user_email"`

	// UserRole is the effective role the decision was made under.
	UserRole string `json:"user_role"`

	// Query is the original query text, unmodified.
	Query string `json:"query"`

	// IsFinancial records whether the query matched financial signals.
	IsFinancial bool `json:"is_financial"`

	// IsSalaryRelated records whether the query matched salary signals.
	IsSalaryRelated bool `json:"is_salary_related"`

	// TargetPerson is the person the query was about, if any.
	TargetPerson string `json:"target_person,omitempty"`

	// ActionTaken is the wire name of the decided action.
	ActionTaken string `json:"action_taken"`

	// Reason is the decision engine's reason string.
	Reason string `json:"reason"`

	// ResponseFiltered records whether response-stage redaction fired.
	ResponseFiltered bool `json:"response_filtered"`
}
