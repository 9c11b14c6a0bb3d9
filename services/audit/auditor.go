// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Auditor assigns IDs to audit entries, logs them, and forwards them to a
// sink.
//
// Description:
//
//	Wraps a Sink with structured logging and ID assignment. Record never
//	returns an error: a failing sink is reported via the logger and the
//	entry ID is still returned, keeping the decision path independent of
//	audit storage health.
//
// Thread Safety: Auditor is safe for concurrent use if its Sink is.
type Auditor struct {
	sink   Sink
	logger *slog.Logger
}

// NewAuditor creates an Auditor over the given sink. A nil sink is valid:
// entries are then only logged.
func NewAuditor(sink Sink, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{sink: sink, logger: logger}
}

// Record stamps, logs, and stores one audit entry.
//
// Inputs:
//   - ctx: Context passed through to the sink.
//   - entry: The entry to record. ID and Timestamp are assigned here if
//     unset.
//
// Outputs:
//   - string: The entry's assigned ID.
func (a *Auditor) Record(ctx context.Context, entry Entry) string {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	a.logger.Info("Audit: filtering decision",
		slog.String("audit_id", entry.ID),
		slog.String("user_email", entry.UserEmail),
		slog.String("user_role", entry.UserRole),
		slog.String("action", entry.ActionTaken),
		slog.String("reason", entry.Reason),
		slog.Bool("is_financial", entry.IsFinancial),
		slog.Bool("is_salary_related", entry.IsSalaryRelated),
	)

	if a.sink != nil {
		if err := a.sink.Append(ctx, entry); err != nil {
			// Audit storage failure must not fail the query.
			a.logger.Error("Audit sink append failed",
				slog.String("audit_id", entry.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return entry.ID
}
