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
	"strings"
)

// DetermineAction maps a query analysis onto a filtering action.
//
// Description:
//
//	Ordered rule cascade; the first matching rule wins. The order is
//	load-bearing:
//
//	 1. Policy context: plain allow.
//	 2. Non-financial: screening (person-information queries get their own
//	    reason so auditors see why a harmless-looking query was screened).
//	 3. Aggregate salary: deny, every role.
//	 4. Self-data: defer to the email-verification step.
//	 5. Person salary: Manager/Admin get redaction, everyone else deny.
//	 6. Junior/Senior carve-out: company financial figures with screening;
//	    only individual salary data is role-gated.
//	 7. Remaining financial queries (Manager/Admin by elimination):
//	    individual data with redaction, company data plain allow.
//
//	The trailing deny inside step 7 and the final screening default are
//	unreachable with the closed role set (ParseRole folds unknown roles
//	into junior, which step 6 catches). They are kept as the backstop for
//	a future role that bypasses both carve-outs.
//
// Inputs:
//   - analysis: The query analysis from Analyze.
//
// Outputs:
//   - PolicyDecision: The action plus an operator-facing reason.
//
// Thread Safety: Stateless. Safe for concurrent use.
func (f *ContentFilter) DetermineAction(analysis QueryAnalysis) PolicyDecision {
	if analysis.IsPolicyContext {
		return PolicyDecision{
			Action: ActionAllow,
			Reason: "Policy-related query - no financial data filtering needed",
		}
	}

	if !analysis.IsFinancial {
		queryLower := strings.ToLower(analysis.OriginalQuery)
		if matchesAny(f.patterns.personInfo, queryLower) {
			return PolicyDecision{
				Action: ActionAllowWithScreening,
				Reason: "Person information query - will be screened for salary content",
			}
		}
		return PolicyDecision{
			Action: ActionAllowWithScreening,
			Reason: "General query - will be screened for sensitive content",
		}
	}

	if analysis.IsAggregateSalaryQuery {
		return PolicyDecision{
			Action: ActionDeny,
			Reason: "Aggregate salary queries are not permitted for any user role",
		}
	}

	if analysis.IsSelfDataRequest {
		return PolicyDecision{
			Action: ActionAllowWithEmailCheck,
			Reason: "Self-data request - will verify user identity in documents",
		}
	}

	if analysis.IsPersonSalaryQuery {
		target := analysis.TargetPerson
		if target == "" {
			target = "Unknown"
		}
		if analysis.UserRole.CanViewIndividualRecords() {
			return PolicyDecision{
				Action: ActionAllowWithRedaction,
				Reason: fmt.Sprintf("Admin/Manager access to %s's information with salary redaction", target),
			}
		}
		return PolicyDecision{
			Action: ActionDeny,
			Reason: fmt.Sprintf("Insufficient privileges to access %s's salary information", target),
		}
	}

	// Junior/Senior carve-out: company financial data stays visible with
	// screening; only individual and aggregate salary data is gated.
	if !analysis.UserRole.CanViewIndividualRecords() {
		if analysis.IsPersonSalaryQuery || analysis.IsAggregateSalaryQuery {
			return PolicyDecision{
				Action: ActionDeny,
				Reason: "Access to salary information is restricted",
			}
		}
		return PolicyDecision{
			Action: ActionAllowWithScreening,
			Reason: fmt.Sprintf("%s role - general content screening applied", analysis.UserRole),
		}
	}

	if analysis.IsFinancial {
		if analysis.UserRole.CanViewIndividualRecords() {
			if analysis.IsSalaryRelated && analysis.IsAboutPerson {
				return PolicyDecision{
					Action: ActionAllowWithRedaction,
					Reason: fmt.Sprintf("%s access to individual information with salary redaction", analysis.UserRole),
				}
			}
			return PolicyDecision{
				Action: ActionAllow,
				Reason: fmt.Sprintf("%s accessing company financial data", analysis.UserRole),
			}
		}
		return PolicyDecision{
			Action: ActionDeny,
			Reason: "Insufficient privileges to access detailed financial information",
		}
	}

	return PolicyDecision{
		Action: ActionAllowWithScreening,
		Reason: "General query - will be screened for sensitive content",
	}
}
