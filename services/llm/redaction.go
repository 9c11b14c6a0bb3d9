// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"regexp"
)

// =============================================================================
// Log Redaction
// =============================================================================

// maxSafeLogLength limits how much of an upstream response body makes it
// into error messages and logs.
const maxSafeLogLength = 500

var redactionPatterns = []*regexp.Regexp{
	// Bearer tokens and API keys in echoed headers or error bodies.
	regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`),
	regexp.MustCompile(`(?i)(api[_-]?key["':\s=]+)[A-Za-z0-9\-._~+/]+`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	// Email addresses occasionally appear in provider error messages.
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
}

// SafeLogString sanitizes a string before it is included in a log line or
// wrapped error.
//
// Description:
//
//	Redacts credential-shaped substrings (bearer tokens, API keys, email
//	addresses) and truncates the result so a large upstream error body
//	cannot flood the logs.
//
// Inputs:
//   - s: The raw string, typically an upstream HTTP response body.
//
// Outputs:
//   - string: The sanitized, possibly truncated string.
func SafeLogString(s string) string {
	for _, pattern := range redactionPatterns {
		s = pattern.ReplaceAllString(s, "[REDACTED]")
	}
	if len(s) > maxSafeLogLength {
		s = s[:maxSafeLogLength] + "...(truncated)"
	}
	return s
}
