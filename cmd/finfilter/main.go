// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command finfilter runs the financial content access-control filter.
//
// The filter decides, per query and per response, whether compensation data
// may be disclosed to a given user, and redacts the sensitive spans when
// partial disclosure is allowed.
//
// Usage:
//
//	# Start the HTTP gateway
//	finfilter serve
//
//	# Evaluate a single query from the shell
//	finfilter check --role junior --email dev@corp.com "What is Lisa Park's salary?"
//
//	# Inspect the audit trail
//	finfilter audit --limit 20
//	finfilter audit --user dev@corp.com
//
// Configuration comes from FINFILTER_* environment variables (see
// finfilter.FilterConfig); a .env file in the working directory is loaded
// when present. Set OPENAI_API_KEY to enable the model-backed classifier;
// without it the filter runs on pattern fallback.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "finfilter",
	Short: "Financial content access-control filter",
	Long: "finfilter decides whether compensation data may be disclosed to a " +
		"given user, audits every decision, and redacts sensitive spans from " +
		"responses and retrieved context.",
	SilenceUsage: true,
}

func main() {
	// Optional; environment variables win over .env entries.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
