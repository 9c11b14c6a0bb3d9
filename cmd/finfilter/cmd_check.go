// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TechConsultAI/FinFilter/services/finfilter"
)

var (
	checkEmail string
	checkRole  string
	checkJSON  bool
)

var checkCmd = &cobra.Command{
	Use:   "check [query]",
	Short: "Evaluate a single query against the filter policy",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheckCommand,
}

func init() {
	checkCmd.Flags().StringVar(&checkEmail, "email", "", "Requester email")
	checkCmd.Flags().StringVar(&checkRole, "role", "junior", "Requester role (junior|senior|manager|admin)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the full result as JSON")
	rootCmd.AddCommand(checkCmd)
}

func runCheckCommand(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := finfilter.LoadFilterConfig()
	cfg.AuditEnabled = false
	if err := cfg.Validate(); err != nil {
		return err
	}

	filter, cleanup, err := finfilter.BuildContentFilter(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	query := strings.Join(args, " ")
	result, err := filter.ProcessQuery(cmd.Context(), query, checkEmail, checkRole)
	if err != nil {
		return err
	}

	if checkJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Query:  %s\n", query)
	fmt.Printf("Role:   %s\n", result.Analysis.UserRole)
	fmt.Printf("Action: %s\n", result.Decision.Action)
	fmt.Printf("Reason: %s\n", result.Decision.Reason)
	if result.Analysis.TargetPerson != "" {
		fmt.Printf("Target: %s\n", result.Analysis.TargetPerson)
	}
	if result.ShouldVerifyEmail {
		fmt.Println("Next:   verify requester email in retrieved documents")
	}
	if result.ShouldFilterContext {
		fmt.Println("Next:   filter retrieved context and generated response")
	}
	return nil
}
