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
	"os"

	"github.com/spf13/cobra"

	"github.com/TechConsultAI/FinFilter/services/audit"
	"github.com/TechConsultAI/FinFilter/services/finfilter"
)

var (
	auditUser  string
	auditLimit int
	auditJSON  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent filtering decisions from the audit log",
	RunE:  runAuditCommand,
}

func init() {
	auditCmd.Flags().StringVar(&auditUser, "user", "", "Only show decisions for this user email")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum entries to show")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Print entries as JSON")
	rootCmd.AddCommand(auditCmd)
}

func runAuditCommand(_ *cobra.Command, _ []string) error {
	cfg := finfilter.LoadFilterConfig()
	if cfg.AuditPath == "" {
		return fmt.Errorf("no audit file configured, set FINFILTER_AUDIT_PATH")
	}
	if _, err := os.Stat(cfg.AuditPath); err != nil {
		return fmt.Errorf("audit log not readable: %w", err)
	}

	sink, err := audit.NewJSONLSink(cfg.AuditPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	var entries []audit.Entry
	if auditUser != "" {
		entries, err = sink.ForUser(auditUser, auditLimit)
	} else {
		entries, err = sink.Recent(auditLimit)
	}
	if err != nil {
		return err
	}

	if auditJSON {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries found.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %-22s %-8s %-22s %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.UserEmail, e.UserRole, e.ActionTaken, e.Query)
	}
	return nil
}
