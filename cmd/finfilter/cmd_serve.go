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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TechConsultAI/FinFilter/services/audit"
	"github.com/TechConsultAI/FinFilter/services/finfilter"
	"github.com/TechConsultAI/FinFilter/services/gateway"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the filter HTTP gateway",
	RunE:  runServeCommand,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServeCommand(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := finfilter.LoadFilterConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	filter, cleanup, err := finfilter.BuildContentFilter(cfg, logger)
	if err != nil {
		return fmt.Errorf("building filter: %w", err)
	}

	// The gateway's audit read endpoints need direct access to the JSONL
	// file; they stay disabled for memory-only audit configurations.
	var auditLog *audit.JSONLSink
	if cfg.AuditEnabled && cfg.AuditPath != "" {
		auditLog, err = audit.NewJSONLSink(cfg.AuditPath)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
	}

	router := gateway.NewRouter(gateway.NewHandlers(filter, auditLog, logger))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down finfilter gateway")
		if auditLog != nil {
			if err := auditLog.Close(); err != nil {
				logger.Warn("Failed to close audit log", slog.String("error", err.Error()))
			}
		}
		if err := cleanup(); err != nil {
			logger.Warn("Cleanup failed", slog.String("error", err.Error()))
		}
		os.Exit(0)
	}()

	logger.Info("Starting finfilter gateway",
		slog.String("address", cfg.ListenAddr),
		slog.String("classifier_mode", cfg.ClassifierMode),
		slog.Bool("audit_enabled", cfg.AuditEnabled),
	)
	return router.Run(cfg.ListenAddr)
}
