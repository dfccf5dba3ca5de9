/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"flag"
	"time"

	"syncengine/internal/audit"
	"syncengine/pkg/cli"
)

func runAudit(args []string) int {
	if len(args) == 0 {
		cli.ErrMissingArgument("export", "syncengine audit export --out path").Print()
		return exitUsage
	}
	switch args[0] {
	case "export":
		return runAuditExport(args[1:])
	default:
		cli.ErrInvalidCommand(args[0]).Print()
		return exitUsage
	}
}

// runAuditExport dumps the local device's audit trail to a file, the
// operator-facing counterpart to the audit events every other command
// emits as it runs (bundle export/import, schema migration, conflict
// resolution). The query filters mirror QueryOptions field-for-field so
// an operator can narrow an export the same way they'd narrow a log
// search.
func runAuditExport(args []string) int {
	fs := flag.NewFlagSet("audit export", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "syncengine.db", "Directory the engine stores its data in")
	out := fs.String("out", "", "Output file path")
	format := fs.String("format", "json", "Export format: json, csv, sql")
	table := fs.String("table", "", "Filter to events touching this table")
	eventType := fs.String("event-type", "", "Filter to a single event type")
	status := fs.String("status", "", "Filter to a single status: success, failed")
	since := fs.String("since", "", "Only include events at or after this RFC3339 timestamp")
	limit := fs.Int("limit", 0, "Maximum number of events to export, 0 for unlimited")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *out == "" {
		cli.ErrMissingArgument("--out", "syncengine audit export --out path").Print()
		return exitUsage
	}

	a, err := openApp(defaultConfigFor(*dataDir))
	if err != nil {
		cli.NewCLIError("Failed to open data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	opts := audit.QueryOptions{
		TableName: *table,
		EventType: audit.EventType(*eventType),
		Status:    audit.Status(*status),
		Limit:     *limit,
	}
	if *since != "" {
		startTime, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			cli.ErrInvalidValue("--since", *since, "expected RFC3339, e.g. 2026-01-02T15:04:05Z").Print()
			return exitUsage
		}
		opts.StartTime = startTime
	}

	if err := a.audit.ExportLogs(*out, audit.ExportFormat(*format), opts); err != nil {
		cli.NewCLIError("Audit export failed").WithDetail(err.Error()).Print()
		return exitCodeFor(err)
	}

	cli.PrintSuccess("Exported audit log to %s", *out)
	return exitSuccess
}
