/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"flag"

	"syncengine/internal/audit"
	"syncengine/internal/causality"
	"syncengine/internal/syncbundle"
	"syncengine/internal/syncorder"
	"syncengine/pkg/cli"
)

func runSnapshot(args []string) int {
	if len(args) == 0 {
		cli.ErrMissingArgument("export|import", "syncengine snapshot export|import ...").Print()
		return exitUsage
	}
	switch args[0] {
	case "export":
		return runSnapshotExport(args[1:])
	case "import":
		return runSnapshotImport(args[1:])
	default:
		cli.ErrInvalidCommand(args[0]).Print()
		return exitUsage
	}
}

func runSnapshotExport(args []string) int {
	fs := flag.NewFlagSet("snapshot export", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "syncengine.db", "Directory the engine stores its data in")
	peerID := fs.String("peer-id", "", "Peer this bundle is intended for")
	out := fs.String("out", "", "Output bundle path")
	compression := fs.String("compression", "", "Compression codec: snappy, lz4, zstd, or empty for none")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *out == "" {
		cli.ErrMissingArgument("--out", "syncengine snapshot export --peer-id id --out path").Print()
		return exitUsage
	}

	a, err := openApp(defaultConfigFor(*dataDir))
	if err != nil {
		cli.NewCLIError("Failed to open data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	known, err := a.peers.Get(*peerID)
	if err != nil {
		cli.NewCLIError("Failed to read peer record").WithDetail(err.Error()).Print()
		return exitOther
	}
	sinceVC := causality.NewVectorClock()
	for device, counter := range known.LastSentVectorClock {
		sinceVC.Observe(causality.DeviceID(device), counter)
	}

	var snapshot []syncbundle.SchemaSnapshotEntry
	for _, table := range a.log.EnabledTables() {
		snapshot = append(snapshot, syncbundle.SchemaSnapshotEntry{
			TableName:     table,
			SchemaVersion: a.schema.Version(table),
		})
	}

	path, err := syncbundle.Generate(a.log, *peerID, sinceVC, snapshot, *out, syncbundle.Options{
		Compression: syncbundle.Algorithm(*compression),
	})
	if err != nil {
		cli.NewCLIError("Bundle export failed").WithDetail(err.Error()).Print()
		return exitCodeFor(err)
	}

	a.audit.LogEvent(audit.Event{
		EventType:  audit.EventTypeBundleExported,
		ObjectType: "bundle",
		ObjectName: path,
		PeerAddr:   *peerID,
		Status:     audit.StatusSuccess,
	})
	cli.PrintSuccess("Exported bundle to %s", path)
	return exitSuccess
}

func runSnapshotImport(args []string) int {
	fs := flag.NewFlagSet("snapshot import", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "syncengine.db", "Directory the engine stores its data in")
	in := fs.String("in", "", "Input bundle path")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *in == "" {
		cli.ErrMissingArgument("--in", "syncengine snapshot import --in path").Print()
		return exitUsage
	}

	a, err := openApp(defaultConfigFor(*dataDir))
	if err != nil {
		cli.NewCLIError("Failed to open data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	// No --compression flag here: the bundle's header byte carries its
	// own codec, so Load auto-detects it regardless of which one
	// "snapshot export" used.
	bundle, err := syncbundle.Load(*in, syncbundle.Options{})
	if err != nil {
		cli.NewCLIError("Failed to read bundle").WithDetail(err.Error()).Print()
		return exitCodeFor(err)
	}

	tracker := syncbundle.NewImportTracker(a.engine)
	if tracker.AlreadyImported(bundle.Manifest.BundleID) {
		cli.PrintInfo("Bundle %s already imported", bundle.Manifest.BundleID)
		return exitSuccess
	}

	for _, entry := range bundle.SchemaSnapshot {
		if !a.schema.CheckCompatibility(entry.TableName, entry.SchemaVersion) {
			cli.NewCLIError("Schema incompatible bundle").
				WithDetail("table " + entry.TableName + " is ahead of the local schema version").Print()
			return exitSchemaIncompatible
		}
	}

	// Mirror the ordering guarantee internal/syncloop applies to every
	// incoming batch: dedup against what's already on disk, then impose
	// the canonical total order, so overlapping operations arriving via
	// two different bundles still apply exactly once each.
	ordered := syncorder.Order(syncorder.Dedup(a.log, bundle.Operations))
	result, err := a.executor.ApplyBundle(cliContext(), ordered)
	if err != nil {
		cli.NewCLIError("Failed to apply bundle").WithDetail(err.Error()).Print()
		return exitCodeFor(err)
	}
	if err := tracker.MarkImported(bundle.Manifest.BundleID); err != nil {
		cli.NewCLIError("Failed to record bundle as imported").WithDetail(err.Error()).Print()
		return exitOther
	}

	a.audit.LogEvent(audit.Event{
		EventType:  audit.EventTypeBundleImported,
		ObjectType: "bundle",
		ObjectName: *in,
		Status:     audit.StatusSuccess,
	})
	cli.PrintSuccess("Imported %d operation(s), %d applied", bundle.Manifest.OpCount, result.Applied)
	if len(result.Conflicts) > 0 {
		cli.PrintWarning("%d conflict(s) recorded -- run 'syncengine resolve'", len(result.Conflicts))
		return exitConflictsUnresolved
	}
	return exitSuccess
}
