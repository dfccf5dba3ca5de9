/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"flag"
	"fmt"

	"syncengine/internal/syncapply"
	"syncengine/pkg/cli"
)

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "syncengine.db", "Directory the engine stores its data in")
	format := fs.String("format", "table", "Output format: table, json, plain")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a, err := openApp(defaultConfigFor(*dataDir))
	if err != nil {
		cli.NewCLIError("Failed to open data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	clock := a.log.LocalClock()
	fmt.Printf("%s %s\n", cli.Dimmed("Device ID:"), a.log.DeviceID())
	fmt.Printf("%s %s\n\n", cli.Dimmed("Vector clock:"), clock.Encode())

	peerList, err := a.peers.List()
	if err != nil {
		cli.NewCLIError("Failed to list peers").WithDetail(err.Error()).Print()
		return exitOther
	}
	peerTable := cli.NewTable("PEER", "LAST SEEN", "LAST SYNC", "ENDPOINT")
	peerTable.SetFormat(cli.ParseOutputFormat(*format))
	for _, p := range peerList {
		peerTable.AddRow(p.PeerID, fmt.Sprint(p.LastSeen), fmt.Sprint(p.LastSyncAt), p.EndpointHint)
	}
	cli.Box("Peers", "")
	peerTable.Print()

	conflicts, err := syncapply.ListConflicts(a.engine, true)
	if err != nil {
		cli.NewCLIError("Failed to list conflicts").WithDetail(err.Error()).Print()
		return exitOther
	}
	fmt.Println()
	conflictTable := cli.NewTable("CONFLICT ID", "TABLE", "ROW", "STATE")
	conflictTable.SetFormat(cli.ParseOutputFormat(*format))
	for _, c := range conflicts {
		conflictTable.AddRow(string(c.ConflictID), c.TableName, string(c.RowPK), string(c.ResolutionState))
	}
	cli.Box("Unresolved conflicts", "")
	conflictTable.Print()

	if len(conflicts) > 0 {
		cli.PrintWarning("%d unresolved conflict(s) -- run 'syncengine resolve'", len(conflicts))
		return exitConflictsUnresolved
	}
	return exitSuccess
}
