/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"syncengine/internal/syncloop"
	"syncengine/pkg/cli"
)

func runSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "syncengine.db", "Directory the engine stores its data in")
	peer := fs.String("peer", "", "Peer address to sync against, host:port")
	timeoutSec := fs.Int("timeout", 30, "Sync cycle timeout in seconds")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *peer == "" {
		cli.ErrMissingArgument("--peer", "syncengine sync --peer host:port").Print()
		return exitUsage
	}

	cfg := defaultConfigFor(*dataDir)
	a, err := openApp(cfg)
	if err != nil {
		cli.NewCLIError("Failed to open data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	transport := syncloop.NewTCPTransport(string(a.log.DeviceID()), *peer)
	loop := syncloop.NewLoop(*peer, transport, a.log, a.schema, a.executor, a.peers, syncloop.Config{})
	loop.SetAuditManager(a.audit)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutSec)*time.Second)
	defer cancel()

	spinner := cli.NewSpinner(fmt.Sprintf("Syncing with %s", *peer))
	spinner.Start()
	err = loop.SyncNow(ctx)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("Sync failed: %v", err))
		return exitCodeFor(err)
	}
	spinner.StopWithSuccess("Sync complete")
	return exitSuccess
}
