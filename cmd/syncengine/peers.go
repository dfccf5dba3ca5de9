/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"flag"
	"fmt"
	"time"

	"syncengine/internal/peerdisc"
	"syncengine/internal/syncloop"
	"syncengine/pkg/cli"
)

func runPeers(args []string) int {
	fs := flag.NewFlagSet("peers", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "syncengine.db", "Directory the engine stores its data in")
	discover := fs.Bool("discover", false, "Browse the local network for peers via mDNS")
	seedDomain := fs.String("seed-domain", "", "Look up peer hints via a DNS seed domain")
	add := fs.String("add", "", "Register a peer endpoint, host:port")
	timeoutSec := fs.Int("timeout", 5, "Discovery timeout in seconds")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a, err := openApp(defaultConfigFor(*dataDir))
	if err != nil {
		cli.NewCLIError("Failed to open data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	if *add != "" {
		if err := a.peers.Put(&syncloop.Peer{PeerID: *add, EndpointHint: *add}); err != nil {
			cli.NewCLIError("Failed to register peer").WithDetail(err.Error()).Print()
			return exitOther
		}
		cli.PrintSuccess("Registered peer %s", *add)
	}

	if *discover {
		hints, err := peerdisc.Discover(time.Duration(*timeoutSec) * time.Second)
		if err != nil {
			cli.NewCLIError("Discovery failed").WithDetail(err.Error()).Print()
			return exitTransportFailure
		}
		printHints(hints)
	}

	if *seedDomain != "" {
		hints, err := peerdisc.LookupSeeds(*seedDomain, "", time.Duration(*timeoutSec)*time.Second)
		if err != nil {
			cli.NewCLIError("DNS seed lookup failed").WithDetail(err.Error()).Print()
			return exitTransportFailure
		}
		printHints(hints)
	}

	known, err := a.peers.List()
	if err != nil {
		cli.NewCLIError("Failed to list peers").WithDetail(err.Error()).Print()
		return exitOther
	}
	table := cli.NewTable("PEER", "ENDPOINT", "LAST SEEN", "LAST SYNC")
	for _, p := range known {
		table.AddRow(p.PeerID, p.EndpointHint, fmt.Sprint(p.LastSeen), fmt.Sprint(p.LastSyncAt))
	}
	table.Print()
	return exitSuccess
}

func printHints(hints []peerdisc.PeerHint) {
	if len(hints) == 0 {
		cli.PrintWarning("No peers found")
		return
	}
	table := cli.NewTable("SOURCE", "DEVICE HINT", "ENDPOINT")
	for _, h := range hints {
		table.AddRow(h.Source, h.DeviceIDHint, h.Endpoint)
	}
	table.Print()
}
