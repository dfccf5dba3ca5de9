/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"flag"
	"fmt"

	"syncengine/internal/config"
	"syncengine/pkg/cli"
)

func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "syncengine.db", "Directory the engine stores its data in")
	listenAddr := fs.String("listen-addr", ":8866", "Address the sync loop listens on")
	peerDiscovery := fs.String("peer-discovery", "mdns", "Peer discovery mode: static, mdns, dns-seed")
	configPath := fs.String("config", "syncengine.toml", "Path to write the config file")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = *dataDir
	cfg.ListenAddr = *listenAddr
	cfg.PeerDiscovery = *peerDiscovery

	if err := cfg.Validate(); err != nil {
		cli.NewCLIError("Invalid configuration").WithDetail(err.Error()).Print()
		return exitUsage
	}

	if err := cfg.SaveToFile(*configPath); err != nil {
		cli.NewCLIError("Failed to write config file").WithDetail(err.Error()).Print()
		return exitOther
	}

	a, err := openApp(cfg)
	if err != nil {
		cli.NewCLIError("Failed to initialize data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	cli.PrintSuccess("Initialized %s", *dataDir)
	fmt.Printf("  %s %s\n", cli.Dimmed("Device ID:"), a.log.DeviceID())
	fmt.Printf("  %s %s\n", cli.Dimmed("Config file:"), *configPath)
	fmt.Println()
	fmt.Println(cli.Dimmed("Next: syncengine start --config " + *configPath))
	return exitSuccess
}
