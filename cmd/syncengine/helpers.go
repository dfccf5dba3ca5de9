/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"context"
	"net"
	"strconv"

	"syncengine/internal/config"
)

// cliContext returns a background context for one-shot subcommands
// that don't need cancellation wiring of their own.
func cliContext() context.Context {
	return context.Background()
}

// defaultConfigFor returns DefaultConfig with only DataDir overridden,
// for subcommands that operate on an existing data directory without
// needing the full config file (sync, status, resolve, migrate, peers,
// snapshot all take --data-dir directly rather than --config).
func defaultConfigFor(dataDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	return cfg
}

// splitPort extracts the numeric port from a "host:port" listen
// address, for handing to mDNS advertisement, which wants a bare int.
func splitPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0, err
	}
	return host, port, nil
}
