/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syncengine/internal/config"
	"syncengine/internal/logging"
	"syncengine/internal/peerdisc"
	"syncengine/internal/syncloop"
	"syncengine/pkg/cli"
)

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a config file written by 'syncengine init'")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	mgr, err := loadConfig(*configPath)
	if err != nil {
		cli.NewCLIError("Failed to load configuration").WithDetail(err.Error()).Print()
		return exitUsage
	}
	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		cli.NewCLIError("Invalid configuration").WithDetail(err.Error()).Print()
		return exitUsage
	}

	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSONMode(cfg.LogJSON)
	log := logging.NewLogger("start")

	a, err := openApp(cfg)
	if err != nil {
		cli.NewCLIError("Failed to open data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	deviceID := string(a.log.DeviceID())
	server := syncloop.NewTCPServer(deviceID, a.log, a.schema, a.executor)
	if err := server.Listen(cfg.ListenAddr); err != nil {
		cli.NewCLIError("Failed to bind listen address").WithDetail(err.Error()).Print()
		return exitTransportFailure
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := server.Serve(ctx, cfg.ListenAddr); err != nil {
			log.Error("peer server stopped", "error", err)
		}
	}()

	var stopAdvertise func()
	if cfg.PeerDiscovery == "mdns" {
		_, port, splitErr := splitPort(cfg.ListenAddr)
		if splitErr == nil {
			stop, advErr := peerdisc.Advertise(deviceID, port)
			if advErr != nil {
				log.Warn("mdns advertise failed", "error", advErr)
			} else {
				stopAdvertise = stop
			}
		}
	}
	if stopAdvertise != nil {
		defer stopAdvertise()
	}

	loops := startPeerLoops(ctx, a, cfg, log)

	cli.PrintSuccess("syncengine started")
	fmt.Printf("  %s %s\n", cli.Dimmed("Device ID:"), deviceID)
	fmt.Printf("  %s %s\n", cli.Dimmed("Listening on:"), server.Addr())
	fmt.Printf("  %s %d\n", cli.Dimmed("Peer loops:"), len(loops))

	<-ctx.Done()
	log.Info("shutting down")
	for _, l := range loops {
		l.Stop()
	}
	return exitSuccess
}

// startPeerLoops builds one Loop per statically-configured or
// previously-known peer and starts it ticking in its own goroutine.
func startPeerLoops(ctx context.Context, a *app, cfg *config.Config, log *logging.Logger) []*syncloop.Loop {
	var endpoints []string
	endpoints = append(endpoints, cfg.StaticPeers...)

	known, err := a.peers.List()
	if err == nil {
		for _, p := range known {
			if p.EndpointHint != "" {
				endpoints = append(endpoints, p.EndpointHint)
			}
		}
	}

	loops := make([]*syncloop.Loop, 0, len(endpoints))
	seen := make(map[string]bool)
	for _, endpoint := range endpoints {
		if endpoint == "" || seen[endpoint] {
			continue
		}
		seen[endpoint] = true

		transport := syncloop.NewTCPTransport(string(a.log.DeviceID()), endpoint)
		loop := syncloop.NewLoop(endpoint, transport, a.log, a.schema, a.executor, a.peers, syncloop.Config{
			Interval: time.Duration(cfg.SyncIntervalSec) * time.Second,
		})
		loop.SetAuditManager(a.audit)
		go loop.Run(ctx)
		loops = append(loops, loop)
		log.Info("peer loop started", "endpoint", endpoint)
	}
	return loops
}
