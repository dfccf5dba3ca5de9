/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

/*
syncengine is the reference command-line front-end for the replication
engine: a thin shell that parses flags and delegates every decision to
the internal packages. It commits to no transport or storage choice the
engine packages don't already make; init/start/sync/status/resolve/
migrate/peers/snapshot all share the same openApp bootstrap.

Usage:

	syncengine init [--data-dir path] [--listen-addr addr]
	syncengine start [--config path]
	syncengine sync --peer host:port [--data-dir path]
	syncengine status [--data-dir path] [--format table|json|plain]
	syncengine resolve [--data-dir path]
	syncengine migrate --table t --column c --type text [--default v] [--data-dir path]
	syncengine peers [--discover] [--add host:port] [--data-dir path]
	syncengine snapshot export --peer-id id --out path [--data-dir path]
	syncengine snapshot import --in path [--data-dir path]
	syncengine audit export --out path [--format json|csv|sql] [--data-dir path]
*/
package main

import (
	"fmt"
	"os"

	"syncengine/pkg/cli"
)

const (
	appName    = "syncengine"
	appVersion = "0.1.0"
)

type command struct {
	name string
	desc string
	run  func(args []string) int
}

var commands = []command{
	{"init", "Initialize a new data directory and config file", runInit},
	{"start", "Run the sync loop and accept peer connections", runStart},
	{"serve", "Alias for start", runStart},
	{"sync", "Run a single sync cycle against a peer and exit", runSync},
	{"status", "Show local device state, peers, and conflicts", runStatus},
	{"resolve", "Interactively resolve unresolved conflicts", runResolve},
	{"migrate", "Apply an additive schema migration", runMigrate},
	{"peers", "List, discover, and register peers", runPeers},
	{"snapshot", "Export or import an operation bundle", runSnapshot},
	{"audit", "Export the local device's audit trail", runAudit},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return exitUsage
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return exitSuccess
	case "-v", "--version", "version":
		fmt.Printf("%s version %s\n", appName, appVersion)
		return exitSuccess
	}

	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}

	cli.ErrInvalidCommand(args[0]).Print()
	return exitUsage
}

func printUsage() {
	h := cli.NewHelpFormatter(appName, appVersion)
	for _, cmd := range commands {
		h.AddCommand(cli.Command{Name: cmd.name, Description: cmd.desc})
	}
	h.PrintUsage()
	fmt.Println(cli.Dimmed("Run 'syncengine <command> --help' for command-specific flags."))
}
