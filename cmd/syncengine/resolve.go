/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/chzyer/readline"

	"syncengine/internal/idcodec"
	"syncengine/internal/resolver"
	"syncengine/internal/syncapply"
	"syncengine/pkg/cli"
)

// runResolve walks every unresolved conflict in an interactive
// readline loop, letting the operator pick the winning side, merge
// fields preferring one side, or defer -- the §6 CLI surface's
// "resolve" command, the one genuinely interactive corner of an
// otherwise non-interactive front-end.
func runResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "syncengine.db", "Directory the engine stores its data in")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a, err := openApp(defaultConfigFor(*dataDir))
	if err != nil {
		cli.NewCLIError("Failed to open data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	registerManualResolvers(a.resolver)

	conflicts, err := syncapply.ListConflicts(a.engine, true)
	if err != nil {
		cli.NewCLIError("Failed to list conflicts").WithDetail(err.Error()).Print()
		return exitOther
	}
	if len(conflicts) == 0 {
		cli.PrintSuccess("No unresolved conflicts")
		return exitSuccess
	}

	rl, err := readline.New(cli.Highlight("resolve> "))
	if err != nil {
		cli.NewCLIError("Failed to start interactive prompt").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer rl.Close()

	remaining := 0
	for i, c := range conflicts {
		ctx, err := syncapply.BuildConflictContext(a.engine, a.log, c)
		if err != nil {
			cli.PrintError("Failed to load conflict %s: %v", c.ConflictID, err)
			remaining++
			continue
		}

		printConflict(c, ctx)
		choice, err := promptChoice(rl)
		if err != nil {
			// EOF/interrupt: stop the loop, leave the rest unresolved.
			remaining += len(conflicts) - i
			break
		}

		resolverName, ok := map[string]string{
			"1": "keep_local",
			"2": "keep_remote",
			"3": "field_merge_prefer_local",
			"4": "field_merge",
			"l": "last_write_wins",
		}[choice]
		if !ok {
			cli.PrintInfo("Skipping conflict %s", c.ConflictID)
			remaining++
			continue
		}

		if _, err := a.resolver.Apply(c.ConflictID, resolverName); err != nil {
			cli.PrintError("Failed to resolve %s: %v", c.ConflictID, err)
			remaining++
			continue
		}
		cli.PrintSuccess("Resolved %s via %s", c.ConflictID, resolverName)
	}

	if remaining > 0 {
		cli.PrintWarning("%d conflict(s) still unresolved", remaining)
		return exitConflictsUnresolved
	}
	return exitSuccess
}

func printConflict(c *syncapply.ConflictRecord, ctx *syncapply.ConflictContext) {
	fmt.Println()
	cli.Box(fmt.Sprintf("Conflict %s", c.ConflictID), fmt.Sprintf("table=%s row=%s", c.TableName, string(c.RowPK)))
	fmt.Printf("  %s %s\n", cli.Dimmed("Local: "), formatValues(ctx.LocalValues))
	fmt.Printf("  %s %s\n", cli.Dimmed("Remote:"), formatValues(ctx.RemoteValues))
	fmt.Println()
	fmt.Println("  [1] Keep local   [2] Keep remote   [3] Field-merge (prefer local)")
	fmt.Println("  [4] Field-merge (prefer remote)   [l] Last-write-wins   [Enter] Skip")
}

func formatValues(values map[string]idcodec.Value) string {
	if len(values) == 0 {
		return "(deleted)"
	}
	parts := make([]string, 0, len(values))
	for k, v := range values {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ", ")
}

func promptChoice(rl *readline.Instance) (string, error) {
	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// registerManualResolvers adds "keep_local"/"keep_remote" custom
// resolvers the registry doesn't carry by default -- they only make
// sense when an operator, not an automated policy, is choosing a side.
func registerManualResolvers(r *resolver.Registry) {
	r.Register("keep_local", resolver.Custom(func(ctx *syncapply.ConflictContext) (resolver.Result, error) {
		if ctx.LocalOp == nil {
			return resolver.Result{Resolved: false}, nil
		}
		return resolver.Result{Resolved: true, Values: ctx.LocalValues}, nil
	}))
	r.Register("keep_remote", resolver.Custom(func(ctx *syncapply.ConflictContext) (resolver.Result, error) {
		if ctx.RemoteOp == nil {
			return resolver.Result{Resolved: false}, nil
		}
		return resolver.Result{Resolved: true, Values: ctx.RemoteValues}, nil
	}))
}
