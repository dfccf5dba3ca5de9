/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package main

import (
	"flag"
	"strconv"

	"syncengine/internal/idcodec"
	"syncengine/internal/schema"
	"syncengine/internal/txn"
	"syncengine/pkg/cli"
)

func runMigrate(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "syncengine.db", "Directory the engine stores its data in")
	table := fs.String("table", "", "Table to add a column to")
	column := fs.String("column", "", "Column name to add")
	colType := fs.String("type", "text", "Column type: null, int, real, text, blob")
	defaultVal := fs.String("default", "", "Default value for existing rows")
	enable := fs.Bool("enable", false, "Opt the table into sync if it isn't already")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *table == "" || *column == "" {
		cli.ErrMissingArgument("--table/--column", "syncengine migrate --table t --column c --type text").Print()
		return exitUsage
	}

	valueType, err := parseValueType(*colType)
	if err != nil {
		cli.ErrInvalidValue("--type", *colType, err.Error()).Print()
		return exitUsage
	}
	value, err := parseValue(valueType, *defaultVal)
	if err != nil {
		cli.ErrInvalidValue("--default", *defaultVal, err.Error()).Print()
		return exitUsage
	}

	a, err := openApp(defaultConfigFor(*dataDir))
	if err != nil {
		cli.NewCLIError("Failed to open data directory").WithDetail(err.Error()).Print()
		return exitOther
	}
	defer a.Close()

	if *enable {
		if err := a.log.EnableSyncForTable(*table); err != nil {
			cli.NewCLIError("Failed to enable table for sync").WithDetail(err.Error()).Print()
			return exitOther
		}
	}

	var migration *schema.Migration
	err = a.executor.AtomicOperation(cliContext(), func(tx *txn.Transaction) error {
		var txErr error
		migration, txErr = a.schema.AddColumn(tx, *table, *column, valueType, value)
		return txErr
	})
	if err != nil {
		cli.NewCLIError("Migration failed").WithDetail(err.Error()).Print()
		return exitCodeFor(err)
	}

	cli.PrintSuccess("Added column %s.%s (schema version %d)", *table, *column, migration.ToVersion)
	return exitSuccess
}

func parseValueType(s string) (idcodec.ValueType, error) {
	switch s {
	case "null":
		return idcodec.TypeNull, nil
	case "int":
		return idcodec.TypeInt, nil
	case "real":
		return idcodec.TypeReal, nil
	case "text":
		return idcodec.TypeText, nil
	case "blob":
		return idcodec.TypeBlob, nil
	default:
		return 0, errUnknownType(s)
	}
}

func parseValue(t idcodec.ValueType, raw string) (idcodec.Value, error) {
	switch t {
	case idcodec.TypeNull:
		return idcodec.NullValue(), nil
	case idcodec.TypeInt:
		if raw == "" {
			return idcodec.IntValue(0), nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return idcodec.Value{}, err
		}
		return idcodec.IntValue(n), nil
	case idcodec.TypeReal:
		if raw == "" {
			return idcodec.RealValue(0), nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return idcodec.Value{}, err
		}
		return idcodec.RealValue(f), nil
	case idcodec.TypeText:
		return idcodec.TextValue(raw), nil
	case idcodec.TypeBlob:
		return idcodec.BlobValue([]byte(raw)), nil
	default:
		return idcodec.Value{}, errUnknownType("unknown")
	}
}

type unknownTypeError string

func (e unknownTypeError) Error() string { return "unknown column type: " + string(e) }

func errUnknownType(s string) error { return unknownTypeError(s) }
