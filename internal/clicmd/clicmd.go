// ///////////////////////////////////////////////////////////////////////////
//
// # tablediff
//
// Copyright (C) 2023 - 2026, pgEdge (https://www.pgedge.com/)
//
// This software is released under the PostgreSQL License:
// https://opensource.org/license/postgresql
//
// ///////////////////////////////////////////////////////////////////////////

// Package clicmd wires the urfave/cli surface of spec.md §6 onto the
// engine package, grounded on the teacher's internal/cli SetupCLI: a
// flat list of flags per command, built the same way, generalized from
// cluster/node arguments to the two-table-pair arguments this module's
// "table" command needs.
package clicmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"

	"github.com/tablediff/tablediff/internal/adapter/duckdb"
	"github.com/tablediff/tablediff/internal/adapter/postgres"
	"github.com/tablediff/tablediff/internal/config"
	"github.com/tablediff/tablediff/internal/engine"
	"github.com/tablediff/tablediff/internal/obs"
	"github.com/tablediff/tablediff/internal/sink"
	"github.com/tablediff/tablediff/pkg/types"
)

// SetupCLI builds the "table" command and its flags (spec.md §6).
func SetupCLI() *cli.App {
	flags := []cli.Flag{
		&cli.StringSliceFlag{Name: "key-columns", Aliases: []string{"k"}, Usage: "Comma-separated key column(s), required"},
		&cli.StringFlag{Name: "update-column", Aliases: []string{"t"}, Usage: "Column used to restrict by age (-w/--min-age/--max-age)"},
		&cli.StringSliceFlag{Name: "columns", Aliases: []string{"c"}, Usage: "Extra columns to compare; '%' expands to every non-key column"},
		&cli.StringFlag{Name: "where", Aliases: []string{"w"}, Usage: "Opaque SQL predicate applied to both sides"},
		&cli.StringFlag{Name: "min-age", Usage: "Only compare rows with update-column >= this duration old"},
		&cli.StringFlag{Name: "max-age", Usage: "Only compare rows with update-column < this duration old"},
		&cli.StringFlag{Name: "algorithm", Aliases: []string{"a"}, Value: engine.AlgorithmAuto, Usage: "auto | hashdiff | joindiff"},
		&cli.IntFlag{Name: "bisection-factor", Value: engine.DefaultBisectionFactor, Usage: "Sub-segments per HashDiff bisection level"},
		&cli.IntFlag{Name: "bisection-threshold", Value: engine.DefaultBisectionThreshold, Usage: "Row count below which a HashDiff segment is fetched directly"},
		&cli.StringFlag{Name: "materialize", Aliases: []string{"m"}, Usage: "Qualified path of a table to write diff results into"},
		&cli.BoolFlag{Name: "assume-unique-key", Usage: "Skip the duplicate-key safety check"},
		&cli.BoolFlag{Name: "sample-exclusive-rows", Usage: "JoinDiff: include a sample of exclusive rows in the summary"},
		&cli.BoolFlag{Name: "materialize-all-rows", Usage: "Materialize matching rows too, not only diffs"},
		&cli.IntFlag{Name: "table-write-limit", Usage: "Cap on rows written by --materialize (0 = unbounded)"},
		&cli.BoolFlag{Name: "stats", Aliases: []string{"s"}, Usage: "Print the summary statistics block on completion"},
		&cli.BoolFlag{Name: "json", Usage: "Emit diff events and summary as JSON"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Stop after this many diff rows (0 = unbounded)"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging"},
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "Enable debug logging and stack traces on error"},
		&cli.IntFlag{Name: "threads", Aliases: []string{"j"}, Value: 4, Usage: "Worker pool size per side"},
		&cli.StringFlag{Name: "conf", Usage: "Path to a YAML config file of databases and named runs"},
		&cli.StringFlag{Name: "run", Usage: "Named run within --conf to use as the argument baseline"},
		&cli.BoolFlag{Name: "no-tracking", Usage: "Disable anonymous usage tracking (accepted for compatibility, tracking is never performed)"},
	}

	return &cli.App{
		Name:  "tablediff",
		Usage: "row-level table diffing across and within database engines",
		Commands: []*cli.Command{
			{
				Name:      "table",
				Usage:     "diff two tables",
				ArgsUsage: "DATABASE1.TABLE1 DATABASE2.TABLE2",
				Flags:     flags,
				Action:    runTableDiff,
			},
		},
	}
}

func runTableDiff(c *cli.Context) error {
	if c.Bool("verbose") || c.Bool("debug") {
		obs.SetLevel(log.DebugLevel)
	}

	run, err := resolveRunArgs(c)
	if err != nil {
		return exitErr(err)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		obs.Info("received interrupt, winding down in-flight segments")
		cancel()
	}()

	leftAdapter, err := openAdapter(ctx, run.db1)
	if err != nil {
		return exitErr(err)
	}
	defer leftAdapter.Close()

	rightAdapter := leftAdapter
	if run.db1 != run.db2 {
		rightAdapter, err = openAdapter(ctx, run.db2)
		if err != nil {
			return exitErr(err)
		}
		defer rightAdapter.Close()
	}

	left := &engine.TableSegment{Adapter: leftAdapter, Path: run.path1, KeyColumns: run.keyColumns, UpdateColumn: run.updateColumn, ExtraColumns: run.columns, WherePredicate: run.where, AssumeUniqueKey: run.assumeUniqueKey}
	right := &engine.TableSegment{Adapter: rightAdapter, Path: run.path2, KeyColumns: run.keyColumns, UpdateColumn: run.updateColumn, ExtraColumns: run.columns, WherePredicate: run.where, AssumeUniqueKey: run.assumeUniqueKey}

	if run.minAge != nil {
		t := time.Now().Add(-*run.minAge)
		left.MaxUpdate, right.MaxUpdate = &t, &t
	}
	if run.maxAge != nil {
		t := time.Now().Add(-*run.maxAge)
		left.MinUpdate, right.MinUpdate = &t, &t
	}

	if err := engine.BindSchema(ctx, left); err != nil {
		return exitErr(err)
	}
	if err := engine.BindSchema(ctx, right); err != nil {
		return exitErr(err)
	}

	opts := engine.RunOptions{
		Algorithm: run.algorithm,
		HashDiffOptions: engine.HashDiffOptions{
			BisectionFactor:    run.bisectionFactor,
			BisectionThreshold: run.bisectionThreshold,
			Threads:            run.threads,
			Limit:              run.limit,
			AssumeUniqueKey:    run.assumeUniqueKey,
			Logger:             obs.EngineLogger{},
		},
		JoinDiffOptions: engine.JoinDiffOptions{
			Threads:             run.threads,
			Limit:               run.limit,
			SampleExclusiveRows: run.sampleExclusiveRows,
			MaterializeAllRows:  run.materializeAllRows,
			Logger:              obs.EngineLogger{},
		},
	}

	stream, err := engine.Select(ctx, left, right, opts)
	if err != nil {
		return exitErr(err)
	}

	var mat *sink.Materializer
	if run.materialize != "" {
		mat = sink.NewMaterializer(leftAdapter, strings.Split(run.materialize, "."), run.tableWriteLimit)
		if err := mat.Ensure(ctx); err != nil {
			return exitErr(err)
		}
	}

	enc := json.NewEncoder(c.App.Writer)
	for ev := range stream.Events() {
		if run.jsonOutput {
			_ = enc.Encode(ev)
		} else {
			fmt.Fprintf(c.App.Writer, "%s %v %v\n", ev.Sign, ev.Key, ev.Row)
		}
		if mat != nil {
			if ok, err := mat.Add(ctx, ev); err != nil {
				return exitErr(err)
			} else if !ok {
				break
			}
		}
	}
	<-stream.Done()
	if mat != nil {
		if err := mat.Flush(ctx); err != nil {
			return exitErr(err)
		}
	}

	summary := stream.Summary()
	if run.statsOutput {
		if run.jsonOutput {
			_ = enc.Encode(summary)
		} else {
			printSummary(c, summary)
		}
	}

	if summary.RowsDiff > 0 {
		return cli.Exit("tables differ", 1)
	}
	if summary.Incomplete {
		return cli.Exit("run was cancelled", 1)
	}
	return nil
}

func printSummary(c *cli.Context, s types.Summary) {
	fmt.Fprintf(c.App.Writer, "algorithm=%s rows_checked=%d rows_diff=%d (+%d/-%d) elapsed=%s incomplete=%v\n",
		s.Algorithm, s.RowsChecked, s.RowsDiff, s.PlusCount, s.MinusCount, s.Elapsed, s.Incomplete)
}

func exitErr(err error) error {
	var e *engine.Error
	if as, ok := err.(*engine.Error); ok {
		e = as
	}
	if e == nil {
		return cli.Exit(err.Error(), 1)
	}
	return cli.Exit(e.Error(), e.Kind.ExitCode())
}

func openAdapter(ctx context.Context, db config.DatabaseConfig) (engine.Adapter, error) {
	switch strings.ToLower(db.Driver) {
	case "", "postgres", "postgresql":
		return postgres.Open(ctx, connString(db))
	case "duckdb":
		return duckdb.Open(ctx, db.URI, 4)
	default:
		return nil, engine.ConfigError("unsupported database driver %q", db.Driver)
	}
}

func connString(db config.DatabaseConfig) string {
	if db.URI != "" && db.Host == "" {
		return db.URI
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", db.User, db.Password, db.Host, db.Port, db.Database)
}

// runArgs is the fully-resolved argument set for one invocation, merged
// from --conf/--run (if given) and then overridden by explicit flags and
// positional table references, mirroring the teacher's flag-then-config
// precedence in internal/cli.
type runArgs struct {
	db1, db2             config.DatabaseConfig
	path1, path2         []string
	keyColumns           []string
	updateColumn         string
	columns              []string
	where                string
	minAge, maxAge       *time.Duration
	algorithm            string
	bisectionFactor      int
	bisectionThreshold   int
	materialize          string
	assumeUniqueKey      bool
	sampleExclusiveRows  bool
	materializeAllRows   bool
	tableWriteLimit      int
	statsOutput          bool
	jsonOutput           bool
	limit                int
	threads              int
}

func resolveRunArgs(c *cli.Context) (runArgs, error) {
	var run config.RunConfig
	var cfg *config.Config

	if confPath := c.String("conf"); confPath != "" {
		loaded, err := config.Load(confPath)
		if err != nil {
			return runArgs{}, engine.ConfigError("%v", err)
		}
		cfg = loaded
		resolved, err := cfg.ResolveRun(c.String("run"))
		if err != nil {
			return runArgs{}, engine.ConfigError("%v", err)
		}
		run = resolved
	}

	args := c.Args().Slice()
	table1, table2 := run.Table1, run.Table2
	if len(args) >= 1 {
		table1 = args[0]
	}
	if len(args) >= 2 {
		table2 = args[1]
	}
	if table1 == "" || table2 == "" {
		return runArgs{}, engine.ConfigError("table command requires DATABASE1.TABLE1 and DATABASE2.TABLE2")
	}

	db1Name, path1 := splitTableRef(table1)
	db2Name, path2 := splitTableRef(table2)

	var db1, db2 config.DatabaseConfig
	if cfg != nil {
		var ok bool
		if db1, ok = cfg.Databases[db1Name]; !ok {
			return runArgs{}, engine.ConfigError("database %q not found in config", db1Name)
		}
		if db2, ok = cfg.Databases[db2Name]; !ok {
			return runArgs{}, engine.ConfigError("database %q not found in config", db2Name)
		}
	} else {
		db1 = config.DatabaseConfig{URI: db1Name}
		db2 = config.DatabaseConfig{URI: db2Name}
	}

	keyColumns := firstNonEmptySlice(c.StringSlice("key-columns"), run.KeyColumns)
	if len(keyColumns) == 0 {
		return runArgs{}, engine.ConfigError("-k/--key-columns is required")
	}

	setInt := func(name string) int {
		if !c.IsSet(name) {
			return 0
		}
		return c.Int(name)
	}
	setAlgorithm := ""
	if c.IsSet("algorithm") {
		setAlgorithm = c.String("algorithm")
	}

	a := runArgs{
		db1: db1, db2: db2,
		path1: strings.Split(path1, "."), path2: strings.Split(path2, "."),
		keyColumns:          keyColumns,
		updateColumn:        firstNonEmpty(c.String("update-column"), run.UpdateColumn),
		columns:             firstNonEmptySlice(c.StringSlice("columns"), run.Columns),
		where:               firstNonEmpty(c.String("where"), run.Where),
		algorithm:           firstNonEmpty(setAlgorithm, run.Algorithm, engine.AlgorithmAuto),
		bisectionFactor:     firstNonZero(setInt("bisection-factor"), run.BisectionFactor, engine.DefaultBisectionFactor),
		bisectionThreshold:  firstNonZero(setInt("bisection-threshold"), run.BisectionThreshold, engine.DefaultBisectionThreshold),
		materialize:         firstNonEmpty(c.String("materialize"), run.Materialize),
		assumeUniqueKey:     c.Bool("assume-unique-key") || run.AssumeUniqueKey,
		sampleExclusiveRows: c.Bool("sample-exclusive-rows") || run.SampleExclusiveRows,
		materializeAllRows:  c.Bool("materialize-all-rows") || run.MaterializeAllRows,
		tableWriteLimit:     firstNonZero(c.Int("table-write-limit"), run.TableWriteLimit, 0),
		statsOutput:         c.Bool("stats"),
		jsonOutput:          c.Bool("json"),
		limit:               firstNonZero(c.Int("limit"), run.Limit, 0),
		threads:             firstNonZero(setInt("threads"), run.Threads, 4),
	}

	if d, err := parseAgeFlag(c.String("min-age"), run.MinAge); err != nil {
		return runArgs{}, err
	} else {
		a.minAge = d
	}
	if d, err := parseAgeFlag(c.String("max-age"), run.MaxAge); err != nil {
		return runArgs{}, err
	} else {
		a.maxAge = d
	}

	return a, nil
}

func parseAgeFlag(flagVal, confVal string) (*time.Duration, error) {
	v := firstNonEmpty(flagVal, confVal)
	if v == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return nil, engine.ConfigError("invalid age duration %q: %v", v, err)
	}
	return &d, nil
}

func splitTableRef(ref string) (database, path string) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 {
		return ref, ref
	}
	return parts[0], parts[1]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptySlice(vals ...[]string) []string {
	for _, v := range vals {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
