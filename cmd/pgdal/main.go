// Command pgdal creates the tables declared in a configuration file and
// imports CSV files into them.
//
//	pgdal migrate -config pgdal.yaml
//	pgdal load -config pgdal.yaml users=users.csv events_a=events.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/pgdal"
	"github.com/syssam/pgdal/client"
	"github.com/syssam/pgdal/config"
	"github.com/syssam/pgdal/dialect/sql"
	"github.com/syssam/pgdal/dialect/sql/bulk"
	"github.com/syssam/pgdal/schema"
)

const usage = `usage: pgdal <command> [flags] [args]

commands:
  migrate   create the tables of the configured entities
  load      import CSV files: pgdal load [flags] table=file.csv ...
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "pgdal.yaml", "Path to configuration file")
	switch cmd {
	case "migrate", "load":
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stderr, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := slog.New(cfg.Log.Handler(stderr))
	slog.SetDefault(logger)

	c, stats, err := open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("statement statistics", "stats", stats.Stats().String())
		if err := c.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}()
	if cmd == "migrate" {
		return migrate(ctx, cfg, c)
	}
	targets, err := parseTargets(fs.Args())
	if err != nil {
		return err
	}
	return load(ctx, cfg, c, targets)
}

func open(cfg *config.Config, logger *slog.Logger) (*client.Client, *sql.QueryStats, error) {
	stats := sql.NewQueryStats(
		sql.WithSlowThreshold(cfg.Stats.SlowThreshold),
		sql.WithSlowQueryLog(),
	)
	c, err := client.Open(cfg.Database.DSN,
		[]client.Option{
			client.WithBatchLimits(cfg.Batch.MaxStatements, cfg.Batch.MaxParameters),
			client.WithTxPolicy(cfg.TxPolicy()),
			client.WithStatementTimeout(cfg.Database.StatementTimeout),
			client.WithWrapIdentifiers(cfg.Bulk.WrapIdentifiers),
			client.WithLogger(logger),
		},
		sql.WithObserver(sql.Observers{stats, sql.LogObserver{Logger: logger}}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	c.Driver().DB().SetMaxOpenConns(cfg.Database.MaxOpenConns)
	return c, stats, nil
}

func migrate(ctx context.Context, cfg *config.Config, c *client.Client) error {
	entities, err := cfg.Schema()
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return errors.New("no entities configured")
	}
	return c.Migrate(ctx, entities...)
}

// target is one CSV file imported into a table.
type target struct {
	table string
	path  string
}

func parseTargets(args []string) ([]target, error) {
	if len(args) == 0 {
		return nil, errors.New("load: no table=file arguments")
	}
	targets := make([]target, 0, len(args))
	for _, arg := range args {
		table, path, ok := strings.Cut(arg, "=")
		if !ok || table == "" || path == "" {
			return nil, fmt.Errorf("load: invalid argument %q, want table=file.csv", arg)
		}
		targets = append(targets, target{table: table, path: path})
	}
	return targets, nil
}

// load runs the imports concurrently, each in its own transaction on its
// own connection. A failed import does not roll back the others: every
// failure is reported once all imports are done.
func load(ctx context.Context, cfg *config.Config, c *client.Client, targets []target) error {
	var g errgroup.Group
	g.SetLimit(cfg.Bulk.Parallelism)
	errs := make([]error, len(targets))
	for i, t := range targets {
		g.Go(func() error {
			n, err := loadFile(ctx, cfg, c, t)
			if err != nil {
				errs[i] = fmt.Errorf("load %s: %w", t.path, err)
				slog.ErrorContext(ctx, "file import failed", "table", t.table, "file", t.path, "error", err)
				return nil
			}
			slog.InfoContext(ctx, "file imported", "table", t.table, "file", t.path, "rows", n)
			return nil
		})
	}
	_ = g.Wait()
	return pgdal.NewAggregateError(errs...)
}

func loadFile(ctx context.Context, cfg *config.Config, c *client.Client, t target) (int64, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	src, err := bulk.NewCSVSource(f)
	if err != nil {
		return 0, err
	}
	columns := src.Columns()
	if e, err := cfg.Lookup(t.table); err == nil {
		if columns, err = resolveColumns(e, columns); err != nil {
			return 0, err
		}
	}
	return c.Load(ctx, t.table, columns, src)
}

// resolveColumns maps the property names of a CSV header to the columns of
// e. Names that are already column names are kept.
func resolveColumns(e *schema.Entity, header []string) ([]string, error) {
	columns := make([]string, len(header))
	for i, h := range header {
		if f, ok := e.Field(h); ok {
			columns[i] = f.Column
			continue
		}
		var found bool
		for _, f := range e.Fields {
			if f.Column == h {
				columns[i], found = h, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("entity %s has no field %q", e.Name, h)
		}
	}
	return columns, nil
}
