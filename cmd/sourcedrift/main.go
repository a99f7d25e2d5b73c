package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/saviobatista/navqc/internal/app"
	"github.com/saviobatista/navqc/internal/config"
	"github.com/saviobatista/navqc/internal/qc"
	"github.com/saviobatista/navqc/internal/report"
	"github.com/saviobatista/navqc/internal/textenc"
)

const tool = "sourcedrift"

func main() {
	if err := runSourceDrift(os.Args[1:]); err != nil {
		slog.Error("sourcedrift failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	column    string
	threshold float64
	output    string
}

func runSourceDrift(args []string) error {
	opts := &options{}
	cfg, rest, err := app.Parse(tool, args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&opts.column, "column", qc.DriftColumn, "Drift column")
		fs.Float64Var(&opts.threshold, "threshold", 5.0, "Keep shots whose absolute drift is above this value")
		fs.StringVar(&opts.output, "o", "shots_over_threshold.csv", "Output table name")
	})
	if err != nil {
		return err
	}
	paths, err := app.Inputs(rest, ".csv", ".txt")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, ctx, err := app.Setup(ctx, tool, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	return collectAll(ctx, env, opts, paths)
}

// collectAll gathers the drifting shots of every path into one table. Files
// the ledger has seen are read again so the table stays complete.
func collectAll(ctx context.Context, env *app.Env, opts *options, paths []string) error {
	env.Aggregate = true
	c := &collector{env: env, opts: opts}
	res, err := env.Runner().Run(ctx, paths, c.collect)
	if err == nil {
		err = c.write(ctx)
	}
	return env.Finish(ctx, res, err)
}

type collector struct {
	env  *app.Env
	opts *options

	mu    sync.Mutex
	shots []qc.DriftShot
}

// collect decodes a report with the first encoding whose text holds the
// drift header, then keeps the shots over the threshold
func (c *collector) collect(ctx context.Context, file string) error {
	rec, skip, err := c.env.Begin(ctx, file)
	if err != nil {
		return err
	}
	if skip {
		c.env.Skipped(ctx, rec)
		return nil
	}

	text, enc, err := textenc.ProbeFile(file, textenc.Contains(c.opts.column))
	if err != nil {
		return err
	}
	rep, err := report.Parse(ctx, strings.NewReader(text), file)
	if err != nil {
		return err
	}
	rec.Encoding = enc

	sec := qc.FindSection(rep, qc.ShotColumn, c.opts.column)
	if sec == nil {
		return &qc.ColumnError{Table: file, Column: c.opts.column}
	}
	shots, err := qc.ShotsOverThreshold(rec.LineName, sec, c.opts.column, c.opts.threshold)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.shots = append(c.shots, shots...)
	c.mu.Unlock()

	c.env.Stats.AddSections(1)
	c.env.Done(ctx, rec, len(sec.Rows), 0, nil)
	return nil
}

// write stores every collected shot ordered by shot number
func (c *collector) write(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	qc.SortDriftShots(c.shots)
	rows := make([][]string, len(c.shots))
	for i, s := range c.shots {
		rows[i] = []string{s.LineName, s.ShotPoint, strconv.FormatFloat(s.Drift, 'f', -1, 64)}
	}
	out, err := c.env.Store.WriteTable(c.opts.output, []string{"line_name", qc.ShotColumn, c.opts.column}, rows)
	if err != nil {
		return err
	}
	c.env.Stats.AddOutput(out)
	c.env.Stats.AddRows(len(rows))

	if c.env.DB != nil && len(c.shots) > 0 {
		if err := c.env.DB.SaveDriftShots(ctx, c.env.Stats.RunID, c.shots); err != nil {
			return fmt.Errorf("failed to save drift shots: %w", err)
		}
	}
	c.env.Logger.InfoContext(ctx, "wrote results", "path", out, "shots", len(rows))
	return nil
}
