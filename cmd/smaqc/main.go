package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"
	"syscall"

	"github.com/saviobatista/navqc/internal/app"
	"github.com/saviobatista/navqc/internal/config"
	"github.com/saviobatista/navqc/internal/qc"
	"github.com/saviobatista/navqc/internal/report"
)

const tool = "smaqc"

func main() {
	if err := runSMAQC(os.Args[1:]); err != nil {
		slog.Error("smaqc failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	column    string
	threshold float64
	output    string
}

func runSMAQC(args []string) error {
	opts := &options{}
	cfg, rest, err := app.Parse(tool, args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&opts.column, "column", qc.SMAColumn, "Column to average")
		fs.Float64Var(&opts.threshold, "threshold", 1.0, "Report files whose mean is above this value")
		fs.StringVar(&opts.output, "o", "high_sma.csv", "Output table name")
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

	return checkAll(ctx, env, opts, paths)
}

// checkAll runs the check over every path and writes the flagged files.
// The table covers all inputs, so files the ledger has seen are read again.
func checkAll(ctx context.Context, env *app.Env, opts *options, paths []string) error {
	env.Aggregate = true
	c := &checker{env: env, opts: opts}
	res, err := env.Runner().Run(ctx, paths, c.check)
	if err == nil {
		err = c.write(ctx)
	}
	return env.Finish(ctx, res, err)
}

type checker struct {
	env  *app.Env
	opts *options

	mu   sync.Mutex
	high []*qc.HighMean
}

// check merges the sections of one report and compares the column mean
// against the threshold
func (c *checker) check(ctx context.Context, file string) error {
	rec, skip, err := c.env.Begin(ctx, file)
	if err != nil {
		return err
	}
	if skip {
		c.env.Skipped(ctx, rec)
		return nil
	}

	rep, err := report.ParseFile(ctx, file)
	if err != nil {
		return err
	}
	table, err := report.MergeOuter(rep.Sections)
	if err != nil {
		return err
	}
	h, err := qc.CheckMean(rec.LineName, table, c.opts.column, c.opts.threshold)
	if err != nil {
		return err
	}

	if h != nil {
		c.env.Logger.InfoContext(ctx, "mean above threshold", "line", h.LineName, "mean", h.Mean, "samples", h.Samples)
		c.mu.Lock()
		c.high = append(c.high, h)
		c.mu.Unlock()
		if c.env.DB != nil {
			if err := c.env.DB.SaveHighMean(ctx, c.env.Stats.RunID, c.opts.column, h); err != nil {
				return fmt.Errorf("failed to save result: %w", err)
			}
		}
	}

	c.env.Stats.AddSections(len(rep.Sections))
	c.env.Done(ctx, rec, len(table.Rows), 0, nil)
	return nil
}

// write stores the flagged files sorted by line name
func (c *checker) write(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sort.Slice(c.high, func(i, j int) bool { return c.high[i].LineName < c.high[j].LineName })
	rows := make([][]string, len(c.high))
	for i, h := range c.high {
		rows[i] = []string{h.LineName, strconv.FormatFloat(h.Mean, 'f', -1, 64), strconv.Itoa(h.Samples)}
	}
	out, err := c.env.Store.WriteTable(c.opts.output, []string{"line_name", "mean", "samples"}, rows)
	if err != nil {
		return err
	}
	c.env.Stats.AddOutput(out)
	c.env.Stats.AddRows(len(rows))
	c.env.Logger.InfoContext(ctx, "wrote results", "path", out, "flagged", len(rows))
	return nil
}
