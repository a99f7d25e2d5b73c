package main

import (
	"context"
	"flag"
	"io"
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
	"github.com/saviobatista/navqc/internal/storage"
	"github.com/saviobatista/navqc/internal/workbook"
)

const tool = "speedqc"

func main() {
	if err := runSpeedQC(os.Args[1:]); err != nil {
		slog.Error("speedqc failed", "error", err)
		os.Exit(1)
	}
}

func runSpeedQC(args []string) error {
	var summary string
	cfg, rest, err := app.Parse(tool, args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&summary, "summary", "speed_summary.csv", "Per-line summary table name")
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

	c := &comparer{env: env, books: storage.New(env.Store.Dir(), false)}
	res, err := env.Runner().Run(ctx, paths, c.compare)
	if err == nil {
		err = c.write(ctx, summary)
	}
	return env.Finish(ctx, res, err)
}

type comparer struct {
	env *app.Env
	// workbooks are already zip containers and are never gzipped
	books *storage.Storage

	mu    sync.Mutex
	lines []*qc.SpeedComparison
}

// compare reads the shot table of one AAT report and writes its speed
// comparison workbook
func (c *comparer) compare(ctx context.Context, file string) error {
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
	sec := qc.FindSection(rep, qc.ShotColumn, qc.HeadingColumn, qc.WSPColumn, qc.BSPColumn)
	if sec == nil {
		return &qc.ColumnError{Table: file, Column: qc.BSPColumn}
	}
	cmp, err := qc.CompareSpeeds(rec.LineName, sec)
	if err != nil {
		return err
	}
	if cmp.Skipped > 0 {
		c.env.Logger.WarnContext(ctx, "skipped non-numeric rows", "file", file, "rows", cmp.Skipped)
	}

	out, err := c.books.WriteFile(rec.LineName+"_speed.xlsx", func(w io.Writer) error {
		return workbook.WriteSpeedComparison(w, cmp)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.lines = append(c.lines, cmp)
	c.mu.Unlock()

	c.env.Stats.AddSections(1)
	c.env.Stats.AddRows(len(cmp.Rows))
	c.env.Done(ctx, rec, len(sec.Rows), cmp.Skipped, []string{out})
	return nil
}

func (c *comparer) write(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sort.Slice(c.lines, func(i, j int) bool { return c.lines[i].LineName < c.lines[j].LineName })
	ftoa := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	rows := make([][]string, len(c.lines))
	for i, l := range c.lines {
		rows[i] = []string{l.LineName, strconv.Itoa(len(l.Rows)), ftoa(l.AvgBSP), ftoa(l.AvgWSP), ftoa(l.AvgHeading), l.Direction}
	}
	out, err := c.env.Store.WriteTable(name, []string{"line_name", "shots", "avg_bsp_knots", "avg_wsp_knots", "avg_heading", "direction"}, rows)
	if err != nil {
		return err
	}
	c.env.Stats.AddOutput(out)
	c.env.Logger.InfoContext(ctx, "wrote summary", "path", out, "lines", len(rows))
	return nil
}
