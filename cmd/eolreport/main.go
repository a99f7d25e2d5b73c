package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/saviobatista/navqc/internal/app"
	"github.com/saviobatista/navqc/internal/config"
	"github.com/saviobatista/navqc/internal/db"
	"github.com/saviobatista/navqc/internal/report"
	"github.com/saviobatista/navqc/internal/types"
	"github.com/saviobatista/navqc/internal/workbook"
)

const tool = "eolreport"

func main() {
	if err := runEOLReport(os.Args[1:]); err != nil {
		slog.Error("eolreport failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	keys  string
	xlsx  bool
	merge bool
}

func (o *options) keyList() []string {
	var keys []string
	for _, k := range strings.Split(o.keys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func runEOLReport(args []string) error {
	opts := &options{}
	cfg, rest, err := app.Parse(tool, args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&opts.keys, "keys", strings.Join(report.DefaultKeys, ","), "Comma separated join columns")
		fs.BoolVar(&opts.merge, "merge", true, "Write the outer join of all sections")
		fs.BoolVar(&opts.xlsx, "xlsx", false, "Also write the combined table as an XLSX workbook")
		fs.StringVar(&cfg.FillValue, "fill", cfg.FillValue, "Placeholder for cells missing from a section")
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
	env.FilesInDB = true

	p := &processor{env: env, opts: opts}
	res, err := env.Runner().Run(ctx, paths, p.process)
	return env.Finish(ctx, res, err)
}

type processor struct {
	env  *app.Env
	opts *options
}

// process parses one end-of-line report, writes each section and the merged
// table, and stores the sections in the database when one is configured
func (p *processor) process(ctx context.Context, file string) error {
	rec, skip, err := p.env.Begin(ctx, file)
	if err != nil {
		return err
	}
	if skip {
		p.env.Skipped(ctx, rec)
		return nil
	}

	rep, err := report.ParseFile(ctx, file)
	if err != nil {
		return err
	}
	rec.Encoding = rep.Encoding
	rec.Sections = len(rep.Sections)
	rec.Rows = rep.Rows()
	p.env.Stats.AddSections(len(rep.Sections))

	stem := app.Stem(file)
	var outputs []string
	names := sectionFileNames(rep.Sections)
	for i, sec := range rep.Sections {
		name := fmt.Sprintf("%s/%s.csv", stem, names[i])
		out, err := p.env.Store.WriteTable(name, sec.Headers, sec.Rows)
		if err != nil {
			return err
		}
		outputs = append(outputs, out)
		p.env.Stats.AddRows(len(sec.Rows))
	}

	if p.opts.merge && len(rep.Sections) > 0 {
		table, err := report.MergeOuter(rep.Sections, p.opts.keyList()...)
		if err != nil {
			return err
		}
		rows := table.Filled(p.env.Config.FillValue)
		out, err := p.env.Store.WriteTable(stem+"_combined.csv", table.Columns, rows)
		if err != nil {
			return err
		}
		outputs = append(outputs, out)
		p.env.Stats.AddRows(len(rows))

		if p.opts.xlsx {
			out, err := p.env.Store.WriteFile(stem+"_combined.xlsx", func(w io.Writer) error {
				return workbook.WriteTable(w, "Combined", table.Columns, rows)
			})
			if err != nil {
				return err
			}
			outputs = append(outputs, out)
		}
	}

	if p.env.DB != nil {
		if err := p.env.DB.SaveReport(ctx, rec, rep.Sections); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
	}

	p.env.Done(ctx, rec, rep.Rows(), 0, outputs)
	return nil
}

// sectionFileNames are the cleaned, per-report unique names of the sections
func sectionFileNames(sections []*types.ReportSection) []string {
	titles := make([]string, len(sections))
	for i, sec := range sections {
		titles[i] = sec.Title
	}
	return db.SectionNames(titles)
}
