package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"

	"github.com/saviobatista/navqc/internal/app"
	"github.com/saviobatista/navqc/internal/config"
	"github.com/saviobatista/navqc/internal/db"
	"github.com/saviobatista/navqc/internal/geodetic"
	"github.com/saviobatista/navqc/internal/geometry"
	"github.com/saviobatista/navqc/internal/interp"
	"github.com/saviobatista/navqc/internal/projection"
	"github.com/saviobatista/navqc/internal/storage"
	"github.com/saviobatista/navqc/internal/types"
)

const tool = "preplot"

func main() {
	if err := runPreplot(os.Args[1:]); err != nil {
		slog.Error("preplot failed", "error", err)
		os.Exit(1)
	}
}

// options are the tool's own flags
type options struct {
	format string
}

func runPreplot(args []string) error {
	opts := &options{}
	cfg, rest, err := app.Parse(tool, args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&opts.format, "format", geodetic.P190.Name, "Record format: p190 or 4d")
		fs.Float64Var(&cfg.SpacingMeters, "spacing", cfg.SpacingMeters, "Shot spacing in metres")
		fs.IntVar(&cfg.UTMZone, "zone", cfg.UTMZone, "UTM zone number")
		fs.BoolVar(&cfg.Southern, "southern", cfg.Southern, "UTM zone is in the southern hemisphere")
		fs.StringVar(&cfg.Datum, "datum", cfg.Datum, "Geodetic datum")
	})
	if err != nil {
		return err
	}
	format, err := geodetic.Lookup(opts.format)
	if err != nil {
		return err
	}
	paths, err := app.Inputs(rest)
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

	p := newProcessor(env, format)
	res, err := env.Runner().Run(ctx, paths, p.process)
	return env.Finish(ctx, res, err)
}

type processor struct {
	env    *app.Env
	format *geodetic.Format
	proj   interp.Projector
}

func newProcessor(env *app.Env, format *geodetic.Format) *processor {
	zone := projection.Zone{Number: env.Config.UTMZone, Northern: !env.Config.Southern, Datum: env.Config.Datum}
	return &processor{
		env:    env,
		format: format,
		proj:   projection.Bind(projection.UTMInverse, zone),
	}
}

// process writes, under a directory named after the input, lines.csv with
// each line's geometry, startpoints.csv and endpoints.csv, and one table of
// regularly spaced shots per line
func (p *processor) process(ctx context.Context, file string) error {
	rec, skip, err := p.env.Begin(ctx, file)
	if err != nil {
		return err
	}
	if skip {
		p.env.Skipped(ctx, rec)
		return nil
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	policy := geodetic.AbortOnError
	var failures []*geodetic.DecodeError
	if !p.env.Config.Strict {
		policy = geodetic.Collect(&failures)
	}
	points, err := geodetic.ReadPoints(ctx, f, file, p.format, policy)
	if err != nil {
		return err
	}
	for _, de := range failures {
		p.env.Logger.WarnContext(ctx, "skipping undecodable record", "file", file, "line", de.LineNo, "error", de.Err)
	}

	if p.format == geodetic.Preplot4D {
		points = geometry.SortByShotPoint(points)
	}
	lines, err := geometry.PairAndMeasure(points)
	var short *geometry.InsufficientPointsError
	if errors.As(err, &short) && !p.env.Config.Strict {
		p.env.Logger.WarnContext(ctx, "lines with a single record", "file", file, "lines", short.Lines)
	} else if err != nil {
		return err
	}

	dir := app.Stem(file)
	var outputs []string
	write := func(name string, header []string, rows [][]string) error {
		out, err := p.env.Store.WriteTable(path.Join(dir, name), header, rows)
		if err != nil {
			return err
		}
		outputs = append(outputs, out)
		p.env.Stats.AddRows(len(rows))
		return nil
	}

	if err := write("lines.csv", lineHeader, lineRows(lines)); err != nil {
		return err
	}
	if err := write("startpoints.csv", pointHeader, pointRows(lines, func(l types.LineEndpoints) types.RawPoint { return l.Start })); err != nil {
		return err
	}
	if err := write("endpoints.csv", pointHeader, pointRows(lines, func(l types.LineEndpoints) types.RawPoint { return l.End })); err != nil {
		return err
	}

	names := lineFileNames(lines)
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if line.Degenerate() {
			p.env.Logger.WarnContext(ctx, "line start and end coincide", "file", file, "line", line.LineName)
		}
		shots, err := interp.Interpolate(line, p.env.Config.SpacingMeters, p.proj)
		if err != nil {
			return fmt.Errorf("line %s: %w", line.LineName, err)
		}
		if err := write(names[i]+".csv", shotHeader, shotRows(shots)); err != nil {
			return err
		}
	}

	if p.env.DB != nil {
		if err := p.env.DB.SaveLines(ctx, p.env.Stats.RunID, file, lines); err != nil {
			return fmt.Errorf("failed to save lines: %w", err)
		}
	}

	p.env.Done(ctx, rec, len(points), len(failures), outputs)
	return nil
}

// summaryTables are written next to the per-line tables
var summaryTables = []string{"lines", "startpoints", "endpoints"}

// lineFileNames maps line names to unique file names in the output
// directory. Line names come from the input records and may hold path
// separators.
func lineFileNames(lines []types.LineEndpoints) []string {
	names := append([]string(nil), summaryTables...)
	for _, l := range lines {
		names = append(names, storage.SafeName(l.LineName, "line"))
	}
	return db.Uniquify(names)[len(summaryTables):]
}

var (
	lineHeader = []string{
		"line_name", "records", "start_sp", "end_sp", "start_easting", "start_northing",
		"end_easting", "end_northing", "delta_east", "delta_north", "azimuth", "length",
	}
	pointHeader = []string{"line_name", "shot_point", "latitude", "longitude", "easting", "northing"}
	shotHeader  = []string{"line_name", "shot_point", "easting", "northing", "latitude", "longitude"}
)

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lineRows(lines []types.LineEndpoints) [][]string {
	rows := make([][]string, len(lines))
	for i, l := range lines {
		azimuth := ""
		if !l.Degenerate() {
			azimuth = ftoa(l.Azimuth)
		}
		rows[i] = []string{
			l.LineName, strconv.Itoa(l.Records), strconv.Itoa(l.Start.ShotPoint), strconv.Itoa(l.End.ShotPoint),
			ftoa(l.Start.Easting), ftoa(l.Start.Northing), ftoa(l.End.Easting), ftoa(l.End.Northing),
			ftoa(l.DeltaEast), ftoa(l.DeltaNorth), azimuth, ftoa(l.Length),
		}
	}
	return rows
}

func pointRows(lines []types.LineEndpoints, pick func(types.LineEndpoints) types.RawPoint) [][]string {
	rows := make([][]string, len(lines))
	for i, l := range lines {
		pt := pick(l)
		rows[i] = []string{
			l.LineName, strconv.Itoa(pt.ShotPoint), ftoa(pt.Latitude), ftoa(pt.Longitude), ftoa(pt.Easting), ftoa(pt.Northing),
		}
	}
	return rows
}

func shotRows(shots []types.InterpolatedShot) [][]string {
	rows := make([][]string, len(shots))
	for i, s := range shots {
		rows[i] = []string{
			s.LineName, strconv.Itoa(s.ShotPoint), ftoa(s.Easting), ftoa(s.Northing), ftoa(s.Latitude), ftoa(s.Longitude),
		}
	}
	return rows
}
