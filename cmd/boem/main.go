package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/saviobatista/navqc/internal/app"
	"github.com/saviobatista/navqc/internal/config"
	"github.com/saviobatista/navqc/internal/geodetic"
	"github.com/saviobatista/navqc/internal/qc"
	"github.com/saviobatista/navqc/internal/types"
)

const tool = "boem"

func main() {
	if err := runBOEM(os.Args[1:]); err != nil {
		slog.Error("boem failed", "error", err)
		os.Exit(1)
	}
}

func runBOEM(args []string) error {
	var points bool
	cfg, rest, err := app.Parse(tool, args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.BoolVar(&points, "points", true, "Also write the decoded source positions")
	})
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

	r := &reporter{env: env, points: points}
	res, err := env.Runner().Run(ctx, paths, r.process)
	return env.Finish(ctx, res, err)
}

type reporter struct {
	env    *app.Env
	points bool
}

// process decodes the S-records of one P190 file and reports the shooting
// time per julian day
func (r *reporter) process(ctx context.Context, file string) error {
	rec, skip, err := r.env.Begin(ctx, file)
	if err != nil {
		return err
	}
	if skip {
		r.env.Skipped(ctx, rec)
		return nil
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	policy := geodetic.AbortOnError
	var failures []*geodetic.DecodeError
	if !r.env.Config.Strict {
		policy = geodetic.Collect(&failures)
	}
	pts, err := geodetic.ReadPoints(ctx, f, file, geodetic.BOEM, policy)
	if err != nil {
		return err
	}
	for _, de := range failures {
		r.env.Logger.WarnContext(ctx, "skipping undecodable record", "file", file, "line", de.LineNo, "error", de.Err)
	}

	days, err := qc.DailyShotTime(pts)
	if err != nil {
		return err
	}

	stem := app.Stem(file)
	var outputs []string
	out, err := r.env.Store.WriteTable(stem+"_daily_shot_time.csv", []string{"julian_day", "lines", "shot_time"}, dayRows(days))
	if err != nil {
		return err
	}
	outputs = append(outputs, out)
	r.env.Stats.AddRows(len(days))

	if r.points {
		out, err := r.env.Store.WriteTable(stem+"_points.csv", pointHeader, pointRows(pts))
		if err != nil {
			return err
		}
		outputs = append(outputs, out)
		r.env.Stats.AddRows(len(pts))
	}

	if r.env.DB != nil {
		if err := r.env.DB.SaveDailyShotTime(ctx, r.env.Stats.RunID, days); err != nil {
			return fmt.Errorf("failed to save shot time: %w", err)
		}
	}

	r.env.Done(ctx, rec, len(pts), len(failures), outputs)
	return nil
}

func dayRows(days []qc.DayShotTime) [][]string {
	rows := make([][]string, len(days))
	for i, d := range days {
		rows[i] = []string{fmt.Sprintf("%03d", d.JulianDay), strconv.Itoa(d.Lines), qc.FormatDuration(d.Total)}
	}
	return rows
}

var pointHeader = []string{"line_name", "shot_point", "latitude", "longitude", "easting", "northing", "depth", "julian_day", "time"}

func pointRows(pts []types.RawPoint) [][]string {
	ftoa := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	rows := make([][]string, len(pts))
	for i, p := range pts {
		rows[i] = []string{
			p.LineName, strconv.Itoa(p.ShotPoint), ftoa(p.Latitude), ftoa(p.Longitude),
			ftoa(p.Easting), ftoa(p.Northing), ftoa(p.Depth), fmt.Sprintf("%03d", p.JulianDay), p.TimeOfDay,
		}
	}
	return rows
}
