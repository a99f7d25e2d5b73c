package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/saviobatista/navqc/internal/config"
	"github.com/saviobatista/navqc/internal/db"
	"github.com/saviobatista/navqc/internal/logging"
	"github.com/saviobatista/navqc/internal/nats"
	"github.com/saviobatista/navqc/internal/types"
)

const usage = "usage: monitor runs|follow [flags]"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("monitor failed", "error", err)
		os.Exit(1)
	}
}

// options are the parsed command line
type options struct {
	command string
	dbURL   string
	natsURL string
	tool    string
	since   time.Duration
}

func parseFlags(args []string, cfg *config.Config) (*options, error) {
	if len(args) == 0 {
		return nil, errors.New(usage)
	}
	opts := &options{command: args[0]}

	fs := flag.NewFlagSet("monitor "+opts.command, flag.ContinueOnError)
	fs.StringVar(&opts.tool, "tool", "", "Only show this tool (empty shows all)")
	switch opts.command {
	case "runs":
		fs.StringVar(&opts.dbURL, "db", cfg.DatabaseURL, "Database connection string")
		fs.DurationVar(&opts.since, "since", 24*time.Hour, "How far back to list runs")
	case "follow":
		fs.StringVar(&opts.natsURL, "nats", cfg.NATSURL, "NATS URL")
	default:
		return nil, fmt.Errorf("unknown command %q: %s", opts.command, usage)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	switch {
	case opts.command == "runs" && opts.dbURL == "":
		return nil, fmt.Errorf("no database configured: set %s_DATABASE_URL or -db", config.Prefix)
	case opts.command == "follow" && opts.natsURL == "":
		return nil, fmt.Errorf("no NATS server configured: set %s_NATS_URL or -nats", config.Prefix)
	case opts.since <= 0 && opts.command == "runs":
		return nil, fmt.Errorf("-since must be positive, got %s", opts.since)
	}
	return opts, nil
}

func run(args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	opts, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch opts.command {
	case "runs":
		client, err := db.New(opts.dbURL)
		if err != nil {
			return fmt.Errorf("failed to create database client: %w", err)
		}
		defer client.Close()
		return listRuns(ctx, client, opts.tool, time.Now().Add(-opts.since), time.Now(), out)
	default:
		client, err := nats.New(opts.natsURL)
		if err != nil {
			return fmt.Errorf("failed to create NATS client: %w", err)
		}
		defer client.Close()
		return follow(ctx, client, opts.tool, out)
	}
}

// runSource is the part of the database client listRuns reads from
type runSource interface {
	GetRunStats(ctx context.Context, start, end time.Time) ([]types.RunStats, error)
}

var runHeader = []string{
	"run_id", "tool", "started_at", "finished_at", "files", "skipped_files", "failed_files",
	"records", "decode_failures", "sections", "rows_written", "outputs",
}

// listRuns writes the runs started between start and end as CSV, newest first
func listRuns(ctx context.Context, src runSource, tool string, start, end time.Time, out io.Writer) error {
	runs, err := src.GetRunStats(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to read run statistics: %w", err)
	}

	w := csv.NewWriter(out)
	if err := w.Write(runHeader); err != nil {
		return err
	}
	for _, r := range runs {
		if tool != "" && r.Tool != tool {
			continue
		}
		if err := w.Write([]string{
			r.RunID, r.Tool, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
			itoa(r.Files), itoa(r.SkippedFiles), itoa(r.FailedFiles),
			itoa(r.Records), itoa(r.DecodeFailures), itoa(r.Sections), itoa(r.RowsWritten),
			strconv.Itoa(len(r.Outputs)),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

// follow prints every processed-file event as one JSON line until ctx ends
func follow(ctx context.Context, client *nats.Client, tool string, out io.Writer) error {
	handler, errc := eventPrinter(out)
	sub, err := client.SubscribeProcessed(tool, handler)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	slog.InfoContext(ctx, "following processed files", "tool", tool)
	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}

// eventPrinter returns a handler writing events to out and a channel that
// receives the first write error
func eventPrinter(out io.Writer) (func(*types.ProcessedEvent), <-chan error) {
	var mu sync.Mutex
	enc := json.NewEncoder(out)
	errc := make(chan error, 1)
	return func(ev *types.ProcessedEvent) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(ev); err != nil {
			select {
			case errc <- fmt.Errorf("failed to write event: %w", err):
			default:
			}
		}
	}, errc
}
