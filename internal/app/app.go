// Package app wires configuration, logging, output storage, run statistics
// and the optional Postgres, Redis and NATS sinks for the command line tools.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/saviobatista/navqc/internal/batch"
	"github.com/saviobatista/navqc/internal/config"
	"github.com/saviobatista/navqc/internal/db"
	"github.com/saviobatista/navqc/internal/logging"
	"github.com/saviobatista/navqc/internal/nats"
	"github.com/saviobatista/navqc/internal/qc"
	"github.com/saviobatista/navqc/internal/redis"
	"github.com/saviobatista/navqc/internal/stats"
	"github.com/saviobatista/navqc/internal/storage"
	"github.com/saviobatista/navqc/internal/types"
)

// Env is everything a tool run needs. DB, Ledger and Events are nil when
// their sink is not configured.
type Env struct {
	Tool   string
	Config *config.Config
	Stats  *stats.Stats
	Store  *storage.Storage
	Logger *slog.Logger

	DB     *db.Client
	Ledger *redis.Client
	Events *nats.Client

	// Also consult the eol_files table in Begin
	FilesInDB bool
	// Every input feeds one output built across all files, so Begin never
	// skips a file the ledger has seen
	Aggregate bool
}

// Flags registers the options shared by every tool on fs, writing into cfg
func Flags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Output directory")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Files processed concurrently")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Abort on the first bad record or file")
	fs.BoolVar(&cfg.Compress, "compress", cfg.Compress, "Gzip output tables")
	fs.StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "Postgres connection string (empty disables)")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for the processed-file ledger (empty disables)")
	fs.StringVar(&cfg.NATSURL, "nats", cfg.NATSURL, "NATS URL for processed-file events (empty disables)")
	fs.DurationVar(&cfg.LedgerTTL, "ledger-ttl", cfg.LedgerTTL, "How long the ledger remembers a processed file (0 keeps it)")
	fs.BoolVar(&cfg.Reprocess, "reprocess", cfg.Reprocess, "Drop inputs from the ledger and process them again")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
}

// Parse loads the configuration, then applies command line flags over it.
// register adds the tool's own flags.
func Parse(tool string, args []string, register func(fs *flag.FlagSet, cfg *config.Config)) (*config.Config, []string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	Flags(fs, cfg)
	if register != nil {
		register(fs, cfg)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

// Setup initialises logging and connects the configured sinks. The returned
// context carries the run ID for log records.
func Setup(ctx context.Context, tool string, cfg *config.Config) (*Env, context.Context, error) {
	env := &Env{
		Tool:   tool,
		Config: cfg,
		Stats:  stats.New(tool),
		Store:  storage.New(cfg.OutputDir, cfg.Compress),
		Logger: logging.Init(cfg.LogLevel, cfg.LogFormat).With("tool", tool),
	}
	ctx = logging.WithRunID(ctx, env.Stats.RunID)

	if cfg.DatabaseURL != "" {
		client, err := db.New(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database client: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx)
		cancel()
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		env.DB = client
		env.Stats.SetStore(client)
	}
	if cfg.RedisAddr != "" {
		client, err := redis.New(cfg.RedisAddr)
		if err != nil {
			env.Close()
			return nil, nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
		client.SetTTL(cfg.LedgerTTL)
		env.Ledger = client
	}
	if cfg.NATSURL != "" {
		client, err := nats.New(cfg.NATSURL)
		if err != nil {
			env.Close()
			return nil, nil, fmt.Errorf("failed to create NATS client: %w", err)
		}
		env.Events = client
	}

	env.Logger.InfoContext(ctx, "run started", "output_dir", cfg.OutputDir, "workers", cfg.Workers,
		"database", env.DB != nil, "ledger", env.Ledger != nil, "events", env.Events != nil)
	return env, ctx, nil
}

// Close releases the sinks
func (e *Env) Close() {
	if e.Events != nil {
		e.Events.Close()
	}
	if e.Ledger != nil {
		if err := e.Ledger.Close(); err != nil {
			e.Logger.Warn("failed to close Redis client", "error", err)
		}
	}
	if e.DB != nil {
		if err := e.DB.Close(); err != nil {
			e.Logger.Warn("failed to close database client", "error", err)
		}
	}
}

// Runner returns the batch runner configured for this run
func (e *Env) Runner() batch.Runner {
	return batch.Runner{Workers: e.Config.Workers, FailFast: e.Config.Strict}
}

// Checksum returns the hex SHA-256 of a file's content
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Begin builds the file record for path and reports whether the ledger or
// the database has already seen this exact content. Nothing is skipped when
// reprocessing or for aggregating tools.
func (e *Env) Begin(ctx context.Context, path string) (*types.FileRecord, bool, error) {
	sum, err := Checksum(path)
	if err != nil {
		return nil, false, err
	}
	rec := &types.FileRecord{
		FileName: filepath.Base(path),
		FilePath: path,
		LineName: qc.LineNameFromFile(path),
		Checksum: sum,
	}

	if e.Config.Reprocess {
		if e.Ledger != nil {
			if err := e.Ledger.Forget(ctx, rec.FileName, rec.Checksum); err != nil {
				e.Logger.WarnContext(ctx, "failed to drop file from ledger", "file", rec.FileName, "error", err)
			}
		}
		return rec, false, nil
	}
	if e.Aggregate {
		return rec, false, nil
	}

	if e.Ledger != nil {
		seen, err := e.Ledger.IsProcessed(ctx, rec.FileName, rec.Checksum)
		if err != nil {
			e.Logger.WarnContext(ctx, "ledger lookup failed", "file", rec.FileName, "error", err)
		} else if seen {
			return rec, true, nil
		}
	}
	if e.DB != nil && e.FilesInDB {
		seen, err := e.DB.IsFileProcessed(ctx, rec.FileName, rec.Checksum)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check %s: %w", rec.FileName, err)
		}
		if seen {
			return rec, true, nil
		}
	}
	return rec, false, nil
}

// Skipped counts and logs a file that was processed before
func (e *Env) Skipped(ctx context.Context, rec *types.FileRecord) {
	e.Stats.AddSkipped(1)
	e.Logger.InfoContext(ctx, "skipping processed file", "file", rec.FileName, "checksum", rec.Checksum[:12])
}

// Done records a successfully processed file in the ledger, announces it and
// updates the run counters. Sink failures are logged, not returned.
func (e *Env) Done(ctx context.Context, rec *types.FileRecord, records, failures int, outputs []string) {
	rec.ProcessedAt = time.Now().UTC()
	e.Stats.AddFiles(1)
	e.Stats.AddRecords(records)
	e.Stats.AddDecodeFailures(failures)
	e.Stats.AddOutput(outputs...)

	if e.Ledger != nil {
		if err := e.Ledger.MarkProcessed(ctx, rec); err != nil {
			e.Logger.WarnContext(ctx, "failed to update ledger", "file", rec.FileName, "error", err)
		}
	}
	if e.Events != nil {
		ev := &types.ProcessedEvent{
			RunID:     e.Stats.RunID,
			Tool:      e.Tool,
			FilePath:  rec.FilePath,
			LineName:  rec.LineName,
			Records:   records,
			Failures:  failures,
			Outputs:   outputs,
			Timestamp: rec.ProcessedAt,
		}
		if err := e.Events.PublishProcessed(ev); err != nil {
			e.Logger.WarnContext(ctx, "failed to publish event", "file", rec.FileName, "error", err)
		}
	}
	e.Logger.InfoContext(ctx, "processed file", "file", rec.FileName, "records", records, "failures", failures, "outputs", len(outputs))
}

// Finish logs the run summary and persists it when a database is configured.
// It returns runErr, or the persistence error when runErr is nil.
func (e *Env) Finish(ctx context.Context, res *batch.Result, runErr error) error {
	if res != nil {
		e.Stats.AddFailed(len(res.Failed))
		if runErr == nil {
			runErr = res.Err()
		}
	}
	e.Logger.InfoContext(ctx, "run finished", e.Stats.LogArgs()...)
	e.Logger.DebugContext(ctx, "output tables", "files", e.Store.Written())

	if e.DB != nil {
		if err := e.Stats.Persist(context.WithoutCancel(ctx)); err != nil {
			e.Logger.ErrorContext(ctx, "failed to persist run statistics", "error", err)
			runErr = errors.Join(runErr, err)
		}
	}
	return runErr
}

// Inputs expands args into input files. Directories contribute their regular
// files whose extension is in exts (case-insensitive, all when exts is empty).
func Inputs(args []string, exts ...string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no input files given")
	}
	want := make(map[string]bool, len(exts))
	for _, x := range exts {
		want[strings.ToLower(x)] = true
	}

	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, ent := range entries {
			if !ent.Type().IsRegular() {
				continue
			}
			if len(want) > 0 && !want[strings.ToLower(filepath.Ext(ent.Name()))] {
				continue
			}
			found = append(found, filepath.Join(arg, ent.Name()))
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// Stem is a file's base name without its extension
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
