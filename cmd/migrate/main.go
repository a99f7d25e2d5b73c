package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/saviobatista/navqc/internal/config"
	"github.com/saviobatista/navqc/internal/db/migrations"
	"github.com/saviobatista/navqc/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

// options are the parsed command line
type options struct {
	dbURL    string
	rollback bool
}

func parseFlags(args []string, cfg *config.Config) (*options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.dbURL, "db", cfg.DatabaseURL, "Database connection string")
	fs.BoolVar(&opts.rollback, "rollback", false, "Rollback the last migration")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.dbURL == "" {
		return nil, fmt.Errorf("no database configured: set %s_DATABASE_URL or -db", config.Prefix)
	}
	return opts, nil
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	opts, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", opts.dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return execute(ctx, migrations.New(db), opts.rollback)
}

func execute(ctx context.Context, migrator *migrations.Migrator, rollback bool) error {
	if rollback {
		name, err := migrator.Rollback(ctx, migrations.All())
		if err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		slog.Info("rolled back migration", "name", name)
		return nil
	}

	applied, err := migrator.Migrate(ctx, migrations.All())
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if len(applied) == 0 {
		slog.Info("database schema is up to date")
	}
	for _, name := range applied {
		slog.Info("applied migration", "name", name)
	}
	return nil
}
