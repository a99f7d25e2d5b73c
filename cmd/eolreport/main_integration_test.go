package main

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saviobatista/navqc/internal/db/migrations"
)

type testContainers struct {
	dbURL     string
	redisAddr string
}

func setupTestContainers(t *testing.T) *testContainers {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx, "postgres:14-alpine",
		postgres.WithDatabase("navqc"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	redisContainer, err := redis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections"),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisContainer.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	dbURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get PostgreSQL connection string: %v", err)
	}
	redisURI, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get Redis connection string: %v", err)
	}

	return &testContainers{dbURL: dbURL, redisAddr: strings.TrimPrefix(redisURI, "redis://")}
}

func TestRunEOLReport_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	isolate(t)

	containers := setupTestContainers(t)
	ctx := context.Background()

	db, err := sql.Open("postgres", containers.dbURL)
	require.NoError(t, err)
	defer db.Close()

	_, err = migrations.New(db).Migrate(ctx, migrations.All())
	require.NoError(t, err)

	input := eolFixture(t, t.TempDir())
	args := []string{"-out", t.TempDir(), "-db", containers.dbURL, "-redis", containers.redisAddr, input}
	require.NoError(t, runEOLReport(args))

	var files, depthRows, runs int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eol_files`).Scan(&files))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eol_gun_depth_m`).Scan(&depthRows))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_stats WHERE tool = 'eolreport'`).Scan(&runs))
	assert.Equal(t, 1, files)
	assert.Equal(t, 2, depthRows)
	assert.Equal(t, 1, runs)

	// the second run finds the file in the ledger
	require.NoError(t, runEOLReport(args))

	var skipped int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT skipped_files FROM run_stats WHERE tool = 'eolreport' ORDER BY finished_at DESC LIMIT 1`).Scan(&skipped))
	assert.Equal(t, 1, skipped)
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eol_gun_depth_m`).Scan(&depthRows))
	assert.Equal(t, 2, depthRows)
}
