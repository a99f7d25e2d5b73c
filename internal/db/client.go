package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/saviobatista/navqc/internal/qc"
	"github.com/saviobatista/navqc/internal/types"
)

// TimeHeader is stored as a timestamp column when the section carries parsed times
const TimeHeader = "Time"

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// NewWithDB wraps an open connection (useful for testing)
func NewWithDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// DB exposes the connection for the migrator
func (c *Client) DB() *sql.DB {
	return c.db
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Warn("failed to rollback transaction", "error", err)
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// copyRows bulk loads rows with COPY
func copyRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]interface{}) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to copy row into %s: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush copy into %s: %w", table, err)
	}
	return nil
}

// IsFileProcessed reports whether a file with this name and checksum was saved before
func (c *Client) IsFileProcessed(ctx context.Context, fileName, checksum string) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM eol_files WHERE file_name = $1 AND checksum = $2)`,
		fileName, checksum,
	).Scan(&exists)
	return exists, err
}

// SaveReport records a processed report file and stores each section in its
// own table, all in one transaction. The file's ID is set on success.
func (c *Client) SaveReport(ctx context.Context, file *types.FileRecord, sections []*types.ReportSection) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO eol_files (
				file_name, file_path, line_name, checksum, encoding, sections, row_count, processed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (file_name, checksum) DO UPDATE SET processed_at = EXCLUDED.processed_at
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, query,
			file.FileName, file.FilePath, file.LineName, file.Checksum, file.Encoding,
			file.Sections, file.Rows, file.ProcessedAt,
		).Scan(&file.ID); err != nil {
			return fmt.Errorf("failed to record file %s: %w", file.FileName, err)
		}

		titles := make([]string, len(sections))
		for i, sec := range sections {
			titles[i] = sec.Title
		}
		tables := SectionTables(titles)
		for i, sec := range sections {
			if err := saveSection(ctx, tx, tables[i], file.ID, file.LineName, sec); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveSection(ctx context.Context, tx *sql.Tx, table string, fileID int64, lineName string, sec *types.ReportSection) error {
	columns := CleanColumns(sec.Headers)

	timeIdx := -1
	if sec.Times != nil {
		timeIdx = sec.ColumnIndex(TimeHeader)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		kind := "TEXT"
		if i == timeIdx {
			kind = "TIMESTAMPTZ"
		}
		defs[i] = pq.QuoteIdentifier(col) + " " + kind
	}

	create := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (file_id BIGINT NOT NULL REFERENCES eol_files(id) ON DELETE CASCADE, line_name TEXT NOT NULL, %s)`,
		pq.QuoteIdentifier(table), strings.Join(defs, ", "),
	)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	// later files may carry columns the table was not created with
	for _, def := range defs {
		alter := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s`, pq.QuoteIdentifier(table), def)
		if _, err := tx.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("failed to extend table %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE file_id = $1`, pq.QuoteIdentifier(table)), fileID,
	); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", table, err)
	}

	rows := make([][]interface{}, len(sec.Rows))
	for i, row := range sec.Rows {
		vals := make([]interface{}, 0, len(row)+2)
		vals = append(vals, fileID, lineName)
		for j, v := range row {
			switch {
			case j == timeIdx:
				vals = append(vals, sec.Times[i])
			case strings.TrimSpace(v) == "":
				vals = append(vals, nil)
			default:
				vals = append(vals, v)
			}
		}
		rows[i] = vals
	}

	return copyRows(ctx, tx, table, append([]string{"file_id", "line_name"}, columns...), rows)
}

// nullable maps NaN to NULL
func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// SaveLines stores the endpoints and geometry of preplot lines
func (c *Client) SaveLines(ctx context.Context, runID, source string, lines []types.LineEndpoints) error {
	columns := []string{
		"run_id", "source", "line_name", "records", "start_sp", "end_sp",
		"start_easting", "start_northing", "end_easting", "end_northing",
		"delta_east", "delta_north", "azimuth", "length",
	}
	rows := make([][]interface{}, len(lines))
	for i, l := range lines {
		rows[i] = []interface{}{
			runID, source, l.LineName, l.Records, l.Start.ShotPoint, l.End.ShotPoint,
			l.Start.Easting, l.Start.Northing, l.End.Easting, l.End.Northing,
			l.DeltaEast, l.DeltaNorth, nullable(l.Azimuth), l.Length,
		}
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		return copyRows(ctx, tx, "preplot_lines", columns, rows)
	})
}

// SaveDriftShots stores shots over the drift threshold
func (c *Client) SaveDriftShots(ctx context.Context, runID string, shots []qc.DriftShot) error {
	rows := make([][]interface{}, len(shots))
	for i, s := range shots {
		rows[i] = []interface{}{runID, s.LineName, s.ShotPoint, s.Drift}
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		return copyRows(ctx, tx, "qc_drift_shots", []string{"run_id", "line_name", "shot_point", "drift"}, rows)
	})
}

// SaveHighMean stores a file whose column mean was over the threshold
func (c *Client) SaveHighMean(ctx context.Context, runID, column string, h *qc.HighMean) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO qc_high_means (run_id, line_name, column_name, mean, samples) VALUES ($1, $2, $3, $4, $5)`,
		runID, h.LineName, column, h.Mean, h.Samples,
	)
	return err
}

// SaveDailyShotTime stores shooting time per julian day
func (c *Client) SaveDailyShotTime(ctx context.Context, runID string, days []qc.DayShotTime) error {
	rows := make([][]interface{}, len(days))
	for i, d := range days {
		rows[i] = []interface{}{runID, d.JulianDay, d.Lines, int64(d.Total / time.Second)}
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		return copyRows(ctx, tx, "qc_daily_shot_time", []string{"run_id", "julian_day", "lines", "total_seconds"}, rows)
	})
}

// StoreRunStats stores the summary of one run
func (c *Client) StoreRunStats(ctx context.Context, s types.RunStats) error {
	query := `
		INSERT INTO run_stats (
			run_id, tool, started_at, finished_at, files, skipped_files, failed_files,
			records, decode_failures, sections, rows_written, outputs
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	outputs := s.Outputs
	if outputs == nil {
		outputs = []string{}
	}
	_, err := c.db.ExecContext(ctx, query,
		s.RunID, s.Tool, s.StartedAt, s.FinishedAt, s.Files, s.SkippedFiles, s.FailedFiles,
		s.Records, s.DecodeFailures, s.Sections, s.RowsWritten, pq.Array(outputs),
	)
	return err
}

// GetRunStats retrieves run statistics for a time range, newest first
func (c *Client) GetRunStats(ctx context.Context, start, end time.Time) ([]types.RunStats, error) {
	query := `
		SELECT
			run_id, tool, started_at, finished_at, files, skipped_files, failed_files,
			records, decode_failures, sections, rows_written, outputs
		FROM run_stats
		WHERE started_at BETWEEN $1 AND $2
		ORDER BY started_at DESC
	`
	rows, err := c.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []types.RunStats
	for rows.Next() {
		var s types.RunStats
		if err := rows.Scan(
			&s.RunID, &s.Tool, &s.StartedAt, &s.FinishedAt, &s.Files, &s.SkippedFiles, &s.FailedFiles,
			&s.Records, &s.DecodeFailures, &s.Sections, &s.RowsWritten, pq.Array(&s.Outputs),
		); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
