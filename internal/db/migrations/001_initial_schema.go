package migrations

// InitialSchema creates the processed-file ledger, line geometry and run statistics tables
var InitialSchema = &Migration{
	ID:   "001_initial_schema",
	Name: "001_initial_schema",
	UpSQL: `
		-- Processed report files; sections are stored in per-title tables keyed by file_id
		CREATE TABLE IF NOT EXISTS eol_files (
			id BIGSERIAL PRIMARY KEY,
			file_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			line_name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			encoding TEXT NOT NULL,
			sections INTEGER NOT NULL,
			row_count INTEGER NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (file_name, checksum)
		);

		CREATE INDEX IF NOT EXISTS idx_eol_files_line_name ON eol_files (line_name);

		-- Line endpoints and geometry from preplot files
		CREATE TABLE IF NOT EXISTS preplot_lines (
			run_id UUID NOT NULL,
			source TEXT NOT NULL,
			line_name TEXT NOT NULL,
			records INTEGER NOT NULL,
			start_sp INTEGER NOT NULL,
			end_sp INTEGER NOT NULL,
			start_easting DOUBLE PRECISION NOT NULL,
			start_northing DOUBLE PRECISION NOT NULL,
			end_easting DOUBLE PRECISION NOT NULL,
			end_northing DOUBLE PRECISION NOT NULL,
			delta_east DOUBLE PRECISION NOT NULL,
			delta_north DOUBLE PRECISION NOT NULL,
			azimuth DOUBLE PRECISION,
			length DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, source, line_name)
		);

		-- One row per tool run
		CREATE TABLE IF NOT EXISTS run_stats (
			run_id UUID PRIMARY KEY,
			tool TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			files BIGINT NOT NULL,
			skipped_files BIGINT NOT NULL,
			failed_files BIGINT NOT NULL,
			records BIGINT NOT NULL,
			decode_failures BIGINT NOT NULL,
			sections BIGINT NOT NULL,
			rows_written BIGINT NOT NULL,
			outputs TEXT[] NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_run_stats_started_at ON run_stats (started_at DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS run_stats;
		DROP TABLE IF EXISTS preplot_lines;
		DROP TABLE IF EXISTS eol_files;
	`,
}
