package migrations

// QCResults stores the findings of the QC tools
var QCResults = &Migration{
	ID:   "002_qc_results",
	Name: "002_qc_results",
	UpSQL: `
	CREATE TABLE IF NOT EXISTS qc_drift_shots (
		run_id UUID NOT NULL,
		line_name TEXT NOT NULL,
		shot_point TEXT NOT NULL,
		drift DOUBLE PRECISION NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_qc_drift_shots_line ON qc_drift_shots (line_name);

	CREATE TABLE IF NOT EXISTS qc_high_means (
		run_id UUID NOT NULL,
		line_name TEXT NOT NULL,
		column_name TEXT NOT NULL,
		mean DOUBLE PRECISION NOT NULL,
		samples INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS qc_daily_shot_time (
		run_id UUID NOT NULL,
		julian_day INTEGER NOT NULL,
		lines INTEGER NOT NULL,
		total_seconds BIGINT NOT NULL,
		PRIMARY KEY (run_id, julian_day)
	);
	`,
	DownSQL: `
	DROP TABLE IF EXISTS qc_daily_shot_time;
	DROP TABLE IF EXISTS qc_high_means;
	DROP TABLE IF EXISTS qc_drift_shots;
	`,
}
