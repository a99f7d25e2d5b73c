package types

import (
	"math"
	"time"
)

// RawPoint is one decoded geodetic record
type RawPoint struct {
	LineName  string  `json:"line_name"`
	ShotPoint int     `json:"shot_point"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Easting   float64 `json:"easting"`
	Northing  float64 `json:"northing"`

	// Only populated by formats that carry them (BOEM S-records)
	Depth     float64 `json:"depth,omitempty"`
	JulianDay int     `json:"julian_day,omitempty"`
	TimeOfDay string  `json:"time_of_day,omitempty"`

	// 1-based line number in the source file
	LineNo int `json:"line_no"`
}

// LineEndpoints holds the first and last point seen for a line name and the
// geometry derived from them
type LineEndpoints struct {
	LineName   string   `json:"line_name"`
	Start      RawPoint `json:"start"`
	End        RawPoint `json:"end"`
	Records    int      `json:"records"`
	DeltaEast  float64  `json:"delta_east"`
	DeltaNorth float64  `json:"delta_north"`
	Azimuth    float64  `json:"azimuth"`
	Length     float64  `json:"length"`
}

// Degenerate reports whether start and end coincide, leaving the azimuth undefined
func (l LineEndpoints) Degenerate() bool {
	return math.IsNaN(l.Azimuth)
}

// InterpolatedShot is a synthesized shot along a line at a nominal spacing
type InterpolatedShot struct {
	LineName  string  `json:"line_name"`
	ShotPoint int     `json:"shot_point"`
	Easting   float64 `json:"easting"`
	Northing  float64 `json:"northing"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ReportSection is one titled table of a sectioned report
type ReportSection struct {
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	// Parsed values of the Time column, parallel to Rows. Nil when the
	// section has no Time column.
	Times []time.Time `json:"times,omitempty"`
	// Source line number of each row, parallel to Rows
	LineNos []int `json:"line_nos,omitempty"`
}

// ColumnIndex returns the position of the named column, or -1
func (s *ReportSection) ColumnIndex(name string) int {
	for i, h := range s.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns every value of the named column, or nil if absent
func (s *ReportSection) Column(name string) []string {
	idx := s.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	values := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		values[i] = row[idx]
	}
	return values
}

// Cell is a nullable merged value
type Cell struct {
	Value string `json:"value"`
	Valid bool   `json:"valid"`
}

// CombinedTable is the outer join of several sections
type CombinedTable struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// ColumnIndex returns the position of the named column, or -1
func (t *CombinedTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Filled renders the table as strings, replacing missing cells with placeholder
func (t *CombinedTable) Filled(placeholder string) [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, c := range row {
			if c.Valid {
				rec[j] = c.Value
			} else {
				rec[j] = placeholder
			}
		}
		out[i] = rec
	}
	return out
}

// FileRecord is a processed input file as stored in the ledger
type FileRecord struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	FilePath    string    `json:"file_path"`
	LineName    string    `json:"line_name"`
	Checksum    string    `json:"checksum"`
	Encoding    string    `json:"encoding"`
	Sections    int       `json:"sections"`
	Rows        int       `json:"rows"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ProcessedEvent announces that a tool finished with one input file
type ProcessedEvent struct {
	RunID     string    `json:"run_id"`
	Tool      string    `json:"tool"`
	FilePath  string    `json:"file_path"`
	LineName  string    `json:"line_name"`
	Records   int       `json:"records"`
	Failures  int       `json:"failures"`
	Outputs   []string  `json:"outputs"`
	Timestamp time.Time `json:"timestamp"`
}

// RunStats summarises one tool run
type RunStats struct {
	RunID          string    `json:"run_id"`
	Tool           string    `json:"tool"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Files          int64     `json:"files"`
	SkippedFiles   int64     `json:"skipped_files"`
	FailedFiles    int64     `json:"failed_files"`
	Records        int64     `json:"records"`
	DecodeFailures int64     `json:"decode_failures"`
	Sections       int64     `json:"sections"`
	RowsWritten    int64     `json:"rows_written"`
	Outputs        []string  `json:"outputs"`
}
