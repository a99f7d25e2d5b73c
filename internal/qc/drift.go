package qc

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/saviobatista/navqc/internal/report"
	"github.com/saviobatista/navqc/internal/types"
)

// DriftShot is a shot whose source drift exceeded the threshold
type DriftShot struct {
	LineName  string  `json:"line_name"`
	ShotPoint string  `json:"shot_point"`
	Drift     float64 `json:"drift"`
}

// FindSection returns the first section that has every column
func FindSection(rep *report.Report, columns ...string) *types.ReportSection {
	for _, s := range rep.Sections {
		found := true
		for _, c := range columns {
			if s.ColumnIndex(c) < 0 {
				found = false
				break
			}
		}
		if found {
			return s
		}
	}
	return nil
}

// ShotsOverThreshold keeps rows whose |column| is above threshold. Rows with
// a blank shot number or a non-numeric value are ignored.
func ShotsOverThreshold(lineName string, sec *types.ReportSection, column string, threshold float64) ([]DriftShot, error) {
	shotIdx := sec.ColumnIndex(ShotColumn)
	if shotIdx < 0 {
		return nil, &ColumnError{Table: sec.Title, Column: ShotColumn}
	}
	idx := sec.ColumnIndex(column)
	if idx < 0 {
		return nil, &ColumnError{Table: sec.Title, Column: column}
	}

	var out []DriftShot
	for _, row := range sec.Rows {
		shot := strings.TrimSpace(row[shotIdx])
		v, ok := parseNumber(row[idx])
		if shot == "" || !ok {
			continue
		}
		if math.Abs(v) > threshold {
			out = append(out, DriftShot{LineName: lineName, ShotPoint: shot, Drift: v})
		}
	}
	return out, nil
}

// SortDriftShots orders shots numerically by shot number, falling back to
// text order for non-numeric shot numbers
func SortDriftShots(shots []DriftShot) {
	sort.SliceStable(shots, func(i, j int) bool {
		a, errA := strconv.Atoi(shots[i].ShotPoint)
		b, errB := strconv.Atoi(shots[j].ShotPoint)
		if errA == nil && errB == nil {
			return a < b
		}
		return shots[i].ShotPoint < shots[j].ShotPoint
	})
}
