// Package qc holds the quality-control measures computed over decoded
// navigation records and parsed report tables.
package qc

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/saviobatista/navqc/internal/types"
)

// Column names used by the report tools
const (
	ShotColumn    = "Shot #"
	SMAColumn     = "V1 SMA m"
	DriftColumn   = "A2 SP DDC m"
	HeadingColumn = "V1GY4 Obs °"
	EchoColumn    = "V1E1 Obs m"
	WSPColumn     = "V1WS1 Calc"
	BSPColumn     = "V1 BSP m/s"
)

// ColumnError is a QC column absent from its table
type ColumnError struct {
	Table  string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("table %q has no column %q", e.Table, e.Column)
}

// LineNameFromFile returns the part of a report file name before the first
// '-', or the name without extension when there is none.
// "5331111061-EOL_Report.csv" gives "5331111061".
func LineNameFromFile(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	if i := strings.IndexByte(base, '-'); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseNumber reads a numeric cell. Blank and non-numeric cells are not
// numbers.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ColumnMean averages the numeric values of a combined table column, ignoring
// missing and non-numeric cells. n is the number of values averaged.
func ColumnMean(t *types.CombinedTable, column string) (mean float64, n int, err error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return 0, 0, &ColumnError{Table: "combined", Column: column}
	}
	var sum float64
	for _, row := range t.Rows {
		if !row[idx].Valid {
			continue
		}
		if v, ok := parseNumber(row[idx].Value); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN(), 0, nil
	}
	return sum / float64(n), n, nil
}

// HighMean reports a file whose column mean is above a threshold
type HighMean struct {
	LineName string
	Mean     float64
	Samples  int
}

// CheckMean returns a HighMean when the column mean of t exceeds threshold
func CheckMean(lineName string, t *types.CombinedTable, column string, threshold float64) (*HighMean, error) {
	mean, n, err := ColumnMean(t, column)
	if err != nil {
		return nil, err
	}
	if n == 0 || mean <= threshold {
		return nil, nil
	}
	return &HighMean{LineName: lineName, Mean: mean, Samples: n}, nil
}
