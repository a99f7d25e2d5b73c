package qc

import (
	"strings"

	"github.com/saviobatista/navqc/internal/types"
)

// KnotsPerMetrePerSecond converts m/s to knots
const KnotsPerMetrePerSecond = 1.94384

// SpeedRow is one shot of a boat speed against water speed comparison
type SpeedRow struct {
	ShotPoint string
	Time      string
	Heading   float64
	Echo      float64
	WSP       float64
	BSP       float64
	BSPKnots  float64
	WSPKnots  float64
}

// SpeedComparison summarises boat and water speed along one line
type SpeedComparison struct {
	LineName   string
	Rows       []SpeedRow
	Skipped    int
	AvgBSP     float64
	AvgWSP     float64
	AvgHeading float64
	Direction  string
}

// SpeedColumns is the column order of exported comparison tables
var SpeedColumns = []string{ShotColumn, "Time", HeadingColumn, EchoColumn, WSPColumn, BSPColumn, "BSP knots", "WSP knots"}

// LineDirection is 180° for a mean heading strictly between 90 and 270, 0° otherwise
func LineDirection(avgHeading float64) string {
	if avgHeading > 90 && avgHeading < 270 {
		return "180°"
	}
	return "0°"
}

// CompareSpeeds reads heading, echo sounder, water and boat speed per shot.
// Rows where any of them is not numeric are counted in Skipped.
func CompareSpeeds(lineName string, sec *types.ReportSection) (*SpeedComparison, error) {
	cols := []string{ShotColumn, "Time", HeadingColumn, EchoColumn, WSPColumn, BSPColumn}
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = sec.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, &ColumnError{Table: sec.Title, Column: c}
		}
	}

	cmp := &SpeedComparison{LineName: lineName}
	var sumHdg float64
	for _, row := range sec.Rows {
		var vals [4]float64
		ok := true
		for i := range vals {
			v, good := parseNumber(row[idx[i+2]])
			if !good {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			cmp.Skipped++
			continue
		}
		r := SpeedRow{
			ShotPoint: strings.TrimSpace(row[idx[0]]),
			Time:      strings.TrimSpace(row[idx[1]]),
			Heading:   vals[0],
			Echo:      vals[1],
			WSP:       vals[2],
			BSP:       vals[3],
			BSPKnots:  vals[3] * KnotsPerMetrePerSecond,
			WSPKnots:  vals[2] * KnotsPerMetrePerSecond,
		}
		cmp.Rows = append(cmp.Rows, r)
		cmp.AvgBSP += r.BSPKnots
		cmp.AvgWSP += r.WSPKnots
		sumHdg += r.Heading
	}

	if n := float64(len(cmp.Rows)); n > 0 {
		cmp.AvgBSP /= n
		cmp.AvgWSP /= n
		cmp.AvgHeading = sumHdg / n
	}
	cmp.Direction = LineDirection(cmp.AvgHeading)
	return cmp, nil
}
