package qc

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saviobatista/navqc/internal/report"
	"github.com/saviobatista/navqc/internal/types"
)

func TestLineNameFromFile(t *testing.T) {
	tests := map[string]string{
		"5331111061-EOL_Report.csv":                 "5331111061",
		`Z:\NAV\Seq1074\5391121074-SMA_QC.csv`:      "5391121074",
		"/data/Seq1013/2404111013-SourceDrift.csv":  "2404111013",
		"plain.csv":                                 "plain",
		"-leading.csv":                              "-leading",
	}
	for in, want := range tests {
		assert.Equal(t, want, LineNameFromFile(in), in)
	}
}

func TestColumnMean(t *testing.T) {
	table := &types.CombinedTable{
		Columns: []string{"Shot #", "Time", SMAColumn},
		Rows: [][]types.Cell{
			{{Value: "1", Valid: true}, {Value: "t", Valid: true}, {Value: "1.5", Valid: true}},
			{{Value: "2", Valid: true}, {Value: "t", Valid: true}, {Value: "", Valid: false}},
			{{Value: "3", Valid: true}, {Value: "t", Valid: true}, {Value: "n/a", Valid: true}},
			{{Value: "4", Valid: true}, {Value: "t", Valid: true}, {Value: "2.5", Valid: true}},
		},
	}

	mean, n, err := ColumnMean(table, SMAColumn)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 2.0, mean, 1e-9)

	high, err := CheckMean("5391", table, SMAColumn, 1)
	require.NoError(t, err)
	require.NotNil(t, high)
	assert.Equal(t, "5391", high.LineName)

	high, err = CheckMean("5391", table, SMAColumn, 2)
	require.NoError(t, err)
	assert.Nil(t, high)

	_, _, err = ColumnMean(table, "V2 SMA m")
	var ce *ColumnError
	assert.True(t, errors.As(err, &ce))

	empty := &types.CombinedTable{Columns: []string{SMAColumn}}
	mean, n, err = ColumnMean(empty, SMAColumn)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, math.IsNaN(mean))
}

func TestShotsOverThreshold(t *testing.T) {
	input := strings.Join([]string{
		"SourceDrift",
		"",
		"Drift",
		"",
		"Shot #,Time,A1 SP DDC m,A2 SP DDC m",
		"",
		"1003,01/02/2024 10:00:00,0.1,5.2",
		"1001,01/02/2024 10:00:08,0.1,-6.0",
		"1002,01/02/2024 10:00:16,0.1,4.9",
		"1004,01/02/2024 10:00:24,0.1,",
		"",
	}, "\n")
	rep, err := report.Parse(context.Background(), strings.NewReader(input), "drift.csv")
	require.NoError(t, err)

	sec := FindSection(rep, ShotColumn, DriftColumn)
	require.NotNil(t, sec)
	assert.Nil(t, FindSection(rep, "missing"))

	shots, err := ShotsOverThreshold("2404", sec, DriftColumn, 5)
	require.NoError(t, err)
	require.Len(t, shots, 2)

	SortDriftShots(shots)
	assert.Equal(t, "1001", shots[0].ShotPoint)
	assert.Equal(t, -6.0, shots[0].Drift)
	assert.Equal(t, "1003", shots[1].ShotPoint)

	_, err = ShotsOverThreshold("2404", sec, "A9 SP DDC m", 5)
	assert.Error(t, err)
}

func bp(line string, jday int, tod string) types.RawPoint {
	return types.RawPoint{LineName: line, JulianDay: jday, TimeOfDay: tod}
}

func TestDailyShotTime(t *testing.T) {
	points := []types.RawPoint{
		bp("L1", 198, "100000"),
		bp("L1", 198, "100500"),
		bp("L1", 198, "110000"),
		bp("L2", 198, "120000"),
		bp("L2", 198, "123000"),
		bp("L3", 199, "010000"),
		bp("L3", 199, "010010"),
	}

	days, err := DailyShotTime(points)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, DayShotTime{JulianDay: 198, Lines: 2, Total: 90 * time.Minute}, days[0])
	assert.Equal(t, DayShotTime{JulianDay: 199, Lines: 1, Total: 10 * time.Second}, days[1])

	_, err = DailyShotTime([]types.RawPoint{bp("L1", 1, "25xx00")})
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1:30:00", FormatDuration(90*time.Minute))
	assert.Equal(t, "0:00:10", FormatDuration(10*time.Second))
	assert.Equal(t, "26:00:05", FormatDuration(26*time.Hour+5*time.Second))
	assert.Equal(t, "-0:01:00", FormatDuration(-time.Minute))
}

func TestLineDirection(t *testing.T) {
	assert.Equal(t, "0°", LineDirection(90))
	assert.Equal(t, "180°", LineDirection(90.1))
	assert.Equal(t, "180°", LineDirection(269.9))
	assert.Equal(t, "0°", LineDirection(270))
	assert.Equal(t, "0°", LineDirection(5))
}

func TestCompareSpeeds(t *testing.T) {
	sec := &types.ReportSection{
		Title:   "AAT Shot Table",
		Headers: []string{ShotColumn, "Time", HeadingColumn, EchoColumn, WSPColumn, BSPColumn},
		Rows: [][]string{
			{"1", "01/02/2024 10:00:00", "180", "1200", "2.0", "2.5"},
			{"2", "01/02/2024 10:00:08", "182", "1201", "2.2", "2.7"},
			{"3", "01/02/2024 10:00:16", "bad", "1202", "2.2", "2.7"},
		},
	}

	cmp, err := CompareSpeeds("5369", sec)
	require.NoError(t, err)
	require.Len(t, cmp.Rows, 2)
	assert.Equal(t, 1, cmp.Skipped)
	assert.InDelta(t, 2.5*KnotsPerMetrePerSecond, cmp.Rows[0].BSPKnots, 1e-9)
	assert.InDelta(t, 2.6*KnotsPerMetrePerSecond, cmp.AvgBSP, 1e-9)
	assert.InDelta(t, 2.1*KnotsPerMetrePerSecond, cmp.AvgWSP, 1e-9)
	assert.InDelta(t, 181.0, cmp.AvgHeading, 1e-9)
	assert.Equal(t, "180°", cmp.Direction)

	sec.Headers[5] = "V2 BSP m/s"
	_, err = CompareSpeeds("5369", sec)
	var ce *ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, BSPColumn, ce.Column)
}
