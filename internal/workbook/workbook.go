// Package workbook exports tables and speed comparisons as XLSX workbooks.
package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/saviobatista/navqc/internal/qc"
)

const (
	DataSheet    = "Data"
	SummarySheet = "Summary"
)

// WriteTable writes header and rows to a single sheet
func WriteTable(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := setRow(f, sheet, 1, toCells(header)); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, toCells(row)); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// speedHeader extends qc.SpeedColumns with the flat average series
var speedHeader = append(append([]string(nil), qc.SpeedColumns...), "Avg BSP knots", "Avg WSP knots")

// WriteSpeedComparison writes the per-shot comparison to the Data sheet, the
// line averages to the Summary sheet, and a line chart of both speeds in
// knots against shot point.
func WriteSpeedComparison(w io.Writer, cmp *qc.SpeedComparison) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DataSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := setRow(f, DataSheet, 1, toCells(speedHeader)); err != nil {
		return err
	}
	for i, r := range cmp.Rows {
		row := []interface{}{r.ShotPoint, r.Time, r.Heading, r.Echo, r.WSP, r.BSP, r.BSPKnots, r.WSPKnots, cmp.AvgBSP, cmp.AvgWSP}
		if err := setRow(f, DataSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Line", cmp.LineName},
		{"Shots", len(cmp.Rows)},
		{"Skipped", cmp.Skipped},
		{"Avg BSP knots", cmp.AvgBSP},
		{"Avg WSP knots", cmp.AvgWSP},
		{"Avg heading", cmp.AvgHeading},
		{"Direction", cmp.Direction},
	}
	for i, row := range summary {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}

	if len(cmp.Rows) > 0 {
		if err := f.AddChart(DataSheet, "L2", speedChart(cmp)); err != nil {
			return fmt.Errorf("failed to add chart: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func speedChart(cmp *qc.SpeedComparison) *excelize.Chart {
	last := len(cmp.Rows) + 1
	categories := fmt.Sprintf("%s!$A$2:$A$%d", DataSheet, last)

	// columns G..J hold BSP knots, WSP knots and their averages
	var series []excelize.ChartSeries
	for _, col := range []string{"G", "H", "I", "J"} {
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", DataSheet, col),
			Categories: categories,
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", DataSheet, col, col, last),
		})
	}

	return &excelize.Chart{
		Type:   excelize.Line,
		Series: series,
		Title: []excelize.RichTextRun{
			{Text: fmt.Sprintf("%s BSP vs WSP (%s)", cmp.LineName, cmp.Direction)},
		},
		Legend: excelize.ChartLegend{Position: "bottom"},
		XAxis: excelize.ChartAxis{
			Title: []excelize.RichTextRun{{Text: "Shot #"}},
		},
		YAxis: excelize.ChartAxis{
			Title: []excelize.RichTextRun{{Text: "knots"}},
		},
		Dimension: excelize.ChartDimension{Width: 960, Height: 480},
	}
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
