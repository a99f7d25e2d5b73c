package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/saviobatista/navqc/internal/types"
)

// DefaultKeys are the columns sections are joined on
var DefaultKeys = []string{"Shot #", TimeColumn}

// merged is the running result of the fold
type merged struct {
	columns []string
	rows    [][]types.Cell
	keys    []string
	keyIdx  []int
}

// MergeOuter folds sections left to right with outer joins on keys
// (DefaultKeys when none are given). Rows missing from one side keep invalid
// cells there. Non-key columns present on both sides are renamed with _x and
// _y suffixes. Rows come out in encounter order: left rows first, each
// followed by its matches, then unmatched right rows. Time keys compare by
// parsed instant.
func MergeOuter(sections []*types.ReportSection, keys ...string) (*types.CombinedTable, error) {
	if len(keys) == 0 {
		keys = DefaultKeys
	}
	if len(sections) == 0 {
		return &types.CombinedTable{Columns: append([]string(nil), keys...)}, nil
	}

	for _, s := range sections {
		for _, k := range keys {
			if s.ColumnIndex(k) < 0 {
				return nil, &MissingKeyError{Section: s.Title, Key: k}
			}
		}
	}

	acc := seed(sections[0], keys)
	for _, s := range sections[1:] {
		acc = join(acc, s, keys)
	}

	return &types.CombinedTable{Columns: acc.columns, Rows: acc.rows}, nil
}

func seed(s *types.ReportSection, keys []string) *merged {
	m := &merged{columns: append([]string(nil), s.Headers...)}
	for _, k := range keys {
		m.keyIdx = append(m.keyIdx, s.ColumnIndex(k))
	}
	for i, row := range s.Rows {
		cells := make([]types.Cell, len(row))
		for j, v := range row {
			cells[j] = types.Cell{Value: v, Valid: true}
		}
		m.rows = append(m.rows, cells)
		m.keys = append(m.keys, rowKey(s, i, keys))
	}
	return m
}

func join(left *merged, right *types.ReportSection, keys []string) *merged {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	var rightCols []int
	leftNames := make(map[string]int, len(left.columns))
	for i, c := range left.columns {
		leftNames[c] = i
	}
	for j, h := range right.Headers {
		if !isKey[h] {
			rightCols = append(rightCols, j)
		}
	}

	columns := append([]string(nil), left.columns...)
	taken := make(map[string]bool, len(columns))
	var renamed []string
	for _, j := range rightCols {
		name := right.Headers[j]
		if li, ok := leftNames[name]; ok && !isKey[name] {
			columns[li] = name + "_x"
			name += "_y"
		}
		renamed = append(renamed, name)
	}
	for _, c := range columns {
		taken[c] = true
	}
	for i, name := range renamed {
		renamed[i] = unique(name, taken)
		taken[renamed[i]] = true
	}
	columns = append(columns, renamed...)

	byKey := make(map[string][]int)
	for i := range right.Rows {
		k := rowKey(right, i, keys)
		byKey[k] = append(byKey[k], i)
	}

	width := len(columns)
	out := &merged{columns: columns, keyIdx: left.keyIdx}
	matched := make([]bool, len(right.Rows))

	for li, lrow := range left.rows {
		hits := byKey[left.keys[li]]
		if len(hits) == 0 {
			row := make([]types.Cell, width)
			copy(row, lrow)
			out.rows = append(out.rows, row)
			out.keys = append(out.keys, left.keys[li])
			continue
		}
		for _, ri := range hits {
			matched[ri] = true
			row := make([]types.Cell, width)
			copy(row, lrow)
			for n, j := range rightCols {
				row[len(left.columns)+n] = types.Cell{Value: right.Rows[ri][j], Valid: true}
			}
			out.rows = append(out.rows, row)
			out.keys = append(out.keys, left.keys[li])
		}
	}

	for ri, rrow := range right.Rows {
		if matched[ri] {
			continue
		}
		row := make([]types.Cell, width)
		for n, k := range keys {
			row[left.keyIdx[n]] = types.Cell{Value: rrow[right.ColumnIndex(k)], Valid: true}
		}
		for n, j := range rightCols {
			row[len(left.columns)+n] = types.Cell{Value: rrow[j], Valid: true}
		}
		out.rows = append(out.rows, row)
		out.keys = append(out.keys, rowKey(right, ri, keys))
	}
	return out
}

func unique(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !taken[candidate] {
			return candidate
		}
	}
}

func rowKey(s *types.ReportSection, row int, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		if k == TimeColumn && s.Times != nil {
			parts[i] = s.Times[row].UTC().Format(time.RFC3339Nano)
			continue
		}
		parts[i] = strings.TrimSpace(s.Rows[row][s.ColumnIndex(k)])
	}
	return strings.Join(parts, "\x1f")
}
