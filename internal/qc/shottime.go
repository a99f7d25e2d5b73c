package qc

import (
	"fmt"
	"time"

	"github.com/saviobatista/navqc/internal/types"
)

// DayShotTime is the total time spent shooting lines on one julian day
type DayShotTime struct {
	JulianDay int           `json:"julian_day"`
	Lines     int           `json:"lines"`
	Total     time.Duration `json:"total"`
}

// DailyShotTime groups points by julian day in first-seen order, then by line,
// and adds up the time between each line's first and last shot
func DailyShotTime(points []types.RawPoint) ([]DayShotTime, error) {
	type span struct {
		first, last time.Duration
	}
	var days []int
	lines := make(map[int][]string)
	spans := make(map[int]map[string]*span)

	for _, p := range points {
		tod, err := timeOfDay(p.TimeOfDay)
		if err != nil {
			return nil, fmt.Errorf("line %s shot %d (record %d): %w", p.LineName, p.ShotPoint, p.LineNo, err)
		}
		byLine, ok := spans[p.JulianDay]
		if !ok {
			byLine = make(map[string]*span)
			spans[p.JulianDay] = byLine
			days = append(days, p.JulianDay)
		}
		s, ok := byLine[p.LineName]
		if !ok {
			byLine[p.LineName] = &span{first: tod, last: tod}
			lines[p.JulianDay] = append(lines[p.JulianDay], p.LineName)
			continue
		}
		s.last = tod
	}

	out := make([]DayShotTime, 0, len(days))
	for _, d := range days {
		day := DayShotTime{JulianDay: d, Lines: len(lines[d])}
		for _, name := range lines[d] {
			s := spans[d][name]
			day.Total += s.last - s.first
		}
		out = append(out, day)
	}
	return out, nil
}

func timeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("150405", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

// FormatDuration renders d as H:MM:SS
func FormatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	out := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	if neg {
		out = "-" + out
	}
	return out
}
