package geometry

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/saviobatista/navqc/internal/types"
)

// InsufficientPointsError names every line that was seen fewer than two times
type InsufficientPointsError struct {
	Lines []string
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("%d line(s) with fewer than 2 points: %s", len(e.Lines), strings.Join(e.Lines, ", "))
}

type accumulator struct {
	start   types.RawPoint
	end     types.RawPoint
	records int
}

// PairAndMeasure groups points by line name in first-seen order. The first
// point of a name is its start and the last one seen is its end; anything in
// between is ignored. Lines seen only once are reported through an
// *InsufficientPointsError, which is returned together with the lines that
// could be measured.
func PairAndMeasure(points []types.RawPoint) ([]types.LineEndpoints, error) {
	var order []string
	acc := make(map[string]*accumulator)

	for _, p := range points {
		a, ok := acc[p.LineName]
		if !ok {
			acc[p.LineName] = &accumulator{start: p, records: 1}
			order = append(order, p.LineName)
			continue
		}
		a.end = p
		a.records++
	}

	lines := make([]types.LineEndpoints, 0, len(order))
	var short []string
	for _, name := range order {
		a := acc[name]
		if a.records < 2 {
			short = append(short, name)
			continue
		}
		lines = append(lines, Measure(name, a.start, a.end, a.records))
	}

	if len(short) > 0 {
		return lines, &InsufficientPointsError{Lines: short}
	}
	return lines, nil
}

// Measure derives deltas, azimuth and length between two points
func Measure(name string, start, end types.RawPoint, records int) types.LineEndpoints {
	dE := Round3(Round3(end.Easting) - Round3(start.Easting))
	dN := Round3(Round3(end.Northing) - Round3(start.Northing))

	az, ok := Azimuth(dE, dN)
	if !ok {
		az = math.NaN()
	}

	return types.LineEndpoints{
		LineName:   name,
		Start:      start,
		End:        end,
		Records:    records,
		DeltaEast:  dE,
		DeltaNorth: dN,
		Azimuth:    az,
		Length:     math.Hypot(dE, dN),
	}
}

// Azimuth returns the bearing of (dE, dN) in degrees clockwise from north in
// [0, 360), rounded to 1e-3. ok is false when both deltas are zero.
func Azimuth(dE, dN float64) (deg float64, ok bool) {
	switch {
	case dE == 0 && dN == 0:
		return 0, false
	case dE == 0 && dN > 0:
		return 0, true
	case dE == 0:
		return 180, true
	case dN == 0 && dE > 0:
		return 90, true
	case dN == 0:
		return 270, true
	}

	deg = math.Atan2(dE, dN) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	deg = Round3(deg)
	if deg >= 360 {
		deg = 0
	}
	return deg, true
}

// Round3 rounds to millimetre precision
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// SortByShotPoint orders points by line name, in first-seen order, then by
// shot point. Points with equal keys keep their input order.
func SortByShotPoint(points []types.RawPoint) []types.RawPoint {
	rank := make(map[string]int)
	for _, p := range points {
		if _, ok := rank[p.LineName]; !ok {
			rank[p.LineName] = len(rank)
		}
	}

	out := make([]types.RawPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank[out[i].LineName], rank[out[j].LineName]
		if ri != rj {
			return ri < rj
		}
		return out[i].ShotPoint < out[j].ShotPoint
	})
	return out
}
