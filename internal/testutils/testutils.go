// Package testutils builds input fixtures: fixed-width preplot records and
// sectioned report files.
package testutils

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

// Point holds the values written into a fixed-width record. Zero-valued
// Depth, JulianDay and Time are left blank.
type Point struct {
	Line      string
	ShotPoint int
	Latitude  float64
	Longitude float64
	Easting   float64
	Northing  float64
	Depth     float64
	JulianDay int
	Time      string
}

// place writes fields into a blank line of the given width at their offsets
func place(width int, fields map[int]string) string {
	b := []byte(strings.Repeat(" ", width))
	for at, v := range fields {
		copy(b[at:], v)
	}
	return string(b)
}

// DMS formats decimal degrees as DDMMSS.ssH, or DDDMMSS.ssH with three
// degree digits
func DMS(value float64, degDigits int, pos, neg byte) string {
	hemi := pos
	if value < 0 {
		hemi = neg
		value = -value
	}
	deg := int(value)
	minutes := (value - float64(deg)) * 60
	min := int(minutes)
	sec := math.Round((minutes-float64(min))*60*100) / 100
	if sec >= 60 {
		sec -= 60
		min++
	}
	if min >= 60 {
		min -= 60
		deg++
	}
	return fmt.Sprintf("%0*d%02d%05.2f%c", degDigits, deg, min, sec, hemi)
}

func common(tag string, p Point, lineWidth int, spAt int, spWidth int) map[int]string {
	return map[int]string{
		0:    tag,
		1:    fmt.Sprintf("%-*.*s", lineWidth, lineWidth, p.Line),
		spAt: fmt.Sprintf("%*d", spWidth, p.ShotPoint),
		25:   DMS(p.Latitude, 2, 'N', 'S'),
		35:   DMS(p.Longitude, 3, 'E', 'W'),
		47:   fmt.Sprintf("%8.1f", p.Easting),
		55:   fmt.Sprintf("%9.1f", p.Northing),
	}
}

// VRecord returns a P190 V-record
func VRecord(p Point) string {
	return place(80, common("V", p, 12, 20, 5))
}

// SRecord returns a BOEM S-record. Depth is written unsigned.
func SRecord(p Point) string {
	fields := common("S", p, 10, 20, 5)
	if p.Depth != 0 {
		fields[64] = fmt.Sprintf("%6.1f", math.Abs(p.Depth))
	}
	if p.JulianDay != 0 {
		fields[70] = fmt.Sprintf("%03d", p.JulianDay)
	}
	if p.Time != "" {
		fields[73] = p.Time
	}
	return place(80, fields)
}

// S4DRecord returns a 4D preplot S-record
func S4DRecord(p Point) string {
	return place(80, common("S", p, 4, 21, 4))
}

// Header returns a P190 H-record, which every decoder skips
func Header(text string) string {
	return place(80, map[int]string{0: "H", 1: text})
}

// Section is one block of a sectioned report
type Section struct {
	Title  string
	Header []string
	Rows   [][]string
}

// SectionedReport renders banner and sections in the end-of-line report
// layout: banner, blank, then per section title, blank, header, blank, rows
// and a closing blank line.
func SectionedReport(banner string, sections ...Section) string {
	var b strings.Builder
	b.WriteString(banner + "\n\n")
	for _, s := range sections {
		b.WriteString(s.Title + "\n\n")
		b.WriteString(strings.Join(s.Header, ",") + "\n\n")
		for _, row := range s.Rows {
			b.WriteString(strings.Join(row, ",") + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WaitFor polls cond until it holds, failing t when timeout passes first
func WaitFor(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
