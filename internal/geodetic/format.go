package geodetic

import (
	"fmt"
	"sort"
	"strings"
)

// Field names a RawPoint attribute a column decodes into
type Field int

const (
	FieldLineName Field = iota
	FieldShotPoint
	FieldLatitude
	FieldLongitude
	FieldEasting
	FieldNorthing
	FieldDepth
	FieldJulianDay
	FieldTime
)

var fieldNames = [...]string{
	FieldLineName:  "line_name",
	FieldShotPoint: "shot_point",
	FieldLatitude:  "latitude",
	FieldLongitude: "longitude",
	FieldEasting:   "easting",
	FieldNorthing:  "northing",
	FieldDepth:     "depth",
	FieldJulianDay: "julian_day",
	FieldTime:      "time",
}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Kind is how the text of a column is interpreted
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	// DDMMSS.SS followed by N or S
	KindLatitudeDMS
	// DDDMMSS.SS followed by E or W
	KindLongitudeDMS
)

// Column is a half-open byte range [Start, End) of a record
type Column struct {
	Field  Field
	Start  int
	End    int
	Kind   Kind
	Negate bool
}

// Format describes one fixed-width record layout. Lines whose first byte is
// not Tag are not records of this format.
type Format struct {
	Name        string
	Description string
	Tag         byte
	Columns     []Column
}

// MinLength is the shortest line that can hold every column
func (f *Format) MinLength() int {
	n := 0
	for _, c := range f.Columns {
		if c.End > n {
			n = c.End
		}
	}
	return n
}

// P190 V-records as written by the preplot exporter
var P190 = &Format{
	Name:        "p190",
	Description: "P190 V-record preplot",
	Tag:         'V',
	Columns: []Column{
		{Field: FieldLineName, Start: 1, End: 13, Kind: KindText},
		{Field: FieldShotPoint, Start: 20, End: 25, Kind: KindInt},
		{Field: FieldLatitude, Start: 25, End: 35, Kind: KindLatitudeDMS},
		{Field: FieldLongitude, Start: 35, End: 46, Kind: KindLongitudeDMS},
		{Field: FieldEasting, Start: 47, End: 55, Kind: KindFloat},
		{Field: FieldNorthing, Start: 55, End: 64, Kind: KindFloat},
	},
}

// BOEM S-records: P190 source positions with water depth, julian day and time
var BOEM = &Format{
	Name:        "boem",
	Description: "P190 S-record BOEM report",
	Tag:         'S',
	Columns: []Column{
		{Field: FieldLineName, Start: 1, End: 11, Kind: KindText},
		{Field: FieldShotPoint, Start: 20, End: 25, Kind: KindInt},
		{Field: FieldLatitude, Start: 25, End: 35, Kind: KindLatitudeDMS},
		{Field: FieldLongitude, Start: 35, End: 46, Kind: KindLongitudeDMS},
		{Field: FieldEasting, Start: 47, End: 55, Kind: KindFloat},
		{Field: FieldNorthing, Start: 55, End: 64, Kind: KindFloat},
		{Field: FieldDepth, Start: 64, End: 70, Kind: KindFloat, Negate: true},
		{Field: FieldJulianDay, Start: 70, End: 73, Kind: KindInt},
		{Field: FieldTime, Start: 73, End: 79, Kind: KindText},
	},
}

// Preplot4D S-records of a 4D preplot
var Preplot4D = &Format{
	Name:        "4d",
	Description: "4D preplot S-record",
	Tag:         'S',
	Columns: []Column{
		{Field: FieldLineName, Start: 1, End: 5, Kind: KindText},
		{Field: FieldShotPoint, Start: 21, End: 25, Kind: KindInt},
		{Field: FieldLatitude, Start: 25, End: 35, Kind: KindLatitudeDMS},
		{Field: FieldLongitude, Start: 35, End: 46, Kind: KindLongitudeDMS},
		{Field: FieldEasting, Start: 47, End: 55, Kind: KindFloat},
		{Field: FieldNorthing, Start: 55, End: 64, Kind: KindFloat},
	},
}

var formats = map[string]*Format{
	P190.Name:      P190,
	BOEM.Name:      BOEM,
	Preplot4D.Name: Preplot4D,
}

// Lookup returns the registered format with the given name
func Lookup(name string) (*Format, error) {
	f, ok := formats[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown record format %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Names lists the registered format names
func Names() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
