package projection

import (
	"fmt"
	"strings"

	UTM "github.com/im7mortal/UTM"
)

// Zone identifies a projected coordinate reference
type Zone struct {
	Number   int
	Northern bool
	Datum    string
}

func (z Zone) String() string {
	hemi := "N"
	if !z.Northern {
		hemi = "S"
	}
	return fmt.Sprintf("UTM %d%s %s", z.Number, hemi, z.Datum)
}

// Transformer maps projected coordinates to geographic ones
type Transformer interface {
	Transform(easting, northing float64, zone Zone) (lat, lon float64, err error)
}

// TransformFunc adapts a function to Transformer
type TransformFunc func(easting, northing float64, zone Zone) (lat, lon float64, err error)

func (f TransformFunc) Transform(easting, northing float64, zone Zone) (float64, float64, error) {
	return f(easting, northing, zone)
}

// UnsupportedDatumError is returned for datums the transform cannot handle
type UnsupportedDatumError struct {
	Datum string
}

func (e *UnsupportedDatumError) Error() string {
	return fmt.Sprintf("unsupported datum %q", e.Datum)
}

// UTMInverse converts UTM easting/northing on WGS84 to latitude/longitude
var UTMInverse = TransformFunc(func(easting, northing float64, zone Zone) (float64, float64, error) {
	if d := strings.ToUpper(strings.ReplaceAll(zone.Datum, " ", "")); d != "" && d != "WGS84" && d != "WGS-84" {
		return 0, 0, &UnsupportedDatumError{Datum: zone.Datum}
	}
	if zone.Number < 1 || zone.Number > 60 {
		return 0, 0, fmt.Errorf("invalid UTM zone %d", zone.Number)
	}
	lat, lon, err := UTM.ToLatLon(easting, northing, zone.Number, "", zone.Northern)
	if err != nil {
		return 0, 0, fmt.Errorf("UTM inverse at (%.3f, %.3f) in %s: %w", easting, northing, zone, err)
	}
	return lat, lon, nil
})

// Bound is a Transformer fixed to one zone
type Bound struct {
	T    Transformer
	Zone Zone
}

// Bind fixes the zone of t
func Bind(t Transformer, zone Zone) *Bound {
	return &Bound{T: t, Zone: zone}
}

// ToLatLon converts one projected coordinate in the bound zone
func (b *Bound) ToLatLon(easting, northing float64) (float64, float64, error) {
	return b.T.Transform(easting, northing, b.Zone)
}
