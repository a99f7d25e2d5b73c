package interp

import (
	"fmt"
	"math"

	"github.com/saviobatista/navqc/internal/types"
)

// MaxShots bounds the number of points one line may expand to
const MaxShots = 1 << 20

// ConfigurationError reports an invalid interpolation parameter
type ConfigurationError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Param, e.Value, e.Reason)
}

// Projector turns projected coordinates into latitude and longitude
type Projector interface {
	ToLatLon(easting, northing float64) (lat, lon float64, err error)
}

// Segments is the number of shots a line of the given length expands to
func Segments(length, spacing float64) int {
	return int(math.RoundToEven(length/spacing)) + 1
}

// Interpolate lays shots along the line azimuth from its start point every
// spacing metres. The last shot may overshoot the end point by up to half a
// spacing. A degenerate line yields only its start. proj may be nil, in which
// case latitude and longitude are left zero.
func Interpolate(line types.LineEndpoints, spacing float64, proj Projector) ([]types.InterpolatedShot, error) {
	if spacing <= 0 || math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		return nil, &ConfigurationError{Param: "spacing", Value: spacing, Reason: "must be a positive finite number"}
	}

	n := 1
	if !line.Degenerate() {
		n = Segments(line.Length, spacing)
	}
	if n > MaxShots {
		return nil, &ConfigurationError{Param: "spacing", Value: spacing, Reason: fmt.Sprintf("line %s would expand to %d shots", line.LineName, n)}
	}

	var sin, cos float64
	if !line.Degenerate() {
		rad := line.Azimuth * math.Pi / 180
		sin, cos = math.Sin(rad), math.Cos(rad)
	}

	e0, n0 := line.Start.Easting, line.Start.Northing
	shots := make([]types.InterpolatedShot, n)
	for i := 0; i < n; i++ {
		d := spacing * float64(i)
		s := types.InterpolatedShot{
			LineName:  line.LineName,
			ShotPoint: line.Start.ShotPoint + i,
			Easting:   e0 + d*sin,
			Northing:  n0 + d*cos,
		}
		if proj != nil {
			lat, lon, err := proj.ToLatLon(s.Easting, s.Northing)
			if err != nil {
				return nil, fmt.Errorf("line %s shot %d: %w", line.LineName, s.ShotPoint, err)
			}
			s.Latitude, s.Longitude = lat, lon
		}
		shots[i] = s
	}
	return shots, nil
}
