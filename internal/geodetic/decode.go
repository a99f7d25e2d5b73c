package geodetic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saviobatista/navqc/internal/types"
)

// Decode parses one line of the given format. Lines that do not start with the
// format's tag are not records and return nil, nil.
func (f *Format) Decode(line string) (*types.RawPoint, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) == 0 || line[0] != f.Tag {
		return nil, nil
	}

	p := &types.RawPoint{}
	for _, c := range f.Columns {
		if c.End > len(line) {
			return nil, &DecodeError{
				Line:  line,
				Field: c.Field,
				Start: c.Start,
				End:   c.End,
				Err:   &ShortRecordError{Length: len(line), Need: c.End},
			}
		}
		if err := assign(p, c, line[c.Start:c.End]); err != nil {
			return nil, &DecodeError{
				Line:  line,
				Field: c.Field,
				Start: c.Start,
				End:   c.End,
				Err:   err,
			}
		}
	}
	return p, nil
}

func assign(p *types.RawPoint, c Column, raw string) error {
	switch c.Kind {
	case KindText:
		s := strings.TrimSpace(raw)
		switch c.Field {
		case FieldLineName:
			if s == "" {
				return fmt.Errorf("empty line name")
			}
			p.LineName = s
		case FieldTime:
			if err := checkTimeOfDay(s); err != nil {
				return err
			}
			p.TimeOfDay = s
		default:
			return fmt.Errorf("text column not supported for %s", c.Field)
		}
		return nil

	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		if c.Negate {
			n = -n
		}
		switch c.Field {
		case FieldShotPoint:
			p.ShotPoint = n
		case FieldJulianDay:
			if n < 1 || n > 366 {
				return fmt.Errorf("julian day %d out of range", n)
			}
			p.JulianDay = n
		default:
			return fmt.Errorf("integer column not supported for %s", c.Field)
		}
		return nil

	case KindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", raw)
		}
		if c.Negate {
			v = -v
		}
		return setFloat(p, c.Field, v)

	case KindLatitudeDMS:
		v, err := ParseDMS(raw, 2)
		if err != nil {
			return err
		}
		return setFloat(p, c.Field, v)

	case KindLongitudeDMS:
		v, err := ParseDMS(raw, 3)
		if err != nil {
			return err
		}
		return setFloat(p, c.Field, v)
	}
	return fmt.Errorf("unknown column kind %d", c.Kind)
}

func setFloat(p *types.RawPoint, field Field, v float64) error {
	switch field {
	case FieldLatitude:
		p.Latitude = v
	case FieldLongitude:
		p.Longitude = v
	case FieldEasting:
		p.Easting = v
	case FieldNorthing:
		p.Northing = v
	case FieldDepth:
		p.Depth = v
	default:
		return fmt.Errorf("numeric column not supported for %s", field)
	}
	return nil
}

// ParseDMS converts a packed degrees-minutes-seconds value such as
// "265412.34N" to signed decimal degrees. degDigits is 2 for latitude and 3
// for longitude. South and West are negative.
func ParseDMS(raw string, degDigits int) (float64, error) {
	// degrees, two minute digits, at least one second digit and the hemisphere
	if len(raw) < degDigits+4 {
		return 0, fmt.Errorf("DMS value %q too short", raw)
	}
	hemi := raw[len(raw)-1]
	body := raw[:len(raw)-1]

	var sign float64
	switch hemi {
	case 'N', 'E', 'n', 'e':
		sign = 1
	case 'S', 'W', 's', 'w':
		sign = -1
	default:
		return 0, fmt.Errorf("invalid hemisphere %q in %q", hemi, raw)
	}

	deg, err := strconv.Atoi(strings.TrimSpace(body[:degDigits]))
	if err != nil {
		return 0, fmt.Errorf("invalid degrees in %q", raw)
	}
	min, err := strconv.Atoi(strings.TrimSpace(body[degDigits : degDigits+2]))
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", raw)
	}
	sec, err := strconv.ParseFloat(strings.TrimSpace(body[degDigits+2:]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q", raw)
	}
	if min >= 60 || sec >= 60 {
		return 0, fmt.Errorf("minutes or seconds out of range in %q", raw)
	}

	limit := 90
	if degDigits == 3 {
		limit = 180
	}
	v := float64(deg) + float64(min)/60 + sec/3600
	if v > float64(limit) {
		return 0, fmt.Errorf("DMS value %q exceeds %d degrees", raw, limit)
	}
	return sign * v, nil
}

func checkTimeOfDay(s string) error {
	if len(s) != 6 {
		return fmt.Errorf("time %q is not HHMMSS", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return fmt.Errorf("time %q is not HHMMSS", s)
		}
	}
	h, _ := strconv.Atoi(s[0:2])
	m, _ := strconv.Atoi(s[2:4])
	sec, _ := strconv.Atoi(s[4:6])
	if h > 23 || m > 59 || sec > 59 {
		return fmt.Errorf("time %q out of range", s)
	}
	return nil
}
