package geodetic

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/saviobatista/navqc/internal/types"
)

// ErrorPolicy decides what happens to a record that fails to decode.
// Returning nil drops the record and keeps reading; returning an error stops
// the read with that error.
type ErrorPolicy func(*DecodeError) error

// AbortOnError stops at the first bad record
func AbortOnError(e *DecodeError) error {
	return e
}

// Collect drops bad records and appends them to dst
func Collect(dst *[]*DecodeError) ErrorPolicy {
	return func(e *DecodeError) error {
		*dst = append(*dst, e)
		return nil
	}
}

// ReadPoints decodes every record of r. Untagged lines are ignored. source
// names the input in errors.
func ReadPoints(ctx context.Context, r io.Reader, source string, f *Format, policy ErrorPolicy) ([]types.RawPoint, error) {
	if policy == nil {
		policy = AbortOnError
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var points []types.RawPoint
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		p, err := f.Decode(scanner.Text())
		if err != nil {
			de, ok := err.(*DecodeError)
			if !ok {
				return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
			}
			de.Source = source
			de.LineNo = lineNo
			if perr := policy(de); perr != nil {
				return nil, perr
			}
			continue
		}
		if p == nil {
			continue
		}
		p.LineNo = lineNo
		points = append(points, *p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return points, nil
}
