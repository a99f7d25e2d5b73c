package geodetic

import "fmt"

// DecodeError is a record whose column could not be interpreted
type DecodeError struct {
	Source string
	LineNo int
	Line   string
	Field  Field
	Start  int
	End    int
	Err    error
}

func (e *DecodeError) Error() string {
	where := fmt.Sprintf("line %d", e.LineNo)
	if e.Source != "" {
		where = fmt.Sprintf("%s:%d", e.Source, e.LineNo)
	}
	return fmt.Sprintf("%s: cannot decode %s at columns %d-%d: %v", where, e.Field, e.Start, e.End, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ShortRecordError is returned when a tagged line ends before a column does
type ShortRecordError struct {
	Length int
	Need   int
}

func (e *ShortRecordError) Error() string {
	return fmt.Sprintf("record is %d bytes, need %d", e.Length, e.Need)
}
