package report

import "fmt"

func location(source string, lineNo int) string {
	if source == "" {
		return fmt.Sprintf("line %d", lineNo)
	}
	return fmt.Sprintf("%s:%d", source, lineNo)
}

// MalformedSectionError is a line that breaks the section grammar
type MalformedSectionError struct {
	Source   string
	LineNo   int
	Section  string
	Expected string
	Found    string
}

func (e *MalformedSectionError) Error() string {
	found := fmt.Sprintf("%q", e.Found)
	if e.Found == "" {
		found = "blank line"
	}
	if e.Section == "" {
		return fmt.Sprintf("%s: expected %s, found %s", location(e.Source, e.LineNo), e.Expected, found)
	}
	return fmt.Sprintf("%s: section %q: expected %s, found %s", location(e.Source, e.LineNo), e.Section, e.Expected, found)
}

// TruncatedSectionError is end of input before a section's header was complete
type TruncatedSectionError struct {
	Source   string
	LineNo   int
	Section  string
	Expected string
}

func (e *TruncatedSectionError) Error() string {
	return fmt.Sprintf("%s: section %q: input ended while expecting %s", location(e.Source, e.LineNo), e.Section, e.Expected)
}

// TimeFormatError is a Time value that does not match the report layout
type TimeFormatError struct {
	Source  string
	LineNo  int
	Section string
	Value   string
	Err     error
}

func (e *TimeFormatError) Error() string {
	return fmt.Sprintf("%s: section %q: invalid time %q: %v", location(e.Source, e.LineNo), e.Section, e.Value, e.Err)
}

func (e *TimeFormatError) Unwrap() error {
	return e.Err
}

// MissingKeyError is a merge key column absent from a section
type MissingKeyError struct {
	Section string
	Key     string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("section %q has no key column %q", e.Section, e.Key)
}
