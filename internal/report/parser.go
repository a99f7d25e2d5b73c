package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/saviobatista/navqc/internal/textenc"
	"github.com/saviobatista/navqc/internal/types"
)

const (
	// TimeColumn is parsed with TimeLayout wherever a section has it
	TimeColumn = "Time"
	// TimeLayout is day/month/year hour:minute:second
	TimeLayout = "2/1/2006 15:04:05"
)

// Report holds a parsed report's sections in the order they appear
type Report struct {
	Source   string
	Encoding string
	Sections []*types.ReportSection
	index    map[string]int
}

// Section returns the section with the given title, or nil
func (r *Report) Section(title string) *types.ReportSection {
	if i, ok := r.index[title]; ok {
		return r.Sections[i]
	}
	return nil
}

// Titles lists section titles in order
func (r *Report) Titles() []string {
	titles := make([]string, len(r.Sections))
	for i, s := range r.Sections {
		titles[i] = s.Title
	}
	return titles
}

// Rows counts data rows across all sections
func (r *Report) Rows() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Rows)
	}
	return n
}

// add stores s, replacing an earlier section of the same title in place
func (r *Report) add(s *types.ReportSection) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[s.Title]; ok {
		r.Sections[i] = s
		return
	}
	r.index[s.Title] = len(r.Sections)
	r.Sections = append(r.Sections, s)
}

// Parser reads sectioned reports. The zero value uses TimeColumn and
// TimeLayout in UTC.
type Parser struct {
	TimeColumn string
	TimeLayout string
	Location   *time.Location
}

func (p *Parser) timeColumn() string {
	if p.TimeColumn == "" {
		return TimeColumn
	}
	return p.TimeColumn
}

func (p *Parser) timeLayout() string {
	if p.TimeLayout == "" {
		return TimeLayout
	}
	return p.TimeLayout
}

func (p *Parser) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Parse reads a report with the default parser
func Parse(ctx context.Context, r io.Reader, source string) (*Report, error) {
	return (&Parser{}).Parse(ctx, r, source)
}

// ParseFile probes the encoding of path and parses it
func ParseFile(ctx context.Context, path string) (*Report, error) {
	return (&Parser{}).ParseFile(ctx, path)
}

// ParseFile probes the encoding of path and parses it
func (p *Parser) ParseFile(ctx context.Context, path string) (*Report, error) {
	text, enc, err := textenc.ProbeFile(path, nil)
	if err != nil {
		return nil, err
	}
	rep, err := p.Parse(ctx, strings.NewReader(text), path)
	if err != nil {
		return nil, err
	}
	rep.Encoding = enc
	return rep, nil
}

// Parse reads a banner line, an optional blank line, then sections of the form
//
//	title
//	<blank>
//	header,columns
//	<blank>
//	data,rows
//	<blank>
//
// The last section may end at end of input instead of a blank line, in which
// case it is kept only if it has rows.
func (p *Parser) Parse(ctx context.Context, r io.Reader, source string) (*Report, error) {
	c := newCursor(r)
	rep := &Report{Source: source}

	if _, ok := c.next(); !ok {
		return rep, c.readErr(source)
	}
	if l, ok := c.peek(); ok && l.text == "" {
		c.next()
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		title, ok := c.next()
		if !ok {
			break
		}
		if title.text == "" {
			if c.onlyBlanksLeft() {
				break
			}
			return nil, &MalformedSectionError{Source: source, LineNo: title.no, Expected: "section title", Found: ""}
		}

		sec, closed, err := p.section(c, source, title.text)
		if err != nil {
			return nil, err
		}
		if !closed && len(sec.Rows) == 0 {
			break
		}
		if err := p.parseTimes(sec, source); err != nil {
			return nil, err
		}
		rep.add(sec)
		if !closed {
			break
		}
	}

	if err := c.readErr(source); err != nil {
		return nil, err
	}
	return rep, nil
}

// section reads everything after a title. closed is false when the input
// ended inside the data rows.
func (p *Parser) section(c *cursor, source, title string) (*types.ReportSection, bool, error) {
	expectBlank := func(what string) error {
		l, ok := c.next()
		if !ok {
			return &TruncatedSectionError{Source: source, LineNo: l.no, Section: title, Expected: what}
		}
		if l.text != "" {
			return &MalformedSectionError{Source: source, LineNo: l.no, Section: title, Expected: what, Found: l.text}
		}
		return nil
	}

	if err := expectBlank("blank line after title"); err != nil {
		return nil, false, err
	}

	h, ok := c.next()
	if !ok {
		return nil, false, &TruncatedSectionError{Source: source, LineNo: h.no, Section: title, Expected: "header line"}
	}
	if h.text == "" {
		return nil, false, &MalformedSectionError{Source: source, LineNo: h.no, Section: title, Expected: "header line"}
	}
	sec := &types.ReportSection{Title: title, Headers: strings.Split(h.text, ",")}

	if err := expectBlank("blank line after header"); err != nil {
		return nil, false, err
	}

	for {
		l, ok := c.next()
		if !ok {
			return sec, false, nil
		}
		if l.text == "" {
			return sec, true, nil
		}
		row := strings.Split(l.text, ",")
		if len(row) > len(sec.Headers) {
			return nil, false, &MalformedSectionError{
				Source:   source,
				LineNo:   l.no,
				Section:  title,
				Expected: fmt.Sprintf("at most %d fields", len(sec.Headers)),
				Found:    l.text,
			}
		}
		for len(row) < len(sec.Headers) {
			row = append(row, "")
		}
		sec.Rows = append(sec.Rows, row)
		sec.LineNos = append(sec.LineNos, l.no)
	}
}

func (p *Parser) parseTimes(sec *types.ReportSection, source string) error {
	idx := sec.ColumnIndex(p.timeColumn())
	if idx < 0 {
		return nil
	}
	sec.Times = make([]time.Time, len(sec.Rows))
	for i, row := range sec.Rows {
		v := strings.TrimSpace(row[idx])
		t, err := time.ParseInLocation(p.timeLayout(), v, p.location())
		if err != nil {
			return &TimeFormatError{Source: source, LineNo: sec.LineNos[i], Section: sec.Title, Value: v, Err: err}
		}
		sec.Times[i] = t
	}
	return nil
}

func (c *cursor) readErr(source string) error {
	if c.err != nil {
		return fmt.Errorf("failed to read %s: %w", source, c.err)
	}
	return nil
}
