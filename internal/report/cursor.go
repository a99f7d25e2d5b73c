package report

import (
	"bufio"
	"io"
	"strings"
)

type line struct {
	text string
	no   int
}

// cursor walks input one trimmed line at a time with a single line of lookahead
type cursor struct {
	sc     *bufio.Scanner
	no     int
	peeked *line
	eof    bool
	err    error
}

func newCursor(r io.Reader) *cursor {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &cursor{sc: sc}
}

func (c *cursor) fill() {
	if c.peeked != nil || c.eof {
		return
	}
	if !c.sc.Scan() {
		c.eof = true
		c.err = c.sc.Err()
		return
	}
	c.no++
	c.peeked = &line{text: strings.TrimSpace(c.sc.Text()), no: c.no}
}

func (c *cursor) peek() (line, bool) {
	c.fill()
	if c.peeked == nil {
		return line{no: c.no}, false
	}
	return *c.peeked, true
}

// next consumes a line. At end of input it returns false and the number of
// the last line read.
func (c *cursor) next() (line, bool) {
	l, ok := c.peek()
	c.peeked = nil
	return l, ok
}

// onlyBlanksLeft consumes the input as long as it is blank and reports
// whether that reached the end
func (c *cursor) onlyBlanksLeft() bool {
	for {
		l, ok := c.peek()
		if !ok {
			return true
		}
		if l.text != "" {
			return false
		}
		c.next()
	}
}
