package textenc

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Candidate is one encoding tried by Probe
type Candidate struct {
	Name string
	// nil means UTF-8
	Enc encoding.Encoding
}

// Default is the order the report tools try. Latin-1 maps every byte, so the
// later candidates only matter when the acceptance predicate rejects it.
var Default = []Candidate{
	{Name: "utf-8"},
	{Name: "latin1", Enc: charmap.ISO8859_1},
	{Name: "cp1252", Enc: charmap.Windows1252},
	{Name: "iso-8859-1", Enc: charmap.ISO8859_1},
}

// NoEncodingError is returned when no candidate produced acceptable text
type NoEncodingError struct {
	Source string
	Tried  []string
}

func (e *NoEncodingError) Error() string {
	return fmt.Sprintf("%s: no encoding produced the expected text (tried %s)", e.Source, strings.Join(e.Tried, ", "))
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Probe decodes data with each candidate in turn and returns the first text
// that accept approves. A nil accept takes the first successful decode.
func Probe(source string, data []byte, candidates []Candidate, accept func(string) bool) (string, string, error) {
	if len(candidates) == 0 {
		candidates = Default
	}
	tried := make([]string, 0, len(candidates))
	for _, c := range candidates {
		tried = append(tried, c.Name)
		text, ok := decode(data, c)
		if !ok {
			continue
		}
		if accept == nil || accept(text) {
			return text, c.Name, nil
		}
	}
	return "", "", &NoEncodingError{Source: source, Tried: tried}
}

// ProbeFile reads path and probes it with the default candidates
func ProbeFile(path string, accept func(string) bool) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Probe(path, data, Default, accept)
}

// Contains accepts text holding every needle
func Contains(needles ...string) func(string) bool {
	return func(text string) bool {
		for _, n := range needles {
			if !strings.Contains(text, n) {
				return false
			}
		}
		return true
	}
}

func decode(data []byte, c Candidate) (string, bool) {
	if c.Enc == nil {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	}
	out, err := c.Enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	// undefined code points decode to U+FFFD
	if c.Enc == charmap.Windows1252 && bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
