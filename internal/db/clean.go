package db

import (
	"strconv"
	"strings"
	"unicode"
)

// SectionTablePrefix keeps report section tables apart from the fixed schema
const SectionTablePrefix = "eol_"

var reservedWords = map[string]bool{
	"SELECT": true,
	"FROM":   true,
	"WHERE":  true,
	"TABLE":  true,
}

// CleanTableName maps a section title to a table name: anything that is not
// an ASCII letter or digit becomes '_', runs of '_' collapse, and the result
// is trimmed and lower-cased. "Gun Depth (m)" gives "gun_depth_m".
func CleanTableName(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.ToLower(strings.Trim(b.String(), "_"))
}

// SectionNames cleans every section title of one report and numbers
// repeats, so no two sections share a file or a table. An empty result is
// named "section".
func SectionNames(titles []string) []string {
	names := make([]string, len(titles))
	for i, title := range titles {
		if names[i] = CleanTableName(title); names[i] == "" {
			names[i] = "section"
		}
	}
	return Uniquify(names)
}

// SectionTables are the tables the sections with the given titles are
// stored in
func SectionTables(titles []string) []string {
	tables := SectionNames(titles)
	for i := range tables {
		tables[i] = SectionTablePrefix + tables[i]
	}
	return tables
}

// CleanColumnName makes a report header usable as a column name. Spaces
// become '_', other non-word characters are dropped, a leading digit gets a
// "col_" prefix and reserved words a "_col" suffix.
func CleanColumnName(col string) string {
	var b strings.Builder
	for _, r := range strings.ReplaceAll(col, " ", "_") {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := strings.ToLower(b.String())
	if out != "" && unicode.IsDigit([]rune(out)[0]) {
		out = "col_" + out
	}
	if reservedWords[strings.ToUpper(out)] {
		out += "_col"
	}
	return out
}

// CleanColumns cleans every header and makes the results unique, numbering
// repeats and naming empty results by position
func CleanColumns(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if out[i] = CleanColumnName(h); out[i] == "" {
			out[i] = "col_" + strconv.Itoa(i+1)
		}
	}
	return Uniquify(out)
}

// Uniquify returns names with every repeat suffixed "_2", "_3", ... The
// suffix skips any name already taken, including later originals.
func Uniquify(names []string) []string {
	original := make(map[string]bool, len(names))
	for _, name := range names {
		original[name] = true
	}

	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for i, name := range names {
		if taken[name] {
			for n := 2; ; n++ {
				candidate := name + "_" + strconv.Itoa(n)
				if !taken[candidate] && !original[candidate] {
					name = candidate
					break
				}
			}
		}
		taken[name] = true
		out[i] = name
	}
	return out
}
