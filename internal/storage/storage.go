package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/klauspost/compress/gzip"
)

// ErrOutsideDir is returned for a name that resolves outside the output directory
var ErrOutsideDir = errors.New("path escapes the output directory")

// Storage writes output tables under one directory. Each file is written to a
// temporary name and renamed into place so readers never see partial tables.
type Storage struct {
	outputDir string
	compress  bool
	mu        sync.Mutex
	written   []string
}

// New creates a new Storage instance. With compress set, tables are written
// gzipped with a .gz suffix.
func New(outputDir string, compress bool) *Storage {
	return &Storage{
		outputDir: outputDir,
		compress:  compress,
	}
}

// Dir returns the output directory
func (s *Storage) Dir() string {
	return s.outputDir
}

// WriteTable writes header and rows as CSV to name, relative to the output
// directory, and returns the final path
func (s *Storage) WriteTable(name string, header []string, rows [][]string) (string, error) {
	return s.WriteFile(name, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("failed to write CSV rows: %w", err)
		}
		return nil
	})
}

// WriteFile replaces name with whatever write produces
func (s *Storage) WriteFile(name string, write func(io.Writer) error) (string, error) {
	target := filepath.Join(s.outputDir, name)
	if !within(s.outputDir, target) {
		return "", fmt.Errorf("%w: %q", ErrOutsideDir, name)
	}
	if s.compress {
		target += ".gz"
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := s.encode(tmp, write); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", target, err)
	}

	s.mu.Lock()
	s.written = append(s.written, target)
	s.mu.Unlock()
	return target, nil
}

func within(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SafeName turns a value read from input data into a single file name
// component. Anything other than letters, digits, '-', '_' and '.' becomes
// '_', then leading dots and underscores and trailing underscores are dropped. fallback is returned
// when nothing is left.
func SafeName(name, fallback string) string {
	b := []rune(name)
	for i, r := range b {
		if !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '-' || r == '_' || r == '.') {
			b[i] = '_'
		}
	}
	if out := strings.TrimRight(strings.TrimLeft(string(b), "._"), "_"); out != "" {
		return out
	}
	return fallback
}

func (s *Storage) encode(f *os.File, write func(io.Writer) error) error {
	if !s.compress {
		return write(f)
	}
	gz := gzip.NewWriter(f)
	if err := write(gz); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// Written lists every file written so far, sorted
func (s *Storage) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.written...)
	sort.Strings(out)
	return out
}
