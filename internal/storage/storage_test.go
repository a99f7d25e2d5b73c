package storage

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestNew(t *testing.T) {
	outputDir := "/test/output"
	storage := New(outputDir, false)

	if storage == nil {
		t.Fatal("New() returned nil")
	}
	if storage.Dir() != outputDir {
		t.Errorf("Expected outputDir to be %s, got %s", outputDir, storage.Dir())
	}
	if len(storage.Written()) != 0 {
		t.Error("Expected no written files initially")
	}
}

func TestStorage_WriteTable(t *testing.T) {
	tempDir := t.TempDir()
	storage := New(tempDir, false)

	path, err := storage.WriteTable(filepath.Join("lines", "1001.csv"),
		[]string{"line_name", "shot_point"},
		[][]string{{"1001", "101"}, {"1001", "102"}})
	if err != nil {
		t.Fatalf("WriteTable() failed: %v", err)
	}

	if path != filepath.Join(tempDir, "lines", "1001.csv") {
		t.Errorf("Unexpected path %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	want := "line_name,shot_point\n1001,101\n1001,102\n"
	if string(content) != want {
		t.Errorf("Expected content %q, got %q", want, string(content))
	}

	entries, err := os.ReadDir(filepath.Join(tempDir, "lines"))
	if err != nil {
		t.Fatalf("Failed to read output directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the final file, found %d entries", len(entries))
	}

	if got := storage.Written(); len(got) != 1 || got[0] != path {
		t.Errorf("Written() = %v", got)
	}
}

func TestStorage_WriteTableCompressed(t *testing.T) {
	tempDir := t.TempDir()
	storage := New(tempDir, true)

	path, err := storage.WriteTable("lines.csv", []string{"a"}, [][]string{{"1"}})
	if err != nil {
		t.Fatalf("WriteTable() failed: %v", err)
	}
	if !strings.HasSuffix(path, ".csv.gz") {
		t.Fatalf("Expected .csv.gz path, got %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	records, err := csv.NewReader(gz).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) != 2 || records[1][0] != "1" {
		t.Errorf("Unexpected records %v", records)
	}
}

func TestStorage_WriteFileError(t *testing.T) {
	tempDir := t.TempDir()
	storage := New(tempDir, false)

	_, err := storage.WriteFile("broken.csv", func(w io.Writer) error {
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("Expected error from failing writer")
	}

	if _, err := os.Stat(filepath.Join(tempDir, "broken.csv")); !os.IsNotExist(err) {
		t.Error("Expected no output file after a failed write")
	}
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("Expected temp file to be removed, found %d entries", len(entries))
	}
}

func TestStorage_WriteFileOutsideDir(t *testing.T) {
	root := t.TempDir()
	storage := New(filepath.Join(root, "out"), false)

	for _, name := range []string{"../evil.csv", "a/../../evil.csv", "..", "."} {
		_, err := storage.WriteTable(name, []string{"a"}, nil)
		if !errors.Is(err, ErrOutsideDir) {
			t.Errorf("WriteTable(%q) error = %v, want ErrOutsideDir", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "evil.csv")); !os.IsNotExist(err) {
		t.Error("Expected no file outside the output directory")
	}

	if _, err := storage.WriteTable("a/../inside.csv", []string{"a"}, nil); err != nil {
		t.Errorf("WriteTable() failed for a name that stays inside: %v", err)
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1001", "1001"},
		{"../../evil", "evil"},
		{"A-12.b", "A-12.b"},
		{"line 7/", "line_7"},
		{"..", "line"},
		{"", "line"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in, "line"); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
