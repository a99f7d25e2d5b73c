package stats

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/saviobatista/navqc/internal/types"
)

type fakeStore struct {
	saved []types.RunStats
	err   error
}

func (f *fakeStore) StoreRunStats(ctx context.Context, s types.RunStats) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, s)
	return nil
}

func TestNew(t *testing.T) {
	stats := New("preplot")

	if stats == nil {
		t.Fatal("New() returned nil")
	}
	if stats.Tool != "preplot" {
		t.Errorf("Expected Tool to be preplot, got %s", stats.Tool)
	}
	if len(stats.RunID) != 36 {
		t.Errorf("Expected a UUID run ID, got %q", stats.RunID)
	}
	if New("preplot").RunID == stats.RunID {
		t.Error("Expected distinct run IDs")
	}
	if time.Since(stats.StartedAt) > 5*time.Second {
		t.Error("StartedAt should be recent")
	}
	if stats.Files != 0 || stats.Records != 0 {
		t.Error("Expected counters to start at zero")
	}
}

func TestCounters(t *testing.T) {
	stats := New("eolreport")

	stats.AddFiles(3)
	stats.AddSkipped(1)
	stats.AddFailed(1)
	stats.AddRecords(10)
	stats.AddRecords(5)
	stats.AddDecodeFailures(2)
	stats.AddSections(4)
	stats.AddRows(40)
	stats.AddOutput("b.csv", "a.csv")

	snap := stats.Snapshot()
	if snap.Files != 3 || snap.SkippedFiles != 1 || snap.FailedFiles != 1 {
		t.Errorf("Unexpected file counters %+v", snap)
	}
	if snap.Records != 15 {
		t.Errorf("Expected Records to be 15, got %d", snap.Records)
	}
	if snap.DecodeFailures != 2 || snap.Sections != 4 || snap.RowsWritten != 40 {
		t.Errorf("Unexpected counters %+v", snap)
	}
	if len(snap.Outputs) != 2 || snap.Outputs[0] != "a.csv" {
		t.Errorf("Expected sorted outputs, got %v", snap.Outputs)
	}
	if snap.FinishedAt.Before(snap.StartedAt) {
		t.Error("FinishedAt should not precede StartedAt")
	}
}

func TestConcurrentCounters(t *testing.T) {
	stats := New("preplot")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.AddRecords(2)
			stats.AddOutput("x.csv")
		}()
	}
	wg.Wait()

	snap := stats.Snapshot()
	if snap.Records != 100 {
		t.Errorf("Expected Records to be 100, got %d", snap.Records)
	}
	if len(snap.Outputs) != 50 {
		t.Errorf("Expected 50 outputs, got %d", len(snap.Outputs))
	}
}

func TestGetStats(t *testing.T) {
	stats := New("smaqc")
	stats.AddFiles(2)

	got := stats.GetStats()
	if got["tool"] != "smaqc" {
		t.Errorf("Expected tool smaqc, got %v", got["tool"])
	}
	if got["files"] != int64(2) {
		t.Errorf("Expected files 2, got %v", got["files"])
	}

	args := stats.LogArgs()
	if len(args) != 2*len(got) {
		t.Fatalf("Expected %d log args, got %d", 2*len(got), len(args))
	}
	if args[0] != "decode_failures" {
		t.Errorf("Expected keys in sorted order, first is %v", args[0])
	}
}

func TestString(t *testing.T) {
	stats := New("boem")
	stats.AddRecords(7)

	str := stats.String()
	for _, want := range []string{"Run: ", "(boem)", "Records: 7", "Elapsed: "} {
		if !strings.Contains(str, want) {
			t.Errorf("String() missing %q:\n%s", want, str)
		}
	}
}

func TestPersist(t *testing.T) {
	stats := New("speedqc")

	if err := stats.Persist(context.Background()); err == nil {
		t.Error("Expected error when no store is set")
	}

	store := &fakeStore{}
	stats.SetStore(store)
	stats.AddFiles(1)
	if err := stats.Persist(context.Background()); err != nil {
		t.Fatalf("Persist() failed: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].RunID != stats.RunID || store.saved[0].Files != 1 {
		t.Errorf("Unexpected saved stats %+v", store.saved)
	}

	store.err = errors.New("db down")
	if err := stats.Persist(context.Background()); err == nil || !errors.Is(err, store.err) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
}
