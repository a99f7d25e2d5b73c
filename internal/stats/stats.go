package stats

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saviobatista/navqc/internal/types"
)

// Store persists run summaries
type Store interface {
	StoreRunStats(ctx context.Context, s types.RunStats) error
}

// Stats tracks counters for one tool run
type Stats struct {
	RunID     string
	Tool      string
	StartedAt time.Time

	Files          int64
	SkippedFiles   int64
	FailedFiles    int64
	Records        int64
	DecodeFailures int64
	Sections       int64
	RowsWritten    int64

	outputs []string
	store   Store

	mu sync.RWMutex
}

// New creates a new Stats instance with a fresh run ID
func New(tool string) *Stats {
	return &Stats{
		RunID:     uuid.New().String(),
		Tool:      tool,
		StartedAt: time.Now().UTC(),
	}
}

// SetStore sets the store used by Persist
func (s *Stats) SetStore(store Store) {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
}

func (s *Stats) AddFiles(n int)          { atomic.AddInt64(&s.Files, int64(n)) }
func (s *Stats) AddSkipped(n int)        { atomic.AddInt64(&s.SkippedFiles, int64(n)) }
func (s *Stats) AddFailed(n int)         { atomic.AddInt64(&s.FailedFiles, int64(n)) }
func (s *Stats) AddRecords(n int)        { atomic.AddInt64(&s.Records, int64(n)) }
func (s *Stats) AddDecodeFailures(n int) { atomic.AddInt64(&s.DecodeFailures, int64(n)) }
func (s *Stats) AddSections(n int)       { atomic.AddInt64(&s.Sections, int64(n)) }
func (s *Stats) AddRows(n int)           { atomic.AddInt64(&s.RowsWritten, int64(n)) }

// AddOutput records a file written by the run
func (s *Stats) AddOutput(paths ...string) {
	s.mu.Lock()
	s.outputs = append(s.outputs, paths...)
	s.mu.Unlock()
}

// Snapshot returns the current counters as a run summary
func (s *Stats) Snapshot() types.RunStats {
	s.mu.RLock()
	outputs := append([]string(nil), s.outputs...)
	s.mu.RUnlock()
	sort.Strings(outputs)

	return types.RunStats{
		RunID:          s.RunID,
		Tool:           s.Tool,
		StartedAt:      s.StartedAt,
		FinishedAt:     time.Now().UTC(),
		Files:          atomic.LoadInt64(&s.Files),
		SkippedFiles:   atomic.LoadInt64(&s.SkippedFiles),
		FailedFiles:    atomic.LoadInt64(&s.FailedFiles),
		Records:        atomic.LoadInt64(&s.Records),
		DecodeFailures: atomic.LoadInt64(&s.DecodeFailures),
		Sections:       atomic.LoadInt64(&s.Sections),
		RowsWritten:    atomic.LoadInt64(&s.RowsWritten),
		Outputs:        outputs,
	}
}

// GetStats returns the counters keyed by name, for structured logging
func (s *Stats) GetStats() map[string]interface{} {
	snap := s.Snapshot()
	return map[string]interface{}{
		"run_id":          snap.RunID,
		"tool":            snap.Tool,
		"files":           snap.Files,
		"skipped_files":   snap.SkippedFiles,
		"failed_files":    snap.FailedFiles,
		"records":         snap.Records,
		"decode_failures": snap.DecodeFailures,
		"sections":        snap.Sections,
		"rows_written":    snap.RowsWritten,
		"outputs":         len(snap.Outputs),
		"elapsed":         snap.FinishedAt.Sub(snap.StartedAt),
	}
}

// LogArgs flattens GetStats into slog key/value pairs in a stable order
func (s *Stats) LogArgs() []any {
	stats := s.GetStats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, stats[k])
	}
	return args
}

// String returns a string representation of the statistics
func (s *Stats) String() string {
	snap := s.Snapshot()
	return fmt.Sprintf(
		"Run: %s (%s)\n"+
			"Files: %d\n"+
			"Skipped Files: %d\n"+
			"Failed Files: %d\n"+
			"Records: %d\n"+
			"Decode Failures: %d\n"+
			"Sections: %d\n"+
			"Rows Written: %d\n"+
			"Outputs: %d\n"+
			"Elapsed: %s",
		snap.RunID, snap.Tool,
		snap.Files,
		snap.SkippedFiles,
		snap.FailedFiles,
		snap.Records,
		snap.DecodeFailures,
		snap.Sections,
		snap.RowsWritten,
		len(snap.Outputs),
		snap.FinishedAt.Sub(snap.StartedAt).Round(time.Millisecond),
	)
}

// Persist stores the current statistics
func (s *Stats) Persist(ctx context.Context) error {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return fmt.Errorf("stats store not set")
	}
	if err := store.StoreRunStats(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist run stats: %w", err)
	}
	return nil
}
