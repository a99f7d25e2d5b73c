package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saviobatista/navqc/internal/types"
)

// fakeRedis keeps values in a map
type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	closed bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		return redis.NewStatusResult("", errors.New("unsupported value"))
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestNew_InvalidAddress(t *testing.T) {
	client, err := New("invalid:address:12345")
	if err == nil {
		t.Error("New() should fail with invalid address")
		client.Close()
		return
	}
	if client != nil {
		t.Error("New() should return nil client on error")
	}
}

func TestClient_Ledger(t *testing.T) {
	fake := newFakeRedis()
	client := NewWithClient(fake)
	ctx := context.Background()

	rec := &types.FileRecord{
		FileName:    "5331111061-EOL_Report.csv",
		FilePath:    "/nav/Seq1061/5331111061-EOL_Report.csv",
		LineName:    "5331111061",
		Checksum:    "abc123",
		Sections:    4,
		Rows:        1200,
		ProcessedAt: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
	}

	ok, err := client.IsProcessed(ctx, rec.FileName, rec.Checksum)
	if err != nil {
		t.Fatalf("IsProcessed() failed: %v", err)
	}
	if ok {
		t.Error("Expected unknown file not to be processed")
	}

	if err := client.MarkProcessed(ctx, rec); err != nil {
		t.Fatalf("MarkProcessed() failed: %v", err)
	}
	if ttl := fake.ttls["navqc:file:5331111061-EOL_Report.csv:abc123"]; ttl != DefaultTTL {
		t.Errorf("Expected TTL %v, got %v", DefaultTTL, ttl)
	}

	got, err := client.GetFileRecord(ctx, rec.FileName, rec.Checksum)
	if err != nil {
		t.Fatalf("GetFileRecord() failed: %v", err)
	}
	if got == nil || got.LineName != rec.LineName || got.Rows != rec.Rows || !got.ProcessedAt.Equal(rec.ProcessedAt) {
		t.Errorf("Unexpected record %+v", got)
	}

	// same name, different content
	ok, err = client.IsProcessed(ctx, rec.FileName, "other")
	if err != nil || ok {
		t.Errorf("Expected changed file not to be processed, got %v, %v", ok, err)
	}

	if err := client.Forget(ctx, rec.FileName, rec.Checksum); err != nil {
		t.Fatalf("Forget() failed: %v", err)
	}
	ok, _ = client.IsProcessed(ctx, rec.FileName, rec.Checksum)
	if ok {
		t.Error("Expected forgotten file not to be processed")
	}

	client.SetTTL(time.Hour)
	if err := client.MarkProcessed(ctx, rec); err != nil {
		t.Fatalf("MarkProcessed() failed: %v", err)
	}
	if ttl := fake.ttls["navqc:file:5331111061-EOL_Report.csv:abc123"]; ttl != time.Hour {
		t.Errorf("Expected TTL 1h, got %v", ttl)
	}

	if err := client.Close(); err != nil || !fake.closed {
		t.Error("Expected Close() to close the underlying client")
	}
}

func TestClient_GetFileRecord_Errors(t *testing.T) {
	fake := newFakeRedis()
	client := NewWithClient(fake)
	ctx := context.Background()

	fake.data[fileKey("a.csv", "x")] = "{not json"
	if _, err := client.GetFileRecord(ctx, "a.csv", "x"); err == nil {
		t.Error("Expected error for invalid JSON")
	}

	fake.getErr = errors.New("connection reset")
	if _, err := client.IsProcessed(ctx, "a.csv", "x"); err == nil {
		t.Error("Expected error when Redis fails")
	}
}
