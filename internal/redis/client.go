package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saviobatista/navqc/internal/types"
)

// DefaultTTL is how long a processed file is remembered
const DefaultTTL = 30 * 24 * time.Hour

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client is a ledger of processed input files
type Client struct {
	client RedisClientInterface
	ttl    time.Duration
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client, ttl: DefaultTTL}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client, ttl: DefaultTTL}
}

// SetTTL changes how long new entries are kept
func (c *Client) SetTTL(ttl time.Duration) {
	c.ttl = ttl
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

func fileKey(fileName, checksum string) string {
	return fmt.Sprintf("navqc:file:%s:%s", fileName, checksum)
}

// MarkProcessed remembers a processed file
func (c *Client) MarkProcessed(ctx context.Context, rec *types.FileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal file record: %w", err)
	}
	return c.client.Set(ctx, fileKey(rec.FileName, rec.Checksum), data, c.ttl).Err()
}

// GetFileRecord returns the stored record, or nil when the file is unknown
func (c *Client) GetFileRecord(ctx context.Context, fileName, checksum string) (*types.FileRecord, error) {
	data, err := c.client.Get(ctx, fileKey(fileName, checksum)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}

	var rec types.FileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file record: %w", err)
	}
	return &rec, nil
}

// IsProcessed reports whether a file with this name and content was seen
func (c *Client) IsProcessed(ctx context.Context, fileName, checksum string) (bool, error) {
	rec, err := c.GetFileRecord(ctx, fileName, checksum)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Forget drops a file from the ledger so it is processed again
func (c *Client) Forget(ctx context.Context, fileName, checksum string) error {
	return c.client.Del(ctx, fileKey(fileName, checksum)).Err()
}
