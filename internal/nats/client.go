package nats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/saviobatista/navqc/internal/types"
)

const (
	StreamName = "NAVQC_EVENTS"
	// SubjectProcessed is followed by the tool name
	SubjectProcessed = "navqc.processed"
)

// Subject returns the subject events of a tool are published on
func Subject(tool string) string {
	if tool == "" {
		tool = "unknown"
	}
	return SubjectProcessed + "." + tool
}

// Client represents a NATS client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a new NATS client
func New(url string) (*Client, error) {
	nc, err := nats.Connect(url, nats.Name("navqc"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	// Create stream if it doesn't exist
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectProcessed + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{
		conn: nc,
		js:   js,
	}, nil
}

// PublishProcessed announces that a tool finished with one input file
func (c *Client) PublishProcessed(ev *types.ProcessedEvent) error {
	if ev == nil {
		return fmt.Errorf("nil event")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := c.js.Publish(Subject(ev.Tool), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// SubscribeProcessed delivers events of one tool, or of every tool when tool
// is empty
func (c *Client) SubscribeProcessed(tool string, handler func(*types.ProcessedEvent)) (*nats.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("nil handler")
	}
	subject := SubjectProcessed + ".>"
	if tool != "" {
		subject = Subject(tool)
	}

	sub, err := c.js.Subscribe(subject, func(msg *nats.Msg) {
		var ev types.ProcessedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("dropping malformed event", "subject", msg.Subject, "error", err)
			return
		}
		handler(&ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub, nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
