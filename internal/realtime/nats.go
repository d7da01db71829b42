package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	Name           string
	Subject        string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// VoteChangedMessage is published after a local vote was recorded
type VoteChangedMessage struct {
	ReportID  int64     `json:"report_id"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// NATSClient announces local votes and receives the votes of other instances
type NATSClient struct {
	conn    *nats.Conn
	subject string
	origin  string

	mu  sync.Mutex
	sub *nats.Subscription

	reconnects atomic.Int64
}

// NewNATSClient connects to NATS
func NewNATSClient(cfg NATSConfig) (*NATSClient, error) {
	client := &NATSClient{
		subject: cfg.Subject,
		origin:  ulid.Make().String(),
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			client.reconnects.Add(1)
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	client.conn = conn

	return client, nil
}

// NotifyVoteChanged publishes the report id for other instances
func (c *NATSClient) NotifyVoteChanged(ctx context.Context, reportID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(VoteChangedMessage{
		ReportID:  reportID,
		Origin:    c.origin,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal vote change: %w", err)
	}

	if err := c.conn.Publish(c.subject, payload); err != nil {
		return fmt.Errorf("failed to publish vote change: %w", err)
	}
	return nil
}

// Subscribe delivers vote changes from other instances to handle. Messages
// this client published itself are skipped.
func (c *NATSClient) Subscribe(ctx context.Context, handle ChangeHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub != nil {
		return fmt.Errorf("already subscribed to %s", c.subject)
	}

	sub, err := c.conn.Subscribe(c.subject, func(msg *nats.Msg) {
		id, ok, err := decodeVoteChange(msg.Data, c.origin)
		if err != nil {
			slog.Warn("Ignoring malformed vote change message", "subject", msg.Subject, "error", err)
			return
		}
		if ok {
			handle(ctx, id)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.sub = sub
	return nil
}

// decodeVoteChange returns ok=false for messages from self
func decodeVoteChange(data []byte, self string) (int64, bool, error) {
	var msg VoteChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return 0, false, fmt.Errorf("failed to unmarshal vote change: %w", err)
	}
	if msg.ReportID <= 0 {
		return 0, false, fmt.Errorf("invalid report id %d", msg.ReportID)
	}
	if msg.Origin == self {
		return 0, false, nil
	}
	return msg.ReportID, true, nil
}

// IsConnected returns connection status
func (c *NATSClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Reconnects returns number of reconnections
func (c *NATSClient) Reconnects() int64 {
	return c.reconnects.Load()
}

// Close drains the subscription and closes the connection
func (c *NATSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			slog.Warn("Failed to unsubscribe from vote changes", "error", err)
		}
		c.sub = nil
	}
	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.conn.Close()
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	}
	return nil
}
