package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const pingInterval = 90 * time.Second

// PGConfig configures the LISTEN connection
type PGConfig struct {
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
}

// PGListener receives vote change notifications raised by the votes trigger
type PGListener struct {
	listener *pq.Listener
	channel  string
	handle   ChangeHandler

	// OnReconnect runs after the connection was re-established. Notifications
	// sent while disconnected are lost, so callers resynchronise here.
	OnReconnect func(ctx context.Context)
}

// NewPGListener creates a listener on its own connection. It does not connect until Run.
func NewPGListener(dsn string, cfg PGConfig, handle ChangeHandler) *PGListener {
	callback := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			slog.Info("Vote change listener connected", "channel", cfg.Channel)
		case pq.ListenerEventDisconnected:
			slog.Warn("Vote change listener disconnected", "error", err)
		case pq.ListenerEventReconnected:
			slog.Info("Vote change listener reconnected", "channel", cfg.Channel)
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Warn("Vote change listener connection attempt failed", "error", err)
		}
	}

	return &PGListener{
		listener: pq.NewListener(dsn, cfg.MinReconnect, cfg.MaxReconnect, callback),
		channel:  cfg.Channel,
		handle:   handle,
	}
}

// Run listens until ctx is cancelled
func (l *PGListener) Run(ctx context.Context) error {
	if err := l.listener.Listen(l.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	defer func() {
		if err := l.listener.Close(); err != nil {
			slog.Warn("Failed to close vote change listener", "error", err)
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-l.listener.Notify:
			if !ok {
				return nil
			}
			// nil marks a re-established connection
			if n == nil {
				if l.OnReconnect != nil {
					l.OnReconnect(ctx)
				}
				continue
			}
			id, err := ParseReportID(n.Extra)
			if err != nil {
				slog.Warn("Ignoring malformed vote change notification", "channel", n.Channel, "error", err)
				continue
			}
			l.handle(ctx, id)
		case <-ticker.C:
			go func() {
				if err := l.listener.Ping(); err != nil {
					slog.Debug("Vote change listener ping failed", "error", err)
				}
			}()
		}
	}
}
