// Package events is the in-process notification bus between the core and the
// rendering adapter.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lebroads/pothole-map/internal/models"
)

// Event types
const (
	// Cache events
	ReportsLoaded     = "reports.loaded"
	ReportUpserted    = "report.upserted"
	AggregatesChanged = "report.aggregates_changed"

	// Draft session events
	DraftChanged = "draft.changed"

	// Vote events
	VoteControlsChanged = "vote.controls_changed"
)

// Event is one notification pushed to subscribers
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// ReportsLoadedData is published after a bulk load
type ReportsLoadedData struct {
	Loaded  int `json:"loaded"`
	Dropped int `json:"dropped"`
}

// AggregatesData carries the authoritative counters of one report
type AggregatesData struct {
	ReportID int64 `json:"report_id"`
	models.VoteAggregates
}

// DraftData describes a draft session transition
type DraftData struct {
	State string        `json:"state"`
	Draft *models.Draft `json:"draft,omitempty"`
}

// VoteControlsData tells the renderer whether a report's vote buttons are usable
type VoteControlsData struct {
	ReportID int64 `json:"report_id"`
	Enabled  bool  `json:"enabled"`
}

// New builds an event stamped with a fresh id and the current time
func New(eventType string, data any) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher accepts events. Publish must not block.
type Publisher interface {
	Publish(e Event)
}

// Bus fans events out to subscribers. Slow subscribers lose events rather
// than stalling the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

// NewBus creates a bus whose subscriber channels hold buffer events
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			slog.Warn("Dropping event for slow subscriber", "subscriber", id, "type", e.Type)
		}
	}
}

// Subscribers returns the number of active subscribers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Discard is a publisher that drops everything
type Discard struct{}

func (Discard) Publish(Event) {}
