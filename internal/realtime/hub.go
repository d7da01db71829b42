package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lebroads/pothole-map/internal/events"
	"github.com/lebroads/pothole-map/internal/models"
	"github.com/lebroads/pothole-map/internal/render"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// Message types pushed to websocket clients
const (
	MessageSnapshot     = "reports.snapshot"
	MessageReport       = "report.updated"
	MessageDraft        = "draft.changed"
	MessageVoteControls = "vote.controls"
)

// Subscriber is the event source the hub follows
type Subscriber interface {
	Subscribe() (<-chan events.Event, func())
}

// ReportReader reads the display state the hub renders from
type ReportReader interface {
	Get(id int64) (models.Report, bool)
	All() []models.Report
}

// Message is one frame sent to a websocket client
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// DraftMessage is the payload of MessageDraft
type DraftMessage struct {
	State string            `json:"state"`
	Draft *render.DraftView `json:"draft,omitempty"`
}

type wsClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub renders core events and broadcasts them to connected map views
type Hub struct {
	events   Subscriber
	reports  ReportReader
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[uuid.UUID]*wsClient
}

// NewHub creates a hub. An allowedOrigins entry of "*" accepts any origin.
func NewHub(events Subscriber, reports ReportReader, allowedOrigins []string) *Hub {
	h := &Hub{
		events:  events,
		reports: reports,
		clients: make(map[uuid.UUID]*wsClient),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Run forwards events to clients until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	ch, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			msg, ok := h.translate(e)
			if !ok {
				continue
			}
			h.broadcast(msg)
		}
	}
}

// translate turns a core event into a rendered client message
func (h *Hub) translate(e events.Event) (Message, bool) {
	msg := Message{Timestamp: e.Timestamp}

	switch data := e.Data.(type) {
	case events.ReportsLoadedData:
		msg.Type = MessageSnapshot
		msg.Data = render.Popups(h.reports.All())
	case models.Report:
		msg.Type = MessageReport
		msg.Data = render.PopupFor(data)
	case events.AggregatesData:
		r, ok := h.reports.Get(data.ReportID)
		if !ok {
			return Message{}, false
		}
		msg.Type = MessageReport
		msg.Data = render.PopupFor(r)
	case events.DraftData:
		dm := DraftMessage{State: data.State}
		if data.Draft != nil {
			view := render.DraftViewFor(*data.Draft)
			dm.Draft = &view
		}
		msg.Type = MessageDraft
		msg.Data = dm
	case events.VoteControlsData:
		msg.Type = MessageVoteControls
		msg.Data = data
	default:
		slog.Debug("No websocket rendering for event", "type", e.Type)
		return Message{}, false
	}
	return msg, true
}

func (h *Hub) broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal websocket message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slog.Warn("Dropping websocket message for slow client", "client_id", c.id, "type", msg.Type)
		}
	}
}

// ServeHTTP upgrades the request and streams updates, starting with a snapshot
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	client := &wsClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	// registered before the snapshot is taken, and under the lock so that
	// no broadcast can overtake it
	h.mu.Lock()
	h.clients[client.id] = client
	snapshot, err := json.Marshal(Message{
		Type:      MessageSnapshot,
		Timestamp: time.Now().UTC(),
		Data:      render.Popups(h.reports.All()),
	})
	if err != nil {
		slog.Error("Failed to marshal snapshot", "error", err)
	} else {
		client.send <- snapshot
	}
	h.mu.Unlock()

	slog.Debug("Websocket client connected", "client_id", client.id)

	go h.writePump(client)
	go h.readPump(client)
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// readPump only tracks liveness; commands arrive over HTTP
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		slog.Debug("Websocket client disconnected", "client_id", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
