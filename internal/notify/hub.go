package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/drydock-dev/drydock/internal/domain"
)

const (
	TopicCritical = "critical"
	TopicWarning  = "warning"
	TopicInfo     = "info"
	TopicAll      = "all"
)

// Message is the frame pushed to connected operator consoles.
type Message struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type outbound struct {
	topics []string
	data   []byte
}

// Hub fans events out to live WebSocket clients. Delivery is best effort:
// a client that cannot keep up has frames dropped rather than stalling the
// emitting request.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	log *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run owns the client set. Call in a goroutine; it returns when ctx is
// cancelled, closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("notification client connected", "topics", c.topicList())

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Debug("notification client disconnected")

		case out := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if !c.wants(out.topics) {
					continue
				}
				select {
				case c.send <- out.data:
				default:
					// slow consumer, drop the frame
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish broadcasts an event to subscribed clients. Insight payloads are
// additionally tagged with their severity so clients can subscribe to
// critical-only streams.
func (h *Hub) Publish(event string, payload any) {
	topics := []string{TopicAll}
	if insight, ok := payload.(*domain.Insight); ok {
		topics = append(topics, string(insight.Severity))
	}

	data, err := json.Marshal(Message{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.log.Error("failed to marshal notification", "event", event, "err", err)
		return
	}

	select {
	case h.broadcast <- outbound{topics: topics, data: data}:
	default:
		h.log.Warn("notification dropped, broadcast queue full", "event", event)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// knownTopic normalizes a raw topic name and reports whether it is one the
// hub serves.
func knownTopic(raw string) (string, bool) {
	switch t := strings.TrimSpace(strings.ToLower(raw)); t {
	case TopicCritical, TopicWarning, TopicInfo, TopicAll:
		return t, true
	default:
		return "", false
	}
}

// ParseTopics turns a comma separated subscription list into the known topic
// set. Unknown names are ignored; an empty result subscribes to everything.
func ParseTopics(raw string) []string {
	var topics []string
	for _, part := range strings.Split(raw, ",") {
		if t, ok := knownTopic(part); ok {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return []string{TopicAll}
	}
	return topics
}
