package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one connected WebSocket consumer with its topic subscriptions.
// The initial set comes from the connect URL; clients may change it later
// with subscribe/unsubscribe frames.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	topics map[string]struct{}
}

// Attach registers a freshly upgraded connection and starts its read and
// write pumps. The caller must not use conn afterwards.
func (h *Hub) Attach(conn *websocket.Conn, topics []string) *Client {
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 32),
		topics: make(map[string]struct{}, len(topics)),
	}
	for _, t := range topics {
		c.topics[t] = struct{}{}
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump()

	return c
}

func (c *Client) wants(topics []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.topics[TopicAll]; ok {
		return true
	}
	for _, t := range topics {
		if _, ok := c.topics[t]; ok {
			return true
		}
	}
	return false
}

func (c *Client) topicList() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

// controlFrame is the only inbound message a client may send: a runtime
// change to its topic subscriptions.
type controlFrame struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

func (c *Client) handleControl(data []byte) {
	var frame controlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, raw := range frame.Topics {
		t, ok := knownTopic(raw)
		if !ok {
			continue
		}
		switch frame.Action {
		case "subscribe":
			c.topics[t] = struct{}{}
		case "unsubscribe":
			delete(c.topics, t)
		}
	}
}

// readPump applies inbound subscribe/unsubscribe frames and detaches the
// client when the peer goes away. Anything unparseable is ignored.
func (c *Client) readPump() {
	defer func() {
		c.detach()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleControl(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}
