package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/drydock-dev/drydock/internal/domain"
)

type hubTestEnv struct {
	hub    *Hub
	srv    *httptest.Server
	cancel context.CancelFunc
}

func newTestHub(t *testing.T) *hubTestEnv {
	t.Helper()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, ParseTopics(r.URL.Query().Get("topics")))
	}))

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return &hubTestEnv{hub: hub, srv: srv, cancel: cancel}
}

func (e *hubTestEnv) dial(t *testing.T, topics string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http")
	if topics != "" {
		url += "?topics=" + topics
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (e *hubTestEnv) waitForClients(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for e.hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, e.hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type insightFrame struct {
	Event   string         `json:"event"`
	Payload domain.Insight `json:"payload"`
}

func readFrame(t *testing.T, conn *websocket.Conn) insightFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	var frame insightFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	return frame
}

func TestHubPublish_ReachesSubscriber(t *testing.T) {
	env := newTestHub(t)

	conn := env.dial(t, "")
	env.waitForClients(t, 1)

	env.hub.Publish("insight.created", &domain.Insight{
		Severity: domain.SeverityCritical,
		Category: "oom",
		Title:    "container restarting",
	})

	frame := readFrame(t, conn)
	if frame.Event != "insight.created" {
		t.Fatalf("expected insight.created, got %s", frame.Event)
	}
	if frame.Payload.Severity != domain.SeverityCritical {
		t.Fatalf("expected critical, got %s", frame.Payload.Severity)
	}
}

func TestHubPublish_TopicFiltering(t *testing.T) {
	env := newTestHub(t)

	criticalOnly := env.dial(t, "critical")
	everything := env.dial(t, "all")
	env.waitForClients(t, 2)

	env.hub.Publish("insight.created", &domain.Insight{Severity: domain.SeverityCritical})
	env.hub.Publish("insight.created", &domain.Insight{Severity: domain.SeverityInfo})

	// The critical-only client sees just the first insight.
	frame := readFrame(t, criticalOnly)
	if frame.Payload.Severity != domain.SeverityCritical {
		t.Fatalf("expected critical, got %s", frame.Payload.Severity)
	}

	frame = readFrame(t, everything)
	if frame.Payload.Severity != domain.SeverityCritical {
		t.Fatalf("expected critical, got %s", frame.Payload.Severity)
	}
	frame = readFrame(t, everything)
	if frame.Payload.Severity != domain.SeverityInfo {
		t.Fatalf("expected info, got %s", frame.Payload.Severity)
	}

	criticalOnly.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := criticalOnly.ReadMessage(); err == nil {
		t.Fatal("expected no frame for info insight on critical-only client")
	}
}

func TestHubPublish_NonInsightGoesToAll(t *testing.T) {
	env := newTestHub(t)

	conn := env.dial(t, "all")
	env.waitForClients(t, 1)

	env.hub.Publish("action.completed", &domain.Action{Status: domain.ActionStatusCompleted})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	var frame struct {
		Event   string        `json:"event"`
		Payload domain.Action `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if frame.Event != "action.completed" {
		t.Fatalf("expected action.completed, got %s", frame.Event)
	}
	if frame.Payload.Status != domain.ActionStatusCompleted {
		t.Fatalf("expected completed, got %s", frame.Payload.Status)
	}
}

func TestHubShutdown_ClosesClients(t *testing.T) {
	env := newTestHub(t)

	conn := env.dial(t, "")
	env.waitForClients(t, 1)

	env.cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to close after shutdown")
	}
}

func TestClientControlFrames(t *testing.T) {
	c := &Client{topics: map[string]struct{}{TopicInfo: {}}}

	if c.wants([]string{TopicCritical}) {
		t.Fatal("client must not want critical before subscribing")
	}

	c.handleControl([]byte(`{"action":"subscribe","topics":["critical"]}`))
	if !c.wants([]string{TopicCritical}) {
		t.Fatal("client must want critical after subscribing")
	}

	c.handleControl([]byte(`{"action":"unsubscribe","topics":["critical","info"]}`))
	if c.wants([]string{TopicCritical, TopicInfo}) {
		t.Fatal("client must not want unsubscribed topics")
	}

	// Garbage and unknown topics change nothing.
	c.handleControl([]byte(`not json`))
	c.handleControl([]byte(`{"action":"subscribe","topics":["bogus"]}`))
	if len(c.topicList()) != 0 {
		t.Fatalf("expected empty topic set, got %v", c.topicList())
	}
}

func TestHubResubscribe_OverTheWire(t *testing.T) {
	env := newTestHub(t)

	conn := env.dial(t, "info")
	env.waitForClients(t, 1)

	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"action":"subscribe","topics":["critical"]}`)); err != nil {
		t.Fatalf("failed to send subscribe frame: %v", err)
	}

	// The frame is applied by the read pump, so keep publishing until the
	// new subscription takes effect; the first delivered frame ends the test.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				env.hub.Publish("insight.created", &domain.Insight{Severity: domain.SeverityCritical})
			}
		}
	}()

	frame := readFrame(t, conn)
	if frame.Payload.Severity != domain.SeverityCritical {
		t.Fatalf("expected critical, got %s", frame.Payload.Severity)
	}
}

func TestParseTopics(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", []string{TopicAll}},
		{"critical", []string{TopicCritical}},
		{"critical,warning", []string{TopicCritical, TopicWarning}},
		{"CRITICAL", []string{TopicCritical}},
		{" info , all ", []string{TopicInfo, TopicAll}},
		{"bogus", []string{TopicAll}},
	}
	for _, c := range cases {
		if got := ParseTopics(c.raw); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("ParseTopics(%q): expected %v, got %v", c.raw, c.want, got)
		}
	}
}
