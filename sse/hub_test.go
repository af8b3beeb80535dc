package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/speechbridge/bridge"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()
	t.Cleanup(func() {
		hub.Stop()
		<-done
	})
	return hub
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data, ok := <-c.Events():
		if !ok {
			t.Fatal("client queue closed")
		}
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestClient_Metadata(t *testing.T) {
	client := NewClient("ws:abc", WithTransport("ws"), WithRemoteAddr("127.0.0.1:9"))

	if client.ID() != "ws:abc" {
		t.Errorf("expected ID 'ws:abc', got %q", client.ID())
	}
	if client.Transport() != "ws" {
		t.Errorf("expected transport 'ws', got %q", client.Transport())
	}
	if client.Metadata()["remote_addr"] != "127.0.0.1:9" {
		t.Errorf("unexpected metadata: %v", client.Metadata())
	}
}

func TestClient_SendDropsWhenFull(t *testing.T) {
	client := NewClient("sse:slow")
	for i := 0; i < clientBuffer; i++ {
		if !client.Send([]byte("msg")) {
			t.Fatalf("send %d failed before buffer was full", i)
		}
	}
	if client.Send([]byte("overflow")) {
		t.Error("expected send to fail when queue is full")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	client := NewClient("sse:x")
	client.Close()
	client.Close()

	if _, ok := <-client.Events(); ok {
		t.Error("expected closed queue")
	}
}

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	hub := startHub(t)

	a := NewClient("sse:a")
	b := NewClient("ws:b")
	hub.Register(a)
	hub.Register(b)
	waitForClients(t, hub, 2)

	hub.BroadcastToPattern("*", []byte("all"))
	if got := string(receive(t, a)); got != "all" {
		t.Errorf("client a got %q", got)
	}
	if got := string(receive(t, b)); got != "all" {
		t.Errorf("client b got %q", got)
	}

	hub.BroadcastToPattern("ws:*", []byte("ws-only"))
	if got := string(receive(t, b)); got != "ws-only" {
		t.Errorf("client b got %q", got)
	}
	select {
	case msg := <-a.Events():
		t.Errorf("client a should not receive ws-only message, got %q", msg)
	case <-time.After(50 * time.Millisecond):
	}

	hub.Unregister(a)
	waitForClients(t, hub, 1)
	if _, ok := <-a.Events(); ok {
		t.Error("expected unregistered client queue to be closed")
	}
	if hub.Client("ws:b") == nil {
		t.Error("expected ws:b to remain registered")
	}
	if ids := hub.ClientIDs(); len(ids) != 1 || ids[0] != "ws:b" {
		t.Errorf("unexpected client IDs: %v", ids)
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	client := NewClient("sse:a")
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Stop()
	hub.Stop()
	<-done

	if _, ok := <-client.Events(); ok {
		t.Error("expected client queue closed after stop")
	}
	if hub.Register(NewClient("sse:late")) {
		t.Error("expected register to fail after stop")
	}
	if hub.BroadcastToPattern("*", []byte("x")) {
		t.Error("expected broadcast to fail after stop")
	}
}

func TestNotifier_Notify(t *testing.T) {
	hub := startHub(t)
	client := NewClient("sse:a")
	hub.Register(client)
	waitForClients(t, hub, 1)

	n := NewNotifier(hub)
	err := n.Notify(context.Background(), bridge.Notification{
		Method: "SpeechRecognizer.onSpeechAvailability",
		Args:   true,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	var got struct {
		Method string `json:"method"`
		Args   bool   `json:"args"`
	}
	if err := json.Unmarshal(receive(t, client), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Method != "SpeechRecognizer.onSpeechAvailability" || !got.Args {
		t.Errorf("unexpected notification: %+v", got)
	}
}

func TestNotifier_CanceledContext(t *testing.T) {
	n := NewNotifier(NewHub())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := n.Notify(ctx, bridge.Notification{Method: "m"}); err == nil {
		t.Error("expected error for canceled context")
	}
}

type rejectAll struct{}

func (rejectAll) BroadcastToPattern(string, []byte) bool { return false }

func TestNotifier_StoppedHub(t *testing.T) {
	n := &Notifier{Broadcaster: rejectAll{}}
	if err := n.Notify(context.Background(), bridge.Notification{Method: "m"}); err != ErrHubStopped {
		t.Errorf("expected ErrHubStopped, got %v", err)
	}
}

func TestServeSSE_StreamsNotifications(t *testing.T) {
	hub := startHub(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(hub, w, r, "sse:test", time.Hour)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	event, data := readEvent()
	if event != EventTypeConnected {
		t.Fatalf("expected connected event, got %q", event)
	}
	var connected ConnectedEvent
	if err := json.Unmarshal([]byte(data), &connected); err != nil {
		t.Fatalf("decode connected: %v", err)
	}
	if connected.ClientID != "sse:test" || connected.Metadata["transport"] != "sse" {
		t.Errorf("unexpected connected event: %+v", connected)
	}

	waitForClients(t, hub, 1)
	if err := NewNotifier(hub).Notify(context.Background(), bridge.Notification{
		Method: "SpeechRecognizer.onCurrentLocale",
		Args:   "en_US",
	}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	event, data = readEvent()
	if event != EventTypeNotification {
		t.Errorf("expected notification event, got %q", event)
	}
	if !strings.Contains(data, `"SpeechRecognizer.onCurrentLocale"`) || !strings.Contains(data, `"en_US"`) {
		t.Errorf("unexpected data: %s", data)
	}

	cancel()
	waitForClients(t, hub, 0)
}

func TestComponent_Lifecycle(t *testing.T) {
	c := NewComponent("/v1/speech/events")
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != "unhealthy" {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if h := c.Health(ctx); h.Status != "healthy" || h.Message != "0 clients connected" {
		t.Errorf("unexpected health: %+v", h)
	}
	if d := c.Describe(); d.Type != "hub" || d.Details != "sse=/v1/speech/events" {
		t.Errorf("unexpected description: %+v", d)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
