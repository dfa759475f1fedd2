package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emhgit/pdf-voice-assistant/model"
	"github.com/emhgit/pdf-voice-assistant/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newSocketServer(t *testing.T) (*service.SocketRegistry, *httptest.Server) {
	t.Helper()

	registry := service.NewSocketRegistry()
	handler := NewSocketHandler(registry)

	router := gin.New()
	router.GET("/ws", handler.Connect)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return registry, server
}

func wsURL(server *httptest.Server, token string) string {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func TestSocketConnectMissingToken(t *testing.T) {
	_, server := newSocketServer(t)

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.StatusCode)
	}
}

func TestSocketConnectAndReceive(t *testing.T) {
	registry, server := newSocketServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "token-1"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// Registration happens in the server's connection goroutine
	waitForCount(t, registry, 1)

	registry.Send("token-1", model.StatusEvent("transcribing", 20))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event model.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if event.Type != model.EventStatus || event.Status != "transcribing" || event.Progress != 20 {
		t.Errorf("Unexpected event: %+v", event)
	}
}

func TestSocketDisconnectUnregisters(t *testing.T) {
	registry, server := newSocketServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "token-1"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	waitForCount(t, registry, 1)

	conn.Close()
	waitForCount(t, registry, 0)

	// Events for the closed channel are dropped without error
	registry.Send("token-1", model.StatusEvent("transcribing", 20))
}

func TestSocketDuplicateConnectionRejected(t *testing.T) {
	registry, server := newSocketServer(t)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(server, "token-1"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer first.Close()

	waitForCount(t, registry, 1)

	// The second connection upgrades but is closed by the server; the first
	// channel stays registered.
	second, _, err := websocket.DefaultDialer.Dial(wsURL(server, "token-1"), nil)
	if err == nil {
		second.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := second.ReadMessage(); err == nil {
			t.Error("Expected duplicate connection to be closed")
		}
		second.Close()
	}

	if registry.Count() != 1 {
		t.Errorf("Expected 1 registered channel, got %d", registry.Count())
	}
}

func waitForCount(t *testing.T, registry *service.SocketRegistry, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.Count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d registered channels, got %d", want, registry.Count())
}
