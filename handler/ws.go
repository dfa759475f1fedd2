package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/emhgit/pdf-voice-assistant/model"
	"github.com/emhgit/pdf-voice-assistant/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SocketHandler upgrades client connections to WebSocket push channels. The
// handshake carries the session token as the `token` query parameter; a
// missing token rejects the connection. The token is deliberately not checked
// against the session store — an unknown token is accepted and simply never
// receives events.
type SocketHandler struct {
	registry *service.SocketRegistry
	upgrader websocket.Upgrader
}

func NewSocketHandler(registry *service.SocketRegistry) *SocketHandler {
	return &SocketHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin policy is handled by the CORS middleware on the
			// HTTP surface; the browser client connects from another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Connect handles GET /ws?token=<sessionToken>.
func (h *SocketHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.Warn("websocket upgrade failed", "session_id", token, "error", err)
		return
	}

	client := &socketClient{conn: conn}
	if !h.registry.Register(token, client) {
		// A channel is already live for this token; the existing one wins.
		conn.Close()
		return
	}

	defer func() {
		h.registry.Unregister(token)
		conn.Close()
	}()

	// No client-to-server messages are part of the contract; read only to
	// detect the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			slog.Debug("push channel closed", "session_id", token, "error", err)
			return
		}
	}
}

// socketClient adapts a WebSocket connection to service.EventSink. The write
// mutex serializes pushes so concurrent pipeline runs for the same token
// cannot interleave frames.
type socketClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socketClient) WriteEvent(ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}
