package service

import (
	"log/slog"
	"sync"

	"github.com/emhgit/pdf-voice-assistant/model"
)

// EventSink receives push events for one client connection. The production
// sink wraps a WebSocket connection; tests inject fakes.
type EventSink interface {
	WriteEvent(ev model.Event) error
}

// SocketRegistry maps session tokens to their live push channel. At most one
// channel per token; lifecycle follows the connection's open/close events,
// not the session's lifetime.
type SocketRegistry struct {
	sinks map[string]EventSink
	mu    sync.Mutex
}

// NewSocketRegistry creates an empty registry.
func NewSocketRegistry() *SocketRegistry {
	return &SocketRegistry{
		sinks: make(map[string]EventSink),
	}
}

// Register binds a push channel to a token. If the token already has a live
// channel the existing one is kept and the new one is rejected; the caller
// should close the rejected connection. Returns whether the sink was bound.
func (r *SocketRegistry) Register(token string, sink EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[token]; exists {
		slog.Warn("push channel already registered, dropping new connection", "session_id", token)
		return false
	}
	r.sinks[token] = sink
	slog.Debug("push channel registered", "session_id", token)
	return true
}

// Unregister removes the token's channel mapping. Safe to call when absent.
func (r *SocketRegistry) Unregister(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[token]; !exists {
		slog.Debug("no push channel to unregister", "session_id", token)
		return
	}
	delete(r.sinks, token)
	slog.Debug("push channel unregistered", "session_id", token)
}

// Send delivers an event to the token's channel, best-effort. Events for
// tokens without a registered channel are dropped: a client may upload audio
// before opening its channel, or after it closed. Write failures are logged
// and swallowed so the pipeline never blocks on a dead connection.
func (r *SocketRegistry) Send(token string, ev model.Event) {
	r.mu.Lock()
	sink := r.sinks[token]
	r.mu.Unlock()

	if sink == nil {
		slog.Debug("no push channel registered, dropping event",
			"session_id", token,
			"event_type", ev.Type,
		)
		return
	}

	if err := sink.WriteEvent(ev); err != nil {
		slog.Warn("failed to push event",
			"session_id", token,
			"event_type", ev.Type,
			"error", err,
		)
	}
}

// Count returns the number of registered channels.
func (r *SocketRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}
