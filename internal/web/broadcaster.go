package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Event is a single session event for the SSE status stream. Kind is one of
// "info", "error", "state", "countdown", "shot".
type Event struct {
	Time string `json:"t"`
	Kind string `json:"kind,omitempty"`
	Msg  string `json:"msg"`
}

// EventBroadcaster fans session events out to the connected SSE clients.
type EventBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewEventBroadcaster creates a new broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast events and a cleanup
// function. The caller must call the returned cleanup when done (e.g. on
// client disconnect).
func (b *EventBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Broadcast sends an event to all subscribed clients as JSON:
// {"t":"...","kind":"shot","msg":"2/4"}. Slow clients may miss events
// (non-blocking, buffered).
func (b *EventBroadcaster) Broadcast(kind, msg string) {
	evt := Event{
		Time: time.Now().Format(time.RFC3339),
		Kind: kind,
		Msg:  msg,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastWriter wraps the broadcaster as an io.Writer so debug output can
// be teed into the status stream. Each Write becomes one "info" event.
func BroadcastWriter(b *EventBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

type broadcastWriter struct {
	b *EventBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.Broadcast("info", msg)
	}
	return len(p), nil
}
