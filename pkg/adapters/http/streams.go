package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Event is one server-sent event of a script run.
type Event struct {
	Type       string         `json:"type"`
	Node       string         `json:"node,omitempty"`
	Message    string         `json:"message,omitempty"`
	Level      string         `json:"level,omitempty"`
	Success    *bool          `json:"success,omitempty"`
	DurationMS float64        `json:"duration_ms,omitempty"`
	Outputs    map[string]any `json:"outputs,omitempty"`
}

// StreamManager fans script events out to SSE subscribers.
type StreamManager struct {
	logger      *slog.Logger
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // script id -> channels
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

func (sm *StreamManager) Subscribe(scriptID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[scriptID]; !ok {
		sm.subscribers[scriptID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[scriptID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[scriptID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, scriptID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(scriptID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[scriptID] {
		select {
		case ch <- msg:
		default:
			// Slow client.
			sm.logger.Warn("SSE: client buffer full, dropping event", "script", scriptID)
		}
	}
}

func (sm *StreamManager) publish(scriptID string, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		sm.logger.Error("SSE: event encode failed", "script", scriptID, "err", err)
		return
	}
	sm.Broadcast(scriptID, string(data))
}

// Listener returns the event listener of one script. Install it with lattice.WithScriptListener.
func (sm *StreamManager) Listener(scriptID string) ports.EventListener {
	return &streamListener{sm: sm, script: scriptID}
}

type streamListener struct {
	sm     *StreamManager
	script string
}

func (l *streamListener) OnNodeStarted(id string) {
	l.sm.publish(l.script, Event{Type: "node_started", Node: id})
}

func (l *streamListener) OnNodeCompleted(id string, outputs map[string]domain.Value, d time.Duration) {
	evt := Event{Type: "node_completed", Node: id, DurationMS: float64(d.Microseconds()) / 1000}
	if len(outputs) > 0 {
		evt.Outputs = domain.RawMap(outputs)
	}
	l.sm.publish(l.script, evt)
}

func (l *streamListener) OnNodeError(id, message string) {
	l.sm.publish(l.script, Event{Type: "node_error", Node: id, Message: message})
}

func (l *streamListener) OnScriptCompleted(success bool) {
	l.sm.publish(l.script, Event{Type: "script_completed", Success: &success})
}

func (l *streamListener) OnScriptCancelled() {
	l.sm.publish(l.script, Event{Type: "script_cancelled"})
}

func (l *streamListener) OnLog(level, message string) {
	l.sm.publish(l.script, Event{Type: "log", Level: level, Message: message})
}

// SubscribeScriptEvents handles GET /scripts/{scriptID}/events (SSE).
func (s *Server) SubscribeScriptEvents(w http.ResponseWriter, r *http.Request) {
	scriptID, ok := s.pathParam(w, r, "scriptID")
	if !ok {
		return
	}
	if _, err := s.Engine.Graph(scriptID); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, cancel := s.Streams.Subscribe(scriptID)
	defer cancel()

	sseHeaders(w)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// SubscribeReloads handles GET /events (SSE). Every event names a changed script.
func (s *Server) SubscribeReloads(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	events, err := s.Engine.Watch(r.Context())
	if err != nil {
		s.writeError(w, http.StatusNotImplemented, err)
		return
	}

	sseHeaders(w)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", id)
			flusher.Flush()
		}
	}
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}
