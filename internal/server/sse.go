package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// sseHistorySize is how many recent events are kept for Last-Event-ID
	// replay.
	sseHistorySize = 256

	sseClientBuffer      = 64
	sseKeepaliveInterval = 15 * time.Second
)

// sseEvent is one store change as sent on the wire.
type sseEvent struct {
	ID    uint64 // store sequence number
	Topic string // "log.entry.<severity>"
	Data  []byte
}

func (e sseEvent) writeTo(w io.Writer) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.ID, e.Topic, e.Data)
}

// topicFilter is a set of NATS-style patterns. An empty filter matches
// every topic.
type topicFilter []string

func (f topicFilter) matches(topic string) bool {
	if len(f) == 0 {
		return true
	}
	for _, p := range f {
		if topicMatches(p, topic) {
			return true
		}
	}
	return false
}

// topicMatches matches a dot-separated topic against pattern, where "*"
// matches one segment and a trailing ">" matches one or more.
func topicMatches(pattern, topic string) bool {
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, p := range pat {
		if p == ">" {
			return i < len(top)
		}
		if i >= len(top) || (p != "*" && p != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

type sseClient struct {
	filter topicFilter
	ch     chan sseEvent
}

// sseHub fans store changes out to stream clients and remembers the last
// sseHistorySize of them. One lock covers both, so a client that subscribes
// with a replay sees every event exactly once.
type sseHub struct {
	mu      sync.Mutex
	clients map[*sseClient]struct{}
	history []sseEvent // oldest first
	closed  bool
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast records an event and offers it to every matching client.
// Clients whose buffer is full miss it; they can resync from GET /v1/logs.
func (h *sseHub) broadcast(id uint64, topic string, payload []byte) {
	evt := sseEvent{ID: id, Topic: topic, Data: payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if len(h.history) == sseHistorySize {
		copy(h.history, h.history[1:])
		h.history = h.history[:sseHistorySize-1]
	}
	h.history = append(h.history, evt)

	for c := range h.clients {
		if !c.filter.matches(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

// subscribe registers a client. When replay is set it also returns the
// remembered events after lastID that match filter, oldest first. After
// close, the returned client's channel is already closed.
func (h *sseHub) subscribe(filter topicFilter, lastID uint64, replay bool) (*sseClient, []sseEvent) {
	c := &sseClient{filter: filter, ch: make(chan sseEvent, sseClientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.ch)
		return c, nil
	}
	h.clients[c] = struct{}{}
	if !replay {
		return c, nil
	}
	var missed []sseEvent
	for _, evt := range h.history {
		if evt.ID > lastID && filter.matches(evt.Topic) {
			missed = append(missed, evt)
		}
	}
	return c, missed
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.ch)
	}
}

// close ends every stream and refuses new ones.
func (h *sseHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.ch)
	}
}

// handleLogStream handles GET /v1/logs/stream.
// ?topics=log.entry.warning limits the stream to warnings; a Last-Event-ID
// header replays what the client missed. The stream ends when the store is
// closed.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	topics, err := parseTopics(r.URL.Query().Get("topics"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	var lastID uint64
	header := r.Header.Get("Last-Event-ID")
	replay := false
	if header != "" {
		if id, err := strconv.ParseUint(header, 10, 64); err == nil {
			lastID, replay = id, true
		}
	}

	client, missed := s.sseHub.subscribe(topicFilter(topics), lastID, replay)
	defer s.sseHub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for _, evt := range missed {
		evt.writeTo(w)
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-client.ch:
			if !ok {
				return
			}
			evt.writeTo(w)
			flusher.Flush()
		case <-keepalive.C:
			io.WriteString(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
