package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/guardian/internal/model"
)

func recvEvent(t *testing.T, c *sseClient) sseEvent {
	t.Helper()
	select {
	case evt, ok := <-c.ch:
		if !ok {
			t.Fatal("client channel closed")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return sseEvent{}
}

func expectNoEvent(t *testing.T, c *sseClient) {
	t.Helper()
	select {
	case evt, ok := <-c.ch:
		if ok {
			t.Fatalf("unexpected event: id=%d topic=%q", evt.ID, evt.Topic)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_Broadcast(t *testing.T) {
	hub := newSSEHub()
	all, _ := hub.subscribe(nil, 0, false)
	warnings, _ := hub.subscribe(topicFilter{"log.entry.warning"}, 0, false)
	defer hub.unsubscribe(all)
	defer hub.unsubscribe(warnings)

	hub.broadcast(1, "log.entry.info", []byte(`{"id":"e1"}`))
	hub.broadcast(2, "log.entry.warning", []byte(`{"id":"e2"}`))

	if evt := recvEvent(t, all); evt.ID != 1 || evt.Topic != "log.entry.info" || string(evt.Data) != `{"id":"e1"}` {
		t.Errorf("first event = %+v", evt)
	}
	if evt := recvEvent(t, all); evt.ID != 2 {
		t.Errorf("second event id = %d, want 2", evt.ID)
	}
	if evt := recvEvent(t, warnings); evt.ID != 2 {
		t.Errorf("filtered client got id %d, want 2", evt.ID)
	}
	expectNoEvent(t, warnings)
}

func TestSSEHub_Unsubscribe(t *testing.T) {
	hub := newSSEHub()
	c, _ := hub.subscribe(nil, 0, false)
	hub.unsubscribe(c)
	hub.unsubscribe(c)

	hub.broadcast(1, "log.entry.info", []byte(`{}`))
	if _, ok := <-c.ch; ok {
		t.Fatal("should not receive events after unsubscribe")
	}
}

func TestSSEHub_Replay(t *testing.T) {
	hub := newSSEHub()
	for i := uint64(1); i <= 5; i++ {
		topic := "log.entry.info"
		if i%2 == 0 {
			topic = "log.entry.warning"
		}
		hub.broadcast(i, topic, []byte(fmt.Sprintf(`{"n":%d}`, i)))
	}

	c, missed := hub.subscribe(nil, 2, true)
	defer hub.unsubscribe(c)
	if len(missed) != 3 || missed[0].ID != 3 || missed[2].ID != 5 {
		t.Fatalf("missed = %+v, want ids 3..5", missed)
	}
	if string(missed[0].Data) != `{"n":3}` {
		t.Errorf("replayed data = %s", missed[0].Data)
	}

	w, missed := hub.subscribe(topicFilter{"log.entry.warning"}, 0, true)
	defer hub.unsubscribe(w)
	if len(missed) != 2 || missed[0].ID != 2 || missed[1].ID != 4 {
		t.Fatalf("filtered replay = %+v, want ids 2,4", missed)
	}

	// Without a Last-Event-ID nothing is replayed.
	n, missed := hub.subscribe(nil, 0, false)
	defer hub.unsubscribe(n)
	if len(missed) != 0 {
		t.Fatalf("replay without Last-Event-ID = %d events", len(missed))
	}
}

func TestSSEHub_HistoryLimit(t *testing.T) {
	hub := newSSEHub()
	for i := uint64(1); i <= sseHistorySize+100; i++ {
		hub.broadcast(i, "log.entry.info", []byte(`{}`))
	}

	c, missed := hub.subscribe(nil, 0, true)
	defer hub.unsubscribe(c)
	if len(missed) != sseHistorySize {
		t.Fatalf("expected %d events, got %d", sseHistorySize, len(missed))
	}
	if missed[0].ID != 101 || missed[len(missed)-1].ID != sseHistorySize+100 {
		t.Fatalf("history spans %d..%d", missed[0].ID, missed[len(missed)-1].ID)
	}
}

func TestSSEHub_Close(t *testing.T) {
	hub := newSSEHub()
	c, _ := hub.subscribe(nil, 0, false)
	hub.close()
	hub.close()

	if _, ok := <-c.ch; ok {
		t.Fatal("expected client channel closed")
	}
	hub.unsubscribe(c)

	late, missed := hub.subscribe(nil, 0, true)
	if _, ok := <-late.ch; ok || missed != nil {
		t.Fatal("subscribe after close should return a closed client")
	}
	hub.broadcast(1, "log.entry.info", []byte(`{}`))
}

func TestTopicMatches(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"log.entry.warning", "log.entry.warning", true},
		{"log.entry.warning", "log.entry.info", false},
		{"log.entry.*", "log.entry.info", true},
		{"log.*", "log.entry.info", false},
		{"log.>", "log.entry.info", true},
		{"log.>", "log", false},
		{"log.>", "other.entry.info", false},
		{"*.*.*", "log.entry.info", true},
		{"*.*.*", "log.entry", false},
	} {
		t.Run(tc.pattern+"_"+tc.topic, func(t *testing.T) {
			if got := topicMatches(tc.pattern, tc.topic); got != tc.want {
				t.Fatalf("topicMatches(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}

// streamFor runs the SSE handler until stop is called and returns the body.
func streamFor(t *testing.T, srv *Server, path, lastEventID string) (stop func() string) {
	t.Helper()
	handler := srv.NewHTTPHandler("")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", path, nil).WithContext(ctx)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	// Give the handler time to register the subscription.
	time.Sleep(50 * time.Millisecond)

	return func() string {
		time.Sleep(50 * time.Millisecond)
		cancel()
		<-done
		if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
			t.Fatalf("expected Content-Type=text/event-stream, got %q", ct)
		}
		return rec.Body.String()
	}
}

// runServer starts the store-to-SSE pump for the test's lifetime.
func runServer(t *testing.T, srv *Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Let Run register its watch before events are ingested.
	time.Sleep(20 * time.Millisecond)
}

func TestHandleLogStream_StoreChanges(t *testing.T) {
	srv, store, _ := newTestServer(t, Options{})
	runServer(t, srv)

	stop := streamFor(t, srv, "/v1/logs/stream", "")
	if err := store.Ingest(model.ClassificationEvent{URL: "https://youtube.com/shorts/abc123"}); err != nil {
		t.Fatal(err)
	}
	body := stop()

	if !strings.Contains(body, "event:log.entry.warning") {
		t.Fatalf("expected warning event in body, got:\n%s", body)
	}
	if !strings.Contains(body, "id:1\n") {
		t.Fatalf("expected id:1 in body, got:\n%s", body)
	}
}

func TestHandleLogStream_TopicFilter(t *testing.T) {
	srv, store, _ := newTestServer(t, Options{})
	runServer(t, srv)

	stop := streamFor(t, srv, "/v1/logs/stream?topics=log.entry.warning", "")
	_ = store.Ingest(model.ClassificationEvent{URL: "https://youtube.com/watch?v=xyz"})
	_ = store.Ingest(model.ClassificationEvent{URL: "https://youtube.com/shorts/abc"})
	body := stop()

	if strings.Contains(body, "log.entry.info") {
		t.Fatalf("expected info event to be filtered out, got:\n%s", body)
	}
	if !strings.Contains(body, "log.entry.warning") {
		t.Fatalf("expected warning event in body, got:\n%s", body)
	}
}

func TestHandleLogStream_LastEventID(t *testing.T) {
	srv, store, _ := newTestServer(t, Options{})
	runServer(t, srv)

	for i := 1; i <= 3; i++ {
		_ = store.Ingest(model.ClassificationEvent{URL: fmt.Sprintf("https://youtube.com/watch?v=%d", i)})
	}
	time.Sleep(50 * time.Millisecond)

	body := streamFor(t, srv, "/v1/logs/stream", "1")()

	if strings.Contains(body, "id:1\n") {
		t.Fatalf("expected event 1 to be skipped, got:\n%s", body)
	}
	if !strings.Contains(body, "id:2\n") || !strings.Contains(body, "id:3\n") {
		t.Fatalf("expected events 2 and 3 in body, got:\n%s", body)
	}
}

func TestHandleLogStream_EventFormat(t *testing.T) {
	srv, store, _ := newTestServer(t, Options{})
	runServer(t, srv)

	// Fill past the cap so the fourth change carries an eviction.
	for i := 1; i <= 3; i++ {
		_ = store.Ingest(model.ClassificationEvent{URL: fmt.Sprintf("u%d", i)})
	}
	time.Sleep(50 * time.Millisecond)

	stop := streamFor(t, srv, "/v1/logs/stream", "")
	_ = store.Ingest(model.ClassificationEvent{URL: "https://youtube.com/watch?v=4"}.WithAnalysis("이 영상은 위험합니다"))
	body := stop()

	scanner := bufio.NewScanner(strings.NewReader(body))
	var id, event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}

	if id != "4" {
		t.Fatalf("expected id=4, got %q", id)
	}
	if event != "log.entry.warning" {
		t.Fatalf("expected event=log.entry.warning, got %q", event)
	}
	var got entryEvent
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("expected valid JSON data, got %q: %v", data, err)
	}
	if got.Entry.ID != "e4" || got.Entry.Analysis != "이 영상은 위험합니다" {
		t.Errorf("entry = %+v", got.Entry)
	}
	if len(got.Evicted) != 1 || got.Evicted[0] != "e1" {
		t.Errorf("evicted = %v, want [e1]", got.Evicted)
	}
}

func TestHandleLogStream_EndsWhenStoreCloses(t *testing.T) {
	srv, store, _ := newTestServer(t, Options{})
	runServer(t, srv)

	req := httptest.NewRequest("GET", "/v1/logs/stream", nil)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.NewHTTPHandler("").ServeHTTP(rec, req)
	}()
	time.Sleep(50 * time.Millisecond)
	store.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after store close")
	}
}

func TestRun_ExitsWhenStoreCloses(t *testing.T) {
	srv, store, _ := newTestServer(t, Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	store.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after store close")
	}
}
