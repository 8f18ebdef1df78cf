// Package logstore keeps the bounded, newest-first list of classified events
// shown on the monitoring display.
//
// The Store is an explicitly owned object: callers create it, feed it with
// Ingest from any number of producers, observe it with Entries and Watch,
// and release it with Close. Ingestion is serialized under a single mutex so
// the order of Ingest calls is exactly the display order (newest first).
// Entries are never modified after creation; they leave the store only by
// falling off the tail when the cap is exceeded, or when the store is closed.
package logstore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alfredjeanlab/guardian/internal/classify"
	"github.com/alfredjeanlab/guardian/internal/idgen"
	"github.com/alfredjeanlab/guardian/internal/model"
)

// DefaultCap is the number of entries kept when Options.Cap is not set.
const DefaultCap = 10

// ErrClosed is returned by Ingest after the store has been closed.
var ErrClosed = errors.New("logstore: closed")

// ErrInvalidSeverity is returned by Ingest when the policy yields a severity
// the display cannot render.
var ErrInvalidSeverity = errors.New("logstore: policy returned an unknown severity")

// Recorder receives store activity for observability. All methods are
// called with the store lock held and must not block or call back into the store.
type Recorder interface {
	Ingested(sev model.Severity)
	Rejected(reason string)
	Evicted(n int)
	Size(n int)
}

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Cap      int              // maximum entries kept (default DefaultCap)
	Policy   classify.Policy  // severity policy (default classify.Default())
	Now      func() time.Time // ingestion clock (default time.Now)
	NewID    idgen.Func       // entry ID source (default idgen.Generate)
	Recorder Recorder         // optional metrics sink
}

// Change describes one ingestion, delivered to watchers.
type Change struct {
	Seq     uint64           // ingestion sequence number, starting at 1
	Entry   model.LogEntry   // the entry that was added at the head
	Evicted []model.LogEntry // entries dropped from the tail, oldest last
}

// Store is the capped, ordered event log.
type Store struct {
	cap      int
	policy   classify.Policy
	now      func() time.Time
	newID    idgen.Func
	recorder Recorder

	mu       sync.Mutex
	entries  []model.LogEntry // newest first
	seq      uint64
	closed   bool
	watchers map[*watcher]struct{}
}

// New creates an empty store.
func New(opts Options) *Store {
	s := &Store{
		cap:      opts.Cap,
		policy:   opts.Policy,
		now:      opts.Now,
		newID:    opts.NewID,
		recorder: opts.Recorder,
		watchers: make(map[*watcher]struct{}),
	}
	if s.cap <= 0 {
		s.cap = DefaultCap
	}
	if s.policy == nil {
		s.policy = classify.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = idgen.Generate
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	s.entries = make([]model.LogEntry, 0, s.cap+1)
	return s
}

// Ingest classifies ev and places the resulting entry at the head of the log,
// evicting from the tail when the cap is exceeded. Events without a URL are
// rejected with an error wrapping model.ErrMalformedEvent, and a policy
// result other than info or warning with ErrInvalidSeverity; in both cases
// nothing is stored.
func (s *Store) Ingest(ev model.ClassificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := model.ValidateEvent(ev); err != nil {
		s.recorder.Rejected("invalid")
		return fmt.Errorf("ingest: %w", err)
	}

	sev := s.policy.Classify(ev)
	if !sev.IsValid() {
		s.recorder.Rejected("severity")
		return fmt.Errorf("ingest: %w: %q", ErrInvalidSeverity, sev)
	}

	id, err := s.newID()
	if err != nil {
		s.recorder.Rejected("id")
		return fmt.Errorf("ingest: %w", err)
	}

	entry := model.LogEntry{
		ID:       id,
		Time:     s.now(),
		URL:      ev.URL,
		Title:    ev.Title,
		Severity: sev,
	}
	if ev.HasAnalysis {
		entry.Analysis = ev.Analysis
	}

	s.entries = append(s.entries, model.LogEntry{})
	copy(s.entries[1:], s.entries)
	s.entries[0] = entry

	var evicted []model.LogEntry
	if len(s.entries) > s.cap {
		evicted = append(evicted, s.entries[s.cap:]...)
		clear(s.entries[s.cap:])
		s.entries = s.entries[:s.cap]
	}

	s.seq++
	s.recorder.Ingested(entry.Severity)
	if len(evicted) > 0 {
		s.recorder.Evicted(len(evicted))
	}
	s.recorder.Size(len(s.entries))

	s.notify(Change{Seq: s.seq, Entry: entry, Evicted: evicted})
	return nil
}

// Entries returns a snapshot of the log, newest first.
func (s *Store) Entries() []model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cap returns the configured maximum number of entries.
func (s *Store) Cap() int {
	return s.cap
}

// Seq returns the sequence number of the most recent ingestion (0 if none).
func (s *Store) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close tears the store down: all watch channels are closed, the entries are
// dropped, and later Ingest calls return ErrClosed. Close is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for w := range s.watchers {
		w.closeLocked()
		delete(s.watchers, w)
	}
	s.entries = nil
	s.recorder.Size(0)
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type nopRecorder struct{}

func (nopRecorder) Ingested(model.Severity) {}
func (nopRecorder) Rejected(string)         {}
func (nopRecorder) Evicted(int)             {}
func (nopRecorder) Size(int)                {}
