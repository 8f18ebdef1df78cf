package logstore

import "sync"

// watchBuffer is the per-watcher channel capacity. A watcher that falls this
// far behind misses changes; it can always resynchronize from Entries.
const watchBuffer = 64

type watcher struct {
	ch   chan Change
	once sync.Once
}

// closeLocked closes the channel exactly once. Callers hold Store.mu, which
// also guards every send, so no send can race with the close.
func (w *watcher) closeLocked() {
	w.once.Do(func() { close(w.ch) })
}

// Watch registers an observer. Every successful Ingest delivers a Change on
// the returned channel. Call the returned cancel function to unregister and
// close the channel; cancel is safe to call more than once and after Close.
// Watching a closed store returns an already-closed channel.
func (s *Store) Watch() (<-chan Change, func()) {
	w := &watcher{ch: make(chan Change, watchBuffer)}

	s.mu.Lock()
	if s.closed {
		w.closeLocked()
		s.mu.Unlock()
		return w.ch, func() {}
	}
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, w)
		w.closeLocked()
	}
	return w.ch, cancel
}

// notify fans a change out to all watchers. Called with s.mu held.
func (s *Store) notify(c Change) {
	for w := range s.watchers {
		select {
		case w.ch <- c:
		default:
			// Drop for slow watchers rather than block ingestion.
		}
	}
}
