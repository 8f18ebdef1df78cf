// Package feed binds a transport subscription to the log store.
//
// A Listener owns exactly one subscription. Start subscribes and spawns the
// delivery loop; Stop unsubscribes and waits for the loop to exit, so once
// Stop returns nothing from that subscription reaches the store again.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/guardian/internal/events"
	"github.com/alfredjeanlab/guardian/internal/logstore"
	"github.com/alfredjeanlab/guardian/internal/model"
)

// Ingester is the part of the log store the listener feeds.
type Ingester interface {
	Ingest(ev model.ClassificationEvent) error
}

// Recorder counts payloads the listener could not decode.
type Recorder interface {
	Rejected(reason string)
}

// Options configures a Listener. Zero values select the defaults.
type Options struct {
	Topic    string          // default events.TopicSidecarData
	Contract events.Contract // default events.DefaultContract
	Logger   *slog.Logger    // default slog.Default()
	Recorder Recorder
}

// ErrStarted is returned by Start when the listener is already running or
// has been stopped.
var ErrStarted = errors.New("feed: listener already started")

// Listener delivers payloads from one subscription into the store.
type Listener struct {
	sub      events.Subscriber
	store    Ingester
	topic    string
	contract events.Contract
	logger   *slog.Logger
	recorder Recorder

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// New creates a listener that is not yet subscribed.
func New(sub events.Subscriber, store Ingester, opts Options) *Listener {
	l := &Listener{
		sub:      sub,
		store:    store,
		topic:    opts.Topic,
		contract: opts.Contract,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if l.topic == "" {
		l.topic = events.TopicSidecarData
	}
	if l.contract == "" {
		l.contract = events.DefaultContract
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Start subscribes to the topic and begins delivering. The loop ends when
// ctx is cancelled, Stop is called, the subscription channel closes, or the
// store is closed; in every case the subscription is released.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrStarted
	}

	ch, cancel, err := l.sub.Subscribe(l.topic)
	if err != nil {
		return fmt.Errorf("feed: subscribe %s: %w", l.topic, err)
	}
	l.started = true

	l.logger.Info("feed: listening", "topic", l.topic, "contract", l.contract)
	go l.loop(ctx, ch, cancel)
	return nil
}

// Stop releases the subscription and blocks until the delivery loop has
// exited. It is safe to call more than once, and before Start; a stopped
// listener cannot be started again.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.stop)
		l.mu.Lock()
		if !l.started {
			l.started = true
			close(l.done)
		}
		l.mu.Unlock()
	})
	<-l.done
}

// Done is closed once the delivery loop has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func (l *Listener) loop(ctx context.Context, ch <-chan []byte, cancel func()) {
	defer close(l.done)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("feed: stopping", "topic", l.topic)
			return
		case <-l.stop:
			l.logger.Info("feed: stopped", "topic", l.topic)
			return
		case raw, ok := <-ch:
			if !ok {
				l.logger.Info("feed: subscription channel closed", "topic", l.topic)
				return
			}
			if err := l.deliver(raw); errors.Is(err, logstore.ErrClosed) {
				l.logger.Info("feed: store closed, releasing subscription", "topic", l.topic)
				return
			}
		}
	}
}

// deliver decodes one payload and ingests it. Malformed payloads are logged
// and dropped; only store teardown is reported to the caller.
func (l *Listener) deliver(raw []byte) error {
	ev, err := events.Decode(l.contract, raw)
	if err != nil {
		if l.recorder != nil {
			l.recorder.Rejected("decode")
		}
		l.logger.Warn("feed: dropping undecodable payload",
			"topic", l.topic, "contract", l.contract, "err", err)
		return nil
	}

	if err := l.store.Ingest(ev); err != nil {
		if errors.Is(err, logstore.ErrClosed) {
			return err
		}
		l.logger.Warn("feed: dropping event", "topic", l.topic, "err", err)
	}
	return nil
}
