// Package agent is the browser-history sidecar. It watches Chrome's history
// for newly visited YouTube Shorts and publishes each visit, with its title,
// on the sidecar-data topic.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/guardian/internal/events"
	"github.com/alfredjeanlab/guardian/internal/model"
)

// batchLimit caps how many visits one poll publishes.
const batchLimit = 50

// ErrStarted is returned by Start when the agent is already polling or has
// been stopped.
var ErrStarted = errors.New("agent: already started")

// VisitSource yields history visits newer than a Chrome timestamp.
type VisitSource interface {
	VisitsSince(ctx context.Context, since int64, limit int) ([]Visit, error)
}

// Options configures an Agent. Zero values select the defaults.
type Options struct {
	Topic    string          // default events.TopicSidecarData
	Contract events.Contract // default events.DefaultContract
	Interval time.Duration   // poll interval (default 2s)
	Since    time.Time       // visits at or before this are ignored (default now)
	Titles   TitleResolver   // default: no lookup, FallbackTitle is published
	Logger   *slog.Logger
}

// Agent polls a VisitSource and publishes new visits.
type Agent struct {
	visits   VisitSource
	pub      events.Publisher
	topic    string
	contract events.Contract
	interval time.Duration
	titles   TitleResolver
	logger   *slog.Logger

	mu   sync.Mutex
	last int64 // Chrome timestamp of the newest published visit

	runMu   sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an agent. Nothing is polled until Start or PollOnce.
func New(visits VisitSource, pub events.Publisher, opts Options) *Agent {
	a := &Agent{
		visits:   visits,
		pub:      pub,
		topic:    opts.Topic,
		contract: opts.Contract,
		interval: opts.Interval,
		titles:   opts.Titles,
		logger:   opts.Logger,
	}
	if a.topic == "" {
		a.topic = events.TopicSidecarData
	}
	if a.contract == "" {
		a.contract = events.DefaultContract
	}
	if a.interval <= 0 {
		a.interval = 2 * time.Second
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	since := opts.Since
	if since.IsZero() {
		since = time.Now()
	}
	a.last = ChromeTime(since)
	return a
}

// Start begins polling on the configured interval. An agent polls in the
// background at most once over its lifetime.
func (a *Agent) Start() error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.started {
		return ErrStarted
	}
	a.started = true

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(ctx)
	}()
	return nil
}

// Stop cancels polling and waits for the current poll (if any) to finish.
// After Stop, Start returns ErrStarted.
func (a *Agent) Stop() {
	a.runMu.Lock()
	a.started = true
	if a.cancel != nil {
		a.cancel()
	}
	a.runMu.Unlock()
	a.wg.Wait()
}

func (a *Agent) run(ctx context.Context) {
	a.logger.Info("agent: watching history", "interval", a.interval, "topic", a.topic)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.PollOnce(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("agent: poll failed", "err", err)
			}
		}
	}
}

// PollOnce publishes every visit newer than the last one published and
// returns how many were published. A visit whose publish fails is retried
// on the next poll.
func (a *Agent) PollOnce(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	visits, err := a.visits.VisitsSince(ctx, a.last, batchLimit)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, v := range visits {
		ev := model.ClassificationEvent{URL: v.URL, Title: a.title(ctx, v.URL)}
		raw, err := events.Encode(a.contract, ev)
		if err != nil {
			return published, err
		}
		if err := a.pub.Publish(ctx, a.topic, raw); err != nil {
			return published, fmt.Errorf("publishing %s: %w", v.URL, err)
		}
		a.last = v.VisitTime
		published++
		a.logger.Info("agent: published visit", "url", v.URL, "title", ev.Title,
			"visited", FromChromeTime(v.VisitTime).Format(time.TimeOnly))
	}
	return published, nil
}

func (a *Agent) title(ctx context.Context, videoURL string) string {
	if a.titles == nil {
		return FallbackTitle
	}
	t, err := a.titles.Title(ctx, videoURL)
	if err != nil {
		a.logger.Warn("agent: title lookup failed", "url", videoURL, "err", err)
		return FallbackTitle
	}
	return t
}
