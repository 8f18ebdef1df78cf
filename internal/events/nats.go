package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// publishFlushTimeout bounds the post-publish flush when ctx has no deadline.
	publishFlushTimeout = 5 * time.Second

	// subscriptionBuffer is how many payloads a subscription holds before
	// new ones are dropped.
	subscriptionBuffer = 64
)

func connect(url string, opts []nats.Option) (*nats.Conn, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// encodePayload returns event as wire bytes.
func encodePayload(event any) ([]byte, error) {
	switch v := event.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshaling event: %w", err)
	}
	return data, nil
}

// NATSPublisher is a Publisher on a plain NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := connect(url, opts)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish sends event and waits for the server to acknowledge the flush, so
// a one-shot emitter can exit right after it returns.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := encodePayload(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		return p.conn.FlushTimeout(publishFlushTimeout)
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber is a Subscriber that reconnects forever.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to url. opts are applied after the reconnect
// defaults, so callers can add link handlers or override them.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	all := append([]nats.Option{nats.MaxReconnects(-1), nats.ReconnectWait(time.Second)}, opts...)
	nc, err := connect(url, all)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// subscription bridges NATS callbacks onto a channel. After stop returns the
// callback never sends again, even if the server still routes a message to
// the old subscription, and readers see the channel closed with nothing
// left in it.
type subscription struct {
	topic string
	ch    chan []byte
	sub   *nats.Subscription

	mu      sync.Mutex
	stopped bool
	once    sync.Once
}

func (s *subscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	select {
	case s.ch <- msg.Data:
	default:
		slog.Warn("events: subscription buffer full, dropping payload", "topic", s.topic)
	}
}

func (s *subscription) stop() {
	s.once.Do(func() {
		if err := s.sub.Unsubscribe(); err != nil {
			slog.Warn("events: unsubscribe failed", "topic", s.topic, "error", err)
		}
		s.mu.Lock()
		s.stopped = true
	drain:
		for {
			select {
			case <-s.ch:
			default:
				break drain
			}
		}
		close(s.ch)
		s.mu.Unlock()
	})
}

// Subscribe registers interest in topic and waits for the server to confirm
// it, so payloads published right after Subscribe returns are not missed.
func (n *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	s := &subscription{topic: topic, ch: make(chan []byte, subscriptionBuffer)}
	sub, err := n.conn.Subscribe(topic, s.deliver)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	s.sub = sub
	if err := n.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("flushing subscription to %s: %w", topic, err)
	}
	return s.ch, s.stop, nil
}

func (n *NATSSubscriber) Close() error {
	n.conn.Close()
	return nil
}
