package events

import (
	"context"
	"sync"
)

// NoopPublisher accepts and discards every event. The agent's dry run
// publishes through it.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// NoopSubscriber is a Subscriber whose channels never deliver (used when NATS
// is not configured and events only arrive over HTTP).
type NoopSubscriber struct{}

func (n *NoopSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	ch := make(chan []byte)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }, nil
}

func (n *NoopSubscriber) Close() error {
	return nil
}
