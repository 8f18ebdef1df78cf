// Package events is the transport adapter between the external analysis
// agent and the log store. Agents publish payloads on the "sidecar-data"
// topic; the payload shape is fixed by an explicit Contract.
package events

import "context"

// TopicSidecarData is the topic the analysis agent emits classification results on.
const TopicSidecarData = "sidecar-data"

// Publisher sends one event on a topic. Encoded payloads ([]byte,
// json.RawMessage) go out unchanged.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber hands out raw payloads for a topic. The cancel func ends the
// subscription and closes the channel; it may be called more than once.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
